package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/ports"
)

// EventService accepts order lifecycle events from the order-management
// backend and delivers them over every channel: the websocket hub for
// connected clients and Web Push for registered background subscriptions.
// The two channels are independent; a push failure never blocks the socket
// path and vice versa.
type EventService struct {
	broadcaster ports.EventBroadcaster
	pushSender  ports.PushSender
	pushRepo    ports.PushSubscriptionRepository
	logger      *slog.Logger
}

// Ensure EventService implements the ports.EventService interface.
var _ ports.EventService = (*EventService)(nil)

// NewEventService creates an event service. pushSender and pushRepo may be
// nil when Web Push is disabled; the socket path still works.
func NewEventService(
	broadcaster ports.EventBroadcaster,
	pushSender ports.PushSender,
	pushRepo ports.PushSubscriptionRepository,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		broadcaster: broadcaster,
		pushSender:  pushSender,
		pushRepo:    pushRepo,
		logger:      logger.With("component", "event_service"),
	}
}

// PublishEvent validates, broadcasts, and pushes one event.
func (s *EventService) PublishEvent(ctx context.Context, params ports.PublishEventParams) error {
	frame, err := buildFrame(params)
	if err != nil {
		return err
	}

	if err := s.broadcaster.Broadcast(frame); err != nil {
		// Broadcast is best-effort and never fails the publish; the push
		// channel below still runs.
		s.logger.Warn("broadcast failed", "frame_type", frame.Type, "error", err)
	}

	s.pushStatusChange(ctx, frame)
	return nil
}

// buildFrame validates the raw params and normalizes them to a wire frame.
func buildFrame(params ports.PublishEventParams) (domain.Frame, error) {
	switch {
	case params.Type == domain.MsgNewOrder, params.Type == domain.MsgOrderUpdate:
		if params.Order == nil || params.Order.ID == 0 {
			return domain.Frame{}, apperrors.NewValidationError(
				apperrors.ErrBadRequest,
				"order snapshot with id is required",
				map[string]interface{}{"type": params.Type},
			)
		}
		return domain.Frame{Type: params.Type, Order: params.Order}, nil

	case strings.EqualFold(params.Type, domain.MsgOrderUpdateCompact):
		if params.OrderID == 0 || params.Status == "" {
			return domain.Frame{}, apperrors.NewValidationError(
				apperrors.ErrBadRequest,
				"orderId and status are required",
				map[string]interface{}{"type": params.Type},
			)
		}
		return domain.Frame{
			Type:    domain.MsgOrderUpdateCompact,
			OrderID: params.OrderID,
			Status:  params.Status,
		}, nil

	case params.Type == domain.MsgDailyReset:
		return domain.Frame{Type: domain.MsgDailyReset}, nil

	default:
		return domain.Frame{}, apperrors.NewBadRequestError(
			apperrors.ErrUnknownFrameType,
			"unknown event type: "+params.Type,
		)
	}
}

// pushStatusChange delivers a status change to every registered push
// subscription. Only status changes go out-of-band: the admin feed is
// visual-only and daily_reset matters only to open pages.
func (s *EventService) pushStatusChange(ctx context.Context, frame domain.Frame) {
	if s.pushSender == nil || s.pushRepo == nil {
		return
	}

	orderID, status := frame.OrderID, frame.Status
	if frame.Order != nil {
		if orderID == 0 {
			orderID = frame.Order.ID
		}
		if status == "" {
			status = frame.Order.Status
		}
	}
	if frame.Type == domain.MsgNewOrder || frame.Type == domain.MsgDailyReset || orderID == 0 {
		return
	}

	payload, err := json.Marshal(domain.PushPayload{
		Title: domain.NotificationTitle(orderID),
		Body:  domain.StatusMessage(status),
		Tag:   domain.NotificationTag(orderID),
		Data:  domain.PushData{OrderID: orderID, Status: status},
	})
	if err != nil {
		s.logger.Error("failed to marshal push payload", "error", err)
		return
	}

	subs, err := s.pushRepo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list push subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		if err := s.pushSender.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, apperrors.ErrPushSubscriptionGone) {
				// The push service reported the endpoint expired; prune it.
				if delErr := s.pushRepo.DeleteByEndpoint(ctx, sub.Endpoint); delErr != nil {
					s.logger.Warn("failed to prune expired push subscription",
						"endpoint", sub.Endpoint,
						"error", delErr,
					)
				}
				continue
			}
			s.logger.Warn("push delivery failed",
				"endpoint", sub.Endpoint,
				"order_id", orderID,
				"error", err,
			)
		}
	}
}
