package ports

import (
	"context"

	"github.com/tableside/order-notify/internal/core/domain"
)

// EventBroadcaster defines the port for fanning a frame out to connected
// realtime clients.
type EventBroadcaster interface {
	Broadcast(frame domain.Frame) error
}

// PushSender defines the port for delivering one payload to one Web Push
// subscription. Implementations return ErrPushSubscriptionGone when the
// platform reports the endpoint as expired so callers can prune it.
type PushSender interface {
	Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error
}

// PublishEventParams is the input for publishing an order lifecycle event.
type PublishEventParams struct {
	Type    string
	Order   *domain.OrderSnapshot
	OrderID int64
	Status  string
}

// EventService defines the core operation of the pipeline: accept an event
// already emitted by the order-management backend and deliver it over every
// channel.
type EventService interface {
	PublishEvent(ctx context.Context, params PublishEventParams) error
}

// SubscriptionService defines the port for managing push subscription
// registrations.
type SubscriptionService interface {
	Register(ctx context.Context, endpoint, p256dh, auth string) (*domain.PushSubscription, error)
	Unregister(ctx context.Context, endpoint string) error
}
