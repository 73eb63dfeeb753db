package services

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/ports"
)

// SubscriptionService manages Web Push subscription registrations.
type SubscriptionService struct {
	repo   ports.PushSubscriptionRepository
	logger *slog.Logger
}

// Ensure SubscriptionService implements the ports.SubscriptionService interface.
var _ ports.SubscriptionService = (*SubscriptionService)(nil)

// NewSubscriptionService creates a subscription service.
func NewSubscriptionService(repo ports.PushSubscriptionRepository, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:   repo,
		logger: logger.With("component", "subscription_service"),
	}
}

// Register stores a push subscription. Registering an endpoint twice
// refreshes its keys rather than failing, since browsers re-post the same
// subscription after a service worker update.
func (s *SubscriptionService) Register(ctx context.Context, endpoint, p256dh, auth string) (*domain.PushSubscription, error) {
	details := map[string]interface{}{}
	if !validEndpoint(endpoint) {
		details["endpoint"] = "must be an https URL"
	}
	if p256dh == "" {
		details["p256dh"] = "is required"
	}
	if auth == "" {
		details["auth"] = "is required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError(apperrors.ErrBadRequest, "invalid push subscription", details)
	}

	sub, err := s.repo.Save(ctx, &domain.PushSubscription{
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("push subscription registered", "endpoint", endpoint)
	return sub, nil
}

// Unregister removes a push subscription by endpoint.
func (s *SubscriptionService) Unregister(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "endpoint is required")
	}

	if err := s.repo.DeleteByEndpoint(ctx, endpoint); err != nil {
		return err
	}

	s.logger.Info("push subscription removed", "endpoint", endpoint)
	return nil
}

func validEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	return err == nil && u.Scheme == "https" && u.Host != ""
}
