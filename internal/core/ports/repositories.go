package ports

import (
	"context"

	"github.com/tableside/order-notify/internal/core/domain"
)

// PushSubscriptionRepository defines the port for persisting Web Push
// subscriptions.
type PushSubscriptionRepository interface {
	// Save stores a subscription, updating the keys if the endpoint is
	// already registered.
	Save(ctx context.Context, sub *domain.PushSubscription) (*domain.PushSubscription, error)

	// GetByEndpoint retrieves a subscription by its endpoint URL.
	GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error)

	// DeleteByEndpoint removes a subscription by its endpoint URL.
	DeleteByEndpoint(ctx context.Context, endpoint string) error

	// List returns all registered subscriptions.
	List(ctx context.Context) ([]*domain.PushSubscription, error)
}
