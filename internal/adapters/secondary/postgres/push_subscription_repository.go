package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/ports"
)

// PushSubscriptionRepository is the secondary adapter for Web Push
// subscription persistence.
type PushSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// Ensure PushSubscriptionRepository implements the port.
var _ ports.PushSubscriptionRepository = (*PushSubscriptionRepository)(nil)

// NewPushSubscriptionRepository creates a new push subscription repository.
func NewPushSubscriptionRepository(pool *pgxpool.Pool) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{pool: pool}
}

// Save stores a subscription, refreshing the keys if the endpoint is
// already registered.
func (r *PushSubscriptionRepository) Save(ctx context.Context, sub *domain.PushSubscription) (*domain.PushSubscription, error) {
	const query = `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth)
		VALUES ($1, $2, $3)
		ON CONFLICT (endpoint)
		DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
		RETURNING id, endpoint, p256dh, auth, created_at`

	var saved domain.PushSubscription
	err := r.pool.QueryRow(ctx, query, sub.Endpoint, sub.P256dh, sub.Auth).Scan(
		&saved.ID, &saved.Endpoint, &saved.P256dh, &saved.Auth, &saved.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetByEndpoint retrieves a subscription by its endpoint URL.
func (r *PushSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error) {
	const query = `
		SELECT id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		WHERE endpoint = $1`

	var sub domain.PushSubscription
	err := r.pool.QueryRow(ctx, query, endpoint).Scan(
		&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// DeleteByEndpoint removes a subscription by its endpoint URL.
func (r *PushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	const query = `DELETE FROM push_subscriptions WHERE endpoint = $1`

	tag, err := r.pool.Exec(ctx, query, endpoint)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSubscriptionNotFound
	}
	return nil
}

// List returns all registered subscriptions.
func (r *PushSubscriptionRepository) List(ctx context.Context) ([]*domain.PushSubscription, error) {
	const query = `
		SELECT id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.PushSubscription
	for rows.Next() {
		var sub domain.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}
