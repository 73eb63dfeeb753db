package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/mocks"
	"github.com/tableside/order-notify/internal/core/services"
)

func TestSubscriptionService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a valid subscription", func(t *testing.T) {
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewSubscriptionService(repo, testLogger())

		repo.On("Save", ctx, mock.AnythingOfType("*domain.PushSubscription")).
			Return(&domain.PushSubscription{
				ID:       1,
				Endpoint: "https://push.example/sub",
				P256dh:   "p256dh-key",
				Auth:     "auth-secret",
			}, nil)

		sub, err := svc.Register(ctx, "https://push.example/sub", "p256dh-key", "auth-secret")

		require.NoError(t, err)
		assert.Equal(t, int64(1), sub.ID)
		repo.AssertExpectations(t)
	})

	t.Run("rejects non-https endpoints", func(t *testing.T) {
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewSubscriptionService(repo, testLogger())

		sub, err := svc.Register(ctx, "http://push.example/sub", "key", "secret")

		assert.Nil(t, sub)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		repo.AssertNotCalled(t, "Save")
	})

	t.Run("rejects missing keys", func(t *testing.T) {
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewSubscriptionService(repo, testLogger())

		sub, err := svc.Register(ctx, "https://push.example/sub", "", "")

		assert.Nil(t, sub)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Details, "p256dh")
		assert.Contains(t, appErr.Details, "auth")
		repo.AssertNotCalled(t, "Save")
	})
}

func TestSubscriptionService_Unregister(t *testing.T) {
	ctx := context.Background()

	t.Run("removes by endpoint", func(t *testing.T) {
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewSubscriptionService(repo, testLogger())

		repo.On("DeleteByEndpoint", ctx, "https://push.example/sub").Return(nil)

		require.NoError(t, svc.Unregister(ctx, "https://push.example/sub"))
		repo.AssertExpectations(t)
	})

	t.Run("requires an endpoint", func(t *testing.T) {
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewSubscriptionService(repo, testLogger())

		err := svc.Unregister(ctx, "")

		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		repo.AssertNotCalled(t, "DeleteByEndpoint")
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewSubscriptionService(repo, testLogger())

		repo.On("DeleteByEndpoint", ctx, "https://push.example/gone").
			Return(apperrors.ErrSubscriptionNotFound)

		err := svc.Unregister(ctx, "https://push.example/gone")

		assert.ErrorIs(t, err, apperrors.ErrSubscriptionNotFound)
	})
}
