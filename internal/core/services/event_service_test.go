package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/mocks"
	"github.com/tableside/order-notify/internal/core/ports"
	"github.com/tableside/order-notify/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventService_PublishEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("new order broadcasts without push", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		sender := mocks.NewMockPushSender()
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewEventService(broadcaster, sender, repo, testLogger())

		order := &domain.OrderSnapshot{ID: 9, Status: "pending", CustomerName: "Ada"}
		broadcaster.On("Broadcast", domain.Frame{Type: domain.MsgNewOrder, Order: order}).Return(nil)

		err := svc.PublishEvent(ctx, ports.PublishEventParams{
			Type:  domain.MsgNewOrder,
			Order: order,
		})

		require.NoError(t, err)
		broadcaster.AssertExpectations(t)
		repo.AssertNotCalled(t, "List")
		sender.AssertNotCalled(t, "Send")
	})

	t.Run("status change broadcasts and pushes to every subscription", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		sender := mocks.NewMockPushSender()
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewEventService(broadcaster, sender, repo, testLogger())

		frame := domain.Frame{Type: domain.MsgOrderUpdateCompact, OrderID: 42, Status: "ready"}
		broadcaster.On("Broadcast", frame).Return(nil)

		subs := []*domain.PushSubscription{
			{ID: 1, Endpoint: "https://push.example/a"},
			{ID: 2, Endpoint: "https://push.example/b"},
		}
		repo.On("List", ctx).Return(subs, nil)
		sender.On("Send", ctx, subs[0], mock.Anything).Return(nil)
		sender.On("Send", ctx, subs[1], mock.Anything).Return(nil)

		err := svc.PublishEvent(ctx, ports.PublishEventParams{
			Type:    domain.MsgOrderUpdateCompact,
			OrderID: 42,
			Status:  "ready",
		})

		require.NoError(t, err)
		broadcaster.AssertExpectations(t)
		sender.AssertNumberOfCalls(t, "Send", 2)

		// The payload carries the dedup data the receivers key on.
		raw := sender.Calls[0].Arguments.Get(2).([]byte)
		var payload domain.PushPayload
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, "Order #42 Update", payload.Title)
		assert.Equal(t, "Your order is ready for pickup!", payload.Body)
		assert.Equal(t, "order-42", payload.Tag)
		assert.Equal(t, int64(42), payload.Data.OrderID)
		assert.Equal(t, "ready", payload.Data.Status)
	})

	t.Run("expired subscriptions are pruned", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		sender := mocks.NewMockPushSender()
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewEventService(broadcaster, sender, repo, testLogger())

		broadcaster.On("Broadcast", mock.Anything).Return(nil)

		gone := &domain.PushSubscription{ID: 1, Endpoint: "https://push.example/expired"}
		alive := &domain.PushSubscription{ID: 2, Endpoint: "https://push.example/alive"}
		repo.On("List", ctx).Return([]*domain.PushSubscription{gone, alive}, nil)
		sender.On("Send", ctx, gone, mock.Anything).Return(apperrors.ErrPushSubscriptionGone)
		sender.On("Send", ctx, alive, mock.Anything).Return(nil)
		repo.On("DeleteByEndpoint", ctx, gone.Endpoint).Return(nil)

		err := svc.PublishEvent(ctx, ports.PublishEventParams{
			Type:    domain.MsgOrderUpdateCompact,
			OrderID: 42,
			Status:  "ready",
		})

		require.NoError(t, err)
		repo.AssertCalled(t, "DeleteByEndpoint", ctx, gone.Endpoint)
		sender.AssertNumberOfCalls(t, "Send", 2)
	})

	t.Run("push delivery failure does not fail the publish", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		sender := mocks.NewMockPushSender()
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewEventService(broadcaster, sender, repo, testLogger())

		broadcaster.On("Broadcast", mock.Anything).Return(nil)
		repo.On("List", ctx).Return([]*domain.PushSubscription{
			{ID: 1, Endpoint: "https://push.example/a"},
		}, nil)
		sender.On("Send", ctx, mock.Anything, mock.Anything).Return(assert.AnError)

		err := svc.PublishEvent(ctx, ports.PublishEventParams{
			Type:    domain.MsgOrderUpdateCompact,
			OrderID: 42,
			Status:  "ready",
		})

		require.NoError(t, err)
		repo.AssertNotCalled(t, "DeleteByEndpoint")
	})

	t.Run("daily reset broadcasts to sockets only", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		sender := mocks.NewMockPushSender()
		repo := mocks.NewMockPushSubscriptionRepository()
		svc := services.NewEventService(broadcaster, sender, repo, testLogger())

		broadcaster.On("Broadcast", domain.Frame{Type: domain.MsgDailyReset}).Return(nil)

		err := svc.PublishEvent(ctx, ports.PublishEventParams{Type: domain.MsgDailyReset})

		require.NoError(t, err)
		sender.AssertNotCalled(t, "Send")
	})

	t.Run("works without push wiring", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewEventService(broadcaster, nil, nil, testLogger())

		broadcaster.On("Broadcast", mock.Anything).Return(nil)

		err := svc.PublishEvent(ctx, ports.PublishEventParams{
			Type:    domain.MsgOrderUpdateCompact,
			OrderID: 42,
			Status:  "ready",
		})

		require.NoError(t, err)
	})

	t.Run("rejects unknown event types", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewEventService(broadcaster, nil, nil, testLogger())

		err := svc.PublishEvent(ctx, ports.PublishEventParams{Type: "SOMETHING_ELSE"})

		assert.ErrorIs(t, err, apperrors.ErrUnknownFrameType)
		broadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("rejects snapshot events without an order", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewEventService(broadcaster, nil, nil, testLogger())

		err := svc.PublishEvent(ctx, ports.PublishEventParams{Type: domain.MsgNewOrder})

		assert.Error(t, err)
		broadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("rejects compact updates missing id or status", func(t *testing.T) {
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewEventService(broadcaster, nil, nil, testLogger())

		err := svc.PublishEvent(ctx, ports.PublishEventParams{
			Type:    domain.MsgOrderUpdateCompact,
			OrderID: 42,
		})

		assert.Error(t, err)
		broadcaster.AssertNotCalled(t, "Broadcast")
	})
}
