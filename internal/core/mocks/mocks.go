// Package mocks provides testify mocks for the core ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tableside/order-notify/internal/core/domain"
	"github.com/tableside/order-notify/internal/core/ports"
)

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster.
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(frame domain.Frame) error {
	args := m.Called(frame)
	return args.Error(0)
}

// MockPushSender is a mock implementation of ports.PushSender.
type MockPushSender struct {
	mock.Mock
}

func NewMockPushSender() *MockPushSender {
	return &MockPushSender{}
}

func (m *MockPushSender) Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error {
	args := m.Called(ctx, sub, payload)
	return args.Error(0)
}

// MockEventService is a mock implementation of ports.EventService.
type MockEventService struct {
	mock.Mock
}

func NewMockEventService() *MockEventService {
	return &MockEventService{}
}

func (m *MockEventService) PublishEvent(ctx context.Context, params ports.PublishEventParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockSubscriptionService is a mock implementation of
// ports.SubscriptionService.
type MockSubscriptionService struct {
	mock.Mock
}

func NewMockSubscriptionService() *MockSubscriptionService {
	return &MockSubscriptionService{}
}

func (m *MockSubscriptionService) Register(ctx context.Context, endpoint, p256dh, auth string) (*domain.PushSubscription, error) {
	args := m.Called(ctx, endpoint, p256dh, auth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PushSubscription), args.Error(1)
}

func (m *MockSubscriptionService) Unregister(ctx context.Context, endpoint string) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

// MockPushSubscriptionRepository is a mock implementation of
// ports.PushSubscriptionRepository.
type MockPushSubscriptionRepository struct {
	mock.Mock
}

func NewMockPushSubscriptionRepository() *MockPushSubscriptionRepository {
	return &MockPushSubscriptionRepository{}
}

func (m *MockPushSubscriptionRepository) Save(ctx context.Context, sub *domain.PushSubscription) (*domain.PushSubscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PushSubscription), args.Error(1)
}

func (m *MockPushSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error) {
	args := m.Called(ctx, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PushSubscription), args.Error(1)
}

func (m *MockPushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

func (m *MockPushSubscriptionRepository) List(ctx context.Context) ([]*domain.PushSubscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PushSubscription), args.Error(1)
}
