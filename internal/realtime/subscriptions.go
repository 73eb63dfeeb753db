package realtime

import (
	"log/slog"
	"sync"

	"github.com/tableside/order-notify/internal/core/domain"
)

// TopicKind distinguishes the two subscription scopes.
type TopicKind string

const (
	// TopicKindAdmin is the admin-wide feed carrying every order event.
	TopicKindAdmin TopicKind = "admin"

	// TopicKindOrder scopes delivery to a single order.
	TopicKindOrder TopicKind = "order"
)

// Topic is a named scope of events a client subscribes to.
type Topic struct {
	Kind    TopicKind
	OrderID int64
}

// AdminFeed returns the admin-wide feed topic.
func AdminFeed() Topic {
	return Topic{Kind: TopicKindAdmin}
}

// OrderTopic returns the topic for a single order's updates.
func OrderTopic(orderID int64) Topic {
	return Topic{Kind: TopicKindOrder, OrderID: orderID}
}

func (t Topic) subscribeFrame() domain.Frame {
	if t.Kind == TopicKindAdmin {
		return domain.Frame{Type: domain.MsgSubscribeAdmin}
	}
	return domain.Frame{Type: domain.MsgSubscribeOrderUpdates, OrderID: t.OrderID}
}

// Subscriptions tracks which topics the client wants, reference-counted per
// topic so independent consumers (an admin dashboard and a tracked-order
// widget open at once) can overlap without tearing each other down.
//
// The server holds no subscription state across socket drops, so the active
// set is replayed after every successful (re)connect.
type Subscriptions struct {
	mu     sync.Mutex
	refs   map[Topic]int
	send   func(domain.Frame) error
	logger *slog.Logger
}

func newSubscriptions(send func(domain.Frame) error, logger *slog.Logger) *Subscriptions {
	return &Subscriptions{
		refs:   make(map[Topic]int),
		send:   send,
		logger: logger.With("component", "subscriptions"),
	}
}

// Consumer creates an independent subscription handle. Each consumer's
// subscriptions are idempotent; closing a consumer releases everything it
// holds.
func (s *Subscriptions) Consumer() *Consumer {
	return &Consumer{subs: s, topics: make(map[Topic]bool)}
}

// Active returns the currently referenced topics.
func (s *Subscriptions) Active() []Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]Topic, 0, len(s.refs))
	for t := range s.refs {
		topics = append(topics, t)
	}
	return topics
}

// replay sends a subscription frame for every active topic. Called once per
// transition to open; only the pending subscription set is replayed, stale
// data frames are never buffered.
func (s *Subscriptions) replay() {
	for _, t := range s.Active() {
		s.trySend(t.subscribeFrame())
	}
}

// trySend attempts to deliver a frame now. A send against a connection that
// is not open is not an error: the topic stays in the active set and is
// replayed on the next open.
func (s *Subscriptions) trySend(frame domain.Frame) {
	if err := s.send(frame); err != nil {
		s.logger.Debug("subscription frame deferred until reconnect",
			"type", frame.Type,
			"order_id", frame.OrderID,
			"error", err,
		)
	}
}

func (s *Subscriptions) retain(t Topic) {
	s.mu.Lock()
	s.refs[t]++
	first := s.refs[t] == 1
	s.mu.Unlock()

	if first {
		s.trySend(t.subscribeFrame())
	}
}

func (s *Subscriptions) release(t Topic) {
	s.mu.Lock()
	if s.refs[t] == 0 {
		s.mu.Unlock()
		return
	}
	s.refs[t]--
	last := s.refs[t] == 0
	if last {
		delete(s.refs, t)
	}
	s.mu.Unlock()

	// Explicit unsubscribe is best-effort; the server also stops caring once
	// the socket closes.
	if last && t.Kind == TopicKindOrder {
		s.trySend(domain.Frame{Type: domain.MsgUnsubscribeOrderUpdates, OrderID: t.OrderID})
	}
}

// Consumer is one independent holder of subscriptions.
type Consumer struct {
	subs   *Subscriptions
	mu     sync.Mutex
	topics map[Topic]bool
	closed bool
}

// Subscribe adds the topic to this consumer's set. Subscribing twice to the
// same topic has the same effect as once.
func (c *Consumer) Subscribe(t Topic) {
	c.mu.Lock()
	if c.closed || c.topics[t] {
		c.mu.Unlock()
		return
	}
	c.topics[t] = true
	c.mu.Unlock()

	c.subs.retain(t)
}

// Unsubscribe removes the topic from this consumer's set. The topic stays
// live while any other consumer still holds it.
func (c *Consumer) Unsubscribe(t Topic) {
	c.mu.Lock()
	if c.closed || !c.topics[t] {
		c.mu.Unlock()
		return
	}
	delete(c.topics, t)
	c.mu.Unlock()

	c.subs.release(t)
}

// Close releases every topic this consumer holds. Idempotent.
func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	held := make([]Topic, 0, len(c.topics))
	for t := range c.topics {
		held = append(held, t)
	}
	c.topics = nil
	c.mu.Unlock()

	for _, t := range held {
		c.subs.release(t)
	}
}
