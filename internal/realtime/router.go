package realtime

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
)

// Handler consumes a canonical order event. Multiple independent handlers
// may be registered for the same kind; dispatch is fan-out, not
// single-dispatch.
type Handler func(domain.OrderEvent)

// Router decodes inbound frames, classifies them by their type
// discriminator, and dispatches to every registered handler. A malformed
// frame is logged and discarded; it never propagates into the socket's read
// loop.
type Router struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[domain.EventKind]map[int]Handler
	logger   *slog.Logger
	now      func() time.Time
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[domain.EventKind]map[int]Handler),
		logger:   logger.With("component", "router"),
		now:      time.Now,
	}
}

// Handle registers a handler for an event kind and returns a function that
// removes it again.
func (r *Router) Handle(kind domain.EventKind, h Handler) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handlers[kind] == nil {
		r.handlers[kind] = make(map[int]Handler)
	}
	id := r.nextID
	r.nextID++
	r.handlers[kind][id] = h

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handlers[kind], id)
	}
}

// OnFrame is the single dispatch entry point for raw inbound frames.
func (r *Router) OnFrame(raw []byte) {
	var frame domain.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		r.logger.Warn("dropping malformed frame",
			"error", &apperrors.ProtocolError{Reason: err.Error(), Raw: raw},
		)
		return
	}

	switch {
	case frame.Type == domain.MsgNewOrder:
		evt := domain.OrderEvent{
			Kind:       domain.KindNewOrder,
			Order:      frame.Order,
			ReceivedAt: r.now(),
		}
		if frame.Order != nil {
			evt.OrderID = frame.Order.ID
			evt.Status = frame.Order.Status
		}
		r.dispatch(evt)

	case strings.EqualFold(frame.Type, domain.MsgOrderUpdateCompact):
		evt := domain.OrderEvent{
			Kind:       domain.KindStatusChange,
			OrderID:    frame.OrderID,
			Status:     frame.Status,
			Order:      frame.Order,
			ReceivedAt: r.now(),
		}
		if frame.Order != nil {
			if evt.OrderID == 0 {
				evt.OrderID = frame.Order.ID
			}
			if evt.Status == "" {
				evt.Status = frame.Order.Status
			}
		}
		// Status changes always carry an order id; anything else is a
		// protocol violation, dropped like a parse failure.
		if evt.OrderID == 0 {
			r.logger.Warn("dropping status change without order id", "type", frame.Type)
			return
		}
		r.dispatch(evt)

	case frame.Type == domain.MsgDailyReset:
		r.dispatch(domain.OrderEvent{Kind: domain.KindDailyReset, ReceivedAt: r.now()})

	case frame.Type == domain.MsgSubscribeAdmin,
		frame.Type == domain.MsgSubscribeOrderUpdates,
		frame.Type == domain.MsgSubscribeToOrder,
		frame.Type == domain.MsgPong:
		// Outbound types echoed back, and keep-alive replies. Nothing to do.

	default:
		// Unknown types are ignored for forward compatibility with server
		// additions.
		r.logger.Debug("ignoring unrecognized frame type", "type", frame.Type)
	}
}

func (r *Router) dispatch(evt domain.OrderEvent) {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.handlers[evt.Kind]))
	for _, h := range r.handlers[evt.Kind] {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
