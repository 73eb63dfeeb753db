package realtime

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
)

// DefaultToastDuration is how long a toast stays visible.
const DefaultToastDuration = 5 * time.Second

// FanoutOptions configures a delivery fan-out.
type FanoutOptions struct {
	// Caches receives invalidation calls for affected query scopes. This is
	// the mandatory side effect of every order event, independent of whether
	// any human-visible notification is shown.
	Caches CacheInvalidator

	// Toaster is the in-page surface, attempted regardless of permission
	// state. Optional.
	Toaster Toaster

	// Desktop is the OS-level surface, attempted only when permission is
	// granted. Optional.
	Desktop DesktopNotifier

	// Records is the session-wide (orderId, status) dedup set, shared with
	// the background push receiver.
	Records *Records

	// OrderID scopes a customer-facing fan-out to a single tracked order.
	// Zero means admin scope: react to every event regardless of order id.
	OrderID int64

	ToastDuration time.Duration
	Logger        *slog.Logger
}

// Fanout consumes classified events, refreshes cached query state, and
// drives the notification surfaces. Surfaces are attempted independently;
// failure of one never blocks another.
type Fanout struct {
	opts    FanoutOptions
	logger  *slog.Logger
	removes []func()
}

// NewFanout creates a fan-out. Attach it to a router to start receiving
// events.
func NewFanout(opts FanoutOptions) *Fanout {
	if opts.Records == nil {
		opts.Records = NewRecords()
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = DefaultToastDuration
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fanout{
		opts:   opts,
		logger: opts.Logger.With("component", "fanout"),
	}
}

// Attach registers the fan-out's handlers on the router.
func (f *Fanout) Attach(r *Router) {
	f.removes = append(f.removes,
		r.Handle(domain.KindNewOrder, f.handleNewOrder),
		r.Handle(domain.KindStatusChange, f.handleStatusChange),
		r.Handle(domain.KindDailyReset, f.handleDailyReset),
	)
}

// Detach unregisters the fan-out from its router.
func (f *Fanout) Detach() {
	for _, remove := range f.removes {
		remove()
	}
	f.removes = nil
}

// inScope applies the scoping rule: an order-scoped consumer only reacts to
// events for its own order, an admin-scoped consumer reacts to everything.
func (f *Fanout) inScope(orderID int64) bool {
	return f.opts.OrderID == 0 || f.opts.OrderID == orderID
}

func (f *Fanout) handleNewOrder(evt domain.OrderEvent) {
	if !f.inScope(evt.OrderID) {
		return
	}

	f.invalidateOrderScopes(evt.OrderID)
	// The admin feed is visual only: the refreshed order list and stats
	// carry the change, no notification surface fires for new orders.
}

func (f *Fanout) handleStatusChange(evt domain.OrderEvent) {
	if !f.inScope(evt.OrderID) {
		return
	}

	f.invalidateOrderScopes(evt.OrderID)

	if !f.opts.Records.FirstDelivery(evt.OrderID, evt.Status) {
		// Already surfaced in this session, possibly via the push path.
		// Caches were refreshed above; suppress the redundant notification.
		f.logger.Debug("suppressing duplicate notification",
			"order_id", evt.OrderID,
			"status", evt.Status,
		)
		return
	}

	title := domain.NotificationTitle(evt.OrderID)
	body := domain.StatusMessage(evt.Status)

	if f.opts.Desktop != nil && f.opts.Desktop.PermissionGranted() {
		err := f.opts.Desktop.Notify(title, body, domain.NotificationTag(evt.OrderID))
		switch {
		case errors.Is(err, apperrors.ErrPermissionDenied):
			// Permission revoked between the check and the show. The toast
			// below still covers the event.
			f.logger.Debug("desktop notification skipped", "order_id", evt.OrderID)
		case err != nil:
			f.logger.Warn("desktop notification failed",
				"order_id", evt.OrderID,
				"error", err,
			)
		}
	}

	if f.opts.Toaster != nil {
		f.opts.Toaster.Toast(title, body, f.opts.ToastDuration)
	}
}

func (f *Fanout) handleDailyReset(evt domain.OrderEvent) {
	f.logger.Info("daily reset received, invalidating all cached scopes")
	if f.opts.Caches != nil {
		f.opts.Caches.InvalidateAll()
	}
}

func (f *Fanout) invalidateOrderScopes(orderID int64) {
	if f.opts.Caches == nil {
		return
	}
	f.opts.Caches.Invalidate(domain.ScopeAdminOrders)
	f.opts.Caches.Invalidate(domain.ScopeAdminStats)
	if orderID != 0 {
		f.opts.Caches.Invalidate(domain.ScopeOrder(orderID))
	}
}
