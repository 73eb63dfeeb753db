package realtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order-notify/internal/realtime"
)

// scopeRecorder records cache invalidations.
type scopeRecorder struct {
	scopes     []string
	resetCalls int
}

func (s *scopeRecorder) Invalidate(scope string) { s.scopes = append(s.scopes, scope) }
func (s *scopeRecorder) InvalidateAll()          { s.resetCalls++ }

// toastRecorder records shown toasts.
type toastRecorder struct {
	titles    []string
	bodies    []string
	durations []time.Duration
}

func (t *toastRecorder) Toast(title, description string, duration time.Duration) {
	t.titles = append(t.titles, title)
	t.bodies = append(t.bodies, description)
	t.durations = append(t.durations, duration)
}

// desktopFake simulates the OS notification surface.
type desktopFake struct {
	granted bool
	err     error
	tags    []string
}

func (d *desktopFake) PermissionGranted() bool { return d.granted }

func (d *desktopFake) Notify(title, body, tag string) error {
	if d.err != nil {
		return d.err
	}
	d.tags = append(d.tags, tag)
	return nil
}

type fanoutFixture struct {
	router  *realtime.Router
	caches  *scopeRecorder
	toasts  *toastRecorder
	desktop *desktopFake
	records *realtime.Records
}

func newFanoutFixture(t *testing.T, orderID int64, granted bool) *fanoutFixture {
	t.Helper()

	fx := &fanoutFixture{
		router:  realtime.NewRouter(discardLogger()),
		caches:  &scopeRecorder{},
		toasts:  &toastRecorder{},
		desktop: &desktopFake{granted: granted},
		records: realtime.NewRecords(),
	}

	fanout := realtime.NewFanout(realtime.FanoutOptions{
		Caches:  fx.caches,
		Toaster: fx.toasts,
		Desktop: fx.desktop,
		Records: fx.records,
		OrderID: orderID,
		Logger:  discardLogger(),
	})
	fanout.Attach(fx.router)
	return fx
}

func TestFanout_NewOrder(t *testing.T) {
	t.Run("invalidates admin scopes without any notification", func(t *testing.T) {
		fx := newFanoutFixture(t, 0, true)

		fx.router.OnFrame([]byte(`{"type":"NEW_ORDER","order":{"id":9,"status":"pending"}}`))

		assert.Equal(t, []string{"admin:orders", "admin:stats", "order:9"}, fx.caches.scopes)
		assert.Empty(t, fx.toasts.titles)
		assert.Empty(t, fx.desktop.tags)
	})
}

func TestFanout_StatusChange(t *testing.T) {
	t.Run("status change surfaces on every channel once", func(t *testing.T) {
		fx := newFanoutFixture(t, 0, true)

		fx.router.OnFrame([]byte(`{"type":"order_update","orderId":42,"status":"ready"}`))

		assert.Equal(t, []string{"admin:orders", "admin:stats", "order:42"}, fx.caches.scopes)

		require.Len(t, fx.toasts.titles, 1)
		assert.Equal(t, "Order #42 Update", fx.toasts.titles[0])
		assert.Equal(t, "Your order is ready for pickup!", fx.toasts.bodies[0])
		assert.Equal(t, realtime.DefaultToastDuration, fx.toasts.durations[0])

		assert.Equal(t, []string{"order-42"}, fx.desktop.tags)
	})

	t.Run("duplicate frames still refresh caches but notify once", func(t *testing.T) {
		fx := newFanoutFixture(t, 0, true)

		frame := []byte(`{"type":"order_update","orderId":42,"status":"ready"}`)
		fx.router.OnFrame(frame)
		fx.router.OnFrame(frame)

		assert.Len(t, fx.caches.scopes, 6)
		assert.Len(t, fx.toasts.titles, 1)
		assert.Len(t, fx.desktop.tags, 1)
	})

	t.Run("a later status for the same order notifies again", func(t *testing.T) {
		fx := newFanoutFixture(t, 0, true)

		fx.router.OnFrame([]byte(`{"type":"order_update","orderId":42,"status":"preparing"}`))
		fx.router.OnFrame([]byte(`{"type":"order_update","orderId":42,"status":"ready"}`))

		assert.Len(t, fx.toasts.titles, 2)
		assert.Equal(t, "Your order is being prepared", fx.toasts.bodies[0])
		assert.Equal(t, "Your order is ready for pickup!", fx.toasts.bodies[1])
	})

	t.Run("desktop is skipped without permission, toast still shows", func(t *testing.T) {
		fx := newFanoutFixture(t, 0, false)

		fx.router.OnFrame([]byte(`{"type":"order_update","orderId":42,"status":"ready"}`))

		assert.Empty(t, fx.desktop.tags)
		assert.Len(t, fx.toasts.titles, 1)
	})

	t.Run("desktop failure never blocks the toast", func(t *testing.T) {
		fx := newFanoutFixture(t, 0, true)
		fx.desktop.err = assert.AnError

		fx.router.OnFrame([]byte(`{"type":"order_update","orderId":42,"status":"ready"}`))

		assert.Len(t, fx.toasts.titles, 1)
	})
}

func TestFanout_Scoping(t *testing.T) {
	t.Run("order-scoped fan-out ignores other orders", func(t *testing.T) {
		fx := newFanoutFixture(t, 42, true)

		fx.router.OnFrame([]byte(`{"type":"order_update","orderId":7,"status":"ready"}`))

		assert.Empty(t, fx.caches.scopes)
		assert.Empty(t, fx.toasts.titles)
	})

	t.Run("order-scoped fan-out reacts to its own order", func(t *testing.T) {
		fx := newFanoutFixture(t, 42, true)

		fx.router.OnFrame([]byte(`{"type":"order_update","orderId":42,"status":"ready"}`))

		assert.Len(t, fx.toasts.titles, 1)
	})
}

func TestFanout_DailyReset(t *testing.T) {
	t.Run("daily reset invalidates everything for every scope", func(t *testing.T) {
		admin := newFanoutFixture(t, 0, true)
		scoped := newFanoutFixture(t, 42, true)

		admin.router.OnFrame([]byte(`{"type":"daily_reset"}`))
		scoped.router.OnFrame([]byte(`{"type":"daily_reset"}`))

		assert.Equal(t, 1, admin.caches.resetCalls)
		assert.Equal(t, 1, scoped.caches.resetCalls)
	})
}

func TestFanout_Detach(t *testing.T) {
	fx := newFanoutFixture(t, 0, true)

	fanout := realtime.NewFanout(realtime.FanoutOptions{
		Caches: fx.caches,
		Logger: discardLogger(),
	})
	fanout.Attach(fx.router)
	fanout.Detach()

	before := len(fx.caches.scopes)
	fx.router.OnFrame([]byte(`{"type":"order_update","orderId":1,"status":"ready"}`))

	// Only the fixture's own fan-out reacted, not the detached one.
	assert.Equal(t, before+3, len(fx.caches.scopes))
}
