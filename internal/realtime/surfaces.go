package realtime

import "time"

// CacheInvalidator is the collaborator interface for the cached query state
// shared across consumers on a page. The fan-out only invalidates scopes;
// consumers re-fetch on their next read and never mutate the cache directly.
type CacheInvalidator interface {
	// Invalidate marks one logical query scope stale (e.g. "admin:orders",
	// "order:42").
	Invalidate(scope string)

	// InvalidateAll marks every scope stale. Used for daily_reset.
	InvalidateAll()
}

// Toaster displays an in-page toast. Toasts are attempted regardless of
// notification permission state.
type Toaster interface {
	Toast(title, description string, duration time.Duration)
}

// DesktopNotifier displays an OS-level notification. The tag makes a later
// notification for the same order replace the earlier one instead of
// stacking.
type DesktopNotifier interface {
	// PermissionGranted reports whether the user has granted notification
	// permission. When false the desktop surface is skipped silently.
	PermissionGranted() bool

	Notify(title, body, tag string) error
}
