// Package pushworker implements the background delivery path: it receives
// platform push payloads while no realtime socket is open, renders a
// notification, and routes notification clicks to the right order view.
//
// It runs independently of the page's connection, so delivery may arrive
// before or after the corresponding socket frame; the shared dedup record
// set resolves the race.
package pushworker

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/tableside/order-notify/internal/core/domain"
	"github.com/tableside/order-notify/internal/realtime"
)

// NotificationShower renders an OS notification from the background
// context.
type NotificationShower interface {
	Show(title, body, tag string) error
}

// Window is one open client window the receiver can route a click to.
type Window interface {
	URL() string
	Focus() error
}

// WindowClients enumerates open windows and opens new ones.
type WindowClients interface {
	Windows() []Window
	OpenWindow(url string) error
}

// Receiver handles push and notification-click events.
type Receiver struct {
	shower  NotificationShower
	windows WindowClients
	records *realtime.Records
	logger  *slog.Logger
}

// NewReceiver creates a push receiver. records may be shared with an
// in-page delivery fan-out so the two paths deduplicate against each other;
// pass nil to disable dedup (e.g. when no page context exists).
func NewReceiver(shower NotificationShower, windows WindowClients, records *realtime.Records, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		shower:  shower,
		windows: windows,
		records: records,
		logger:  logger.With("component", "push_receiver"),
	}
}

// HandlePush processes one push message. A payload that cannot be parsed
// still produces a notification with default content: the user is never
// silently dropped.
func (r *Receiver) HandlePush(raw []byte) error {
	payload := parsePayload(raw, r.logger)

	if r.records != nil && payload.Data.OrderID != 0 && payload.Data.Status != "" {
		if !r.records.FirstDelivery(payload.Data.OrderID, payload.Data.Status) {
			r.logger.Debug("suppressing duplicate push notification",
				"order_id", payload.Data.OrderID,
				"status", payload.Data.Status,
			)
			return nil
		}
	}

	return r.shower.Show(payload.Title, payload.Body, payload.Tag)
}

// parsePayload decodes a push payload, falling back to default content for
// missing fields or an unparsable body.
func parsePayload(raw []byte, logger *slog.Logger) domain.PushPayload {
	var payload domain.PushPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Warn("unparsable push payload, using defaults", "error", err)
		payload = domain.PushPayload{}
	}

	if payload.Title == "" {
		payload.Title = domain.DefaultPushTitle
	}
	if payload.Body == "" {
		payload.Body = domain.DefaultPushBody
	}
	if payload.Tag == "" && payload.Data.OrderID != 0 {
		payload.Tag = domain.NotificationTag(payload.Data.OrderID)
	}
	return payload
}

// TargetURL computes the navigation target for a clicked notification.
func TargetURL(data domain.PushData) string {
	if data.OrderID == 0 {
		return "/"
	}
	return "/tracking/" + strconv.FormatInt(data.OrderID, 10)
}

// HandleClick routes a notification click: an already-open window showing
// the target URL is focused; a new window is opened only if none matches,
// so clicks never pile up duplicate tabs.
func (r *Receiver) HandleClick(data domain.PushData) error {
	target := TargetURL(data)

	for _, w := range r.windows.Windows() {
		if w.URL() == target {
			if err := w.Focus(); err != nil {
				r.logger.Warn("failed to focus window, opening a new one",
					"url", target,
					"error", err,
				)
				break
			}
			return nil
		}
	}

	return r.windows.OpenWindow(target)
}
