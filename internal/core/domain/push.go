package domain

import "time"

// Default notification content used when a push payload cannot be parsed.
// The receiver must still surface something rather than dropping the event.
const (
	DefaultPushTitle = "Order Update"
	DefaultPushBody  = "Your order status has been updated"
)

// PushSubscription is a registered Web Push endpoint for one browser. The
// encryption keys never appear in API responses.
type PushSubscription struct {
	ID        int64     `json:"id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"-"`
	Auth      string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// PushData is the structured data embedded in a push payload. OrderID routes
// a notification click to the right tracking view; Status feeds the
// (orderId, status) dedup check shared with the socket path.
type PushData struct {
	OrderID int64  `json:"orderId,omitempty"`
	Status  string `json:"status,omitempty"`
}

// PushPayload is the JSON body of a platform push message. Every field is
// optional; the receiver falls back to DefaultPushTitle/DefaultPushBody.
type PushPayload struct {
	Title string   `json:"title,omitempty"`
	Body  string   `json:"body,omitempty"`
	Tag   string   `json:"tag,omitempty"`
	Data  PushData `json:"data,omitempty"`
}
