package domain

import (
	"fmt"
	"time"
)

// Wire message types exchanged over the realtime socket.
//
// ORDER_UPDATE and order_update carry the same intent; the lowercase compact
// form is what the event ingestion path emits, the uppercase form carries a
// full order snapshot. SUBSCRIBE_TO_ORDER is a legacy alias for
// SUBSCRIBE_ORDER_UPDATES kept for older clients.
const (
	MsgSubscribeAdmin          = "SUBSCRIBE_ADMIN"
	MsgSubscribeOrderUpdates   = "SUBSCRIBE_ORDER_UPDATES"
	MsgSubscribeToOrder        = "SUBSCRIBE_TO_ORDER"
	MsgUnsubscribeOrderUpdates = "UNSUBSCRIBE_ORDER_UPDATES"
	MsgNewOrder                = "NEW_ORDER"
	MsgOrderUpdate             = "ORDER_UPDATE"
	MsgOrderUpdateCompact      = "order_update"
	MsgDailyReset              = "daily_reset"
	MsgPing                    = "PING"
	MsgPong                    = "PONG"
)

// Frame is one discrete JSON message on the socket, in either direction.
// Fields beyond Type are populated depending on the message type.
type Frame struct {
	Type    string         `json:"type"`
	Order   *OrderSnapshot `json:"order,omitempty"`
	OrderID int64          `json:"orderId,omitempty"`
	Status  string         `json:"status,omitempty"`
}

// EventKind classifies a canonical inbound notification.
type EventKind string

const (
	KindNewOrder     EventKind = "NEW_ORDER"
	KindStatusChange EventKind = "STATUS_CHANGE"
	KindDailyReset   EventKind = "DAILY_RESET"
)

// OrderEvent is the canonical normalized form of an inbound notification.
// StatusChange events always carry a non-zero OrderID; DailyReset carries
// none and signals "invalidate everything".
type OrderEvent struct {
	Kind       EventKind
	OrderID    int64
	Status     string
	Order      *OrderSnapshot
	ReceivedAt time.Time
}

// Cache scopes invalidated by the delivery fan-out. Consumers re-fetch on
// their next read; they never mutate cached state directly.
const (
	ScopeAdminOrders = "admin:orders"
	ScopeAdminStats  = "admin:stats"
)

// ScopeOrder returns the cache scope for a single order's detail view.
func ScopeOrder(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// NotificationTag returns the notification tag for an order so a later
// notification for the same order replaces the earlier one instead of
// stacking.
func NotificationTag(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// NotificationTitle returns the desktop notification title for an order.
func NotificationTitle(orderID int64) string {
	return fmt.Sprintf("Order #%d Update", orderID)
}
