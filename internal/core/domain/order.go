package domain

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderSnapshot is the partial view of an order carried inside realtime
// frames and push payloads. It matches the order API response shape.
type OrderSnapshot struct {
	ID           int64   `json:"id"`
	Status       string  `json:"status"`
	CustomerName string  `json:"customerName"`
	Total        float64 `json:"total"`
}

// statusMessages maps order statuses to the customer-facing notification body.
var statusMessages = map[string]string{
	string(StatusConfirmed): "Your order has been confirmed!",
	string(StatusPreparing): "Your order is being prepared",
	string(StatusReady):     "Your order is ready for pickup!",
	string(StatusCompleted): "Your order is complete. Thank you!",
	string(StatusCancelled): "Your order has been cancelled",
}

// StatusMessage returns the human notification body for a status. Unknown
// statuses fall back to a generic message so new server-side statuses still
// produce something readable.
func StatusMessage(status string) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Your order status has been updated to: " + status
}
