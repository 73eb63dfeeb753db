package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tableside/order-notify/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan domain.Frame

	// ID identifies this connection in logs.
	ID uuid.UUID

	// admin marks this client as subscribed to the admin-wide feed.
	admin bool

	// orders holds the order ids this client tracks.
	orders map[int64]bool

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// mu protects admin and orders
	mu sync.RWMutex

	// logger for this client
	logger *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan domain.Frame, 256),
		ID:     id,
		orders: make(map[int64]bool),
		logger: logger.With("client_id", id.String()),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// setAdmin marks or unmarks this client as an admin-feed subscriber.
func (c *Client) setAdmin(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.admin = v
}

// IsAdmin reports whether this client receives the admin-wide feed.
func (c *Client) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admin
}

func (c *Client) addOrder(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[orderID] = true
}

func (c *Client) removeOrder(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, orderID)
}

// TracksOrder checks if the client is subscribed to an order
func (c *Client) TracksOrder(orderID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orders[orderID]
}

// TrackedOrders returns a copy of all subscribed order ids
func (c *Client) TrackedOrders() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int64, 0, len(c.orders))
	for orderID := range c.orders {
		ids = append(ids, orderID)
	}
	return ids
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(frame); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON frame to the websocket connection
func (c *Client) writeJSON(frame domain.Frame) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(frame); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// handleIncomingMessage processes subscription frames received from the
// client. Subscriptions are idempotent; unknown types are ignored so newer
// clients keep working against this server.
func (c *Client) handleIncomingMessage(message []byte) {
	var frame domain.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.logger.Warn("failed to unmarshal client frame", "error", err)
		return
	}

	switch frame.Type {
	case domain.MsgSubscribeAdmin:
		c.Hub.subscribeAdmin(c)

	case domain.MsgSubscribeOrderUpdates, domain.MsgSubscribeToOrder:
		// SUBSCRIBE_TO_ORDER is a legacy alias with identical semantics.
		if frame.OrderID <= 0 {
			c.logger.Warn("invalid order id in subscribe request", "order_id", frame.OrderID)
			return
		}
		c.Hub.subscribeOrder(c, frame.OrderID)

	case domain.MsgUnsubscribeOrderUpdates:
		c.Hub.unsubscribeOrder(c, frame.OrderID)

	case domain.MsgPing:
		// Client-side keep-alive, respond with pong
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", frame.Type)
	}
}

func (c *Client) sendPong() {
	select {
	case c.Send <- domain.Frame{Type: domain.MsgPong}:
	default:
		// Channel full, skip pong response
	}
}
