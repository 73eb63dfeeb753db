package websocket

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/tableside/order-notify/internal/core/domain"
	"github.com/tableside/order-notify/internal/core/ports"
)

// Hub maintains the set of active Clients and fans order event frames out
// to them: admin-feed subscribers see every event, order rooms see only
// their own order, and daily_reset reaches everyone.
type Hub struct {
	// clients holds every registered connection.
	clients map[*Client]bool

	// admins holds the admin-feed subscribers.
	admins map[*Client]bool

	// rooms maps order ids to subscribed clients.
	rooms map[int64]map[*Client]bool

	// Broadcast channel for frames
	broadcast chan domain.Frame

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients, admins and rooms maps
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		admins:     make(map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		broadcast:  make(chan domain.Frame, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast sends a frame to the hub's internal broadcast channel.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(frame domain.Frame) error {
	select {
	case h.broadcast <- frame:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping frame",
			"frame_type", frame.Type,
			"order_id", frame.OrderID,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case frame := <-h.broadcast:
			h.broadcastFrame(frame)
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.logger.Info("client registered",
		"client_id", client.ID,
		"total_connections", len(h.clients),
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	delete(h.admins, client)

	for _, orderID := range client.TrackedOrders() {
		if room, ok := h.rooms[orderID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, orderID)
			}
		}
	}

	client.CloseSend()

	h.logger.Info("client unregistered", "client_id", client.ID)
}

// broadcastFrame routes a frame to the clients its type addresses.
func (h *Hub) broadcastFrame(frame domain.Frame) {
	var targets []*Client

	switch {
	case frame.Type == domain.MsgDailyReset:
		targets = h.allClients()

	case frame.Type == domain.MsgNewOrder, frame.Type == domain.MsgOrderUpdate,
		strings.EqualFold(frame.Type, domain.MsgOrderUpdateCompact):
		orderID := frame.OrderID
		if orderID == 0 && frame.Order != nil {
			orderID = frame.Order.ID
		}
		targets = h.audienceFor(orderID)

	default:
		h.logger.Debug("not broadcasting frame of unknown type", "frame_type", frame.Type)
		return
	}

	h.logger.Debug("broadcasting frame",
		"frame_type", frame.Type,
		"order_id", frame.OrderID,
		"client_count", len(targets),
	)

	for _, client := range targets {
		select {
		case client.Send <- frame:
			// Successfully queued
		default:
			// Client's send buffer is full, unregister them. Direct call
			// rather than the Unregister channel: we are on the Run
			// goroutine and would block against ourselves.
			h.logger.Warn("client send buffer full, unregistering",
				"client_id", client.ID,
			)
			h.unregisterClient(client)
		}
	}
}

// allClients returns a copy of every registered client.
func (h *Hub) allClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// audienceFor returns admin subscribers plus the room for the given order,
// without duplicates.
func (h *Hub) audienceFor(orderID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]bool, len(h.admins))
	clients := make([]*Client, 0, len(h.admins))
	for client := range h.admins {
		seen[client] = true
		clients = append(clients, client)
	}
	if room, ok := h.rooms[orderID]; ok {
		for client := range room {
			if !seen[client] {
				clients = append(clients, client)
			}
		}
	}
	return clients
}

// subscribeAdmin adds a client to the admin-wide feed
func (h *Hub) subscribeAdmin(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.admins[client] = true
	client.setAdmin(true)

	h.logger.Debug("client subscribed to admin feed", "client_id", client.ID)
}

// subscribeOrder adds a client to an order's room
func (h *Hub) subscribeOrder(client *Client, orderID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[orderID] == nil {
		h.rooms[orderID] = make(map[*Client]bool)
	}
	h.rooms[orderID][client] = true
	client.addOrder(orderID)

	h.logger.Debug("client subscribed to order",
		"client_id", client.ID,
		"order_id", orderID,
	)
}

// unsubscribeOrder removes a client from an order's room
func (h *Hub) unsubscribeOrder(client *Client, orderID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[orderID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, orderID)
		}
	}
	client.removeOrder(orderID)

	h.logger.Debug("client unsubscribed from order",
		"client_id", client.ID,
		"order_id", orderID,
	)
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of active order rooms
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientsInRoom returns the number of clients subscribed to an order
func (h *Hub) ClientsInRoom(orderID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[orderID]; ok {
		return len(room)
	}
	return 0
}

// AdminCount returns the number of admin-feed subscribers
func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.admins)
}
