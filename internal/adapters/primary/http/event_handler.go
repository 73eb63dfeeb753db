package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/ports"
)

// EventHandler accepts order lifecycle events from the order-management
// backend and hands them to the event service for delivery.
type EventHandler struct {
	eventService ports.EventService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService ports.EventService, errorHandler *ErrorHandler, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "event"),
	}
}

// Router sets up a new chi Router for the event routes.
func (h *EventHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for the event endpoints.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandlePublishEvent)
}

// PublishEventRequest defines the expected JSON body for publishing an event.
// Full-snapshot events carry the order object; compact status updates carry
// orderId and status.
type PublishEventRequest struct {
	Type    string                `json:"type"`
	Order   *domain.OrderSnapshot `json:"order,omitempty"`
	OrderID int64                 `json:"orderId,omitempty"`
	Status  string                `json:"status,omitempty"`
}

// HandlePublishEvent handles POST /api/v1/events
func (h *EventHandler) HandlePublishEvent(w http.ResponseWriter, r *http.Request) {
	var req PublishEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	if req.Type == "" {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "type is required"))
		return
	}

	err := h.eventService.PublishEvent(r.Context(), ports.PublishEventParams{
		Type:    req.Type,
		Order:   req.Order,
		OrderID: req.OrderID,
		Status:  req.Status,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteAccepted(w, "event accepted")
}
