package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/ports"
)

// PushHandler handles Web Push subscription registration. The request body
// mirrors the PushSubscription.toJSON() shape browsers produce.
type PushHandler struct {
	subscriptionService ports.SubscriptionService
	vapidPublicKey      string
	errorHandler        *ErrorHandler
	logger              *slog.Logger
}

// NewPushHandler creates a new push subscription handler
func NewPushHandler(
	subscriptionService ports.SubscriptionService,
	vapidPublicKey string,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *PushHandler {
	return &PushHandler{
		subscriptionService: subscriptionService,
		vapidPublicKey:      vapidPublicKey,
		errorHandler:        errorHandler,
		logger:              logger.With("handler", "push"),
	}
}

// Router sets up a new chi Router for the push routes.
func (h *PushHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for the push endpoints.
func (h *PushHandler) RegisterRoutes(r chi.Router) {
	r.Get("/vapid-public-key", h.HandleVAPIDPublicKey)
	r.Post("/subscriptions", h.HandleSubscribe)
	r.Delete("/subscriptions", h.HandleUnsubscribe)
}

// SubscribeRequest defines the expected JSON body for registering a push
// subscription, matching the browser PushSubscription serialization.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// UnsubscribeRequest defines the expected JSON body for removing a push
// subscription.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// HandleVAPIDPublicKey handles GET /api/v1/push/vapid-public-key
func (h *PushHandler) HandleVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]string{"publicKey": h.vapidPublicKey})
}

// HandleSubscribe handles POST /api/v1/push/subscriptions
func (h *PushHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	sub, err := h.subscriptionService.Register(r.Context(), req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("push subscription registered", "subscription_id", sub.ID)
	WriteCreated(w, sub)
}

// HandleUnsubscribe handles DELETE /api/v1/push/subscriptions
func (h *PushHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	if err := h.subscriptionService.Unregister(r.Context(), req.Endpoint); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}
