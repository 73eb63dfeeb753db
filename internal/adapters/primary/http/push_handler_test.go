package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPushRouter(svc *mocks.MockSubscriptionService) chi.Router {
	handler := NewPushHandler(svc, "test-vapid-public-key", NewErrorHandler(testLogger()), testLogger())
	r := chi.NewRouter()
	r.Route("/push", handler.RegisterRoutes)
	return r
}

func TestPushHandler_VAPIDPublicKey(t *testing.T) {
	r := newPushRouter(mocks.NewMockSubscriptionService())

	req := httptest.NewRequest(stdhttp.MethodGet, "/push/vapid-public-key", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test-vapid-public-key", body.Data["publicKey"])
}

func TestPushHandler_Subscribe(t *testing.T) {
	t.Run("registers a browser subscription", func(t *testing.T) {
		svc := mocks.NewMockSubscriptionService()
		svc.On("Register", mock.Anything, "https://push.example/sub", "key", "secret").
			Return(&domain.PushSubscription{ID: 1, Endpoint: "https://push.example/sub"}, nil)

		r := newPushRouter(svc)

		body := `{"endpoint":"https://push.example/sub","keys":{"p256dh":"key","auth":"secret"}}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/push/subscriptions", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, stdhttp.StatusCreated, rec.Code)

		var sub domain.PushSubscription
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
		assert.Equal(t, int64(1), sub.ID)
		// Encryption keys never leak back out.
		assert.NotContains(t, rec.Body.String(), "secret")
		svc.AssertExpectations(t)
	})

	t.Run("rejects a body that is not JSON", func(t *testing.T) {
		svc := mocks.NewMockSubscriptionService()
		r := newPushRouter(svc)

		req := httptest.NewRequest(stdhttp.MethodPost, "/push/subscriptions", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Register")
	})

	t.Run("maps validation failures to 422", func(t *testing.T) {
		svc := mocks.NewMockSubscriptionService()
		svc.On("Register", mock.Anything, "http://insecure.example", "", "").
			Return(nil, apperrors.NewValidationError(apperrors.ErrBadRequest, "invalid push subscription", map[string]interface{}{
				"endpoint": "must be an https URL",
			}))

		r := newPushRouter(svc)

		body := `{"endpoint":"http://insecure.example","keys":{}}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/push/subscriptions", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.Contains(t, resp.Details, "endpoint")
	})
}

func TestPushHandler_Unsubscribe(t *testing.T) {
	t.Run("removes a subscription", func(t *testing.T) {
		svc := mocks.NewMockSubscriptionService()
		svc.On("Unregister", mock.Anything, "https://push.example/sub").Return(nil)

		r := newPushRouter(svc)

		body := `{"endpoint":"https://push.example/sub"}`
		req := httptest.NewRequest(stdhttp.MethodDelete, "/push/subscriptions", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusNoContent, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown endpoint maps to 404", func(t *testing.T) {
		svc := mocks.NewMockSubscriptionService()
		svc.On("Unregister", mock.Anything, "https://push.example/gone").
			Return(apperrors.ErrSubscriptionNotFound)

		r := newPushRouter(svc)

		body := `{"endpoint":"https://push.example/gone"}`
		req := httptest.NewRequest(stdhttp.MethodDelete, "/push/subscriptions", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	})
}
