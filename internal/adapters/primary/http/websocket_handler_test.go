package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wsAdapter "github.com/tableside/order-notify/internal/adapters/primary/websocket"
	"github.com/tableside/order-notify/internal/config"
	"github.com/tableside/order-notify/internal/core/domain"
)

func devConfig() *config.Config {
	return &config.Config{
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		App: config.AppConfig{Environment: "development"},
	}
}

// startWSServer brings up a hub and an HTTP server exposing /ws.
func startWSServer(t *testing.T) (*wsAdapter.Hub, *httptest.Server) {
	t.Helper()

	hub := wsAdapter.NewHub(testLogger())
	go hub.Run()

	handler := NewWebSocketHandler(hub, devConfig(), testLogger())
	r := chi.NewRouter()
	r.Get("/ws", handler.ServeHTTP)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return hub, server
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) domain.Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame domain.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocketHandler_EndToEnd(t *testing.T) {
	t.Run("subscribed client receives its order's updates", func(t *testing.T) {
		hub, server := startWSServer(t)
		conn := dialWS(t, server)

		require.NoError(t, conn.WriteJSON(domain.Frame{
			Type:    domain.MsgSubscribeOrderUpdates,
			OrderID: 42,
		}))

		require.Eventually(t, func() bool {
			return hub.ClientsInRoom(42) == 1
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, hub.Broadcast(domain.Frame{
			Type:    domain.MsgOrderUpdateCompact,
			OrderID: 42,
			Status:  "ready",
		}))

		frame := readFrame(t, conn)
		assert.Equal(t, domain.MsgOrderUpdateCompact, frame.Type)
		assert.Equal(t, int64(42), frame.OrderID)
		assert.Equal(t, "ready", frame.Status)
	})

	t.Run("legacy subscribe alias joins the same room", func(t *testing.T) {
		hub, server := startWSServer(t)
		conn := dialWS(t, server)

		require.NoError(t, conn.WriteJSON(domain.Frame{
			Type:    domain.MsgSubscribeToOrder,
			OrderID: 7,
		}))

		require.Eventually(t, func() bool {
			return hub.ClientsInRoom(7) == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("admin subscriber sees new orders, trackers do not", func(t *testing.T) {
		hub, server := startWSServer(t)
		admin := dialWS(t, server)
		tracker := dialWS(t, server)

		require.NoError(t, admin.WriteJSON(domain.Frame{Type: domain.MsgSubscribeAdmin}))
		require.NoError(t, tracker.WriteJSON(domain.Frame{
			Type:    domain.MsgSubscribeOrderUpdates,
			OrderID: 7,
		}))

		require.Eventually(t, func() bool {
			return hub.AdminCount() == 1 && hub.ClientsInRoom(7) == 1
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, hub.Broadcast(domain.Frame{
			Type:  domain.MsgNewOrder,
			Order: &domain.OrderSnapshot{ID: 100, Status: "pending"},
		}))

		frame := readFrame(t, admin)
		assert.Equal(t, domain.MsgNewOrder, frame.Type)
		require.NotNil(t, frame.Order)
		assert.Equal(t, int64(100), frame.Order.ID)

		// The tracker's socket stays silent.
		require.NoError(t, tracker.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		var stray domain.Frame
		assert.Error(t, tracker.ReadJSON(&stray))
	})

	t.Run("ping is answered with pong", func(t *testing.T) {
		_, server := startWSServer(t)
		conn := dialWS(t, server)

		require.NoError(t, conn.WriteJSON(domain.Frame{Type: domain.MsgPing}))

		frame := readFrame(t, conn)
		assert.Equal(t, domain.MsgPong, frame.Type)
	})

	t.Run("disconnect leaves no membership behind", func(t *testing.T) {
		hub, server := startWSServer(t)
		conn := dialWS(t, server)

		require.NoError(t, conn.WriteJSON(domain.Frame{
			Type:    domain.MsgSubscribeOrderUpdates,
			OrderID: 42,
		}))
		require.Eventually(t, func() bool {
			return hub.ClientsInRoom(42) == 1
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, conn.Close())

		require.Eventually(t, func() bool {
			return hub.ClientCount() == 0 && hub.RoomCount() == 0
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestWebSocketHandler_OriginPolicy(t *testing.T) {
	t.Run("production rejects unknown origins", func(t *testing.T) {
		hub := wsAdapter.NewHub(testLogger())
		go hub.Run()

		cfg := devConfig()
		cfg.App.Environment = "production"
		cfg.WebSocket.AllowedOrigins = []string{"orders.example.com", "*.admin.example.com"}

		handler := NewWebSocketHandler(hub, cfg, testLogger())
		r := chi.NewRouter()
		r.Get("/ws", handler.ServeHTTP)
		server := httptest.NewServer(r)
		t.Cleanup(server.Close)

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

		header := stdhttp.Header{"Origin": []string{"https://evil.example.com"}}
		_, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.Error(t, err)
		if resp != nil {
			assert.Equal(t, stdhttp.StatusForbidden, resp.StatusCode)
			_ = resp.Body.Close()
		}

		header = stdhttp.Header{"Origin": []string{"https://orders.example.com"}}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		if resp != nil {
			_ = resp.Body.Close()
		}
		_ = conn.Close()

		header = stdhttp.Header{"Origin": []string{"https://ops.admin.example.com"}}
		conn, resp, err = websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		if resp != nil {
			_ = resp.Body.Close()
		}
		_ = conn.Close()
	})
}
