package realtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order-notify/internal/realtime"
)

func TestEndpointFromOrigin(t *testing.T) {
	t.Run("derives socket endpoint from origin", func(t *testing.T) {
		cases := []struct {
			origin string
			want   string
		}{
			{"http://localhost:8080", "ws://localhost:8080/ws"},
			{"https://orders.example.com", "wss://orders.example.com/ws"},
			{"ws://localhost:8080", "ws://localhost:8080/ws"},
			{"wss://orders.example.com:443", "wss://orders.example.com:443/ws"},
		}

		for _, tc := range cases {
			got, err := realtime.EndpointFromOrigin(tc.origin)
			require.NoError(t, err, "origin %q", tc.origin)
			assert.Equal(t, tc.want, got)
		}
	})

	t.Run("rejects origin without host", func(t *testing.T) {
		_, err := realtime.EndpointFromOrigin("http://")
		assert.Error(t, err)
	})

	t.Run("rejects unsupported scheme", func(t *testing.T) {
		_, err := realtime.EndpointFromOrigin("ftp://example.com")
		assert.Error(t, err)
	})
}
