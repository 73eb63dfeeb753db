package realtime

import (
	"fmt"
	"net/url"
)

// EndpointFromOrigin derives the realtime socket endpoint from a page or
// service origin. The scheme is upgraded http→ws and https→wss and the
// socket path appended, so the client works behind any host/port/TLS
// termination without separate configuration.
func EndpointFromOrigin(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}

	var scheme string
	switch u.Scheme {
	case "http", "ws":
		scheme = "ws"
	case "https", "wss":
		scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported origin scheme %q", u.Scheme)
	}

	return fmt.Sprintf("%s://%s/ws", scheme, u.Host), nil
}
