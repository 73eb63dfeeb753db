// Package webpush delivers payloads to browser push services using VAPID.
package webpush

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
	"github.com/tableside/order-notify/internal/core/ports"
)

// Config holds the VAPID credentials advertised to push services.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int
}

// Sender is the secondary adapter for Web Push delivery.
type Sender struct {
	cfg    Config
	logger *slog.Logger
}

// Ensure Sender implements the ports.PushSender interface.
var _ ports.PushSender = (*Sender)(nil)

// NewSender creates a Web Push sender.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger.With("component", "webpush_sender"),
	}
}

// Send delivers one payload to one subscription. A 404/410 from the push
// service means the subscription expired; ErrPushSubscriptionGone tells the
// caller to prune it.
func (s *Sender) Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return apperrors.ErrPushSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}

	s.logger.Debug("push delivered", "endpoint", sub.Endpoint, "status", resp.StatusCode)
	return nil
}
