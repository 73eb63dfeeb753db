// Command watch is a terminal consumer of the order-update feed. It is the
// operational equivalent of an open admin dashboard: it connects to a
// notification server, subscribes to the admin feed or a single order, and
// renders every delivery surface as log lines.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tableside/order-notify/internal/infrastructure/logging"
	"github.com/tableside/order-notify/internal/realtime"
)

func main() {
	var (
		origin  = flag.String("origin", "http://localhost:8080", "server origin to derive the socket endpoint from")
		orderID = flag.Int64("order", 0, "watch a single order id instead of the admin feed")
		floor   = flag.Duration("backoff-floor", realtime.DefaultBackoffFloor, "minimum reconnect delay")
		ceiling = flag.Duration("backoff-cap", realtime.DefaultBackoffCap, "maximum reconnect delay")
		level   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger := logging.NewLogger(logging.Config{
		Level:       *level,
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "order-watch",
	})

	endpoint, err := realtime.EndpointFromOrigin(*origin)
	if err != nil {
		logger.Error("invalid origin", "origin", *origin, "error", err)
		os.Exit(1)
	}

	conn := realtime.NewConn(realtime.Options{
		Endpoint:     endpoint,
		Logger:       logger,
		BackoffFloor: *floor,
		BackoffCap:   *ceiling,
		OnStateChange: func(s realtime.State) {
			logger.Info("connection state changed", "state", string(s))
		},
	})

	fanout := realtime.NewFanout(realtime.FanoutOptions{
		Caches:  &logInvalidator{logger: logger},
		Toaster: &logToaster{logger: logger},
		Desktop: &logNotifier{logger: logger},
		OrderID: *orderID,
		Logger:  logger,
	})
	fanout.Attach(conn.Router())

	consumer := conn.Subscriptions().Consumer()
	if *orderID > 0 {
		consumer.Subscribe(realtime.OrderTopic(*orderID))
		logger.Info("watching order", "order_id", *orderID)
	} else {
		consumer.Subscribe(realtime.AdminFeed())
		logger.Info("watching admin feed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", "signal", sig.String())
	consumer.Close()
	conn.Disconnect()
}

// logInvalidator logs cache invalidations instead of evicting anything; the
// terminal has no query cache.
type logInvalidator struct {
	logger *slog.Logger
}

func (l *logInvalidator) Invalidate(scope string) {
	l.logger.Debug("cache invalidated", "scope", scope)
}

func (l *logInvalidator) InvalidateAll() {
	l.logger.Debug("all caches invalidated")
}

// logToaster prints toasts to stdout so they read like the in-page banner.
type logToaster struct {
	logger *slog.Logger
}

func (l *logToaster) Toast(title, description string, duration time.Duration) {
	fmt.Printf("%s: %s\n", title, description)
	l.logger.Debug("toast shown", "title", title, "duration", duration.String())
}

// logNotifier stands in for the desktop notification surface.
type logNotifier struct {
	logger *slog.Logger
}

func (l *logNotifier) PermissionGranted() bool { return true }

func (l *logNotifier) Notify(title, body, tag string) error {
	l.logger.Info("notification", "title", title, "body", body, "tag", tag)
	return nil
}
