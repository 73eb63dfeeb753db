// Package realtime implements the client side of the order-update
// notification pipeline: one persistent socket with bounded-backoff
// reconnect, reference-counted topic subscriptions replayed after every
// reconnect, frame routing, and deduplicated multi-surface delivery.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tableside/order-notify/internal/core/domain"
	apperrors "github.com/tableside/order-notify/internal/core/errors"
)

// State is the connection lifecycle state.
type State string

const (
	StateClosed       State = "closed"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
)

// Default reconnect backoff curve. The exact curve is a tunable, not a
// contract; the invariant is that delay never decreases between attempts and
// never exceeds the cap.
const (
	DefaultBackoffFloor = 3 * time.Second
	DefaultBackoffCap   = 15 * time.Second
)

// Socket is the minimal surface of a websocket connection the Conn needs.
// *websocket.Conn satisfies it; tests substitute fakes.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens a socket to an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Socket, error)
}

// gorillaDialer is the production dialer.
type gorillaDialer struct{}

func (gorillaDialer) Dial(ctx context.Context, endpoint string) (Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDialFailed, err)
	}
	return conn, nil
}

// Options configures a Conn.
type Options struct {
	// Endpoint is the socket URL. Derive it with EndpointFromOrigin rather
	// than hard-coding a host.
	Endpoint string

	// Dialer defaults to a gorilla/websocket dialer.
	Dialer Dialer

	Logger *slog.Logger

	// BackoffFloor and BackoffCap bound the reconnect delay curve.
	BackoffFloor time.Duration
	BackoffCap   time.Duration

	// OnStateChange, if set, is invoked on every state transition. Used for
	// connectivity indicators; connection errors are never surfaced as
	// errors.
	OnStateChange func(State)
}

// Conn owns one persistent socket to the notification server. At most one
// live socket exists at any time; a dropped socket is replaced only after
// the previous one is closed.
type Conn struct {
	opts   Options
	router *Router
	subs   *Subscriptions
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	sock     Socket
	attempts int
	cancel   context.CancelFunc
	done     chan struct{}

	// writeMu serializes writes to the live socket. gorilla/websocket allows
	// at most one concurrent writer, and frames arrive both from the run
	// goroutine (the replay after reconnect) and from consumer goroutines.
	writeMu sync.Mutex
}

// NewConn creates a connection in the closed state. Call Connect to start
// it.
func NewConn(opts Options) *Conn {
	if opts.Dialer == nil {
		opts.Dialer = gorillaDialer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BackoffFloor <= 0 {
		opts.BackoffFloor = DefaultBackoffFloor
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultBackoffCap
	}

	c := &Conn{
		opts:   opts,
		logger: opts.Logger.With("component", "conn", "endpoint", opts.Endpoint),
		state:  StateClosed,
	}
	c.router = NewRouter(opts.Logger)
	c.subs = newSubscriptions(c.send, opts.Logger)
	return c
}

// Router returns the message router for registering event handlers.
func (c *Conn) Router() *Router {
	return c.router
}

// Subscriptions returns the subscription manager.
func (c *Conn) Subscriptions() *Subscriptions {
	return c.subs
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the connection loop. It returns immediately; dialing,
// reading, and reconnecting happen on a background goroutine until the
// context is cancelled or Disconnect is called.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return apperrors.ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.setStateLocked(StateConnecting)
	done := c.done
	c.mu.Unlock()

	go c.run(runCtx, done)
	return nil
}

// Disconnect tears the connection down on every exit path: it cancels any
// pending reconnect timer, closes the live socket if there is one, and waits
// for the loop to stop so no notification is produced after return.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	cancel()

	// The socket is read after cancelling. The run goroutine publishes a
	// dialed socket only while the context is live, under the same mutex, so
	// a socket produced by an in-flight dial is closed either here or by the
	// run goroutine, never leaked.
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock != nil {
		_ = sock.Close()
	}
	<-done
}

// send writes a frame to the live socket. While the connection is not open
// the frame is refused; subscription frames are replayed on the next open
// instead of being thrown against a dead socket.
func (c *Conn) send(frame domain.Frame) error {
	c.mu.Lock()
	sock := c.sock
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || sock == nil {
		return apperrors.ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return sock.WriteJSON(frame)
}

func (c *Conn) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.setState(StateClosed)

	backoff := c.opts.BackoffFloor

	for {
		sock, err := c.opts.Dialer.Dial(ctx, c.opts.Endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			c.attempts++
			attempts := c.attempts
			c.mu.Unlock()

			c.logger.Warn("dial failed, will retry",
				"attempt", attempts,
				"backoff", backoff.String(),
				"error", err,
			)
			c.setState(StateReconnecting)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.opts.BackoffCap)
			continue
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			// Disconnect raced the dial. The socket was never published, so
			// nobody else will close it.
			c.mu.Unlock()
			_ = sock.Close()
			return
		}
		c.sock = sock
		c.attempts = 0
		c.setStateLocked(StateOpen)
		c.mu.Unlock()

		// Backoff resets to its floor on every successful open.
		backoff = c.opts.BackoffFloor

		c.logger.Info("socket open")
		c.subs.replay()

		c.readLoop(ctx, sock)

		c.mu.Lock()
		c.sock = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("socket closed, reconnecting", "backoff", backoff.String())
		c.setState(StateReconnecting)
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.opts.BackoffCap)
	}
}

// readLoop pumps frames from the socket into the router until the socket
// errors or closes. Errors precede close on most stacks, so a read error is
// the single reconnection trigger.
func (c *Conn) readLoop(ctx context.Context, sock Socket) {
	defer func() { _ = sock.Close() }()

	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Debug("socket read ended", "error", err)
			}
			return
		}
		c.router.OnFrame(raw)
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.setStateLocked(s)
	c.mu.Unlock()
}

// setStateLocked requires c.mu to be held.
func (c *Conn) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.opts.OnStateChange != nil {
		go c.opts.OnStateChange(s)
	}
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// delay elapsed. The timer is always stopped so teardown never leaves a
// zombie timer behind.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current, ceiling time.Duration) time.Duration {
	next := current * 2
	if next > ceiling {
		return ceiling
	}
	return next
}
