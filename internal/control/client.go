package control

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brightloom/audiopath/internal/logging"
)

// Client is the out-of-band command channel to the external mixer
// (spec.md §4.7). It is used only from the control thread: at startup to
// send initial_control_commands, and afterward to forward live parameter
// nudges. The wire encoding is explicitly out of scope for the spec; send
// and query are treated as the entire interface contract.
type Client interface {
	// Connect dials the mixer. Safe to call again after a disconnect.
	Connect(ctx context.Context) error
	// Send is fire-and-forget, with bounded retry on transport error.
	Send(ctx context.Context, address string, args []any) error
	// Query blocks for a reply up to the context's deadline (or
	// DefaultCallTimeout if the context carries none).
	Query(ctx context.Context, address string) (any, error)
	// IsConnected reports whether a connection is currently established.
	IsConnected() bool
	// Close shuts down the connection and stops the reconnect goroutine.
	Close() error
}

// Config describes how to reach the mixer.
type Config struct {
	// Addr is a "host:port" TCP address of the mixer's control listener.
	Addr string
}

type client struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	reconnectTimer *time.Timer
	reconnectStop  chan struct{}
	closed         bool
}

// NewClient creates a Client for the given mixer address. Connect must be
// called before Send/Query will succeed.
func NewClient(cfg Config) Client {
	logger := logging.ForService("control")
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		cfg:           cfg,
		logger:        logger,
		reconnectStop: make(chan struct{}),
	}
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *client) connectLocked(ctx context.Context) error {
	if c.closed {
		return ErrNotConnected
	}
	dialCtx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", c.cfg.Addr)
	if err != nil {
		c.logger.Warn("mixer connect failed", "addr", c.cfg.Addr, "error", err)
		return fmt.Errorf("control: dial %s: %w", c.cfg.Addr, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.logger.Info("connected to mixer", "addr", c.cfg.Addr)
	return nil
}

func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send writes a newline-delimited "SEND <address> <args...>" record,
// retrying up to DefaultSendRetries times on transport error before
// giving up and scheduling a reconnect.
func (c *client) Send(ctx context.Context, address string, args []any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	line := encodeRecord("SEND", address, args)

	var lastErr error
	for attempt := 0; attempt <= DefaultSendRetries; attempt++ {
		if err := c.writeLine(ctx, line); err != nil {
			lastErr = err
			c.logger.Debug("mixer send attempt failed", "address", address, "attempt", attempt, "error", err)
			c.handleTransportError(err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(DefaultSendRetryDelay):
			}
			continue
		}
		return nil
	}
	c.logger.Warn("mixer send retries exhausted", "address", address, "error", lastErr)
	return ErrSendRetriesExhausted
}

// Query writes a "QUERY <address>" record and blocks for a single reply
// line "<address> <value>", up to the call's deadline.
func (c *client) Query(ctx context.Context, address string) (any, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	line := encodeRecord("QUERY", address, nil)
	if err := c.writeLine(ctx, line); err != nil {
		c.handleTransportError(err)
		return nil, err
	}

	c.mu.Lock()
	conn, reader := c.conn, c.reader
	c.mu.Unlock()
	if conn == nil || reader == nil {
		return nil, ErrNotConnected
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	}
	reply, err := reader.ReadString('\n')
	if err != nil {
		c.handleTransportError(err)
		if ctx.Err() != nil {
			return nil, ErrQueryTimeout
		}
		return nil, fmt.Errorf("control: query %s: %w", address, err)
	}

	fields := strings.Fields(reply)
	if len(fields) < 2 || fields[0] != address {
		return nil, ErrMalformedReply
	}
	return parseValue(fields[1]), nil
}

func (c *client) writeLine(ctx context.Context, line string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	}
	_, err := conn.Write([]byte(line))
	return err
}

// handleTransportError drops the dead connection and schedules a
// reconnect attempt; callers keep operating on a degraded ErrNotConnected
// basis until reconnection succeeds.
func (c *client) handleTransportError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
	if c.closed {
		return
	}
	c.scheduleReconnectLocked(DefaultReconnectMinBackoff)
}

func (c *client) scheduleReconnectLocked(backoff time.Duration) {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(backoff, func() {
		select {
		case <-c.reconnectStop:
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), DefaultDialTimeout)
		err := c.Connect(ctx)
		cancel()
		if err == nil {
			c.logger.Info("reconnected to mixer", "addr", c.cfg.Addr)
			return
		}
		next := backoff * 2
		if next > DefaultReconnectMaxBackoff {
			next = DefaultReconnectMaxBackoff
		}
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.mu.Lock()
		c.scheduleReconnectLocked(next)
		c.mu.Unlock()
	})
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.reconnectStop)
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.reader = nil
		return err
	}
	return nil
}

func encodeRecord(verb, address string, args []any) string {
	var b strings.Builder
	b.WriteString(verb)
	b.WriteByte(' ')
	b.WriteString(address)
	for _, a := range args {
		b.WriteByte(' ')
		fmt.Fprintf(&b, "%v", a)
	}
	b.WriteByte('\n')
	return b.String()
}

func parseValue(field string) any {
	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return f
	}
	return field
}
