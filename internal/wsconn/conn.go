package wsconn

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"thirdcoast.systems/airwave/internal/session"
)

const (
	defaultSendQueueSize = 64
	defaultWriteTimeout  = 5 * time.Second
	defaultPingInterval  = 30 * time.Second
	defaultPongWait      = 60 * time.Second
	defaultMaxFrameBytes = 1 << 20
)

var (
	// ErrClosed is returned by Send after the connection has been closed.
	ErrClosed = errors.New("wsconn: connection closed")
	// ErrSlowConsumer is returned by Send when the outbound queue is full.
	// The connection is torn down before it is returned.
	ErrSlowConsumer = errors.New("wsconn: send queue full")
)

// Options tunes a Conn. Zero values fall back to defaults.
type Options struct {
	SendQueueSize int
	WriteTimeout  time.Duration
	PingInterval  time.Duration
	PongWait      time.Duration
	MaxFrameBytes int64
	Clock         clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = defaultSendQueueSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = defaultMaxFrameBytes
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Conn adapts a gorilla WebSocket connection to session.Conn.
//
// Writes go through a bounded queue drained by a single writer goroutine, so
// Send never blocks. Receive must be called from one goroutine only.
type Conn struct {
	id    string
	ws    *websocket.Conn
	opts  Options
	clock clockwork.Clock

	sendCh chan []byte
	done   chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	stopWatch func() bool
}

var _ session.Conn = (*Conn)(nil)

// New wraps ws and starts its writer. The connection is closed with
// CloseGoingAway when ctx is cancelled.
func New(ctx context.Context, ws *websocket.Conn, opts Options) *Conn {
	opts = opts.withDefaults()
	c := &Conn{
		id:     uuid.NewString(),
		ws:     ws,
		opts:   opts,
		clock:  opts.Clock,
		sendCh: make(chan []byte, opts.SendQueueSize),
		done:   make(chan struct{}),
	}

	ws.SetReadLimit(opts.MaxFrameBytes)
	c.extendReadDeadline()
	ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	c.wg.Add(1)
	go c.writeLoop()

	stop := context.AfterFunc(ctx, func() {
		_ = c.Close(websocket.CloseGoingAway, "server shutting down")
	})
	c.mu.Lock()
	c.stopWatch = stop
	c.mu.Unlock()
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() string { return c.ws.RemoteAddr().String() }

// Send queues frame for delivery as a binary message.
func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.sendCh <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		slog.Warn("Disconnecting slow listener", "conn_id", c.id, "queue", c.opts.SendQueueSize)
		c.abort()
		return ErrSlowConsumer
	}
}

// Receive blocks for the next message. Text messages yield
// session.ErrUnsupportedFrame; binary messages are returned verbatim.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	typ, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	c.extendReadDeadline()
	if typ != websocket.BinaryMessage {
		return nil, session.ErrUnsupportedFrame
	}
	return data, nil
}

// Close stops the writer, sends a close message and closes the socket.
// Only the first call (or an earlier abort) has any effect.
func (c *Conn) Close(code int, reason string) error {
	if !c.markClosed() {
		return nil
	}
	c.wg.Wait()

	msg := websocket.FormatCloseMessage(code, reason)
	err := c.ws.WriteControl(websocket.CloseMessage, msg, c.clock.Now().Add(c.opts.WriteTimeout))
	if cerr := c.ws.Close(); err == nil {
		err = cerr
	}
	return err
}

// abort closes the socket without a close handshake. It does not wait for
// the writer, so it is safe to call from the writer itself.
func (c *Conn) abort() {
	if c.markClosed() {
		_ = c.ws.Close()
	}
}

// markClosed signals the writer to stop. It reports whether this call did
// the closing.
func (c *Conn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	if c.stopWatch != nil {
		c.stopWatch()
	}
	close(c.done)
	return true
}

func (c *Conn) writeLoop() {
	ticker := c.clock.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	defer c.wg.Done()

	for {
		select {
		case frame := <-c.sendCh:
			c.extendWriteDeadline()
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				slog.Debug("Write failed", "conn_id", c.id, "error", err)
				c.abort()
				return
			}
		case <-ticker.Chan():
			c.extendWriteDeadline()
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Ping failed", "conn_id", c.id, "error", err)
				c.abort()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) extendWriteDeadline() {
	_ = c.ws.SetWriteDeadline(c.clock.Now().Add(c.opts.WriteTimeout))
}

func (c *Conn) extendReadDeadline() {
	_ = c.ws.SetReadDeadline(c.clock.Now().Add(c.opts.PongWait))
}
