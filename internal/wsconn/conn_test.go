package wsconn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/airwave/internal/session"
)

func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

func newTestConn(t *testing.T, opts Options) (*Conn, *ws.Conn) {
	t.Helper()
	server, client := newTestConnPair(t)
	c := New(context.Background(), server, opts)
	t.Cleanup(func() { _ = c.Close(ws.CloseNormalClosure, "") })
	return c, client
}

func TestConn_SendDeliversBinaryFrames(t *testing.T) {
	c, client := newTestConn(t, Options{})
	require.NotEmpty(t, c.ID())
	require.NotEmpty(t, c.RemoteAddr())

	require.NoError(t, c.Send([]byte{0x01, 0x02}))
	require.NoError(t, c.Send([]byte("second")))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ws.BinaryMessage, typ)
	assert.Equal(t, []byte{0x01, 0x02}, data)

	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestConn_Receive(t *testing.T) {
	c, client := newTestConn(t, Options{})
	ctx := context.Background()

	require.NoError(t, client.WriteMessage(ws.TextMessage, []byte("hello")))
	require.NoError(t, client.WriteMessage(ws.BinaryMessage, []byte{0xde, 0xad}))

	_, err := c.Receive(ctx)
	require.ErrorIs(t, err, session.ErrUnsupportedFrame)

	data, err := c.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, data)

	require.NoError(t, client.Close())
	_, err = c.Receive(ctx)
	require.Error(t, err)
}

func TestConn_ReceiveRejectsOversizedFrame(t *testing.T) {
	c, client := newTestConn(t, Options{MaxFrameBytes: 8})

	require.NoError(t, client.WriteMessage(ws.BinaryMessage, make([]byte, 64)))
	_, err := c.Receive(context.Background())
	require.ErrorIs(t, err, ws.ErrReadLimit)
}

func TestConn_CloseSendsReason(t *testing.T) {
	c, client := newTestConn(t, Options{})

	require.NoError(t, c.Close(ws.ClosePolicyViolation, session.RejectReason))
	// Second close is a no-op.
	require.NoError(t, c.Close(ws.CloseNormalClosure, ""))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	var closeErr *ws.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, ws.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, session.RejectReason, closeErr.Text)

	require.ErrorIs(t, c.Send([]byte("late")), ErrClosed)
}

func TestConn_ContextCancelClosesGoingAway(t *testing.T) {
	server, client := newTestConnPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	c := New(ctx, server, Options{})

	cancel()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	var closeErr *ws.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, ws.CloseGoingAway, closeErr.Code)

	_, err = c.Receive(context.Background())
	require.Error(t, err)
}

func TestConn_SlowConsumerIsDisconnected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow consumer test in short mode")
	}

	c, _ := newTestConn(t, Options{SendQueueSize: 1, WriteTimeout: 10 * time.Second})

	// The client never reads, so the socket buffers fill, the writer blocks
	// and the one-slot queue overflows.
	frame := make([]byte, 1<<20)
	var err error
	for range 256 {
		if err = c.Send(frame); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, ErrSlowConsumer)
	require.ErrorIs(t, c.Send(frame), ErrClosed)

	_, err = c.Receive(context.Background())
	require.Error(t, err)
}

func TestConn_SendsPings(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	_, client := newTestConn(t, Options{PingInterval: 10 * time.Second, PongWait: time.Minute, Clock: clock})

	pinged := make(chan struct{}, 1)
	client.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(10 * time.Second)

	select {
	case <-pinged:
	case <-ctx.Done():
		t.Fatal("expected a ping after the interval elapsed")
	}
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, defaultSendQueueSize, o.SendQueueSize)
	assert.Equal(t, defaultWriteTimeout, o.WriteTimeout)
	assert.Equal(t, defaultPingInterval, o.PingInterval)
	assert.Equal(t, defaultPongWait, o.PongWait)
	assert.Equal(t, int64(defaultMaxFrameBytes), o.MaxFrameBytes)
	assert.NotNil(t, o.Clock)
}
