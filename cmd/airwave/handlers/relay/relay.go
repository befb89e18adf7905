package relay

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/airwave/internal/session"
	"thirdcoast.systems/airwave/internal/wsconn"
)

// HandleBroadcast upgrades the request and runs a broadcaster session on it.
// ctx is the server lifetime; cancelling it closes the connection.
func HandleBroadcast(ctx context.Context, up *websocket.Upgrader, opts wsconn.Options, sh *session.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, ok := upgrade(ctx, c, up, opts)
		if !ok {
			return nil
		}
		// Rejections are logged and counted by the session.
		_ = sh.ServeProducer(ctx, conn)
		return nil
	}
}

// HandleListen upgrades the request and runs a listener session on it.
func HandleListen(ctx context.Context, up *websocket.Upgrader, opts wsconn.Options, sh *session.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, ok := upgrade(ctx, c, up, opts)
		if !ok {
			return nil
		}
		_ = sh.ServeConsumer(ctx, conn)
		return nil
	}
}

func upgrade(ctx context.Context, c echo.Context, up *websocket.Upgrader, opts wsconn.Options) (*wsconn.Conn, bool) {
	ws, err := up.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		slog.Warn("WebSocket upgrade failed", "path", c.Path(), "remote_ip", c.RealIP(), "error", err)
		return nil, false
	}

	conn := wsconn.New(ctx, ws, opts)
	slog.Debug("WebSocket connected", "path", c.Path(), "conn_id", conn.ID(), "remote_addr", conn.RemoteAddr())
	return conn, true
}
