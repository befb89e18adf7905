package session

import (
	"context"
	"errors"
	"log/slog"
)

// ServeConsumer runs a listener session until conn closes. Data sent by the
// listener is read and discarded.
func (h *Handler) ServeConsumer(ctx context.Context, conn Conn) error {
	log := slog.With("conn_id", conn.ID(), "role", "listener")
	state := StateConnecting

	h.registry.AdmitConsumer(conn)
	state = transition(log, state, StateAdmitted)
	log.Info("Listener connected")
	h.changed()

	defer func() {
		h.registry.RemoveConsumer(conn)
		_ = conn.Close(CloseNormal, "")
		transition(log, state, StateClosed)
		h.changed()
	}()

	state = transition(log, state, StateListening)
	for {
		// Reserved for heartbeats; inbound listener data has no effect yet.
		if _, err := conn.Receive(ctx); err != nil {
			if errors.Is(err, ErrUnsupportedFrame) {
				continue
			}
			log.Info("Listener disconnected", "reason", err)
			return nil
		}
	}
}
