package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/airwave/internal/channel"
)

// ServeProducer runs a broadcaster session until conn closes. When conn
// cannot be admitted (channel.ErrProducerActive, channel.ErrConnInUse) it is
// closed with ClosePolicyViolation and the admission error is returned.
func (h *Handler) ServeProducer(ctx context.Context, conn Conn) error {
	log := slog.With("conn_id", conn.ID(), "role", "broadcaster")
	state := StateConnecting

	if err := h.registry.AdmitProducer(conn); err != nil {
		state = transition(log, state, StateRejected)
		h.metrics.ProducerRejections.Inc()
		log.Info("Rejected additional broadcaster connection", "error", err)
		_ = conn.Close(ClosePolicyViolation, rejectReason(err))
		transition(log, state, StateClosed)
		return err
	}
	state = transition(log, state, StateAdmitted)
	log.Info("Broadcaster connected")
	h.changed()

	closeCode, closeReason := CloseNormal, ""
	defer func() {
		h.registry.RemoveProducer(conn)
		_ = conn.Close(closeCode, closeReason)
		transition(log, state, StateClosed)
		h.changed()
	}()

	state = transition(log, state, StateRelaying)
	for {
		frame, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFrame) {
				closeCode, closeReason = CloseUnsupportedData, "broadcaster frames must be binary"
				log.Warn("Broadcaster sent a non-binary frame")
				return nil
			}
			log.Info("Broadcaster disconnected", "reason", err)
			return nil
		}
		h.relay(log, frame)
	}
}

// rejectReason is the close reason sent for an admission error.
func rejectReason(err error) string {
	if errors.Is(err, channel.ErrProducerActive) {
		return RejectReason
	}
	return err.Error()
}

func (h *Handler) relay(log *slog.Logger, frame []byte) {
	start := time.Now()
	report := h.registry.Broadcast(frame)
	h.metrics.ObserveBroadcast(len(frame), report.Delivered, len(report.Failures), time.Since(start))

	for _, f := range report.Failures {
		log.Info("Listener dropped during broadcast", "listener_id", f.ConnID, "error", f.Err)
	}
	if report.Removed > 0 {
		h.changed()
	}

	log.Debug("Relayed frame",
		"size", humanize.Bytes(uint64(len(frame))),
		"delivered", report.Delivered,
		"failed", len(report.Failures),
	)
}
