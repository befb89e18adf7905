package session

import (
	"context"
	"errors"
	"log/slog"

	"thirdcoast.systems/airwave/internal/channel"
	"thirdcoast.systems/airwave/internal/metrics"
)

// Close codes sent to peers (RFC 6455 section 7.4.1).
const (
	CloseNormal          = 1000
	CloseUnsupportedData = 1003
	ClosePolicyViolation = 1008
)

// RejectReason is the close reason sent to a broadcaster refused admission.
const RejectReason = "another broadcaster is already connected"

// ErrUnsupportedFrame is returned by Conn.Receive for a message that is not
// a binary frame. The connection stays usable.
var ErrUnsupportedFrame = errors.New("unsupported frame type")

// Conn is a transport connection driven by a session loop.
type Conn interface {
	channel.Conn
	// Receive blocks until the next binary frame, or returns an error once
	// the connection is closed.
	Receive(ctx context.Context) ([]byte, error)
	// Close sends a close message with code and reason, then releases the
	// connection. It is safe to call more than once.
	Close(code int, reason string) error
}

// State is a position in a session's lifecycle.
type State int

const (
	StateConnecting State = iota
	StateAdmitted
	StateRejected
	StateRelaying
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAdmitted:
		return "admitted"
	case StateRejected:
		return "rejected"
	case StateRelaying:
		return "relaying"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler runs broadcaster and listener sessions against a shared registry.
type Handler struct {
	registry *channel.Registry
	metrics  *metrics.Relay
	onChange func(channel.Stats)
}

// NewHandler creates a session handler. onChange, if non-nil, is called with
// fresh registry stats whenever the broadcaster slot or listener set changes.
func NewHandler(registry *channel.Registry, m *metrics.Relay, onChange func(channel.Stats)) *Handler {
	return &Handler{
		registry: registry,
		metrics:  m,
		onChange: onChange,
	}
}

func (h *Handler) changed() {
	stats := h.registry.Stats()
	h.metrics.SetOccupancy(stats.HasProducer, stats.Consumers)
	if h.onChange != nil {
		h.onChange(stats)
	}
}

func transition(log *slog.Logger, from, to State) State {
	log.Debug("Session state", "from", from.String(), "to", to.String())
	return to
}
