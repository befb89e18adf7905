package channel

import (
	"errors"
	"sync"
)

var (
	// ErrProducerActive is returned when a broadcaster is already admitted.
	ErrProducerActive = errors.New("another broadcaster is already connected")
	// ErrConnInUse is returned when a connection is already registered as a listener.
	ErrConnInUse = errors.New("connection is already registered as a listener")
)

// Conn is the part of a transport connection the registry needs.
// Implementations must be comparable (typically a pointer) since the registry
// keys on the handle itself. Send must not block: implementations enqueue
// the frame or fail fast, and a failed Send removes the listener.
type Conn interface {
	ID() string
	Send(frame []byte) error
}

// Failure records one listener that could not be sent a frame.
type Failure struct {
	ConnID string
	Err    error
}

// Report describes the outcome of a single Broadcast. It is advisory.
type Report struct {
	Attempted int
	Delivered int
	Failures  []Failure
	// Removed counts failed listeners this pass actually removed; a listener
	// that already left on its own is not counted.
	Removed int
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	HasProducer bool
	ProducerID  string
	Consumers   int
	Frames      uint64
	Bytes       uint64
}

// Registry tracks the single broadcaster slot and the set of listeners.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	producer  Conn
	consumers map[Conn]struct{}

	frames uint64
	bytes  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		consumers: make(map[Conn]struct{}),
	}
}

// AdmitProducer places conn in the broadcaster slot if it is empty.
func (r *Registry) AdmitProducer(conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.producer != nil {
		return ErrProducerActive
	}
	if _, ok := r.consumers[conn]; ok {
		return ErrConnInUse
	}
	r.producer = conn
	return nil
}

// RemoveProducer clears the slot only if it still holds conn.
func (r *Registry) RemoveProducer(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.producer == nil || r.producer != conn {
		return false
	}
	r.producer = nil
	return true
}

// AdmitConsumer adds conn to the listener set. It returns false when conn is
// already a listener or holds the broadcaster slot.
func (r *Registry) AdmitConsumer(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.producer != nil && r.producer == conn {
		return false
	}
	if _, ok := r.consumers[conn]; ok {
		return false
	}
	r.consumers[conn] = struct{}{}
	return true
}

// RemoveConsumer drops conn from the listener set. Safe to call repeatedly.
func (r *Registry) RemoveConsumer(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.consumers[conn]; !ok {
		return false
	}
	delete(r.consumers, conn)
	return true
}

// Broadcast sends frame to every listener registered at call time.
// Listeners whose send fails are removed once the pass completes.
func (r *Registry) Broadcast(frame []byte) Report {
	// Snapshot under lock, then send without holding it.
	r.mu.Lock()
	targets := make([]Conn, 0, len(r.consumers))
	for conn := range r.consumers {
		targets = append(targets, conn)
	}
	r.frames++
	r.bytes += uint64(len(frame))
	r.mu.Unlock()

	report := Report{Attempted: len(targets)}
	var failed []Conn
	for _, conn := range targets {
		if err := conn.Send(frame); err != nil {
			failed = append(failed, conn)
			report.Failures = append(report.Failures, Failure{ConnID: conn.ID(), Err: err})
			continue
		}
		report.Delivered++
	}

	if len(failed) == 0 {
		return report
	}

	r.mu.Lock()
	for _, conn := range failed {
		if _, ok := r.consumers[conn]; ok {
			delete(r.consumers, conn)
			report.Removed++
		}
	}
	r.mu.Unlock()

	return report
}

// Stats returns a consistent snapshot of the registry.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		HasProducer: r.producer != nil,
		Consumers:   len(r.consumers),
		Frames:      r.frames,
		Bytes:       r.bytes,
	}
	if r.producer != nil {
		s.ProducerID = r.producer.ID()
	}
	return s
}
