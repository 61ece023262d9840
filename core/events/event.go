package events

import "sync"

// Event represents a structured state change emitted by the settlement core.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder is a bounded in-memory emitter retaining the most recent events.
// It backs the best-effort notification side channel; dropping old entries is
// acceptable because return values, not events, carry the call results.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	buffer []Event
}

// NewRecorder constructs a recorder retaining up to limit events. A
// non-positive limit falls back to a small default.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 64
	}
	return &Recorder{limit: limit}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer = append(r.buffer, evt)
	if overflow := len(r.buffer) - r.limit; overflow > 0 {
		r.buffer = append([]Event(nil), r.buffer[overflow:]...)
	}
}

// Events returns a snapshot of the retained events, oldest first.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.buffer))
	copy(out, r.buffer)
	return out
}
