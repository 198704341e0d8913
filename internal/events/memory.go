package events

import (
	"context"
	"sync"

	"github.com/quillworks/novelforge/internal/novel"
)

// NoOp drops every event. Used when events are disabled.
type NoOp struct{}

// Publish discards the event.
func (NoOp) Publish(context.Context, novel.IngestEvent) error { return nil }

// Close is a no-op.
func (NoOp) Close() error { return nil }

// Recorder stores published events for inspection in tests.
type Recorder struct {
	mu     sync.RWMutex
	events []novel.IngestEvent
}

var _ novel.Publisher = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, event novel.IngestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Events returns the recorded publishes.
func (r *Recorder) Events() []novel.IngestEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]novel.IngestEvent, len(r.events))
	copy(out, r.events)
	return out
}
