package events

import (
	"context"
	"sync"

	"github.com/studiofit/frontdesk-api/internal/ports/out/events"
)

// Recorder is an in-memory events.Publisher that keeps everything it receives.
// It backs the memory storage mode and tests.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, e events.Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a snapshot of published events in publish order.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// OfType filters Events by type.
func (r *Recorder) OfType(t events.Type) []events.Event {
	out := make([]events.Event, 0)
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
