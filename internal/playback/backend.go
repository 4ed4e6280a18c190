// Package playback implements the per-slot playback state machine: slot
// loading, timeouts, retries, and stream-to-local fallback. It drives an
// external media backend through a small command interface and consumes
// the backend's asynchronous status events.
package playback

import (
	"sync"
	"time"

	"github.com/jmylchreest/vidwall/internal/models"
)

// Backend is the external media backend collaborator. Commands are
// fire-and-forget; outcomes arrive asynchronously as StatusEvents tagged
// with the generation of the load attempt they belong to.
type Backend interface {
	// Load begins loading a source into a slot. The generation must be
	// echoed back on every status event for this attempt.
	Load(slotID int, src models.ContentSource, generation uint64)
	// Play starts or resumes playback on a slot.
	Play(slotID int)
	// Pause pauses playback on a slot.
	Pause(slotID int)
	// Stop stops playback and releases the slot's media.
	Stop(slotID int)
}

// StatusEvent is a status callback from the media backend.
type StatusEvent struct {
	SlotID     int
	Generation uint64
	Status     models.MediaStatus
	// Message carries backend detail for error statuses; used for
	// logging only, never for control flow.
	Message string
}

// EventSink receives status events for delivery to a display's event
// loop. Implementations must not block for long; the backend may call it
// from arbitrary goroutines.
type EventSink func(StatusEvent)

// NopBackend discards all commands. Useful for tests and for hosts that
// register their own backend later.
type NopBackend struct{}

func (NopBackend) Load(int, models.ContentSource, uint64) {}
func (NopBackend) Play(int)                               {}
func (NopBackend) Pause(int)                              {}
func (NopBackend) Stop(int)                               {}

// SimBackend is a simulated media backend that acknowledges every load
// as ready after a fixed latency. It lets the orchestration service run
// end to end without a real player attached.
type SimBackend struct {
	sink    EventSink
	latency time.Duration

	mu     sync.Mutex
	timers []*time.Timer
}

// NewSimBackend creates a simulated backend delivering Ready events to
// sink after latency.
func NewSimBackend(sink EventSink, latency time.Duration) *SimBackend {
	return &SimBackend{sink: sink, latency: latency}
}

// Load schedules a Ready event for the given generation.
func (b *SimBackend) Load(slotID int, _ models.ContentSource, generation uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := time.AfterFunc(b.latency, func() {
		b.sink(StatusEvent{SlotID: slotID, Generation: generation, Status: models.StatusReady})
	})
	b.timers = append(b.timers, t)
}

func (b *SimBackend) Play(int)  {}
func (b *SimBackend) Pause(int) {}

// Stop cancels any pending acknowledgements.
func (b *SimBackend) Stop(int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.timers {
		t.Stop()
	}
	b.timers = b.timers[:0]
}
