package display

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/jmylchreest/vidwall/internal/observability"
	"github.com/jmylchreest/vidwall/internal/registry"
)

// Wall groups the displays sharing one source registry. Displays keep
// their own event loops; the wall only manages membership and lifecycle.
type Wall struct {
	mu       sync.Mutex
	logger   *slog.Logger
	reg      *registry.Registry
	displays map[string]*Display
	order    []string
	started  bool
}

// NewWall creates an empty wall over the given registry.
func NewWall(reg *registry.Registry, logger *slog.Logger) *Wall {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wall{
		logger:   observability.WithComponent(logger, "wall"),
		reg:      reg,
		displays: make(map[string]*Display),
	}
}

// Registry returns the wall's shared source registry.
func (w *Wall) Registry() *registry.Registry {
	return w.reg
}

// Add registers a display with the wall. If the wall is already running
// the display is started immediately.
func (w *Wall) Add(d *Display) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.displays[d.ID()]; ok {
		return fmt.Errorf("%w: %s", models.ErrDisplayExists, d.ID())
	}
	w.displays[d.ID()] = d
	w.order = append(w.order, d.ID())

	if w.started {
		if err := d.Start(); err != nil {
			return fmt.Errorf("starting display %s: %w", d.ID(), err)
		}
	}
	return nil
}

// Display looks up a display by id.
func (w *Wall) Display(id string) (*Display, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, ok := w.displays[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrDisplayNotFound, id)
	}
	return d, nil
}

// DisplayIDs returns the ids of all displays in registration order.
func (w *Wall) DisplayIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]string, len(w.order))
	copy(ids, w.order)
	return ids
}

// Start starts every registered display.
func (w *Wall) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return models.ErrAlreadyStarted
	}
	w.started = true

	for _, id := range w.order {
		if err := w.displays[id].Start(); err != nil {
			return fmt.Errorf("starting display %s: %w", id, err)
		}
	}
	w.logger.Info("wall started", slog.Int("displays", len(w.order)))
	return nil
}

// Stop stops every display. Safe to call more than once.
func (w *Wall) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	displays := make([]*Display, 0, len(w.order))
	for _, id := range w.order {
		displays = append(displays, w.displays[id])
	}
	w.mu.Unlock()

	for _, d := range displays {
		d.Stop()
	}
	w.logger.Info("wall stopped")
}

// Status returns the state of every display in registration order.
func (w *Wall) Status() []Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Status, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.displays[id].Status())
	}
	return out
}
