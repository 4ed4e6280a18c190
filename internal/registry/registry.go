// Package registry tracks which content sources are assigned to which
// display and keeps per-display recent-use history, so streams are not
// shown on two screens at once and local files are not repeated back to
// back.
package registry

import (
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/vidwall/internal/models"
)

// maxRecentLocal caps the recently-used local file history per display.
const maxRecentLocal = 20

// Registry is the single cross-display coordinator. All methods are
// synchronous, in-memory, and O(library size); the mutex makes
// RequestStreams and Commit atomic with respect to each other, which is
// what upholds the stream uniqueness invariant. It is a best-effort
// single-process coordinator, not a durable ledger.
type Registry struct {
	mu sync.Mutex

	logger *slog.Logger
	rng    *rand.Rand

	streams []models.ContentSource
	library []models.ContentSource

	// assignments maps display id -> slot id -> committed source.
	assignments map[string]map[int]models.ContentSource

	// recentLocal holds the recently-used local files per display, oldest
	// first, bounded by min(len(library)/2, maxRecentLocal).
	recentLocal map[string][]string

	// failed holds stream URLs that recently failed to load anywhere.
	// Cleared wholesale once it would exclude every candidate.
	failed map[string]time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		logger:      slog.Default(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		assignments: make(map[string]map[int]models.ContentSource),
		recentLocal: make(map[string][]string),
		failed:      make(map[string]time.Time),
	}
}

// WithLogger sets a custom logger.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithRand sets a custom random source, used by tests for reproducible
// selection.
func (r *Registry) WithRand(rng *rand.Rand) *Registry {
	r.rng = rng
	return r
}

// SetStreams replaces the stream pool.
func (r *Registry) SetStreams(streams []models.ContentSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams = append([]models.ContentSource(nil), streams...)
}

// SetLibrary replaces the local file library.
func (r *Registry) SetLibrary(library []models.ContentSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.library = append([]models.ContentSource(nil), library...)
}

// StreamCount returns the size of the stream pool.
func (r *Registry) StreamCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// LibraryCount returns the size of the local file library.
func (r *Registry) LibraryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.library)
}

// RequestStreams returns up to count stream sources for a display,
// preferring sources unused by any display, then sources used only by
// other displays, then anything left. Each tier is shuffled before
// selection. Fewer than count are returned only when the pool itself is
// smaller than requested.
func (r *Registry) RequestStreams(displayID string, count int) []models.ContentSource {
	r.mu.Lock()
	defer r.mu.Unlock()

	if count <= 0 || len(r.streams) == 0 {
		return nil
	}

	ownUsed := make(map[string]bool)
	allUsed := make(map[string]bool)
	for id, slots := range r.assignments {
		for _, src := range slots {
			if !src.IsStream() {
				continue
			}
			allUsed[src.Location] = true
			if id == displayID {
				ownUsed[src.Location] = true
			}
		}
	}

	result := make([]models.ContentSource, 0, count)
	taken := make(map[string]bool)

	take := func(tier []models.ContentSource) {
		r.rng.Shuffle(len(tier), func(i, j int) { tier[i], tier[j] = tier[j], tier[i] })
		for _, src := range tier {
			if len(result) == count {
				return
			}
			if taken[src.Location] {
				continue
			}
			result = append(result, src)
			taken[src.Location] = true
		}
	}

	// Tier 1: unused anywhere.
	var tier []models.ContentSource
	for _, src := range r.streams {
		if !allUsed[src.Location] && !r.isFailed(src) {
			tier = append(tier, src)
		}
	}
	take(tier)

	// Tier 2: used by other displays only.
	if len(result) < count {
		tier = tier[:0]
		for _, src := range r.streams {
			if allUsed[src.Location] && !ownUsed[src.Location] && !r.isFailed(src) {
				tier = append(tier, src)
			}
		}
		take(tier)
	}

	// Tier 3: anything remaining, failed included. If every stream has
	// been marked failed the failure set has stopped carrying signal, so
	// drop it.
	if len(result) < count {
		if len(r.failed) >= len(r.streams) {
			r.failed = make(map[string]time.Time)
		}
		tier = tier[:0]
		for _, src := range r.streams {
			if !taken[src.Location] {
				tier = append(tier, src)
			}
		}
		take(tier)
	}

	return result
}

func (r *Registry) isFailed(src models.ContentSource) bool {
	_, ok := r.failed[src.Location]
	return ok
}

// MarkFailed records a stream as recently failed so it is deprioritised
// on subsequent requests.
func (r *Registry) MarkFailed(src models.ContentSource) {
	if !src.IsStream() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[src.Location] = time.Now()
}

// FailedCount returns the number of streams currently marked failed.
func (r *Registry) FailedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}

// RequestLocalFile returns a local file not in the display's recent-use
// history. When every file is recent the history is cleared and selection
// proceeds over the full library. Returns false only if the library is
// empty.
func (r *Registry) RequestLocalFile(displayID string) (models.ContentSource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.library) == 0 {
		return models.ContentSource{}, false
	}

	recent := make(map[string]bool, len(r.recentLocal[displayID]))
	for _, path := range r.recentLocal[displayID] {
		recent[path] = true
	}

	var available []models.ContentSource
	for _, src := range r.library {
		if !recent[src.Location] {
			available = append(available, src)
		}
	}
	if len(available) == 0 {
		r.recentLocal[displayID] = nil
		available = r.library
	}

	selected := available[r.rng.Intn(len(available))]

	history := append(r.recentLocal[displayID], selected.Location)
	limit := len(r.library) / 2
	if limit > maxRecentLocal {
		limit = maxRecentLocal
	}
	for len(history) > limit {
		history = history[1:]
	}
	r.recentLocal[displayID] = history

	return selected, true
}

// Commit atomically replaces a display's assignment snapshot. Snapshots
// are overwritten, never merged.
func (r *Registry) Commit(displayID string, slots map[int]models.ContentSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[int]models.ContentSource, len(slots))
	for slotID, src := range slots {
		if src.IsZero() {
			continue
		}
		snapshot[slotID] = src
	}
	r.assignments[displayID] = snapshot
}

// Release removes all registry entries for a display.
func (r *Registry) Release(displayID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, displayID)
	delete(r.recentLocal, displayID)
}

// Snapshot returns a copy of all committed assignments, keyed by display
// id then slot id. Used for health and status reporting.
func (r *Registry) Snapshot() map[string]map[int]models.ContentSource {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]map[int]models.ContentSource, len(r.assignments))
	for id, slots := range r.assignments {
		copied := make(map[int]models.ContentSource, len(slots))
		for slotID, src := range slots {
			copied[slotID] = src
		}
		out[id] = copied
	}
	return out
}

// Filter re-validates the local file library, dropping entries that no
// longer exist, are empty, or are hidden/metadata artifacts. Returns the
// number of entries dropped.
func (r *Registry) Filter() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	valid := r.library[:0]
	dropped := 0
	for _, src := range r.library {
		if validLocalFile(src.Location) {
			valid = append(valid, src)
		} else {
			dropped++
		}
	}
	r.library = valid

	if dropped > 0 {
		r.logger.Info("filtered local library",
			slog.Int("dropped", dropped),
			slog.Int("remaining", len(r.library)))
	}
	return dropped
}

// validLocalFile reports whether a library entry is still playable:
// present, non-empty, and not a hidden or metadata file.
func validLocalFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
