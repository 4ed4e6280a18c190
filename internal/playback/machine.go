package playback

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/jmylchreest/vidwall/internal/observability"
	"github.com/jmylchreest/vidwall/internal/registry"
)

// Config holds the playback policy for a display's slots.
type Config struct {
	// RetryBudget is the number of same-class attempts before escalating
	// to the other content class.
	RetryBudget int
	// LoadTimeout bounds how long a load may sit without a ready event
	// before it is treated as stalled.
	LoadTimeout time.Duration
	// MaxActiveStreams caps how many slots of this display may carry
	// streams at once; the remainder fall back to local files.
	MaxActiveStreams int
}

// DefaultConfig returns the default playback policy.
func DefaultConfig() Config {
	return Config{
		RetryBudget:      3,
		LoadTimeout:      15 * time.Second,
		MaxActiveStreams: 15,
	}
}

// TimeoutSink receives load-timeout notifications. Like status events,
// timeouts are delivered to the owning event loop rather than handled on
// the timer goroutine.
type TimeoutSink func(slotID int, generation uint64)

// slot is the per-slot machine state. state and assignment are only ever
// mutated together through the transition helpers.
type slot struct {
	id         int
	state      models.SlotState
	assignment models.ContentSource
	retryCount int
	tried      map[string]bool
	generation uint64
	timer      *time.Timer
}

// action is what the machine does next after classifying a status event.
type action int

const (
	actionNone action = iota
	actionRetry
	actionLoop
)

// escalation maps a failure class to the machine's next action. Kept as
// an explicit table so tests can enumerate every class deterministically.
var escalation = map[models.FailureClass]action{
	models.FailureNone:       actionNone,
	models.FailureTransient:  actionRetry,
	models.FailureDefinitive: actionRetry,
	models.FailureEnded:      actionLoop,
}

// Machine owns the playback state of every slot on one display. All
// methods must be called from the display's single event-loop goroutine;
// the machine holds no locks of its own.
type Machine struct {
	displayID string
	cfg       Config
	backend   Backend
	registry  *registry.Registry
	logger    *slog.Logger
	onTimeout TimeoutSink

	slots []*slot
}

// NewMachine creates a machine with slotCount slots, all idle.
func NewMachine(displayID string, slotCount int, cfg Config, backend Backend, reg *registry.Registry, onTimeout TimeoutSink, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryBudget < 1 {
		cfg.RetryBudget = DefaultConfig().RetryBudget
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultConfig().LoadTimeout
	}
	if cfg.MaxActiveStreams < 1 {
		cfg.MaxActiveStreams = DefaultConfig().MaxActiveStreams
	}

	m := &Machine{
		displayID: displayID,
		cfg:       cfg,
		backend:   backend,
		registry:  reg,
		logger:    logger,
		onTimeout: onTimeout,
	}
	for i := 0; i < slotCount; i++ {
		m.slots = append(m.slots, &slot{
			id:    i,
			state: models.SlotIdle,
			tried: make(map[string]bool),
		})
	}
	return m
}

// SlotCount returns the number of slots the machine manages.
func (m *Machine) SlotCount() int {
	return len(m.slots)
}

// AssignAll runs a full content assignment round over the given visible
// slots: streams are requested for up to MaxActiveStreams slots and the
// remainder fall back to local files. Tried-source sets and retry
// counters are cleared for the fresh round.
func (m *Machine) AssignAll(visible []int) {
	for _, s := range m.slots {
		s.retryCount = 0
		s.tried = make(map[string]bool)
	}

	streamSlots := len(visible)
	if streamSlots > m.cfg.MaxActiveStreams {
		streamSlots = m.cfg.MaxActiveStreams
	}
	streams := m.registry.RequestStreams(m.displayID, streamSlots)

	for i, slotID := range visible {
		s := m.slot(slotID)
		if s == nil {
			continue
		}
		if i < len(streams) {
			m.loadStream(s, streams[i])
		} else {
			m.loadLocal(s)
		}
	}
	m.commit()
}

// HandleStatus consumes one backend status event. Events whose
// generation does not match the slot's current load attempt are stale
// and discarded.
func (m *Machine) HandleStatus(ev StatusEvent) {
	s := m.slot(ev.SlotID)
	if s == nil {
		return
	}
	if ev.Generation != s.generation {
		m.logger.Debug("discarding stale status event",
			slog.Int("slot", ev.SlotID),
			slog.Uint64("event_generation", ev.Generation),
			slog.Uint64("current_generation", s.generation),
			slog.String("status", ev.Status.String()))
		return
	}

	switch ev.Status {
	case models.StatusLoading:
		// Informational; the load timer keeps running.
		return
	case models.StatusReady:
		m.onReady(s)
		return
	}

	class := models.ClassifyStatus(ev.Status)
	if ev.Message != "" {
		m.logger.Warn("backend reported failure",
			slog.Int("slot", s.id),
			slog.String("status", ev.Status.String()),
			slog.String("class", class.String()),
			slog.String("message", ev.Message))
	}

	m.observe(s, ev.Status)

	switch escalation[class] {
	case actionLoop:
		m.loop(s)
	case actionRetry:
		m.fail(s)
	}
}

// HandleLoadTimeout treats an expired load window as a stall. Stale
// generations are ignored, as are slots that already left the loading
// state.
func (m *Machine) HandleLoadTimeout(slotID int, generation uint64) {
	s := m.slot(slotID)
	if s == nil || generation != s.generation || !s.state.IsLoading() {
		return
	}
	m.logger.Warn("load timed out",
		slog.Int("slot", s.id),
		slog.String("source", s.assignment.Name()),
		slog.Duration("timeout", m.cfg.LoadTimeout))
	m.observe(s, models.StatusStalled)
	m.fail(s)
}

// observe records the backend-reported condition on the slot before the
// machine decides what to do about it. The assignment is untouched; only
// the state moves to the matching stalled/error/ended value for the
// slot's branch.
func (m *Machine) observe(s *slot, status models.MediaStatus) {
	local := s.assignment.IsLocal() || s.state.IsLocal()

	var state models.SlotState
	switch status {
	case models.StatusStalled:
		state = models.SlotStalledStream
		if local {
			state = models.SlotStalledLocal
		}
	case models.StatusError, models.StatusInvalid:
		state = models.SlotErrorStream
		if local {
			state = models.SlotErrorLocal
		}
	case models.StatusEnded:
		state = models.SlotEndedStream
		if local {
			state = models.SlotEndedLocal
		}
	default:
		return
	}
	m.transition(s, state, s.assignment)
}

// RetrySlot re-kicks a slot that should be playing but is not, used by
// the periodic stream health check and by full-screen takeover. Slots
// that are loading or already playing are left alone.
func (m *Machine) RetrySlot(slotID int) {
	s := m.slot(slotID)
	if s == nil || s.state.IsLoading() || s.state.IsPlaying() {
		return
	}
	m.fail(s)
	m.commit()
}

// Pause pauses playback on one slot.
func (m *Machine) Pause(slotID int) {
	if s := m.slot(slotID); s != nil {
		m.backend.Pause(s.id)
	}
}

// PauseAll pauses playback on every slot.
func (m *Machine) PauseAll() {
	for _, s := range m.slots {
		m.backend.Pause(s.id)
	}
}

// Resume resumes playback on slots that hold playable content.
func (m *Machine) Resume(slotIDs []int) {
	for _, slotID := range slotIDs {
		s := m.slot(slotID)
		if s == nil {
			continue
		}
		if s.state.IsPlaying() || s.state.IsLoading() {
			m.backend.Play(s.id)
		}
	}
}

// StopAll cancels pending loads and stops every slot. Slots return to
// idle with no assignment.
func (m *Machine) StopAll() {
	for _, s := range m.slots {
		m.cancelTimer(s)
		s.generation++
		m.backend.Stop(s.id)
		m.transition(s, models.SlotIdle, models.ContentSource{})
	}
	m.commit()
}

// SlotStatus is a point-in-time view of one slot for reporting.
type SlotStatus struct {
	ID         int                  `json:"id"`
	State      models.SlotState     `json:"-"`
	StateName  string               `json:"state"`
	Source     models.ContentSource `json:"source"`
	RetryCount int                  `json:"retry_count"`
	Generation uint64               `json:"generation"`
}

// Status returns the current state of every slot.
func (m *Machine) Status() []SlotStatus {
	out := make([]SlotStatus, 0, len(m.slots))
	for _, s := range m.slots {
		out = append(out, SlotStatus{
			ID:         s.id,
			State:      s.state,
			StateName:  s.state.String(),
			Source:     s.assignment,
			RetryCount: s.retryCount,
			Generation: s.generation,
		})
	}
	return out
}

// Assignments returns the current slot-to-source map.
func (m *Machine) Assignments() map[int]models.ContentSource {
	out := make(map[int]models.ContentSource, len(m.slots))
	for _, s := range m.slots {
		if !s.assignment.IsZero() {
			out[s.id] = s.assignment
		}
	}
	return out
}

func (m *Machine) slot(id int) *slot {
	if id < 0 || id >= len(m.slots) {
		return nil
	}
	return m.slots[id]
}

// transition is the single place state and assignment change, keeping
// the two in lockstep.
func (m *Machine) transition(s *slot, state models.SlotState, assignment models.ContentSource) {
	s.state = state
	s.assignment = assignment
}

// onReady handles a successful load: budget and tried-set reset, slot
// moves to the playing state of its branch.
func (m *Machine) onReady(s *slot) {
	m.cancelTimer(s)
	s.retryCount = 0
	s.tried = make(map[string]bool)

	next := models.SlotPlayingStream
	if s.assignment.IsLocal() {
		next = models.SlotPlayingLocal
	}
	m.transition(s, next, s.assignment)
	m.backend.Play(s.id)

	m.logger.Info("slot ready",
		slog.Int("slot", s.id),
		slog.String("state", next.String()),
		slog.String("source", s.assignment.Name()))
}

// loop reloads the current source from position zero; end-of-media is
// not a failure.
func (m *Machine) loop(s *slot) {
	if s.assignment.IsZero() {
		return
	}
	if s.assignment.IsLocal() {
		m.load(s, s.assignment, models.SlotLoadingLocal)
	} else {
		m.load(s, s.assignment, models.SlotLoadingStream)
	}
}

// fail is the shared failure path for stalls, timeouts, and errors: mark
// the source tried, spend budget, and retry within the class or escalate
// across it.
func (m *Machine) fail(s *slot) {
	m.cancelTimer(s)

	if !s.assignment.IsZero() {
		s.tried[s.assignment.Location] = true
		m.registry.MarkFailed(s.assignment)
	}

	onLocal := s.assignment.IsLocal() || s.state.IsLocal()
	s.retryCount++
	if !onLocal {
		observability.RecordSlotRetry(m.displayID)
	}

	if s.retryCount < m.cfg.RetryBudget {
		if onLocal {
			m.loadLocal(s)
		} else {
			m.nextStream(s)
		}
		m.commit()
		return
	}

	// Budget exhausted: reset and escalate. The stream branch escalates
	// to local; the local branch keeps cycling local files.
	if !onLocal {
		observability.RecordLocalFallback(m.displayID)
	}
	s.retryCount = 0
	s.tried = make(map[string]bool)
	m.loadLocal(s)
	m.commit()
}

// nextStream tries another stream the slot has not tried this round,
// falling back to local when the registry has nothing new to offer.
func (m *Machine) nextStream(s *slot) {
	candidates := m.registry.RequestStreams(m.displayID, len(s.tried)+1)
	for _, src := range candidates {
		if s.tried[src.Location] {
			continue
		}
		m.loadStream(s, src)
		return
	}
	m.loadLocal(s)
}

func (m *Machine) loadStream(s *slot, src models.ContentSource) {
	s.tried[src.Location] = true
	m.load(s, src, models.SlotLoadingStream)
}

// loadLocal assigns a local file from the registry, or parks the slot in
// the visible no-media state when the library is empty.
func (m *Machine) loadLocal(s *slot) {
	src, ok := m.registry.RequestLocalFile(m.displayID)
	if !ok {
		m.park(s)
		return
	}
	m.load(s, src, models.SlotLoadingLocal)
}

// load issues a backend load under a fresh generation and arms the load
// timeout.
func (m *Machine) load(s *slot, src models.ContentSource, state models.SlotState) {
	m.cancelTimer(s)
	s.generation++
	gen := s.generation
	attempt := models.NewULID()

	m.transition(s, state, src)
	m.backend.Load(s.id, src, gen)

	if m.onTimeout != nil {
		slotID := s.id
		s.timer = time.AfterFunc(m.cfg.LoadTimeout, func() {
			m.onTimeout(slotID, gen)
		})
	}

	m.logger.Info("loading source",
		slog.Int("slot", s.id),
		slog.String("attempt", attempt.String()),
		slog.String("state", state.String()),
		slog.String("source", src.Name()),
		slog.Uint64("generation", gen))
}

// park puts a slot into the visible no-media state. The slot is retried
// on the next scheduled or manual refresh.
func (m *Machine) park(s *slot) {
	m.cancelTimer(s)
	s.generation++
	m.backend.Stop(s.id)
	m.transition(s, models.SlotNoMedia, models.ContentSource{})

	m.logger.Warn("no media available for slot", slog.Int("slot", s.id))
}

func (m *Machine) cancelTimer(s *slot) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// commit pushes the current assignment snapshot to the registry.
func (m *Machine) commit() {
	m.registry.Commit(m.displayID, m.Assignments())
}
