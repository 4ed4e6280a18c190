// Package display runs the per-display orchestration loop, composing the
// layout packer, the playback machine, and the transition scheduler over
// the shared source registry.
package display

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/jmylchreest/vidwall/internal/layout"
	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/jmylchreest/vidwall/internal/observability"
	"github.com/jmylchreest/vidwall/internal/playback"
	"github.com/jmylchreest/vidwall/internal/registry"
	"github.com/jmylchreest/vidwall/internal/scheduler"
)

// Config holds per-display settings.
type Config struct {
	// Rows and Cols define the slot grid.
	Rows int
	Cols int
	// Playback configures the slot state machine.
	Playback playback.Config
	// Scheduler configures automatic transitions.
	Scheduler scheduler.Config
	// RefreshDebounce is the minimum gap between manual refreshes.
	RefreshDebounce time.Duration
	// StreamCheckInterval is how often non-playing stream slots are
	// re-kicked. Zero disables the check.
	StreamCheckInterval time.Duration
	// EventBuffer is the capacity of the display's event channel.
	EventBuffer int
}

// DefaultConfig returns the standard display configuration.
func DefaultConfig() Config {
	return Config{
		Rows:                3,
		Cols:                3,
		Playback:            playback.DefaultConfig(),
		Scheduler:           scheduler.DefaultConfig(),
		RefreshDebounce:     500 * time.Millisecond,
		StreamCheckInterval: 30 * time.Second,
		EventBuffer:         256,
	}
}

// BackendFactory builds the media backend for a display. The sink must
// be used for all status callbacks so they reach the display's loop.
type BackendFactory func(playback.EventSink) playback.Backend

// Events carried on the display loop channel. Everything that mutates
// display state arrives here, so the loop goroutine owns all state and
// no locks are needed inside it.
type statusEvent struct{ ev playback.StatusEvent }

type timeoutEvent struct {
	slotID     int
	generation uint64
}

type transitionEvent struct{ transition scheduler.TransitionType }

type healthEvent struct{}

type commandEvent struct {
	name string
	run  func()
}

// Display owns one screen's slot grid. All state below the mutex-guarded
// lifecycle fields is touched only by the loop goroutine.
type Display struct {
	id      string
	session models.ULID
	cfg     Config
	logger  *slog.Logger

	reg     *registry.Registry
	machine *playback.Machine
	sched   *scheduler.Scheduler

	rng            *rand.Rand
	placement      layout.Placement
	fullScreenSlot int
	lastRefresh    time.Time

	events chan any
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	started  bool
	stopped  bool
	snapshot Status
}

// New creates a display. Zero config fields fall back to DefaultConfig
// values. The display does not run until Start is called.
func New(id string, cfg Config, reg *registry.Registry, newBackend BackendFactory, logger *slog.Logger) *Display {
	def := DefaultConfig()
	if cfg.Rows < 1 {
		cfg.Rows = def.Rows
	}
	if cfg.Cols < 1 {
		cfg.Cols = def.Cols
	}
	if cfg.RefreshDebounce <= 0 {
		cfg.RefreshDebounce = def.RefreshDebounce
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	session := models.NewULID()
	logger = observability.WithDisplay(observability.WithComponent(logger, "display"), id)
	logger = logger.With(slog.String("session", session.String()))

	d := &Display{
		id:             id,
		session:        session,
		cfg:            cfg,
		logger:         logger,
		reg:            reg,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		fullScreenSlot: -1,
		events:         make(chan any, cfg.EventBuffer),
		done:           make(chan struct{}),
	}

	if newBackend == nil {
		newBackend = func(playback.EventSink) playback.Backend { return playback.NopBackend{} }
	}
	backend := newBackend(d.postStatus)

	d.machine = playback.NewMachine(id, cfg.Rows*cfg.Cols, cfg.Playback, backend, reg, d.postTimeout, logger)
	d.sched = scheduler.New(cfg.Scheduler, d.postTransition, logger)
	return d
}

// WithRand sets the random source for layout and transition choices,
// used by tests for reproducibility.
func (d *Display) WithRand(rng *rand.Rand) *Display {
	d.rng = rng
	d.sched.WithRand(rng)
	return d
}

// ID returns the display identifier.
func (d *Display) ID() string {
	return d.id
}

// Start performs the initial layout and assignment and launches the
// event loop and the transition scheduler.
func (d *Display) Start() error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return models.ErrAlreadyStarted
	}
	d.started = true
	d.mu.Unlock()

	d.refresh()
	d.publish()

	d.wg.Add(1)
	go d.run()

	d.sched.Start()
	d.logger.Info("display started",
		slog.Int("rows", d.cfg.Rows),
		slog.Int("cols", d.cfg.Cols),
		slog.String("policy", d.placement.Policy.String()))
	return nil
}

// Stop shuts the display down: the scheduler stops, pending loads are
// cancelled, and the display's registry entries are released.
func (d *Display) Stop() {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.sched.Stop()
	close(d.done)
	d.wg.Wait()

	d.machine.StopAll()
	d.reg.Release(d.id)
	d.logger.Info("display stopped")
}

// TriggerRefresh requests a full refresh. Requests inside the debounce
// window are dropped.
func (d *Display) TriggerRefresh() error {
	return d.post(commandEvent{name: "refresh", run: d.manualRefresh})
}

// TriggerSwap requests an immediate swap of two visible slots.
func (d *Display) TriggerSwap() error {
	return d.post(commandEvent{name: "swap", run: d.swap})
}

// TriggerResize requests an immediate re-layout under a fresh policy.
func (d *Display) TriggerResize() error {
	return d.post(commandEvent{name: "resize", run: d.resize})
}

// TriggerFullScreen requests an immediate full-screen takeover. If one
// is already active it is reverted instead.
func (d *Display) TriggerFullScreen() error {
	return d.post(commandEvent{name: "fullscreen", run: func() {
		if d.fullScreenSlot >= 0 {
			d.revertFullScreen()
			return
		}
		d.fullScreen()
	}})
}

// Status returns the display's last published state. Safe to call from
// any goroutine.
func (d *Display) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot
}

// postStatus delivers backend status callbacks to the loop.
func (d *Display) postStatus(ev playback.StatusEvent) {
	_ = d.post(statusEvent{ev: ev})
}

// postTimeout delivers load timeout firings to the loop.
func (d *Display) postTimeout(slotID int, generation uint64) {
	_ = d.post(timeoutEvent{slotID: slotID, generation: generation})
}

// postTransition delivers scheduler firings to the loop.
func (d *Display) postTransition(t scheduler.TransitionType) {
	_ = d.post(transitionEvent{transition: t})
}

func (d *Display) post(ev any) error {
	select {
	case d.events <- ev:
		return nil
	case <-d.done:
		return models.ErrDisplayShutdown
	}
}

// run is the display's event loop. It is the only goroutine that touches
// placement, full-screen state, and the playback machine after Start.
func (d *Display) run() {
	defer d.wg.Done()

	var health <-chan time.Time
	if d.cfg.StreamCheckInterval > 0 {
		ticker := time.NewTicker(d.cfg.StreamCheckInterval)
		defer ticker.Stop()
		health = ticker.C
	}

	for {
		select {
		case <-d.done:
			return
		case <-health:
			d.handle(healthEvent{})
		case ev := <-d.events:
			d.handle(ev)
		}
	}
}

func (d *Display) handle(ev any) {
	switch e := ev.(type) {
	case statusEvent:
		d.machine.HandleStatus(e.ev)
	case timeoutEvent:
		d.machine.HandleLoadTimeout(e.slotID, e.generation)
	case transitionEvent:
		d.executeTransition(e.transition)
	case healthEvent:
		d.healthCheck()
	case commandEvent:
		d.logger.Debug("manual trigger", slog.String("command", e.name))
		e.run()
	}
	d.publish()
}

// executeTransition runs a scheduled transition. An active full-screen
// takeover is reverted instead of executing the chosen transition.
func (d *Display) executeTransition(t scheduler.TransitionType) {
	if d.fullScreenSlot >= 0 {
		d.logger.Info("reverting full-screen takeover", slog.Int("slot", d.fullScreenSlot))
		observability.RecordTransition(d.id, "fullscreen_revert")
		d.revertFullScreen()
		return
	}

	d.logger.Info("executing transition", slog.String("type", t.String()))
	observability.RecordTransition(d.id, t.String())

	switch t {
	case scheduler.TransitionSwap:
		d.swap()
	case scheduler.TransitionResize:
		d.resize()
	case scheduler.TransitionFullScreen:
		d.fullScreen()
	case scheduler.TransitionRefresh:
		d.refresh()
	}
}

// visible returns the slots currently on screen.
func (d *Display) visible() []int {
	if d.fullScreenSlot >= 0 {
		return []int{d.fullScreenSlot}
	}
	return d.placement.PlacedSlots()
}

func (d *Display) slotIDs() []int {
	ids := make([]int, d.machine.SlotCount())
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// refresh is the full reset: a fresh policy and placement, and a fresh
// content assignment round for every visible slot.
func (d *Display) refresh() {
	d.fullScreenSlot = -1
	d.placement = layout.Pack(d.rng, d.cfg.Rows, d.cfg.Cols, d.slotIDs(), layout.RandomPolicy(d.rng))
	d.lastRefresh = time.Now()

	visible := d.placement.PlacedSlots()
	d.machine.AssignAll(visible)
	d.pauseHidden(visible)

	d.logger.Info("refreshed layout",
		slog.String("policy", d.placement.Policy.String()),
		slog.Int("visible_slots", len(visible)))
}

// manualRefresh applies the debounce window before refreshing.
func (d *Display) manualRefresh() {
	if since := time.Since(d.lastRefresh); since < d.cfg.RefreshDebounce {
		d.logger.Debug("refresh debounced", slog.Duration("since_last", since))
		return
	}
	d.refresh()
}

// resize re-packs the grid under a fresh policy but keeps slot content.
// Slots that drop out of the placement are paused; slots that come back
// resume, and visible slots holding nothing get re-kicked.
func (d *Display) resize() {
	d.fullScreenSlot = -1
	d.placement = layout.Pack(d.rng, d.cfg.Rows, d.cfg.Cols, d.slotIDs(), layout.RandomPolicy(d.rng))

	visible := d.placement.PlacedSlots()
	d.pauseHidden(visible)
	d.machine.Resume(visible)

	for _, st := range d.machine.Status() {
		if !inSlots(visible, st.ID) {
			continue
		}
		if st.State == models.SlotIdle || st.State == models.SlotNoMedia {
			d.machine.RetrySlot(st.ID)
		}
	}

	d.logger.Info("resized layout",
		slog.String("policy", d.placement.Policy.String()),
		slog.Int("visible_slots", len(visible)))
}

// swap exchanges the regions of two distinct visible slots. A no-op when
// fewer than two slots are visible.
func (d *Display) swap() {
	visible := d.placement.PlacedSlots()
	if len(visible) < 2 {
		return
	}
	i := d.rng.Intn(len(visible))
	j := d.rng.Intn(len(visible) - 1)
	if j >= i {
		j++
	}
	a, b := visible[i], visible[j]
	d.placement.Swap(a, b)
	d.logger.Info("swapped slots", slog.Int("slot_a", a), slog.Int("slot_b", b))
}

// fullScreen promotes one random visible slot to cover the whole grid.
// The other slots pause until the takeover reverts.
func (d *Display) fullScreen() {
	visible := d.placement.PlacedSlots()
	if len(visible) == 0 {
		return
	}
	chosen := visible[d.rng.Intn(len(visible))]
	d.fullScreenSlot = chosen

	for _, id := range visible {
		if id != chosen {
			d.machine.Pause(id)
		}
	}
	d.machine.Resume([]int{chosen})
	d.machine.RetrySlot(chosen)

	d.logger.Info("full-screen takeover", slog.Int("slot", chosen))
}

// revertFullScreen returns from a takeover with a full refresh, matching
// the behaviour of the scheduled revert.
func (d *Display) revertFullScreen() {
	d.fullScreenSlot = -1
	d.refresh()
}

// healthCheck re-kicks visible stream slots that should be playing but
// are not, and retries parked no-media slots.
func (d *Display) healthCheck() {
	visible := d.visible()
	kicked := 0
	for _, st := range d.machine.Status() {
		if !inSlots(visible, st.ID) {
			continue
		}
		if st.State.IsLoading() || st.State.IsPlaying() {
			continue
		}
		if st.State.IsStream() || st.State == models.SlotNoMedia {
			d.machine.RetrySlot(st.ID)
			observability.RecordHealthKick(d.id)
			kicked++
		}
	}
	if kicked > 0 {
		d.logger.Info("stream health check re-kicked slots", slog.Int("count", kicked))
	}
}

func (d *Display) pauseHidden(visible []int) {
	for _, id := range d.slotIDs() {
		if !inSlots(visible, id) {
			d.machine.Pause(id)
		}
	}
}

func inSlots(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// publish refreshes the concurrent-read snapshot from loop-owned state.
func (d *Display) publish() {
	playing := 0
	slots := make([]SlotView, 0, d.machine.SlotCount())
	visible := d.visible()

	for _, st := range d.machine.Status() {
		region, placed := d.placement.Region(st.ID)
		view := SlotView{
			SlotID:     st.ID,
			State:      st.State,
			StateName:  st.State.String(),
			Source:     st.Source,
			RetryCount: st.RetryCount,
			Region:     region,
			Visible:    placed && inSlots(visible, st.ID),
			FullScreen: st.ID == d.fullScreenSlot,
		}
		if st.State.IsPlaying() {
			playing++
		}
		slots = append(slots, view)
	}
	observability.SetSlotsPlaying(d.id, float64(playing))

	snap := Status{
		DisplayID:      d.id,
		Session:        d.session.String(),
		Rows:           d.cfg.Rows,
		Cols:           d.cfg.Cols,
		Policy:         d.placement.Policy.String(),
		FullScreenSlot: d.fullScreenSlot,
		NextTransition: d.sched.Next().String(),
		Slots:          slots,
	}

	d.mu.Lock()
	d.snapshot = snap
	d.mu.Unlock()
}

// SlotView is a point-in-time view of one slot for reporting.
type SlotView struct {
	SlotID     int                  `json:"slot_id"`
	State      models.SlotState     `json:"-"`
	StateName  string               `json:"state"`
	Source     models.ContentSource `json:"source"`
	RetryCount int                  `json:"retry_count"`
	Region     layout.Region        `json:"region"`
	Visible    bool                 `json:"visible"`
	FullScreen bool                 `json:"full_screen"`
}

// Status is a point-in-time view of one display.
type Status struct {
	DisplayID      string     `json:"display_id"`
	Session        string     `json:"session"`
	Rows           int        `json:"rows"`
	Cols           int        `json:"cols"`
	Policy         string     `json:"policy"`
	FullScreenSlot int        `json:"full_screen_slot"`
	NextTransition string     `json:"next_transition"`
	Slots          []SlotView `json:"slots"`
}
