package playback

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/jmylchreest/vidwall/internal/registry"
)

// mockBackend records every command issued by the machine.
type mockBackend struct {
	cmds []backendCmd
}

type backendCmd struct {
	name string
	slot int
	src  models.ContentSource
	gen  uint64
}

func (b *mockBackend) Load(slotID int, src models.ContentSource, gen uint64) {
	b.cmds = append(b.cmds, backendCmd{name: "load", slot: slotID, src: src, gen: gen})
}

func (b *mockBackend) Play(slotID int)  { b.cmds = append(b.cmds, backendCmd{name: "play", slot: slotID}) }
func (b *mockBackend) Pause(slotID int) { b.cmds = append(b.cmds, backendCmd{name: "pause", slot: slotID}) }
func (b *mockBackend) Stop(slotID int)  { b.cmds = append(b.cmds, backendCmd{name: "stop", slot: slotID}) }

func (b *mockBackend) loads() []backendCmd {
	var out []backendCmd
	for _, c := range b.cmds {
		if c.name == "load" {
			out = append(out, c)
		}
	}
	return out
}

func (b *mockBackend) lastLoad() backendCmd {
	loads := b.loads()
	if len(loads) == 0 {
		return backendCmd{}
	}
	return loads[len(loads)-1]
}

func newTestRegistry(streams, files int) *registry.Registry {
	r := registry.New().WithRand(rand.New(rand.NewSource(1)))

	var pool []models.ContentSource
	for i := 0; i < streams; i++ {
		pool = append(pool, models.StreamSource(fmt.Sprintf("https://example.com/s%02d.m3u8", i)))
	}
	r.SetStreams(pool)

	var library []models.ContentSource
	for i := 0; i < files; i++ {
		library = append(library, models.FileSource(fmt.Sprintf("/media/clip-%02d.mp4", i)))
	}
	r.SetLibrary(library)
	return r
}

func testConfig() Config {
	return Config{
		RetryBudget:      3,
		LoadTimeout:      time.Hour, // tests fire timeouts explicitly
		MaxActiveStreams: 15,
	}
}

func newTestMachine(t *testing.T, slots int, reg *registry.Registry) (*Machine, *mockBackend) {
	t.Helper()
	backend := &mockBackend{}
	m := NewMachine("display-0", slots, testConfig(), backend, reg, nil, nil)
	return m, backend
}

func slotState(m *Machine, slotID int) SlotStatus {
	for _, s := range m.Status() {
		if s.ID == slotID {
			return s
		}
	}
	return SlotStatus{}
}

func visible(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func TestAssignAllLoadsStreams(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 9, reg)

	m.AssignAll(visible(9))

	loads := backend.loads()
	require.Len(t, loads, 9)
	for _, c := range loads {
		assert.True(t, c.src.IsStream())
	}
	for _, s := range m.Status() {
		assert.Equal(t, models.SlotLoadingStream, s.State)
	}
}

func TestAssignAllRespectsMaxActiveStreams(t *testing.T) {
	reg := newTestRegistry(20, 5)
	backend := &mockBackend{}
	cfg := testConfig()
	cfg.MaxActiveStreams = 2
	m := NewMachine("display-0", 9, cfg, backend, reg, nil, nil)

	m.AssignAll(visible(9))

	streamLoads, localLoads := 0, 0
	for _, c := range backend.loads() {
		if c.src.IsStream() {
			streamLoads++
		} else {
			localLoads++
		}
	}
	assert.Equal(t, 2, streamLoads)
	assert.Equal(t, 7, localLoads)
}

func TestRetryBudgetEscalatesToLocal(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 1, reg)

	m.AssignAll(visible(1))

	// Feed only stream errors: exactly RetryBudget stream attempts must
	// happen before the slot escalates to the local branch.
	for i := 0; i < 3; i++ {
		last := backend.lastLoad()
		require.True(t, last.src.IsStream(), "attempt %d was not a stream", i+1)
		m.HandleStatus(StatusEvent{SlotID: 0, Generation: last.gen, Status: models.StatusError, Message: "network error"})
	}

	streamAttempts := 0
	for _, c := range backend.loads() {
		if c.src.IsStream() {
			streamAttempts++
		}
	}
	assert.Equal(t, 3, streamAttempts, "retry budget not honoured")

	st := slotState(m, 0)
	assert.Equal(t, models.SlotLoadingLocal, st.State)
	assert.True(t, st.Source.IsLocal())
	assert.Zero(t, st.RetryCount)
}

func TestScenarioStreamDeathLandsOnLocalFile(t *testing.T) {
	// Spec scenario: stream slot killed three times ends up playing one
	// of the local files.
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 9, reg)

	m.AssignAll(visible(9))

	for i := 0; i < 3; i++ {
		last := backend.lastLoad()
		m.HandleStatus(StatusEvent{SlotID: last.slot, Generation: last.gen, Status: models.StatusError})
	}

	last := backend.lastLoad()
	require.True(t, last.src.IsLocal())
	m.HandleStatus(StatusEvent{SlotID: last.slot, Generation: last.gen, Status: models.StatusReady})

	st := slotState(m, last.slot)
	assert.Equal(t, models.SlotPlayingLocal, st.State)
	assert.True(t, st.Source.IsLocal())
}

func TestReadyClearsRetryState(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 1, reg)

	m.AssignAll(visible(1))

	// One failure, then success.
	m.HandleStatus(StatusEvent{SlotID: 0, Generation: backend.lastLoad().gen, Status: models.StatusStalled})
	m.HandleStatus(StatusEvent{SlotID: 0, Generation: backend.lastLoad().gen, Status: models.StatusReady})

	st := slotState(m, 0)
	assert.Equal(t, models.SlotPlayingStream, st.State)
	assert.Zero(t, st.RetryCount)
	assert.False(t, st.Source.IsZero())
}

func TestStaleGenerationDiscarded(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 1, reg)

	m.AssignAll(visible(1))
	firstGen := backend.lastLoad().gen

	// Failure moves the slot to a new load attempt with a new generation.
	m.HandleStatus(StatusEvent{SlotID: 0, Generation: firstGen, Status: models.StatusError})
	secondGen := backend.lastLoad().gen
	require.NotEqual(t, firstGen, secondGen)

	// A late Ready from the abandoned attempt must not flip the slot.
	m.HandleStatus(StatusEvent{SlotID: 0, Generation: firstGen, Status: models.StatusReady})
	assert.Equal(t, models.SlotLoadingStream, slotState(m, 0).State)

	m.HandleStatus(StatusEvent{SlotID: 0, Generation: secondGen, Status: models.StatusReady})
	assert.Equal(t, models.SlotPlayingStream, slotState(m, 0).State)
}

func TestEndedLoopsSameSource(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 1, reg)

	m.AssignAll(visible(1))
	first := backend.lastLoad()
	m.HandleStatus(StatusEvent{SlotID: 0, Generation: first.gen, Status: models.StatusReady})

	m.HandleStatus(StatusEvent{SlotID: 0, Generation: first.gen, Status: models.StatusEnded})

	reload := backend.lastLoad()
	assert.Equal(t, first.src, reload.src, "ended media must loop the same source")
	assert.Greater(t, reload.gen, first.gen)
	assert.Zero(t, slotState(m, 0).RetryCount, "end-of-media must not consume retry budget")
}

func TestLoadTimeoutTreatedAsStall(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 1, reg)

	m.AssignAll(visible(1))
	first := backend.lastLoad()

	m.HandleLoadTimeout(0, first.gen)

	next := backend.lastLoad()
	assert.NotEqual(t, first.src, next.src, "timeout must move to another source")
	assert.Equal(t, 1, slotState(m, 0).RetryCount)

	// A stale timeout for the abandoned attempt is a no-op.
	m.HandleLoadTimeout(0, first.gen)
	assert.Equal(t, next.gen, backend.lastLoad().gen)
}

func TestInvalidMediaSkipsToNextCandidate(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 1, reg)

	m.AssignAll(visible(1))
	first := backend.lastLoad()

	m.HandleStatus(StatusEvent{SlotID: 0, Generation: first.gen, Status: models.StatusInvalid})

	next := backend.lastLoad()
	assert.NotEqual(t, first.src.Location, next.src.Location)
	assert.Equal(t, models.SlotLoadingStream, slotState(m, 0).State)
}

func TestNoMediaParksAndRecovers(t *testing.T) {
	reg := newTestRegistry(0, 0)
	m, _ := newTestMachine(t, 2, reg)

	m.AssignAll(visible(2))
	for _, s := range m.Status() {
		assert.Equal(t, models.SlotNoMedia, s.State)
		assert.True(t, s.Source.IsZero(), "no-media slot must not hold an assignment")
	}

	// Library appears; the next refresh recovers the slots.
	reg.SetLibrary([]models.ContentSource{models.FileSource("/media/new.mp4")})
	m.AssignAll(visible(2))
	for _, s := range m.Status() {
		assert.Equal(t, models.SlotLoadingLocal, s.State)
	}
}

func TestLocalBranchKeepsCyclingFiles(t *testing.T) {
	reg := newTestRegistry(0, 5)
	m, backend := newTestMachine(t, 1, reg)

	m.AssignAll(visible(1))
	require.Equal(t, models.SlotLoadingLocal, slotState(m, 0).State)

	// Repeated local failures must keep producing local attempts, never
	// a terminal state.
	for i := 0; i < 10; i++ {
		last := backend.lastLoad()
		require.True(t, last.src.IsLocal())
		m.HandleStatus(StatusEvent{SlotID: 0, Generation: last.gen, Status: models.StatusError})
	}
	assert.Equal(t, models.SlotLoadingLocal, slotState(m, 0).State)
}

func TestStopAllCancelsAndIdles(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 4, reg)

	m.AssignAll(visible(4))
	pending := backend.lastLoad()

	m.StopAll()

	for _, s := range m.Status() {
		assert.Equal(t, models.SlotIdle, s.State)
		assert.True(t, s.Source.IsZero())
	}
	assert.Empty(t, reg.Snapshot()["display-0"])

	// Events from before the stop are stale.
	m.HandleStatus(StatusEvent{SlotID: pending.slot, Generation: pending.gen, Status: models.StatusReady})
	assert.Equal(t, models.SlotIdle, slotState(m, pending.slot).State)
}

func TestEscalationTableCoversAllClasses(t *testing.T) {
	classes := []models.FailureClass{
		models.FailureNone,
		models.FailureTransient,
		models.FailureDefinitive,
		models.FailureEnded,
	}
	for _, class := range classes {
		_, ok := escalation[class]
		assert.True(t, ok, "failure class %s has no escalation entry", class)
	}
	assert.Equal(t, actionNone, escalation[models.FailureNone])
	assert.Equal(t, actionRetry, escalation[models.FailureTransient])
	assert.Equal(t, actionRetry, escalation[models.FailureDefinitive])
	assert.Equal(t, actionLoop, escalation[models.FailureEnded])
}

func TestCommitKeepsRegistryInSync(t *testing.T) {
	reg := newTestRegistry(20, 5)
	m, backend := newTestMachine(t, 3, reg)

	m.AssignAll(visible(3))

	snap := reg.Snapshot()["display-0"]
	require.Len(t, snap, 3)
	for slotID, src := range snap {
		assert.Equal(t, slotState(m, slotID).Source, src)
	}

	// A failure that moves a slot to a new source updates the snapshot.
	last := backend.lastLoad()
	m.HandleStatus(StatusEvent{SlotID: last.slot, Generation: last.gen, Status: models.StatusError})
	snap = reg.Snapshot()["display-0"]
	assert.Equal(t, slotState(m, last.slot).Source, snap[last.slot])
}
