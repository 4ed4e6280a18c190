package scheduler

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Config holds scheduler timing and selection policy.
type Config struct {
	// Intervals is the discrete set of delays the next firing is drawn
	// from. Intentionally coarse and human-perceptible.
	Intervals []time.Duration
	// Weights is the base transition weight table.
	Weights Weights
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Intervals: []time.Duration{30 * time.Second, 45 * time.Second, 60 * time.Second, 90 * time.Second},
		Weights:   DefaultWeights(),
	}
}

// FireFunc is invoked on every scheduler firing with the pre-chosen
// transition type. It runs on the timer goroutine; implementations are
// expected to hand the work to their own event loop.
type FireFunc func(TransitionType)

// Scheduler is one display's recurring transition timer. Each firing
// executes the transition chosen at the previous arming, then re-arms
// with a fresh random interval and pre-selects the next type, keeping a
// short history to damp repetition.
type Scheduler struct {
	cfg    Config
	fire   FireFunc
	logger *slog.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	timer   *time.Timer
	recent  []TransitionType
	next    TransitionType
	running bool
}

// New creates a scheduler. The fire callback receives every scheduled
// transition.
func New(cfg Config, fire FireFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Intervals) == 0 {
		cfg.Intervals = DefaultConfig().Intervals
	}
	if cfg.Weights == nil {
		cfg.Weights = DefaultWeights()
	}
	return &Scheduler{
		cfg:    cfg,
		fire:   fire,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		next:   TransitionResize,
	}
}

// WithRand sets a custom random source for reproducible tests.
func (s *Scheduler) WithRand(rng *rand.Rand) *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
	return s
}

// Start arms the first firing. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.arm()
}

// Stop cancels the pending firing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Next returns the pre-selected transition for the upcoming firing.
func (s *Scheduler) Next() TransitionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// arm schedules the next firing. Caller holds the mutex.
func (s *Scheduler) arm() {
	interval := s.cfg.Intervals[s.rng.Intn(len(s.cfg.Intervals))]

	s.recent = append(s.recent, s.next)
	if len(s.recent) > historySize {
		s.recent = s.recent[1:]
	}
	s.next = Choose(s.rng, s.cfg.Weights, s.recent)

	s.logger.Debug("scheduler armed",
		slog.Duration("interval", interval),
		slog.String("next_transition", s.next.String()))

	s.timer = time.AfterFunc(interval, s.onFire)
}

// onFire runs on the timer goroutine: deliver the pre-chosen transition
// and re-arm.
func (s *Scheduler) onFire() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	transition := s.next
	s.mu.Unlock()

	s.fire(transition)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.arm()
	}
}
