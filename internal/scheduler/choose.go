// Package scheduler implements the per-display transition scheduler: a
// recurring randomised timer that picks the next visual transition using
// a weighted, anti-repetition policy.
package scheduler

import "math/rand"

// TransitionType names a scheduled visual change.
type TransitionType int

const (
	// TransitionSwap exchanges the placements of two visible slots.
	TransitionSwap TransitionType = iota
	// TransitionResize repacks the whole display with a fresh layout
	// policy.
	TransitionResize
	// TransitionFullScreen lets one slot take over the entire grid until
	// the next firing.
	TransitionFullScreen
	// TransitionRefresh re-runs full content assignment across all
	// slots. Disabled by default; present for extensibility.
	TransitionRefresh
)

func (t TransitionType) String() string {
	switch t {
	case TransitionSwap:
		return "swap"
	case TransitionResize:
		return "resize"
	case TransitionFullScreen:
		return "fullscreen"
	case TransitionRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// allTransitions fixes the draw order so selection is deterministic for
// a given random sequence.
var allTransitions = []TransitionType{
	TransitionSwap,
	TransitionResize,
	TransitionFullScreen,
	TransitionRefresh,
}

// Weights maps transition types to their base selection weight.
type Weights map[TransitionType]float64

// DefaultWeights returns the default transition weight table.
func DefaultWeights() Weights {
	return Weights{
		TransitionSwap:       0.05,
		TransitionResize:     0.85,
		TransitionFullScreen: 0.10,
		TransitionRefresh:    0.0,
	}
}

// recentPenalty is the factor applied to the weight of any type present
// in the recent-history window before renormalising.
const recentPenalty = 0.2

// historySize is the length of the anti-repetition window.
const historySize = 3

// Choose draws the next transition type. Types present in recent have
// their weight multiplied by recentPenalty before the distribution is
// renormalised; the draw then walks the cumulative weights. Choose is a
// pure function of its inputs and the rng stream, so it is testable
// without a running timer.
func Choose(rng *rand.Rand, weights Weights, recent []TransitionType) TransitionType {
	recentSet := make(map[TransitionType]bool, len(recent))
	for _, t := range recent {
		recentSet[t] = true
	}

	adjusted := make([]float64, len(allTransitions))
	total := 0.0
	for i, t := range allTransitions {
		w := weights[t]
		if recentSet[t] {
			w *= recentPenalty
		}
		adjusted[i] = w
		total += w
	}
	if total <= 0 {
		return TransitionResize
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for i, t := range allTransitions {
		cumulative += adjusted[i]
		if r <= cumulative {
			return t
		}
	}
	return allTransitions[len(allTransitions)-1]
}
