// Package layout implements the grid bin-packing algorithm that assigns
// variable-sized regions to display slots without overlap.
package layout

import "math/rand"

// SizePolicy names a layout pattern. Policies differ only in the list of
// candidate spans they offer to the packer; the feature policy additionally
// pins one large tile at the top-left.
type SizePolicy int

const (
	// PolicyUniformGrid places every slot at the same span.
	PolicyUniformGrid SizePolicy = iota
	// PolicyRowDominant favours wide horizontal tiles.
	PolicyRowDominant
	// PolicyColumnDominant favours tall vertical tiles.
	PolicyColumnDominant
	// PolicyFeature places one large feature tile with smaller tiles
	// around it.
	PolicyFeature
	// PolicyVaried mixes tile sizes freely.
	PolicyVaried
	// PolicyAsymmetric uses off-balance span combinations.
	PolicyAsymmetric
)

func (p SizePolicy) String() string {
	switch p {
	case PolicyUniformGrid:
		return "grid"
	case PolicyRowDominant:
		return "rows"
	case PolicyColumnDominant:
		return "columns"
	case PolicyFeature:
		return "feature"
	case PolicyVaried:
		return "varied"
	case PolicyAsymmetric:
		return "asymmetric"
	default:
		return "unknown"
	}
}

// AllPolicies returns every defined size policy.
func AllPolicies() []SizePolicy {
	return []SizePolicy{
		PolicyUniformGrid,
		PolicyRowDominant,
		PolicyColumnDominant,
		PolicyFeature,
		PolicyVaried,
		PolicyAsymmetric,
	}
}

// RandomPolicy draws a policy uniformly at random.
func RandomPolicy(rng *rand.Rand) SizePolicy {
	all := AllPolicies()
	return all[rng.Intn(len(all))]
}

// Span is a tile size in grid cells.
type Span struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// uniformGridSpans are the spans the grid policy draws one of.
var uniformGridSpans = []Span{{2, 2}, {4, 4}, {3, 2}, {2, 3}}

// candidateSpans returns the span list a policy offers. For the uniform
// grid policy a single span is drawn, so the result depends on rng.
func candidateSpans(rng *rand.Rand, policy SizePolicy) []Span {
	switch policy {
	case PolicyVaried:
		return []Span{{2, 2}, {1, 3}, {3, 1}, {1, 1}, {2, 1}, {1, 2}}
	case PolicyFeature:
		return []Span{{3, 3}, {2, 2}, {1, 1}}
	case PolicyColumnDominant:
		return []Span{{4, 1}, {3, 1}, {2, 1}, {1, 1}}
	case PolicyRowDominant:
		return []Span{{1, 4}, {1, 3}, {1, 2}, {1, 1}}
	case PolicyUniformGrid:
		return []Span{uniformGridSpans[rng.Intn(len(uniformGridSpans))]}
	case PolicyAsymmetric:
		return []Span{{2, 3}, {3, 2}, {2, 1}, {1, 2}, {1, 1}}
	default:
		return []Span{{1, 1}}
	}
}
