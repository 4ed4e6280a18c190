package layout

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Cell is a single grid cell coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Region is a placed rectangle within the grid.
type Region struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"row_span"`
	ColSpan int `json:"col_span"`
}

// contains reports whether the region covers the given cell.
func (r Region) contains(row, col int) bool {
	return row >= r.Row && row < r.Row+r.RowSpan && col >= r.Col && col < r.Col+r.ColSpan
}

// Placement is the result of packing a set of slots into a grid. Every
// placed region is within bounds and no two regions overlap. Cells not
// covered by any region are reported in Unused.
type Placement struct {
	Rows    int            `json:"rows"`
	Cols    int            `json:"cols"`
	Policy  SizePolicy     `json:"policy"`
	Regions map[int]Region `json:"regions"`
	Unused  []Cell         `json:"unused,omitempty"`
}

// Region returns the placed region for a slot, if any.
func (p *Placement) Region(slotID int) (Region, bool) {
	r, ok := p.Regions[slotID]
	return r, ok
}

// PlacedSlots returns the ids of all placed slots in ascending order.
func (p *Placement) PlacedSlots() []int {
	ids := make([]int, 0, len(p.Regions))
	for id := range p.Regions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Swap exchanges the regions of two placed slots. Positions change but
// spans travel with the position, so coverage is unaffected.
func (p *Placement) Swap(a, b int) bool {
	ra, ok := p.Regions[a]
	if !ok {
		return false
	}
	rb, ok := p.Regions[b]
	if !ok {
		return false
	}
	p.Regions[a] = rb
	p.Regions[b] = ra
	return true
}

// Pack computes a non-overlapping placement of slots into a rows×cols
// grid using the candidate spans of the given policy. Slot order and span
// choice are randomised through rng; pass a seeded source for reproducible
// results. A nil rng falls back to a time-seeded source.
//
// The algorithm always terminates with a legal placement: slots that no
// candidate span can fit are placed at 1×1 into remaining gaps, row-major.
// If slots run out first the leftover free cells are reported as unused.
// A zero-sized grid is a configuration bug and panics.
func Pack(rng *rand.Rand, rows, cols int, slotIDs []int, policy SizePolicy) Placement {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("layout: invalid grid %dx%d", rows, cols))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	occupied := make([][]bool, rows)
	for r := range occupied {
		occupied[r] = make([]bool, cols)
	}

	placement := Placement{
		Rows:    rows,
		Cols:    cols,
		Policy:  policy,
		Regions: make(map[int]Region, len(slotIDs)),
	}

	order := make([]int, len(slotIDs))
	copy(order, slotIDs)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	spans := candidateSpans(rng, policy)

	// The feature policy pins one large tile at the top-left before the
	// general pass.
	if policy == PolicyFeature && len(order) > 0 {
		span := Span{2, 2}
		if rows >= 4 && cols >= 4 {
			span = Span{3, 3}
		}
		if span.Rows > rows {
			span.Rows = rows
		}
		if span.Cols > cols {
			span.Cols = cols
		}
		placeAt(occupied, &placement, order[0], 0, 0, span)
		order = order[1:]
	}

	var unplaced []int
	for _, id := range order {
		fitting := fittingSpans(occupied, rows, cols, spans)
		if len(fitting) == 0 {
			fitting = fittingSpans(occupied, rows, cols, []Span{{1, 1}})
		}
		if len(fitting) == 0 {
			unplaced = append(unplaced, id)
			continue
		}
		span := fitting[rng.Intn(len(fitting))]
		if !placeFirstFit(occupied, &placement, id, span) {
			// The chosen span fits somewhere by construction, but fall
			// back through the remaining candidates anyway.
			placed := false
			for _, s := range fitting {
				if placeFirstFit(occupied, &placement, id, s) {
					placed = true
					break
				}
			}
			if !placed {
				unplaced = append(unplaced, id)
			}
		}
	}

	fillGaps(occupied, &placement, unplaced)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !occupied[r][c] {
				placement.Unused = append(placement.Unused, Cell{Row: r, Col: c})
			}
		}
	}

	return placement
}

// fittingSpans filters spans down to those that fit somewhere in the
// remaining free cells.
func fittingSpans(occupied [][]bool, rows, cols int, spans []Span) []Span {
	var fitting []Span
	for _, span := range spans {
		if fitsSomewhere(occupied, rows, cols, span) {
			fitting = append(fitting, span)
		}
	}
	return fitting
}

func fitsSomewhere(occupied [][]bool, rows, cols int, span Span) bool {
	for r := 0; r <= rows-span.Rows; r++ {
		for c := 0; c <= cols-span.Cols; c++ {
			if fitsAt(occupied, r, c, span) {
				return true
			}
		}
	}
	return false
}

func fitsAt(occupied [][]bool, row, col int, span Span) bool {
	if row+span.Rows > len(occupied) || col+span.Cols > len(occupied[0]) {
		return false
	}
	for r := row; r < row+span.Rows; r++ {
		for c := col; c < col+span.Cols; c++ {
			if occupied[r][c] {
				return false
			}
		}
	}
	return true
}

// placeFirstFit scans cells row-major and places the slot at the first
// position that accepts the span.
func placeFirstFit(occupied [][]bool, placement *Placement, slotID int, span Span) bool {
	rows, cols := placement.Rows, placement.Cols
	for r := 0; r <= rows-span.Rows; r++ {
		for c := 0; c <= cols-span.Cols; c++ {
			if fitsAt(occupied, r, c, span) {
				placeAt(occupied, placement, slotID, r, c, span)
				return true
			}
		}
	}
	return false
}

func placeAt(occupied [][]bool, placement *Placement, slotID, row, col int, span Span) {
	for r := row; r < row+span.Rows; r++ {
		for c := col; c < col+span.Cols; c++ {
			occupied[r][c] = true
		}
	}
	placement.Regions[slotID] = Region{Row: row, Col: col, RowSpan: span.Rows, ColSpan: span.Cols}
}

// fillGaps assigns unplaced slots to remaining free cells at 1×1,
// row-major, until either runs out.
func fillGaps(occupied [][]bool, placement *Placement, unplaced []int) {
	if len(unplaced) == 0 {
		return
	}
	idx := 0
	for r := 0; r < placement.Rows && idx < len(unplaced); r++ {
		for c := 0; c < placement.Cols && idx < len(unplaced); c++ {
			if occupied[r][c] {
				continue
			}
			placeAt(occupied, placement, unplaced[idx], r, c, Span{1, 1})
			idx++
		}
	}
}
