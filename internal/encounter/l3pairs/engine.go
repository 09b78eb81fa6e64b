package l3pairs

import (
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
)

// Pair is a spatially and temporally intersecting PPA pair. A belongs to
// the first entity and B to the second.
type Pair struct {
	A l2ppa.PPA
	B l2ppa.PPA
}

// Engine searches two PPA sequences for intersecting pairs.
type Engine struct {
	Window Window

	// UseIndex buckets the second sequence into a uniform grid on PPA
	// bounds before querying. Results are identical to the full scan.
	UseIndex bool
	CellSize float64 // grid cell size; zero picks one from the data
}

// FindPairs runs the exhaustive search. Pairs are ordered by A's position,
// then B's position.
func FindPairs(a, b []l2ppa.PPA, w Window) []Pair {
	return Engine{Window: w}.Find(a, b)
}

// Find returns every (p, q) with p from a and q from b that satisfies both
// predicates.
func (e Engine) Find(a, b []l2ppa.PPA) []Pair {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	var pairs []Pair
	if e.UseIndex {
		idx := NewIndex(b, e.CellSize)
		for _, p := range a {
			for _, j := range idx.Candidates(p.Bound) {
				q := b[j]
				if TemporallyIntersects(p, q, e.Window) && SpatiallyIntersects(p, q) {
					pairs = append(pairs, Pair{A: p, B: q})
				}
			}
		}
		return pairs
	}

	for _, p := range a {
		for _, q := range b {
			// temporal check first, it is far cheaper than the ring test
			if TemporallyIntersects(p, q, e.Window) && SpatiallyIntersects(p, q) {
				pairs = append(pairs, Pair{A: p, B: q})
			}
		}
	}
	return pairs
}
