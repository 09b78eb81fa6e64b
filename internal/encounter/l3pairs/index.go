package l3pairs

import (
	"math"
	"sort"

	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/paulmach/orb"
)

// maxCellsPerItem caps how many grid cells one bound may cover before the
// index falls back to a coarser grid.
const maxCellsPerItem = 4096

type cellKey struct{ x, y int64 }

// Index is a uniform grid over PPA bounds. It is built once and read-only
// afterwards.
type Index struct {
	cell   float64
	origin orb.Point
	cells  map[cellKey][]int
}

// NewIndex buckets every PPA bound into the grid cells it overlaps. A
// non-positive cellSize uses the mean bound extent.
func NewIndex(ppas []l2ppa.PPA, cellSize float64) *Index {
	idx := &Index{cells: make(map[cellKey][]int)}
	if len(ppas) == 0 {
		idx.cell = 1
		return idx
	}

	all := ppas[0].Bound
	var extent float64
	for _, p := range ppas {
		all = all.Union(p.Bound)
		extent += math.Max(p.Bound.Right()-p.Bound.Left(), p.Bound.Top()-p.Bound.Bottom())
	}
	if cellSize <= 0 || math.IsNaN(cellSize) {
		cellSize = extent / float64(len(ppas))
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	idx.cell = cellSize
	idx.origin = all.Min

	for i, p := range ppas {
		lo, hi := idx.span(p.Bound)
		for (hi.x-lo.x+1)*(hi.y-lo.y+1) > maxCellsPerItem {
			// bound is huge relative to the grid; coarsen and rebuild
			return NewIndex(ppas, idx.cell*4)
		}
		for x := lo.x; x <= hi.x; x++ {
			for y := lo.y; y <= hi.y; y++ {
				k := cellKey{x, y}
				idx.cells[k] = append(idx.cells[k], i)
			}
		}
	}
	return idx
}

func (idx *Index) span(b orb.Bound) (lo, hi cellKey) {
	lo = cellKey{
		x: int64(math.Floor((b.Min[0] - idx.origin[0]) / idx.cell)),
		y: int64(math.Floor((b.Min[1] - idx.origin[1]) / idx.cell)),
	}
	hi = cellKey{
		x: int64(math.Floor((b.Max[0] - idx.origin[0]) / idx.cell)),
		y: int64(math.Floor((b.Max[1] - idx.origin[1]) / idx.cell)),
	}
	return lo, hi
}

// Candidates returns, in ascending order, the indices of PPAs whose bounds
// share a grid cell with b.
func (idx *Index) Candidates(b orb.Bound) []int {
	lo, hi := idx.span(b)
	if (hi.x-lo.x+1)*(hi.y-lo.y+1) > maxCellsPerItem*4 {
		return idx.all()
	}
	seen := make(map[int]struct{})
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for _, i := range idx.cells[cellKey{x, y}] {
				seen[i] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (idx *Index) all() []int {
	seen := make(map[int]struct{})
	for _, ids := range idx.cells {
		for _, i := range ids {
			seen[i] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
