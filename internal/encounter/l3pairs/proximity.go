package l3pairs

import (
	"sort"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
)

// ProximityMatch is a pair of raw fixes, one per entity, that lie within
// the distance threshold and the time window of each other.
type ProximityMatch struct {
	Fix1     l1fixes.Point
	Fix2     l1fixes.Point
	Distance float64
}

// FindProximity matches every fix of a against the fixes of b taken within
// maxDelay and closer than distance. It is the fix-level counterpart of the
// PPA search and ignores movement between fixes.
func FindProximity(a, b []l1fixes.Point, distance float64, maxDelay time.Duration) []ProximityMatch {
	if len(a) == 0 || len(b) == 0 || distance <= 0 {
		return nil
	}
	a = l1fixes.SortByTime(a)
	b = l1fixes.SortByTime(b)

	var out []ProximityMatch
	for _, p := range a {
		lo := p.Time.Add(-maxDelay)
		hi := p.Time.Add(maxDelay)
		// first fix of b not before lo
		start := sort.Search(len(b), func(i int) bool { return !b[i].Time.Before(lo) })
		for j := start; j < len(b) && !b[j].Time.After(hi); j++ {
			if d := l1fixes.Distance(p, b[j]); d < distance {
				out = append(out, ProximityMatch{Fix1: p, Fix2: b[j], Distance: d})
			}
		}
	}
	return out
}
