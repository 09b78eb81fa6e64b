package l4episodes

import (
	"sort"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l3pairs"
)

// MergeProximity groups proximity matches into episodes. Consecutive
// matches (ordered by entity-1 fix time) belong to the same episode when
// their entity-1 fixes are at most continuity apart. Each episode spans
// every fix time it contains, from either entity.
func MergeProximity(entity1, entity2 string, matches []l3pairs.ProximityMatch, continuity time.Duration) []Event {
	if len(matches) == 0 {
		return nil
	}
	ms := make([]l3pairs.ProximityMatch, len(matches))
	copy(ms, matches)
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Fix1.Time.Before(ms[j].Fix1.Time)
	})

	span := func(m l3pairs.ProximityMatch) Interval {
		iv := Interval{Start: m.Fix1.Time, End: m.Fix1.Time}
		return iv.extend(Interval{Start: m.Fix2.Time, End: m.Fix2.Time})
	}

	var out []Interval
	cur := span(ms[0])
	for i := 1; i < len(ms); i++ {
		if ms[i].Fix1.Time.Sub(ms[i-1].Fix1.Time) <= continuity {
			cur = cur.extend(span(ms[i]))
			continue
		}
		out = append(out, cur)
		cur = span(ms[i])
	}
	out = append(out, cur)

	return number(entity1, entity2, out)
}
