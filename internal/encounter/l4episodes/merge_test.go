package l4episodes

import (
	"testing"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/l3pairs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

func m(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

// rec builds a pair record from entity-1 and entity-2 anchor minutes.
func rec(s1, e1, s2, e2 int) l3pairs.PairRecord {
	return l3pairs.PairRecord{
		P1: l3pairs.Anchor{EntityID: "A", TStart: m(s1), TEnd: m(e1)},
		P2: l3pairs.Anchor{EntityID: "B", TStart: m(s2), TEnd: m(e2)},
	}
}

func TestMergeEmpty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Merge("A", "B", nil))
}

func TestMergeSinglePair(t *testing.T) {
	t.Parallel()

	events := Merge("A", "B", []l3pairs.PairRecord{rec(0, 10, 5, 15)})
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].No)
	assert.Equal(t, "A", events[0].Entity1)
	assert.Equal(t, "B", events[0].Entity2)
	assert.Equal(t, m(0), events[0].Start)
	assert.Equal(t, m(15), events[0].End)
	assert.InDelta(t, 15.0, events[0].DurationMinutes, 1e-12)
}

func TestMergeContinuousRun(t *testing.T) {
	t.Parallel()

	// entity 1 PPAs abut (end == next start); each pairs with one or two
	// entity-2 PPAs
	records := []l3pairs.PairRecord{
		rec(0, 10, 0, 8),
		rec(0, 10, 8, 16),
		rec(10, 20, 16, 24),
		rec(20, 30, 24, 32),
	}
	events := Merge("A", "B", records)
	require.Len(t, events, 1)
	assert.Equal(t, m(0), events[0].Start)
	assert.Equal(t, m(32), events[0].End)
}

func TestMergeSeparateEpisodes(t *testing.T) {
	t.Parallel()

	records := []l3pairs.PairRecord{
		rec(0, 10, 2, 12),
		rec(10, 20, 12, 22),
		rec(60, 70, 61, 71), // genuine break on entity 1
		rec(200, 210, 195, 205),
	}
	events := Merge("A", "B", records)
	require.Len(t, events, 3)

	assert.Equal(t, []time.Time{m(0), m(60), m(195)}, []time.Time{events[0].Start, events[1].Start, events[2].Start})
	assert.Equal(t, []time.Time{m(22), m(71), m(210)}, []time.Time{events[0].End, events[1].End, events[2].End})
	for i, e := range events {
		assert.Equal(t, i+1, e.No)
		assert.InDelta(t, e.End.Sub(e.Start).Minutes(), e.DurationMinutes, 1e-12)
	}
}

func TestMergeOverlappingGroupsCollapse(t *testing.T) {
	t.Parallel()

	// entity-1 break, but entity-2 intervals bridge the two groups
	records := []l3pairs.PairRecord{
		rec(0, 10, 0, 40),
		rec(30, 40, 35, 45),
	}
	events := Merge("A", "B", records)
	require.Len(t, events, 1)
	assert.Equal(t, m(0), events[0].Start)
	assert.Equal(t, m(45), events[0].End)
}

func TestMergeIsOrderIndependent(t *testing.T) {
	t.Parallel()

	records := []l3pairs.PairRecord{
		rec(0, 10, 2, 12),
		rec(10, 20, 12, 22),
		rec(60, 70, 61, 71),
	}
	reversed := []l3pairs.PairRecord{records[2], records[1], records[0]}
	assert.Equal(t, Merge("A", "B", records), Merge("A", "B", reversed))
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	records := []l3pairs.PairRecord{rec(60, 70, 61, 71), rec(0, 10, 2, 12)}
	Merge("A", "B", records)
	assert.Equal(t, m(60), records[0].P1.TStart)
}

func TestChain(t *testing.T) {
	t.Parallel()

	out := Chain([]Interval{
		{m(10), m(20)},
		{m(0), m(5)},
		{m(5), m(7)},   // chains end-to-start
		{m(0), m(5)},   // duplicate
		{m(12), m(15)}, // nested
		{m(30), m(31)},
	})
	assert.Equal(t, []Interval{{m(0), m(7)}, {m(10), m(20)}, {m(30), m(31)}}, out)

	// running end, not just the previous row, decides a merge
	out = Chain([]Interval{{m(0), m(100)}, {m(10), m(20)}, {m(50), m(60)}})
	assert.Equal(t, []Interval{{m(0), m(100)}}, out)

	assert.Nil(t, Chain(nil))
}

func TestMergeProximity(t *testing.T) {
	t.Parallel()

	match := func(min1, min2 int) l3pairs.ProximityMatch {
		return l3pairs.ProximityMatch{
			Fix1: l1fixes.NewPoint(0, 0, m(min1), "A"),
			Fix2: l1fixes.NewPoint(0, 0, m(min2), "B"),
		}
	}
	events := MergeProximity("A", "B", []l3pairs.ProximityMatch{
		match(0, 1), match(2, 2), match(3, 5), match(30, 29),
	}, 2*time.Minute)

	require.Len(t, events, 2)
	assert.Equal(t, m(0), events[0].Start)
	assert.Equal(t, m(5), events[0].End)
	assert.Equal(t, m(29), events[1].Start)
	assert.Equal(t, m(30), events[1].End)

	single := MergeProximity("A", "B", []l3pairs.ProximityMatch{match(7, 8)}, time.Minute)
	require.Len(t, single, 1)
	assert.InDelta(t, 1.0, single[0].DurationMinutes, 1e-12)

	assert.Empty(t, MergeProximity("A", "B", nil, time.Minute))
}
