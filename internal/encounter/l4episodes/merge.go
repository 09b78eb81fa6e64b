package l4episodes

import (
	"sort"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l3pairs"
)

// Event is one interaction episode between two entities.
type Event struct {
	No              int // 1-based position in the episode table
	Entity1         string
	Entity2         string
	Start           time.Time
	End             time.Time
	DurationMinutes float64
}

// Interval is a closed time span.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) extend(o Interval) Interval {
	if o.Start.Before(iv.Start) {
		iv.Start = o.Start
	}
	if o.End.After(iv.End) {
		iv.End = o.End
	}
	return iv
}

// Merge collapses the pair table into episodes.
//
// Pairs are first segmented into entity-1 groups: a new group starts when a
// pair's entity-1 start matches neither the previous pair's entity-1 start
// nor its entity-1 end. Within a group the entity-2 intervals are pooled
// and chained into sub-episodes, each crossed with the group's entity-1
// envelope. Finally rows whose intervals touch or overlap are merged.
func Merge(entity1, entity2 string, records []l3pairs.PairRecord) []Event {
	if len(records) == 0 {
		return nil
	}

	recs := make([]l3pairs.PairRecord, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].P1.TStart.Equal(recs[j].P1.TStart) {
			return recs[i].P1.TStart.Before(recs[j].P1.TStart)
		}
		return recs[i].P2.TStart.Before(recs[j].P2.TStart)
	})

	var rows []Interval
	for _, group := range segment(recs) {
		env := Interval{Start: group[0].P1.TStart, End: group[0].P1.TEnd}
		second := make([]Interval, 0, len(group))
		for _, r := range group {
			env = env.extend(Interval{Start: r.P1.TStart, End: r.P1.TEnd})
			second = append(second, Interval{Start: r.P2.TStart, End: r.P2.TEnd})
		}
		for _, sub := range Chain(second) {
			rows = append(rows, env.extend(sub))
		}
	}

	return number(entity1, entity2, Chain(rows))
}

// segment splits time-sorted records wherever entity 1 has a genuine
// temporal break.
func segment(recs []l3pairs.PairRecord) [][]l3pairs.PairRecord {
	var groups [][]l3pairs.PairRecord
	start := 0
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1].P1, recs[i].P1
		if !cur.TStart.Equal(prev.TStart) && !cur.TStart.Equal(prev.TEnd) {
			groups = append(groups, recs[start:i])
			start = i
		}
	}
	return append(groups, recs[start:])
}

// Chain sorts intervals and merges every run in which the next interval
// starts no later than the running end. The sweep compares against the
// running end rather than only the previous interval so the output never
// contains overlapping intervals.
func Chain(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !last.End.Before(iv.Start) {
			*last = last.extend(iv)
			continue
		}
		out = append(out, iv)
	}
	return out
}

func number(entity1, entity2 string, intervals []Interval) []Event {
	events := make([]Event, 0, len(intervals))
	for i, iv := range intervals {
		events = append(events, Event{
			No:              i + 1,
			Entity1:         entity1,
			Entity2:         entity2,
			Start:           iv.Start,
			End:             iv.End,
			DurationMinutes: iv.End.Sub(iv.Start).Minutes(),
		})
	}
	return events
}
