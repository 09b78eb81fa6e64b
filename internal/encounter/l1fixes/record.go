package l1fixes

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrEntityCount is returned when an analysis does not see exactly two
// distinct entity identifiers.
var ErrEntityCount = errors.New("exactly two distinct entity ids are required")

// ErrNoFixes is returned when an entity has no fixes left to analyse.
var ErrNoFixes = errors.New("no fixes")

// Attributes holds auxiliary per-fix fields copied verbatim into PPA
// metadata.
type Attributes map[string]string

// Clone returns an independent copy. A nil map stays nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Record is one input row after column mapping. Records are validated once
// at ingestion; later layers trust their fields.
type Record struct {
	EntityID  string
	Latitude  float64
	Longitude float64
	Time      time.Time
	Attrs     Attributes
}

// SchemaError describes an invalid input row. Row is 1-based and counts data
// rows only; zero means the error is not tied to a row (e.g. a missing
// column).
type SchemaError struct {
	Row    int
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("input schema: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("input schema: row %d field %q: %s", e.Row, e.Field, e.Reason)
}

// Validate checks every record and returns the first schema violation.
func Validate(records []Record) error {
	for i, r := range records {
		row := i + 1
		if r.EntityID == "" {
			return &SchemaError{Row: row, Field: "entity_id", Reason: "empty"}
		}
		if math.IsNaN(r.Latitude) || math.IsInf(r.Latitude, 0) {
			return &SchemaError{Row: row, Field: "latitude", Reason: "not a finite number"}
		}
		if math.IsNaN(r.Longitude) || math.IsInf(r.Longitude, 0) {
			return &SchemaError{Row: row, Field: "longitude", Reason: "not a finite number"}
		}
		if r.Time.IsZero() {
			return &SchemaError{Row: row, Field: "time", Reason: "missing timestamp"}
		}
	}
	return nil
}

// EntityIDs returns the distinct entity identifiers in order of first
// appearance.
func EntityIDs(records []Record) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range records {
		if _, ok := seen[r.EntityID]; ok {
			continue
		}
		seen[r.EntityID] = struct{}{}
		ids = append(ids, r.EntityID)
	}
	return ids
}

// FilterWindow keeps records whose time lies within [start, end]. A zero
// bound is open.
func FilterWindow(records []Record, start, end time.Time) []Record {
	if start.IsZero() && end.IsZero() {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !start.IsZero() && r.Time.Before(start) {
			continue
		}
		if !end.IsZero() && r.Time.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SplitTwo partitions records into the two entities' fix sequences. The
// first entity is the one whose record appears first.
func SplitTwo(records []Record) (id1, id2 string, a, b []Point, err error) {
	ids := EntityIDs(records)
	if len(ids) != 2 {
		return "", "", nil, nil, fmt.Errorf("%w: found %d", ErrEntityCount, len(ids))
	}
	id1, id2 = ids[0], ids[1]
	for _, r := range records {
		if r.EntityID == id1 {
			a = append(a, PointFromRecord(r))
		} else {
			b = append(b, PointFromRecord(r))
		}
	}
	return id1, id2, a, b, nil
}

// GroupByEntity partitions records per entity, preserving input order within
// each entity. The returned ids follow first appearance.
func GroupByEntity(records []Record) ([]string, map[string][]Point) {
	ids := EntityIDs(records)
	groups := make(map[string][]Point, len(ids))
	for _, r := range records {
		groups[r.EntityID] = append(groups[r.EntityID], PointFromRecord(r))
	}
	return ids, groups
}

// SortByTime returns the points ordered ascending by time. Ties keep their
// original order.
func SortByTime(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// TimeRange is the closed interval spanned by a fix sequence.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// RangeOf returns the time range of the points. ok is false for an empty
// slice.
func RangeOf(points []Point) (r TimeRange, ok bool) {
	if len(points) == 0 {
		return TimeRange{}, false
	}
	r = TimeRange{Start: points[0].Time, End: points[0].Time}
	for _, p := range points[1:] {
		if p.Time.Before(r.Start) {
			r.Start = p.Time
		}
		if p.Time.After(r.End) {
			r.End = p.Time
		}
	}
	return r, true
}

// Gap returns how far apart two ranges are. Overlapping or touching ranges
// have a zero gap.
func (r TimeRange) Gap(o TimeRange) time.Duration {
	switch {
	case o.Start.After(r.End):
		return o.Start.Sub(r.End)
	case r.Start.After(o.End):
		return r.Start.Sub(o.End)
	default:
		return 0
	}
}
