package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/l3pairs"
	"github.com/banshee-data/encounter.report/internal/encounter/l4episodes"
	"github.com/banshee-data/encounter.report/internal/monitoring"
	"github.com/banshee-data/encounter.report/internal/timeutil"
)

// Result is everything one two-entity analysis produces.
type Result struct {
	RunID    uuid.UUID
	Started  time.Time
	Entity1  string
	Entity2  string
	Fixes1   []l1fixes.Point
	Fixes2   []l1fixes.Point
	PPAs1    []l2ppa.PPA
	PPAs2    []l2ppa.PPA
	Skipped1 []l2ppa.Skip
	Skipped2 []l2ppa.Skip

	Pairs     []l3pairs.Pair
	PairTable []l3pairs.PairRecord
	Events    []l4episodes.Event

	Proximity       []l3pairs.ProximityMatch
	ProximityEvents []l4episodes.Event
}

// Found reports whether any interaction episode was detected.
func (r *Result) Found() bool {
	return len(r.Events) > 0
}

// Analyze validates records holding exactly two entities and runs the full
// detection. Schema problems, a wrong entity count and incompatible
// trajectories are returned as errors; finding nothing is not an error.
func Analyze(records []l1fixes.Record, opts Options) (*Result, error) {
	if err := l1fixes.Validate(records); err != nil {
		return nil, err
	}
	records = l1fixes.FilterWindow(records, opts.Start, opts.End)

	id1, id2, a, b, err := l1fixes.SplitTwo(records)
	if err != nil {
		return nil, err
	}
	return analyzePair(id1, id2, a, b, opts)
}

func analyzePair(id1, id2 string, a, b []l1fixes.Point, opts Options) (*Result, error) {
	if err := opts.Window.Validate(); err != nil {
		return nil, err
	}
	if err := l3pairs.Precheck(id1, id2, a, b, opts.Window.MaxDelay); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:   uuid.New(),
		Started: timeutil.OrReal(opts.Clock).Now(),
		Entity1: id1,
		Entity2: id2,
		Fixes1:  l1fixes.SortByTime(a),
		Fixes2:  l1fixes.SortByTime(b),
	}

	seq1 := l2ppa.Generate(id1, res.Fixes1, opts.Generator)
	seq2 := l2ppa.Generate(id2, res.Fixes2, opts.Generator)
	res.PPAs1, res.Skipped1 = seq1.PPAs, seq1.Skipped
	res.PPAs2, res.Skipped2 = seq2.PPAs, seq2.Skipped
	monitoring.Logf("generated %d PPAs for %s (%d skipped)", len(res.PPAs1), id1, len(res.Skipped1))
	monitoring.Logf("generated %d PPAs for %s (%d skipped)", len(res.PPAs2), id2, len(res.Skipped2))

	engine := l3pairs.Engine{Window: opts.Window, UseIndex: opts.UseIndex, CellSize: opts.CellSize}
	res.Pairs = engine.Find(res.PPAs1, res.PPAs2)
	res.PairTable = l3pairs.BuildPairTable(res.Pairs)
	res.Events = l4episodes.Merge(id1, id2, res.PairTable)
	monitoring.Logf("%s/%s: %d intersecting PPA pairs, %d episodes", id1, id2, len(res.Pairs), len(res.Events))

	if opts.ProximityDistance > 0 {
		res.Proximity = l3pairs.FindProximity(res.Fixes1, res.Fixes2, opts.ProximityDistance, opts.Window.MaxDelay)
		res.ProximityEvents = l4episodes.MergeProximity(id1, id2, res.Proximity, opts.ProximityContinuity)
		monitoring.Logf("%s/%s: %d proximity matches, %d proximity episodes",
			id1, id2, len(res.Proximity), len(res.ProximityEvents))
	}
	return res, nil
}

// IsIncompatible reports whether err is a pairwise incompatibility, the one
// analysis error that batch callers usually treat as "no encounter".
func IsIncompatible(err error) bool {
	var ie *l3pairs.IncompatibleError
	return errors.As(err, &ie)
}
