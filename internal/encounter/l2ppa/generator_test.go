package l2ppa

import (
	"testing"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/monitoring"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

func fix(x, y float64, sec int) l1fixes.Point {
	return l1fixes.NewPoint(x, y, t0.Add(time.Duration(sec)*time.Second), "T1")
}

func TestGeneratorEmitsOnePPAPerMovingPair(t *testing.T) {
	t.Parallel()

	fixes := []l1fixes.Point{fix(0, 0, 0), fix(0, 10, 600), fix(5, 10, 1200)}
	seq := Generate("T1", fixes, DefaultOptions())

	require.Len(t, seq.PPAs, 2)
	assert.Empty(t, seq.Skipped)

	first := seq.PPAs[0]
	assert.Equal(t, 0, first.Seq)
	assert.Equal(t, fixes[0].Time, first.TStart)
	assert.Equal(t, fixes[1].Time, first.TEnd)
	assert.InDelta(t, 10.0/600.0, first.Speed, 1e-12, "reported speed is the instantaneous speed")
	assert.InDelta(t, 1.25*10.0/600.0, first.SizingSpeed, 1e-12)
	assert.InDelta(t, 90, first.Direction, 1e-9)
	assert.Len(t, first.Boundary, DefaultVertices+1)
	assert.GreaterOrEqual(t, first.MajorAxis, 10.0)
}

func TestGeneratorPPAEnclosesFixes(t *testing.T) {
	t.Parallel()

	fixes := []l1fixes.Point{
		fix(0, 0, 0), fix(3, 4, 60), fix(3, 9, 200), fix(-2, 9, 260),
		fix(-2, 1, 400), fix(4, -3, 700), fix(4.5, -3.2, 720),
	}
	seq := Generate("T1", fixes, DefaultOptions())
	require.NotEmpty(t, seq.PPAs)
	for _, p := range seq.PPAs {
		assert.True(t, planar.PolygonContains(p.Polygon, p.StartPos), "seq %d start", p.Seq)
		assert.True(t, planar.PolygonContains(p.Polygon, p.EndPos), "seq %d end", p.Seq)
		assert.Greater(t, p.Area(), 0.0)
		assert.Greater(t, p.Perimeter(), 0.0)
	}
}

func TestGeneratorSortsInput(t *testing.T) {
	t.Parallel()

	ordered := Generate("T1", []l1fixes.Point{fix(0, 0, 0), fix(1, 1, 60), fix(2, 3, 120)}, DefaultOptions())
	shuffled := Generate("T1", []l1fixes.Point{fix(2, 3, 120), fix(0, 0, 0), fix(1, 1, 60)}, DefaultOptions())
	require.Len(t, shuffled.PPAs, len(ordered.PPAs))
	for i := range ordered.PPAs {
		assert.Equal(t, ordered.PPAs[i].Key(), shuffled.PPAs[i].Key())
	}
}

func TestGeneratorStationaryResetsSmoother(t *testing.T) {
	t.Parallel()

	g := NewGenerator(DefaultOptions())
	assert.Equal(t, Primed, g.Step(fix(0, 0, 0)).Kind)
	assert.Equal(t, Emitted, g.Step(fix(1, 0, 60)).Kind)
	assert.Equal(t, Emitted, g.Step(fix(2, 0, 120)).Kind)
	assert.Equal(t, 2, g.Smoother().Len())

	out := g.Step(fix(2, 0, 180))
	assert.Equal(t, SkipStationary, out.Kind)
	assert.Equal(t, 0, g.Smoother().Len())
}

func TestGeneratorDuplicateTimestamp(t *testing.T) {
	t.Parallel()

	g := NewGenerator(DefaultOptions())
	g.Step(fix(0, 0, 0))
	g.Step(fix(1, 0, 60))

	var out Outcome
	assert.NotPanics(t, func() { out = g.Step(fix(5, 5, 60)) })
	assert.Equal(t, SkipStationary, out.Kind)
	assert.Equal(t, 0, g.Smoother().Len())

	seq := Generate("T1", []l1fixes.Point{fix(0, 0, 0), fix(0, 0, 0)}, DefaultOptions())
	assert.Empty(t, seq.PPAs)
	require.Len(t, seq.Skipped, 1)
	assert.Equal(t, SkipStationary, seq.Skipped[0].Kind)
}

func TestGeneratorGapResetsSmoother(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.MaxGap = 30 * time.Minute
	g := NewGenerator(opts)

	g.Step(fix(0, 0, 0))
	require.Equal(t, Emitted, g.Step(fix(1, 0, 60)).Kind)
	require.Equal(t, Emitted, g.Step(fix(2, 0, 120)).Kind)

	out := g.Step(fix(3, 0, 120+3600))
	assert.Equal(t, SkipGap, out.Kind)
	assert.Equal(t, 0, g.Smoother().Len())

	out = g.Step(fix(4, 0, 120+3600+60))
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, 1, g.Smoother().Len(), "smoothing restarts from an empty window")
	assert.InDelta(t, 1.25/60.0, out.PPA.SizingSpeed, 1e-12)
}

func TestGeneratorSmoothingInflatesAfterSlowdown(t *testing.T) {
	t.Parallel()

	var fixes []l1fixes.Point
	x := 0.0
	for i := 0; i < 5; i++ {
		fixes = append(fixes, fix(x, 0, i*60))
		x += 60 // 1 unit/s
	}
	fixes = append(fixes, fix(x-60+6, 0, 5*60)) // then 0.1 unit/s

	smoothed := Generate("T1", fixes, DefaultOptions())
	opts := DefaultOptions()
	opts.Smoothing = false
	raw := Generate("T1", fixes, opts)

	require.Len(t, smoothed.PPAs, 5)
	require.Len(t, raw.PPAs, 5)
	last := len(raw.PPAs) - 1
	assert.Greater(t, smoothed.PPAs[last].SizingSpeed, raw.PPAs[last].SizingSpeed)
	assert.Equal(t, raw.PPAs[last].Speed, smoothed.PPAs[last].Speed)
}

func TestGeneratorDegenerateIsSkippedAndLogged(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	rec := &monitoring.Recorder{}
	monitoring.SetLogger(rec.Logf)

	opts := DefaultOptions()
	opts.SafetyMultiplier = 0.5
	opts.Smoothing = false

	seq := Generate("T1", []l1fixes.Point{fix(0, 0, 0), fix(10, 0, 60), fix(20, 0, 120)}, opts)
	assert.Empty(t, seq.PPAs)
	require.Len(t, seq.Skipped, 2)
	for _, s := range seq.Skipped {
		assert.Equal(t, SkipDegenerate, s.Kind)
		assert.Contains(t, s.Reason, "degenerate ellipse")
	}
	assert.Len(t, rec.Lines(), 2)
}

func TestGeneratorUnitMultiplierNeverDegenerate(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.SafetyMultiplier = 1
	opts.Smoothing = false

	fixes := make([]l1fixes.Point, 0, 200)
	x, y := 0.0, 0.0
	for i := 0; i < 200; i++ {
		x += 0.0003 * float64(i%7+1) / 3
		y -= 0.0002 * float64(i%11+1) / 9
		fixes = append(fixes, fix(x, y, i*41))
	}

	seq := Generate("T1", fixes, opts)
	assert.Empty(t, seq.Skipped)
	require.Len(t, seq.PPAs, len(fixes)-1)
	for _, p := range seq.PPAs {
		assert.GreaterOrEqual(t, p.MinorAxis, 0.0)
	}
}

func TestNewPPAValidation(t *testing.T) {
	t.Parallel()

	a := fix(0, 0, 0)
	b := fix(1, 0, 60)
	e, err := l1fixes.EllipseParameters(a, b, 1.25/60)
	require.NoError(t, err)

	_, err = NewPPA(0, b, a, e, 100, 1, 1)
	assert.Error(t, err, "end before start")

	other := b
	other.EntityID = "T2"
	_, err = NewPPA(0, a, other, e, 100, 1, 1)
	assert.Error(t, err, "mixed entities")

	_, err = NewPPA(0, a, b, e, 2, 1, 1)
	assert.Error(t, err, "too few vertices")

	p, err := NewPPA(0, a, b, e, 100, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, p.Key(), p.Key())
	assert.Equal(t, time.Minute, p.Interval())
}
