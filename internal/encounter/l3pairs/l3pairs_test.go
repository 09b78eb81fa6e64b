package l3pairs

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

func pt(id string, x, y float64, sec int) l1fixes.Point {
	return l1fixes.NewPoint(x, y, t0.Add(time.Duration(sec)*time.Second), id)
}

// ppa builds a single PPA from two fixes with default options.
func ppa(t *testing.T, a, b l1fixes.Point) l2ppa.PPA {
	t.Helper()
	seq := l2ppa.Generate(a.EntityID, []l1fixes.Point{a, b}, l2ppa.DefaultOptions())
	require.Len(t, seq.PPAs, 1)
	return seq.PPAs[0]
}

func TestSpatiallyIntersects(t *testing.T) {
	t.Parallel()

	big := ppa(t, pt("A", 0, 0, 0), pt("A", 0, 10, 600))
	inside := ppa(t, pt("B", 0, 5, 300), pt("B", 0, 6, 900))
	crossing := ppa(t, pt("B", -5, 5, 0), pt("B", 5, 5, 600))
	far := ppa(t, pt("B", 100, 100, 0), pt("B", 101, 100, 600))

	tests := []struct {
		name string
		p, q l2ppa.PPA
		want bool
	}{
		{"contained", big, inside, true},
		{"crossing boundaries", big, crossing, true},
		{"disjoint", big, far, false},
		{"self", big, big, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpatiallyIntersects(tt.p, tt.q))
			assert.Equal(t, SpatiallyIntersects(tt.p, tt.q), SpatiallyIntersects(tt.q, tt.p), "predicate must be symmetric")
		})
	}

	assert.True(t, Within(inside, big))
	assert.False(t, Within(big, inside))
	assert.False(t, RingsIntersect(big.Boundary, inside.Boundary), "containment is not a boundary crossing")
}

func TestSpatialSymmetryRandomised(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	var ppas []l2ppa.PPA
	for i := 0; i < 20; i++ {
		x, y := rng.Float64()*20, rng.Float64()*20
		dx, dy := rng.Float64()*4-2, rng.Float64()*4-2
		if dx == 0 && dy == 0 {
			dx = 1
		}
		ppas = append(ppas, ppa(t, pt("A", x, y, 0), pt("A", x+dx, y+dy, 60+rng.Intn(600))))
	}
	for i := range ppas {
		for j := range ppas {
			assert.Equal(t, SpatiallyIntersects(ppas[i], ppas[j]), SpatiallyIntersects(ppas[j], ppas[i]))
		}
	}
}

func TestSegmentsIntersect(t *testing.T) {
	t.Parallel()

	assert.True(t, segmentsIntersect([2]float64{0, 0}, [2]float64{2, 2}, [2]float64{0, 2}, [2]float64{2, 0}))
	assert.True(t, segmentsIntersect([2]float64{0, 0}, [2]float64{2, 0}, [2]float64{1, 0}, [2]float64{3, 0}), "collinear overlap")
	assert.True(t, segmentsIntersect([2]float64{0, 0}, [2]float64{2, 0}, [2]float64{2, 0}, [2]float64{2, 5}), "touching endpoint")
	assert.False(t, segmentsIntersect([2]float64{0, 0}, [2]float64{2, 0}, [2]float64{0, 1}, [2]float64{2, 1}))
	assert.False(t, segmentsIntersect([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0}, [2]float64{3, 0}), "collinear disjoint")
}

func TestTemporallyIntersects(t *testing.T) {
	t.Parallel()

	p := ppa(t, pt("A", 0, 0, 0), pt("A", 0, 10, 600))
	q := ppa(t, pt("B", 0, 5, 300), pt("B", 0, 6, 900)) // ends 5 minutes after p

	tests := []struct {
		name string
		w    Window
		want bool
	}{
		{"inside", WindowMinutes(0, 10), true},
		{"upper bound inclusive", WindowMinutes(0, 5), true},
		{"lower bound inclusive", WindowMinutes(5, 10), true},
		{"too close", WindowMinutes(6, 10), false},
		{"too far", WindowMinutes(0, 4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TemporallyIntersects(p, q, tt.w))
			assert.Equal(t, tt.want, TemporallyIntersects(q, p, tt.w), "predicate must be symmetric")
		})
	}
}

func TestWindowValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WindowMinutes(0, 10).Validate())
	assert.Error(t, WindowMinutes(-1, 10).Validate())
	assert.Error(t, WindowMinutes(10, 5).Validate())
}

func TestPrecheck(t *testing.T) {
	t.Parallel()

	a := []l1fixes.Point{pt("A", 0, 0, 0), pt("A", 1, 1, 600)}
	overlapping := []l1fixes.Point{pt("B", 0, 0, 300), pt("B", 1, 1, 900)}
	near := []l1fixes.Point{pt("B", 0, 0, 900), pt("B", 1, 1, 1200)}
	farAway := []l1fixes.Point{pt("B", 0, 0, 6000), pt("B", 1, 1, 6600)}

	assert.NoError(t, Precheck("A", "B", a, overlapping, 10*time.Minute))
	assert.NoError(t, Precheck("A", "B", a, near, 5*time.Minute))

	err := Precheck("A", "B", a, farAway, 10*time.Minute)
	var ie *IncompatibleError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 90*time.Minute, ie.Gap)
	assert.Contains(t, err.Error(), "beyond max delay")

	err = Precheck("A", "B", a, nil, time.Minute)
	assert.ErrorIs(t, err, l1fixes.ErrNoFixes)
}

func TestFindPairsScenario(t *testing.T) {
	t.Parallel()

	a := ppa(t, pt("A", 0, 0, 0), pt("A", 0, 10, 600))
	b := ppa(t, pt("B", 0, 5, 300), pt("B", 0, 6, 900))

	pairs := FindPairs([]l2ppa.PPA{a}, []l2ppa.PPA{b}, WindowMinutes(0, 10))
	require.Len(t, pairs, 1)
	assert.Equal(t, "A", pairs[0].A.EntityID)
	assert.Equal(t, "B", pairs[0].B.EntityID)

	table := BuildPairTable(pairs)
	require.Len(t, table, 1)
	assert.InDelta(t, 5.0, table[0].DiffTimeMinutes, 1e-12)
	assert.InDelta(t, 1.0, table[0].DiffDirection, 1e-12, "both move along +y")

	s1, s2 := 10.0/600, 1.0/600
	assert.InDelta(t, math.Abs(s2-s1)/((s1+s2)/2), table[0].DiffSpeed, 1e-9)

	assert.Empty(t, FindPairs(nil, []l2ppa.PPA{b}, WindowMinutes(0, 10)))
	assert.Empty(t, FindPairs([]l2ppa.PPA{a}, []l2ppa.PPA{b}, WindowMinutes(0, 1)))
}

func TestIndexedSearchMatchesExhaustive(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	walk := func(id string, n int) []l2ppa.PPA {
		var fixes []l1fixes.Point
		x, y, sec := rng.Float64()*50, rng.Float64()*50, 0
		for i := 0; i < n; i++ {
			fixes = append(fixes, pt(id, x, y, sec))
			x += rng.Float64()*6 - 3
			y += rng.Float64()*6 - 3
			sec += 60 + rng.Intn(240)
		}
		return l2ppa.Generate(id, fixes, l2ppa.DefaultOptions()).PPAs
	}
	a, b := walk("A", 80), walk("B", 80)
	w := WindowMinutes(0, 30)

	full := Engine{Window: w}.Find(a, b)
	for _, cell := range []float64{0, 0.5, 5, 500} {
		indexed := Engine{Window: w, UseIndex: true, CellSize: cell}.Find(a, b)
		require.Len(t, indexed, len(full), "cell size %v", cell)
		for i := range full {
			assert.Equal(t, full[i].A.Key(), indexed[i].A.Key())
			assert.Equal(t, full[i].B.Key(), indexed[i].B.Key())
		}
	}
}

func TestDirectionDifference(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, DirectionDifference(37, 37), 1e-12)
	assert.InDelta(t, -1.0, DirectionDifference(0, 180), 1e-12)
	assert.InDelta(t, 0.0, DirectionDifference(-45, 45), 1e-12)
	assert.InDelta(t, 1.0, DirectionDifference(-179, 181), 1e-12)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d := DirectionDifference(rng.Float64()*360-180, rng.Float64()*360-180)
		assert.True(t, d >= -1 && d <= 1)
	}
}

func TestSpeedDifference(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, SpeedDifference(0, 0))
	assert.InDelta(t, 2.0/3.0, SpeedDifference(1, 2), 1e-12)
	assert.Equal(t, SpeedDifference(1, 2), SpeedDifference(2, 1))
}

func TestFindProximity(t *testing.T) {
	t.Parallel()

	a := []l1fixes.Point{pt("A", 0, 0, 0), pt("A", 0, 10, 600), pt("A", 0, 20, 1200)}
	b := []l1fixes.Point{pt("B", 0.5, 0, 60), pt("B", 0, 30, 600), pt("B", 0, 20.5, 1560)}

	matches := FindProximity(a, b, 1, 5*time.Minute)
	require.Len(t, matches, 1)
	assert.Equal(t, a[0].Time, matches[0].Fix1.Time)
	assert.InDelta(t, 0.5, matches[0].Distance, 1e-12)

	wide := FindProximity(a, b, 1, 10*time.Minute)
	assert.Len(t, wide, 2)

	assert.Empty(t, FindProximity(a, b, 0, time.Hour))
}
