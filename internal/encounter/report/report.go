// Package report summarises an analysis the way a field analyst reads it:
// distributions of PPA size, sampling interval and speed per entity, and of
// the speed and heading differences across intersecting PPA pairs.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
	"github.com/banshee-data/encounter.report/internal/units"
)

// Summary holds descriptive statistics of one series. Std is the sample
// standard deviation and is zero for fewer than two values. Quantiles are
// linearly interpolated.
type Summary struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	Max   float64 `json:"max"`
}

// Describe computes a Summary over values. The input is not modified.
func Describe(name string, values []float64) Summary {
	s := Summary{Name: name, Count: len(values)}
	if len(values) == 0 {
		return s
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 || math.IsNaN(s.Std) {
		s.Std = 0
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.P25 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	s.P50 = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
	s.P75 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	return s
}

// Report is the statistical digest of one pipeline.Result. Per-entity
// series are indexed 0 for entity 1 and 1 for entity 2.
type Report struct {
	Entity1    string `json:"entity1"`
	Entity2    string `json:"entity2"`
	SpeedUnits string `json:"speed_units"`

	Perimeter [2]Summary `json:"perimeter"`
	Interval  [2]Summary `json:"interval_minutes"`
	Speed     [2]Summary `json:"speed"`

	DiffSpeed     Summary `json:"diff_speed"`
	DiffDirection Summary `json:"diff_direction"`
}

// Build summarises res. Sampling intervals longer than maxGap are left out,
// matching the gaps the generator skips.
func Build(res *pipeline.Result, speedUnits string, maxGap time.Duration) Report {
	r := Report{Entity1: res.Entity1, Entity2: res.Entity2, SpeedUnits: speedUnits}

	for i, side := range []struct {
		id    string
		ppas  []l2ppa.PPA
		fixes []l1fixes.Point
	}{
		{res.Entity1, res.PPAs1, res.Fixes1},
		{res.Entity2, res.PPAs2, res.Fixes2},
	} {
		perim := make([]float64, 0, len(side.ppas))
		speed := make([]float64, 0, len(side.ppas))
		for _, p := range side.ppas {
			perim = append(perim, p.Perimeter())
			speed = append(speed, units.ConvertSpeed(p.Speed, speedUnits))
		}
		r.Perimeter[i] = Describe("perimeter "+side.id, perim)
		r.Speed[i] = Describe("speed "+side.id, speed)
		r.Interval[i] = Describe("interval "+side.id, Intervals(side.fixes, maxGap))
	}

	ds := make([]float64, 0, len(res.PairTable))
	dd := make([]float64, 0, len(res.PairTable))
	for _, rec := range res.PairTable {
		ds = append(ds, rec.DiffSpeed)
		dd = append(dd, rec.DiffDirection)
	}
	r.DiffSpeed = Describe("diff_speed", ds)
	r.DiffDirection = Describe("diff_direction", dd)
	return r
}

// Intervals returns the minutes between consecutive time-ordered fixes,
// dropping those above maxGap. A zero maxGap keeps everything.
func Intervals(fixes []l1fixes.Point, maxGap time.Duration) []float64 {
	sorted := l1fixes.SortByTime(fixes)
	var out []float64
	for i := 1; i < len(sorted); i++ {
		d := sorted[i].Time.Sub(sorted[i-1].Time)
		if maxGap > 0 && d > maxGap {
			continue
		}
		out = append(out, d.Minutes())
	}
	return out
}

// Summaries lists every series in display order.
func (r Report) Summaries() []Summary {
	return []Summary{
		r.Perimeter[0], r.Perimeter[1],
		r.Interval[0], r.Interval[1],
		r.Speed[0], r.Speed[1],
		r.DiffSpeed, r.DiffDirection,
	}
}

// WriteText renders the report as an aligned table.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s / %s (speed in %s)\t\t\t\t\t\t\t\t\t\n", r.Entity1, r.Entity2, units.Label(r.SpeedUnits))
	fmt.Fprintln(tw, "series\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax\t")
	for _, s := range r.Summaries() {
		fmt.Fprintf(tw, "%s\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t\n",
			s.Name, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max)
	}
	return tw.Flush()
}
