package l2ppa

import (
	"math"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/monitoring"
)

// Defaults for Options.
const (
	DefaultSafetyMultiplier = 1.25
	DefaultMaxGap           = 10000 * time.Minute
)

// Options configures PPA generation.
type Options struct {
	MaxGap           time.Duration // fix pairs further apart than this yield no PPA
	SafetyMultiplier float64       // inflation applied to instantaneous speed
	Smoothing        bool
	Kernel           Kernel
	Vertices         int
}

// DefaultOptions returns the generator defaults.
func DefaultOptions() Options {
	return Options{
		MaxGap:           DefaultMaxGap,
		SafetyMultiplier: DefaultSafetyMultiplier,
		Smoothing:        true,
		Kernel:           DefaultKernel(),
		Vertices:         DefaultVertices,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxGap <= 0 {
		o.MaxGap = DefaultMaxGap
	}
	if o.SafetyMultiplier <= 0 {
		o.SafetyMultiplier = DefaultSafetyMultiplier
	}
	if o.Kernel.Len() == 0 {
		o.Kernel = DefaultKernel()
	}
	if o.Vertices < 3 {
		o.Vertices = DefaultVertices
	}
	return o
}

// OutcomeKind classifies what a single Step did.
type OutcomeKind int

const (
	Primed         OutcomeKind = iota // first fix, nothing to pair with
	Emitted                           // a PPA was produced
	SkipGap                           // gap above MaxGap
	SkipStationary                    // no net displacement or duplicate timestamp
	SkipDegenerate                    // ellipse could not be built
)

func (k OutcomeKind) String() string {
	switch k {
	case Primed:
		return "primed"
	case Emitted:
		return "emitted"
	case SkipGap:
		return "gap"
	case SkipStationary:
		return "stationary"
	case SkipDegenerate:
		return "degenerate"
	default:
		return "unknown"
	}
}

// Outcome is the result of feeding one fix to the generator. PPA is only
// set when Kind is Emitted; Err is only set for SkipDegenerate.
type Outcome struct {
	Kind OutcomeKind
	PPA  PPA
	Err  error
}

// Skip records a fix pair for which no PPA was produced.
type Skip struct {
	Kind   OutcomeKind
	TStart time.Time
	TEnd   time.Time
	Reason string
}

// Sequence is the generator output for one entity.
type Sequence struct {
	EntityID string
	PPAs     []PPA
	Skipped  []Skip
}

// Generator is the per-entity state machine that turns consecutive fixes
// into PPAs. It is not safe for concurrent use; use one per entity.
type Generator struct {
	opts     Options
	smoother *SpeedSmoother

	prev    l1fixes.Point
	hasPrev bool
	seq     int
}

// NewGenerator creates a generator in the no-previous-fix state.
func NewGenerator(opts Options) *Generator {
	opts = opts.withDefaults()
	return &Generator{
		opts:     opts,
		smoother: NewSpeedSmoother(opts.Kernel),
	}
}

// Smoother exposes the speed window, mainly for tests and diagnostics.
func (g *Generator) Smoother() *SpeedSmoother { return g.smoother }

// Reset returns the generator to the no-previous-fix state.
func (g *Generator) Reset() {
	g.smoother.Reset()
	g.hasPrev = false
	g.prev = l1fixes.Point{}
	g.seq = 0
}

// Step consumes the next fix in time order.
func (g *Generator) Step(cur l1fixes.Point) Outcome {
	if !g.hasPrev || g.prev.EntityID != cur.EntityID {
		g.smoother.Reset()
		g.record(cur)
		return Outcome{Kind: Primed}
	}
	prev := g.prev
	defer g.record(cur)

	gap := l1fixes.ElapsedSeconds(prev, cur)
	if gap > g.opts.MaxGap.Seconds() {
		g.smoother.Reset()
		return Outcome{Kind: SkipGap}
	}

	inst := l1fixes.InstantSpeed(prev, cur)
	if gap == 0 || inst <= 0 || math.IsNaN(inst) {
		g.smoother.Reset()
		return Outcome{Kind: SkipStationary}
	}

	est := inst * g.opts.SafetyMultiplier
	g.smoother.Add(est)
	smoothed := est
	if g.opts.Smoothing {
		if avg, ok := g.smoother.Average(); ok {
			smoothed = avg
		}
	}
	sizing := math.Max(est, smoothed)

	e, err := l1fixes.EllipseParameters(prev, cur, sizing)
	if err != nil {
		return Outcome{Kind: SkipDegenerate, Err: err}
	}
	p, err := NewPPA(g.seq, prev, cur, e, g.opts.Vertices, inst, sizing)
	if err != nil {
		return Outcome{Kind: SkipDegenerate, Err: err}
	}
	g.seq++
	return Outcome{Kind: Emitted, PPA: p}
}

func (g *Generator) record(p l1fixes.Point) {
	g.prev = p
	g.hasPrev = true
}

// Generate sorts one entity's fixes by time and runs them through a fresh
// generator. Degenerate pairs are logged and reported in Sequence.Skipped;
// they never abort the run.
func Generate(entityID string, fixes []l1fixes.Point, opts Options) Sequence {
	g := NewGenerator(opts)
	seq := Sequence{EntityID: entityID}

	sorted := l1fixes.SortByTime(fixes)
	for i, cur := range sorted {
		out := g.Step(cur)
		switch out.Kind {
		case Emitted:
			seq.PPAs = append(seq.PPAs, out.PPA)
		case SkipGap, SkipStationary, SkipDegenerate:
			skip := Skip{Kind: out.Kind, TStart: sorted[i-1].Time, TEnd: cur.Time}
			if out.Err != nil {
				skip.Reason = out.Err.Error()
				monitoring.Logf("skipping PPA for %s at %s: %v", entityID, cur.Time.Format(time.RFC3339), out.Err)
			}
			seq.Skipped = append(seq.Skipped, skip)
		}
	}
	return seq
}
