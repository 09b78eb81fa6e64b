package pipeline

import (
	"fmt"
	"time"

	"github.com/banshee-data/encounter.report/internal/config"
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/l3pairs"
	"github.com/banshee-data/encounter.report/internal/timeutil"
)

// Options holds the runtime parameters of an analysis.
type Options struct {
	Generator l2ppa.Options
	Window    l3pairs.Window

	// Optional grid index for the pair search.
	UseIndex bool
	CellSize float64

	// Records outside [Start, End] are dropped before splitting. Zero
	// bounds are open.
	Start time.Time
	End   time.Time

	// Fix-level proximity search, off when ProximityDistance is 0.
	ProximityDistance   float64
	ProximityContinuity time.Duration

	Concurrency int // batch workers

	// Clock stamps Result.Started; nil reads the system clock.
	Clock timeutil.Clock
}

// DefaultOptions mirrors config.DefaultAnalysisConfig.
func DefaultOptions() Options {
	return Options{
		Generator:           l2ppa.DefaultOptions(),
		Window:              l3pairs.WindowMinutes(0, 10),
		ProximityContinuity: 2 * time.Minute,
		Concurrency:         4,
	}
}

// OptionsFromConfig builds Options from a loaded AnalysisConfig.
func OptionsFromConfig(cfg *config.AnalysisConfig) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	kernel, err := l2ppa.NewKernel(cfg.GetSmoothingKernel())
	if err != nil {
		return Options{}, fmt.Errorf("smoothing_kernel: %w", err)
	}
	start, err := cfg.GetStartTime()
	if err != nil {
		return Options{}, err
	}
	end, err := cfg.GetEndTime()
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		Generator: l2ppa.Options{
			MaxGap:           cfg.GetMaxGap(),
			SafetyMultiplier: cfg.GetSafetyMultiplier(),
			Smoothing:        cfg.GetSmoothingEnabled(),
			Kernel:           kernel,
			Vertices:         cfg.GetBoundaryVertices(),
		},
		Window: l3pairs.Window{
			MinDelay: cfg.GetMinDelay(),
			MaxDelay: cfg.GetMaxDelay(),
		},
		UseIndex:            cfg.GetSpatialIndex(),
		CellSize:            cfg.GetGridCellSize(),
		Start:               start,
		End:                 end,
		ProximityDistance:   cfg.GetProximityDistance(),
		ProximityContinuity: cfg.GetProximityContinuity(),
		Concurrency:         cfg.GetBatchConcurrency(),
	}
	return opts, opts.Window.Validate()
}
