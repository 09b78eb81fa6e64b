package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/encounter.report/internal/units"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// DefaultTimeLayout is the layout used for start_time and end_time and,
// unless time_layout overrides it, for the CSV time column.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// AnalysisConfig holds the tunable parameters of an encounter analysis.
// Every field is optional; the Get* methods supply defaults for fields
// that were not present in the JSON.
type AnalysisConfig struct {
	// Temporal window
	MinDelayMinutes *float64 `json:"min_delay_minutes,omitempty"`
	MaxDelayMinutes *float64 `json:"max_delay_minutes,omitempty"`

	// PPA generation
	MaxGapMinutes    *float64  `json:"max_gap_minutes,omitempty"`
	SafetyMultiplier *float64  `json:"safety_multiplier,omitempty"`
	SmoothingEnabled *bool     `json:"smoothing_enabled,omitempty"`
	SmoothingKernel  []float64 `json:"smoothing_kernel,omitempty"`
	BoundaryVertices *int      `json:"boundary_vertices,omitempty"`

	// Input
	AttributeFields []string `json:"attribute_fields,omitempty"`
	StartTime       *string  `json:"start_time,omitempty"` // "2006-01-02 15:04:05"
	EndTime         *string  `json:"end_time,omitempty"`
	TimeLayout      *string  `json:"time_layout,omitempty"`

	// Search
	SpatialIndex *bool    `json:"spatial_index,omitempty"`
	GridCellSize *float64 `json:"grid_cell_size,omitempty"` // 0 picks a size from the data

	// Proximity (disabled when distance is 0)
	ProximityDistance          *float64 `json:"proximity_distance,omitempty"`
	ProximityContinuityMinutes *float64 `json:"proximity_continuity_minutes,omitempty"`

	// Reporting and batch
	SpeedUnits       *string `json:"speed_units,omitempty"`
	DisplayTimezone  *string `json:"display_timezone,omitempty"`
	BatchConcurrency *int    `json:"batch_concurrency,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set explicitly
// to its default value.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		MinDelayMinutes:            ptrFloat64(0),
		MaxDelayMinutes:            ptrFloat64(10),
		MaxGapMinutes:              ptrFloat64(10000),
		SafetyMultiplier:           ptrFloat64(1.25),
		SmoothingEnabled:           ptrBool(true),
		SmoothingKernel:            []float64{1, 1, 2, 5, 10},
		BoundaryVertices:           ptrInt(100),
		TimeLayout:                 ptrString(DefaultTimeLayout),
		SpatialIndex:               ptrBool(false),
		GridCellSize:               ptrFloat64(0),
		ProximityDistance:          ptrFloat64(0),
		ProximityContinuityMinutes: ptrFloat64(2),
		SpeedUnits:                 ptrString(units.UPS),
		DisplayTimezone:            ptrString("UTC"),
		BatchConcurrency:           ptrInt(4),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are fine.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/encounter/pipeline/
		"../../../../" + DefaultConfigPath,    // deeper packages
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *AnalysisConfig) Validate() error {
	minDelay, maxDelay := c.GetMinDelay(), c.GetMaxDelay()
	if minDelay < 0 || maxDelay < 0 {
		return fmt.Errorf("delays must be non-negative, got min=%v max=%v", minDelay, maxDelay)
	}
	if minDelay > maxDelay {
		return fmt.Errorf("min_delay_minutes (%v) exceeds max_delay_minutes (%v)", minDelay, maxDelay)
	}

	if c.MaxGapMinutes != nil && *c.MaxGapMinutes <= 0 {
		return fmt.Errorf("max_gap_minutes must be positive, got %f", *c.MaxGapMinutes)
	}
	if c.SafetyMultiplier != nil && *c.SafetyMultiplier < 1 {
		return fmt.Errorf("safety_multiplier must be at least 1, got %f", *c.SafetyMultiplier)
	}

	if c.SmoothingKernel != nil {
		if len(c.SmoothingKernel) == 0 {
			return fmt.Errorf("smoothing_kernel must not be empty")
		}
		var sum float64
		for i, w := range c.SmoothingKernel {
			if w < 0 {
				return fmt.Errorf("smoothing_kernel[%d] is negative: %f", i, w)
			}
			sum += w
		}
		if sum == 0 {
			return fmt.Errorf("smoothing_kernel weights sum to zero")
		}
	}

	if c.BoundaryVertices != nil && *c.BoundaryVertices < 3 {
		return fmt.Errorf("boundary_vertices must be at least 3, got %d", *c.BoundaryVertices)
	}

	start, err := c.GetStartTime()
	if err != nil {
		return err
	}
	end, err := c.GetEndTime()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("end_time %s is before start_time %s", *c.EndTime, *c.StartTime)
	}

	if c.GridCellSize != nil && *c.GridCellSize < 0 {
		return fmt.Errorf("grid_cell_size must be non-negative, got %f", *c.GridCellSize)
	}
	if c.ProximityDistance != nil && *c.ProximityDistance < 0 {
		return fmt.Errorf("proximity_distance must be non-negative, got %f", *c.ProximityDistance)
	}
	if c.ProximityContinuityMinutes != nil && *c.ProximityContinuityMinutes < 0 {
		return fmt.Errorf("proximity_continuity_minutes must be non-negative, got %f", *c.ProximityContinuityMinutes)
	}

	if !units.IsValid(c.GetSpeedUnits()) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), c.GetSpeedUnits())
	}
	if !units.IsTimezoneValid(c.GetDisplayTimezone()) {
		return fmt.Errorf("invalid display_timezone %q", c.GetDisplayTimezone())
	}

	if c.BatchConcurrency != nil && *c.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be at least 1, got %d", *c.BatchConcurrency)
	}

	return nil
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

// GetMinDelay returns min_delay_minutes as a duration, default 0.
func (c *AnalysisConfig) GetMinDelay() time.Duration {
	if c.MinDelayMinutes == nil {
		return 0
	}
	return minutes(*c.MinDelayMinutes)
}

// GetMaxDelay returns max_delay_minutes as a duration, default 10 minutes.
func (c *AnalysisConfig) GetMaxDelay() time.Duration {
	if c.MaxDelayMinutes == nil {
		return 10 * time.Minute
	}
	return minutes(*c.MaxDelayMinutes)
}

// GetMaxGap returns max_gap_minutes as a duration, default 10000 minutes.
func (c *AnalysisConfig) GetMaxGap() time.Duration {
	if c.MaxGapMinutes == nil {
		return 10000 * time.Minute
	}
	return minutes(*c.MaxGapMinutes)
}

// GetSafetyMultiplier returns the safety_multiplier value or the default.
func (c *AnalysisConfig) GetSafetyMultiplier() float64 {
	if c.SafetyMultiplier == nil {
		return 1.25
	}
	return *c.SafetyMultiplier
}

// GetSmoothingEnabled returns the smoothing_enabled value or the default.
func (c *AnalysisConfig) GetSmoothingEnabled() bool {
	if c.SmoothingEnabled == nil {
		return true
	}
	return *c.SmoothingEnabled
}

// GetSmoothingKernel returns a copy of the kernel weights, oldest first.
func (c *AnalysisConfig) GetSmoothingKernel() []float64 {
	if len(c.SmoothingKernel) == 0 {
		return []float64{1, 1, 2, 5, 10}
	}
	return append([]float64(nil), c.SmoothingKernel...)
}

// GetBoundaryVertices returns the boundary_vertices value or the default.
func (c *AnalysisConfig) GetBoundaryVertices() int {
	if c.BoundaryVertices == nil {
		return 100
	}
	return *c.BoundaryVertices
}

// GetAttributeFields returns the extra CSV columns to carry through.
func (c *AnalysisConfig) GetAttributeFields() []string {
	return append([]string(nil), c.AttributeFields...)
}

// GetTimeLayout returns the time_layout value or DefaultTimeLayout.
func (c *AnalysisConfig) GetTimeLayout() string {
	if c.TimeLayout == nil || *c.TimeLayout == "" {
		return DefaultTimeLayout
	}
	return *c.TimeLayout
}

func parseBoundary(name string, v *string) (time.Time, error) {
	if v == nil || *v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DefaultTimeLayout, *v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s '%s': %w", name, *v, err)
	}
	return t, nil
}

// GetStartTime parses start_time. The zero time means no lower bound.
func (c *AnalysisConfig) GetStartTime() (time.Time, error) {
	return parseBoundary("start_time", c.StartTime)
}

// GetEndTime parses end_time. The zero time means no upper bound.
func (c *AnalysisConfig) GetEndTime() (time.Time, error) {
	return parseBoundary("end_time", c.EndTime)
}

// GetSpatialIndex returns the spatial_index value or the default.
func (c *AnalysisConfig) GetSpatialIndex() bool {
	if c.SpatialIndex == nil {
		return false
	}
	return *c.SpatialIndex
}

// GetGridCellSize returns the grid_cell_size value or the default.
func (c *AnalysisConfig) GetGridCellSize() float64 {
	if c.GridCellSize == nil {
		return 0
	}
	return *c.GridCellSize
}

// GetProximityDistance returns the proximity_distance value or the default.
func (c *AnalysisConfig) GetProximityDistance() float64 {
	if c.ProximityDistance == nil {
		return 0
	}
	return *c.ProximityDistance
}

// GetProximityContinuity returns proximity_continuity_minutes as a duration.
func (c *AnalysisConfig) GetProximityContinuity() time.Duration {
	if c.ProximityContinuityMinutes == nil {
		return 2 * time.Minute
	}
	return minutes(*c.ProximityContinuityMinutes)
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *AnalysisConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || *c.SpeedUnits == "" {
		return units.UPS
	}
	return *c.SpeedUnits
}

// GetDisplayTimezone returns the timezone used when writing event times.
func (c *AnalysisConfig) GetDisplayTimezone() string {
	if c.DisplayTimezone == nil || *c.DisplayTimezone == "" {
		return "UTC"
	}
	return *c.DisplayTimezone
}

// GetBatchConcurrency returns the batch_concurrency value or the default.
func (c *AnalysisConfig) GetBatchConcurrency() int {
	if c.BatchConcurrency == nil {
		return 4
	}
	return *c.BatchConcurrency
}
