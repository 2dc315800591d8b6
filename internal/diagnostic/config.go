package diagnostic

import "fmt"

// Parameter defaults.
const (
	DefaultGridLoQuantile   = 0.005
	DefaultGridHiQuantile   = 0.995
	DefaultNumBins          = 128
	DefaultBootstrapSamples = 200
	DefaultMinSegmentEvents = 5
	DefaultDegenerateStddev = 1e-9
	DefaultParallelism      = 4
)

// Params controls one diagnostic run. The zero value is not usable; start
// from DefaultParams and override fields. Two runs with equal Params over
// equal windows produce identical results.
type Params struct {
	// Grid
	GridLoQuantile float64 // lower grid quantile of the baseline
	GridHiQuantile float64 // upper grid quantile of the baseline
	NumBins        int     // evaluation bins
	LogTransform   bool    // apply log1p to values before estimation

	// Density estimation
	Bandwidth        float64 // fixed KDE bandwidth; <= 0 means Scott's rule per window
	ForceHistogram   bool    // skip KDE entirely
	DegenerateStddev float64 // stddev at or below this forces the histogram path

	// Calibration
	BootstrapSamples int   // bootstrap resamples; 0 disables calibration
	Seed             int64 // root seed for all randomized components
	Parallelism      int   // max concurrent bootstrap workers

	// Segmentation
	PerSegment       bool // compute per-SKU breakdown
	MinSegmentEvents int  // minimum events per window for a segment score
}

// DefaultParams returns the standard parameter set with seed 0.
func DefaultParams() Params {
	return Params{
		GridLoQuantile:   DefaultGridLoQuantile,
		GridHiQuantile:   DefaultGridHiQuantile,
		NumBins:          DefaultNumBins,
		Bandwidth:        0,
		DegenerateStddev: DefaultDegenerateStddev,
		BootstrapSamples: DefaultBootstrapSamples,
		Parallelism:      DefaultParallelism,
		MinSegmentEvents: DefaultMinSegmentEvents,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.NumBins < 2 {
		return fmt.Errorf("num bins must be at least 2, got %d", p.NumBins)
	}
	if p.GridLoQuantile < 0 || p.GridHiQuantile > 1 || p.GridLoQuantile >= p.GridHiQuantile {
		return fmt.Errorf("grid quantiles must satisfy 0 <= lo < hi <= 1, got [%v, %v]",
			p.GridLoQuantile, p.GridHiQuantile)
	}
	if p.BootstrapSamples < 0 {
		return fmt.Errorf("bootstrap samples must be non-negative, got %d", p.BootstrapSamples)
	}
	if p.MinSegmentEvents < 1 {
		return fmt.Errorf("min segment events must be positive, got %d", p.MinSegmentEvents)
	}
	return nil
}

// withDefaults fills unset optional knobs so downstream code never branches
// on zero values.
func (p Params) withDefaults() Params {
	if p.DegenerateStddev <= 0 {
		p.DegenerateStddev = DefaultDegenerateStddev
	}
	if p.Parallelism <= 0 {
		p.Parallelism = DefaultParallelism
	}
	if p.MinSegmentEvents <= 0 {
		p.MinSegmentEvents = DefaultMinSegmentEvents
	}
	return p
}
