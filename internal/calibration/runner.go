// Package calibration turns a baseline's no-drift score distribution into
// alert thresholds. Scores are drawn by resampling the baseline against
// itself; the P95/P99 of that null distribution are the levels a live drift
// score must clear before it means anything.
package calibration

import (
	"context"
	"math"
	"sort"
	"time"

	"driftlab/internal/diagnostic"
	"driftlab/internal/domain"
)

// DefaultNumScores is the default size of the null distribution.
const DefaultNumScores = 200

// Runner computes threshold sets with one diagnostic engine.
type Runner struct {
	engine *diagnostic.Engine
	clock  func() time.Time
}

// NewRunner creates a runner over a configured engine. The engine's params
// (seed, grid, transform, method selection) fully determine the null
// distribution.
func NewRunner(engine *diagnostic.Engine) *Runner {
	return &Runner{engine: engine, clock: time.Now}
}

// WithClock overrides the timestamp source. Returns the runner for chaining.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run draws the null distribution from the baseline window and summarizes
// it. sampleSize <= 0 resamples at the baseline's own size; numScores <= 0
// uses DefaultNumScores.
func (r *Runner) Run(ctx context.Context, baseline domain.Window, sampleSize, numScores int) (*domain.ThresholdSet, error) {
	ts, _, err := r.RunWithScores(ctx, baseline, sampleSize, numScores)
	return ts, err
}

// RunWithScores is Run, additionally returning the raw null scores for
// export or sample persistence.
func (r *Runner) RunWithScores(ctx context.Context, baseline domain.Window, sampleSize, numScores int) (*domain.ThresholdSet, []float64, error) {
	if sampleSize <= 0 {
		sampleSize = baseline.Len()
	}
	if numScores <= 0 {
		numScores = DefaultNumScores
	}

	scores, err := r.engine.NullDistribution(ctx, baseline, sampleSize, numScores)
	if err != nil {
		return nil, nil, err
	}

	ts := summarizeScores(scores)
	ts.Seed = r.engine.Params().Seed
	ts.SampleSize = sampleSize
	ts.ComputedAtMS = r.clock().UnixMilli()
	return ts, scores, nil
}

// summarizeScores reduces a null distribution to its threshold statistics.
func summarizeScores(scores []float64) *domain.ThresholdSet {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	mean := computeMean(scores)

	ts := &domain.ThresholdSet{
		NumScores: len(scores),
		Mean:      mean,
		Stddev:    computeStddev(scores, mean),
	}
	if len(sorted) > 0 {
		ts.Min = sorted[0]
		ts.Max = sorted[len(sorted)-1]
		ts.P95 = computePercentile(sorted, 0.95)
		ts.P99 = computePercentile(sorted, 0.99)
	}
	return ts
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
