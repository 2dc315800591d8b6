// Package diagnostic scores distributional drift between two event windows.
// The drift metric is the normalized Jensen-Shannon distance between the
// windows' unit-price distributions, estimated on a fixed grid derived from
// the baseline. Every randomized component is seeded, so results are pure
// functions of (params, windows).
package diagnostic

import (
	"context"
	"time"

	"driftlab/internal/domain"
)

// Engine computes drift diagnostics with one fixed parameter set.
type Engine struct {
	params Params
	clock  func() time.Time
}

// New creates an engine after validating params.
func New(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params.withDefaults(), clock: time.Now}, nil
}

// WithClock overrides the timestamp source. Returns the engine for chaining.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Params returns the engine's effective parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Diagnose compares the sample window's price distribution against the
// baseline window's:
//
//  1. extract unit prices, log1p-transformed when configured
//  2. derive the evaluation grid from the baseline
//  3. estimate both PMFs with one shared method (KDE, or histogram when
//     either window is degenerate)
//  4. score the normalized Jensen-Shannon distance
//  5. bootstrap the sample window for the calibration distribution
//
// Either window empty is an *InsufficientDataError.
func (e *Engine) Diagnose(ctx context.Context, baseline, sample domain.Window) (*domain.DiagnosticResult, error) {
	start := e.clock()

	if baseline.Len() == 0 {
		return nil, &InsufficientDataError{Window: "baseline", Events: 0, Needed: 1}
	}
	if sample.Len() == 0 {
		return nil, &InsufficientDataError{Window: "sample", Events: 0, Needed: 1}
	}

	basePrices := baseline.Prices()
	samplePrices := sample.Prices()
	if e.params.LogTransform {
		basePrices = log1pTransform(basePrices)
		samplePrices = log1pTransform(samplePrices)
	}

	g := buildGrid(basePrices, e.params)
	est := selectEstimator(e.params, basePrices, samplePrices)

	basePMF := est.Estimate(basePrices, g)
	samplePMF := est.Estimate(samplePrices, g)
	score := JSDistance(basePMF, samplePMF)

	calibration, err := resampleScores(ctx, basePMF, samplePrices, g, est,
		len(samplePrices), e.params.BootstrapSamples, e.params.Seed, e.params.Parallelism)
	if err != nil {
		return nil, err
	}

	res := &domain.DiagnosticResult{
		JSDScore:       score,
		Method:         est.Method(),
		Calibration:    calibration,
		Seed:           e.params.Seed,
		BaselineWindow: baseline.Summary(),
		SampleWindow:   sample.Summary(),
		Grid:           g.Summary(),
		ComputedAtMS:   start.UnixMilli(),
		ElapsedMS:      e.clock().Sub(start).Milliseconds(),
	}
	if e.params.PerSegment {
		res.PerSegment = segmentScores(baseline, sample, e.params)
	}
	return res, nil
}

// NullDistribution scores numScores seeded resamples of size sampleSize
// drawn from the baseline against the baseline itself. The spread of these
// scores is the no-drift reference a calibrator turns into alert
// thresholds.
func (e *Engine) NullDistribution(ctx context.Context, baseline domain.Window, sampleSize, numScores int) ([]float64, error) {
	if baseline.Len() == 0 {
		return nil, &InsufficientDataError{Window: "baseline", Events: 0, Needed: 1}
	}

	prices := baseline.Prices()
	if e.params.LogTransform {
		prices = log1pTransform(prices)
	}

	g := buildGrid(prices, e.params)
	est := selectEstimator(e.params, prices, prices)
	pmf := est.Estimate(prices, g)

	return resampleScores(ctx, pmf, prices, g, est, sampleSize, numScores, e.params.Seed, e.params.Parallelism)
}
