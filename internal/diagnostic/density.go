package diagnostic

import (
	"math"

	"driftlab/internal/domain"
)

// Estimator turns a value sample into a probability mass vector over a
// grid. Implementations must be pure: equal inputs give equal outputs.
type Estimator interface {
	// Estimate returns a strictly positive PMF with one entry per grid bin.
	Estimate(values []float64, g Grid) []float64

	// Method identifies the estimation path for result reporting.
	Method() domain.Method
}

var (
	_ Estimator = (*KDEEstimator)(nil)
	_ Estimator = (*HistogramEstimator)(nil)
)

// selectEstimator picks the estimation path for a comparison. KDE needs
// spread in both windows: either window degenerate forces the histogram
// path, so baseline and sample always share one method.
func selectEstimator(p Params, baseline, sample []float64) Estimator {
	if p.ForceHistogram || degenerate(baseline, p.DegenerateStddev) || degenerate(sample, p.DegenerateStddev) {
		return &HistogramEstimator{}
	}
	return &KDEEstimator{Bandwidth: p.Bandwidth}
}

// degenerate reports whether values cannot support a kernel bandwidth:
// fewer than two values, or sample stddev at or below the floor.
func degenerate(values []float64, floor float64) bool {
	if len(values) < 2 {
		return true
	}
	return computeStddev(values, computeMean(values)) <= floor
}

// KDEEstimator is a Gaussian kernel density estimate evaluated at bin
// centers. Bandwidth <= 0 selects Scott's rule per input sample.
type KDEEstimator struct {
	Bandwidth float64
}

// Method returns "kde".
func (e *KDEEstimator) Method() domain.Method {
	return domain.MethodKDE
}

// Estimate evaluates the kernel sum at every bin center and normalizes.
// Normalization absorbs the kernel constant. Inputs without spread reduce
// to a point mass in the containing bin.
func (e *KDEEstimator) Estimate(values []float64, g Grid) []float64 {
	if len(values) == 0 {
		return uniformPMF(g.NumBins())
	}

	h := e.Bandwidth
	if h <= 0 {
		h = scottBandwidth(values)
	}
	if h <= 0 {
		return singletonPMF(values[0], g)
	}

	pdf := make([]float64, g.NumBins())
	for i, c := range g.Centers {
		sum := 0.0
		for _, x := range values {
			z := (c - x) / h
			sum += math.Exp(-0.5 * z * z)
		}
		pdf[i] = sum
	}
	return safeNormalize(pdf)
}

// scottBandwidth is Scott's rule: sample stddev scaled by n^(-1/5).
func scottBandwidth(values []float64) float64 {
	sd := computeStddev(values, computeMean(values))
	return sd * math.Pow(float64(len(values)), -0.2)
}

// HistogramEstimator bins values on the grid directly. Bin i covers
// [Edges[i], Edges[i+1]) with the last bin closed; values outside the grid
// are dropped, except that a single-value input is clamped into range.
type HistogramEstimator struct{}

// Method returns "histogram".
func (e *HistogramEstimator) Method() domain.Method {
	return domain.MethodHistogram
}

// Estimate counts values per bin and normalizes the counts.
func (e *HistogramEstimator) Estimate(values []float64, g Grid) []float64 {
	if len(values) == 0 {
		return uniformPMF(g.NumBins())
	}
	if len(values) == 1 {
		return singletonPMF(values[0], g)
	}

	counts := make([]float64, g.NumBins())
	total := 0.0
	for _, x := range values {
		if idx, ok := g.binIndex(x); ok {
			counts[idx]++
			total++
		}
	}
	if total > 0 {
		for i := range counts {
			counts[i] /= total
		}
	}
	return safeNormalize(counts)
}

// singletonPMF puts all mass in the bin containing x, clamped into range.
func singletonPMF(x float64, g Grid) []float64 {
	pmf := make([]float64, g.NumBins())
	pmf[g.clampedBin(x)] = 1.0
	return safeNormalize(pmf)
}
