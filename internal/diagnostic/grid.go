package diagnostic

import (
	"sort"

	"driftlab/internal/domain"
)

// minGridPad keeps the grid non-degenerate when the baseline value range
// collapses to a point.
const minGridPad = 1e-6

// Grid is the fixed evaluation grid for one comparison. It is derived from
// the baseline window only, so baseline and sample are always binned
// identically.
type Grid struct {
	Edges        []float64 // NumBins+1 ascending bin edges, uniformly spaced
	Centers      []float64 // NumBins bin centers
	LogTransform bool      // values were log1p-transformed before gridding
}

// buildGrid derives the grid from baseline values (already transformed when
// LogTransform is set). Bounds come from the configured quantiles; if the
// quantile span is empty the full value range is used instead. Both bounds
// are padded outward so boundary mass never sits on the first or last edge.
func buildGrid(baseline []float64, p Params) Grid {
	sorted := sortedCopy(baseline)
	lo := computePercentile(sorted, p.GridLoQuantile)
	hi := computePercentile(sorted, p.GridHiQuantile)
	if hi <= lo {
		lo = sorted[0]
		hi = sorted[len(sorted)-1]
	}

	pad := 0.1 * (hi - lo)
	if pad < minGridPad {
		pad = minGridPad
	}
	lo -= pad
	hi += pad

	n := p.NumBins
	edges := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := 0; i <= n; i++ {
		edges[i] = lo + float64(i)*step
	}
	edges[n] = hi

	centers := make([]float64, n)
	for i := 0; i < n; i++ {
		centers[i] = (edges[i] + edges[i+1]) / 2
	}

	return Grid{Edges: edges, Centers: centers, LogTransform: p.LogTransform}
}

// NumBins returns the number of bins.
func (g Grid) NumBins() int {
	return len(g.Centers)
}

// Summary reduces the grid to its stored descriptor.
func (g Grid) Summary() domain.GridSummary {
	return domain.GridSummary{
		Lo:           g.Edges[0],
		Hi:           g.Edges[len(g.Edges)-1],
		NumBins:      g.NumBins(),
		LogTransform: g.LogTransform,
	}
}

// binIndex locates the bin containing x: bin i covers [Edges[i],
// Edges[i+1]), with the last bin closed on the right. ok is false when x
// lies outside the grid.
func (g Grid) binIndex(x float64) (int, bool) {
	n := g.NumBins()
	idx := sort.Search(len(g.Edges), func(i int) bool { return g.Edges[i] > x }) - 1
	if idx == n && x == g.Edges[n] {
		return n - 1, true
	}
	if idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// clampedBin is binIndex with out-of-grid values snapped to the nearest
// boundary bin.
func (g Grid) clampedBin(x float64) int {
	if idx, ok := g.binIndex(x); ok {
		return idx
	}
	if x < g.Edges[0] {
		return 0
	}
	return g.NumBins() - 1
}
