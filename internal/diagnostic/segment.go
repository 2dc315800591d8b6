package diagnostic

import (
	"sort"

	"driftlab/internal/domain"
)

// segmentScores computes the per-SKU breakdown. Segments are the union of
// stock codes across both windows; a segment with fewer than
// MinSegmentEvents events in either window is reported as insufficient
// instead of scored. Each scored segment gets its own grid and method
// selection from its segment-local values, without bootstrap.
func segmentScores(baseline, sample domain.Window, p Params) map[string]domain.SegmentScore {
	basePrices := groupPrices(baseline)
	samplePrices := groupPrices(sample)

	skus := make([]string, 0, len(basePrices)+len(samplePrices))
	for sku := range basePrices {
		skus = append(skus, sku)
	}
	for sku := range samplePrices {
		if _, ok := basePrices[sku]; !ok {
			skus = append(skus, sku)
		}
	}
	sort.Strings(skus)

	out := make(map[string]domain.SegmentScore, len(skus))
	for _, sku := range skus {
		b := basePrices[sku]
		s := samplePrices[sku]
		seg := domain.SegmentScore{BaselineEvents: len(b), SampleEvents: len(s)}

		if len(b) < p.MinSegmentEvents || len(s) < p.MinSegmentEvents {
			seg.InsufficientData = true
			out[sku] = seg
			continue
		}

		if p.LogTransform {
			b = log1pTransform(b)
			s = log1pTransform(s)
		}

		g := buildGrid(b, p)
		est := selectEstimator(p, b, s)
		d := JSDistance(est.Estimate(b, g), est.Estimate(s, g))

		seg.Score = &d
		seg.Method = est.Method()
		out[sku] = seg
	}
	return out
}

// groupPrices buckets window prices by stock code, preserving event order
// within each bucket.
func groupPrices(w domain.Window) map[string][]float64 {
	out := make(map[string][]float64)
	for _, ev := range w.Events {
		out[ev.Transaction.StockCode] = append(out[ev.Transaction.StockCode], ev.Transaction.Price)
	}
	return out
}
