package manifest

import (
	"math"
	"sort"
	"time"

	"driftlab/internal/domain"
)

// ComputeStatistics builds the statistical fingerprint of a dataset. All
// aggregation is order-independent or runs over sorted copies, so the same
// rows always produce the same statistics regardless of input order.
func ComputeStatistics(txns []domain.Transaction) domain.DatasetStatistics {
	n := len(txns)
	if n == 0 {
		return domain.DatasetStatistics{}
	}

	skus := make(map[string]struct{})
	customers := make(map[string]struct{})
	countries := make(map[string]struct{})

	prices := make([]float64, n)
	quantities := make([]float64, n)
	minTS := txns[0].TimestampMS
	maxTS := txns[0].TimestampMS

	for i, t := range txns {
		skus[t.StockCode] = struct{}{}
		customers[t.CustomerID] = struct{}{}
		countries[t.Country] = struct{}{}

		prices[i] = t.Price
		quantities[i] = float64(t.Quantity)
		if t.TimestampMS < minTS {
			minTS = t.TimestampMS
		}
		if t.TimestampMS > maxTS {
			maxTS = t.TimestampMS
		}
	}

	return domain.DatasetStatistics{
		NumRecords:         n,
		NumUniqueSKUs:      len(skus),
		NumUniqueCustomers: len(customers),
		NumUniqueCountries: len(countries),
		DateRange: domain.DateRange{
			Start: time.UnixMilli(minTS).UTC(),
			End:   time.UnixMilli(maxTS).UTC(),
		},
		PriceStats:    summarize(prices),
		QuantityStats: summarize(quantities),
	}
}

// summarize computes mean, sample stddev, min, max and median of values.
func summarize(values []float64) domain.ValueStats {
	n := len(values)
	if n == 0 {
		return domain.ValueStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := computeMean(values)

	return domain.ValueStats{
		Mean:   mean,
		Stddev: computeStddev(values, mean),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: computeMedian(sorted),
	}
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

// computeMedian returns the midpoint of a pre-sorted slice, averaging the
// two central values for even lengths.
func computeMedian(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
