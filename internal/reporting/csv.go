package reporting

import (
	"fmt"
	"sort"
	"strings"

	"driftlab/internal/domain"
)

// RenderCalibrationCSV renders a calibration score distribution as a CSV
// string. One row per resample, in resample order.
func RenderCalibrationCSV(scores []float64) string {
	var sb strings.Builder

	sb.WriteString("sample_index,score\n")
	for i, score := range scores {
		sb.WriteString(fmt.Sprintf("%d,%.6f\n", i, score))
	}

	return sb.String()
}

// RenderSegmentCSV renders per-SKU scores as a CSV string, sorted by stock
// code. Score is empty for segments below the event minimum.
func RenderSegmentCSV(perSegment map[string]domain.SegmentScore) string {
	var sb strings.Builder

	sb.WriteString("stock_code,baseline_events,sample_events,score,method,insufficient_data\n")

	skus := make([]string, 0, len(perSegment))
	for sku := range perSegment {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	for _, sku := range skus {
		seg := perSegment[sku]
		score := ""
		if seg.Score != nil {
			score = fmt.Sprintf("%.6f", *seg.Score)
		}
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%t\n",
			sku,
			seg.BaselineEvents,
			seg.SampleEvents,
			score,
			seg.Method,
			seg.InsufficientData,
		))
	}

	return sb.String()
}

// RenderHistoryCSV renders a stored score timeseries as a CSV string.
func RenderHistoryCSV(points []*domain.ScorePoint) string {
	var sb strings.Builder

	sb.WriteString("manifest_hash,window_end_ms,window_days,score,method,baseline_events,sample_events,computed_at_ms\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.6f,%s,%d,%d,%d\n",
			p.ManifestHash,
			p.WindowEndMS,
			p.WindowDays,
			p.Score,
			p.Method,
			p.BaselineEvents,
			p.SampleEvents,
			p.ComputedAtMS,
		))
	}

	return sb.String()
}
