package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Drift Diagnostic Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Verdict: **%s**\n\n", r.Verdict))

	// Dataset
	sb.WriteString("## Dataset\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Manifest Hash | %s |\n", r.Dataset.ManifestHash))
	sb.WriteString(fmt.Sprintf("| File | %s |\n", r.Dataset.FileName))
	sb.WriteString(fmt.Sprintf("| Size (bytes) | %d |\n", r.Dataset.SizeBytes))
	sb.WriteString(fmt.Sprintf("| Source | %s |\n", r.Dataset.SourceType))
	sb.WriteString(fmt.Sprintf("| Frozen At | %s |\n", r.Dataset.FrozenAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("| Records | %d |\n", r.Dataset.NumRecords))
	sb.WriteString(fmt.Sprintf("| Unique SKUs | %d |\n", r.Dataset.NumUniqueSKUs))
	sb.WriteString(fmt.Sprintf("| Unique Customers | %d |\n", r.Dataset.NumUniqueCustomers))
	sb.WriteString(fmt.Sprintf("| Unique Countries | %d |\n", r.Dataset.NumUniqueCountries))
	sb.WriteString(fmt.Sprintf("| Date Range | %s to %s |\n",
		r.Dataset.DateRangeStart.Format("2006-01-02"), r.Dataset.DateRangeEnd.Format("2006-01-02")))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("### Sufficiency Checks\n\n")
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		// Overall status
		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Verdict: INSUFFICIENT_DATA\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors (always shown if present, even without sufficiency checks)
	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Diagnostic
	sb.WriteString("## Diagnostic\n\n")
	if r.Result != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Result ID | %s |\n", r.Result.ResultID))
		sb.WriteString(fmt.Sprintf("| Drift Score (JSD) | %.6f |\n", r.Result.JSDScore))
		sb.WriteString(fmt.Sprintf("| Method | %s |\n", r.Result.Method))
		sb.WriteString(fmt.Sprintf("| Seed | %d |\n", r.Result.Seed))
		sb.WriteString(fmt.Sprintf("| Baseline Window | %s (%d events) |\n",
			formatWindowSpan(r.Result.BaselineWindow.StartMS, r.Result.BaselineWindow.EndMS),
			r.Result.BaselineWindow.NumEvents))
		sb.WriteString(fmt.Sprintf("| Sample Window | %s (%d events) |\n",
			formatWindowSpan(r.Result.SampleWindow.StartMS, r.Result.SampleWindow.EndMS),
			r.Result.SampleWindow.NumEvents))
		sb.WriteString(fmt.Sprintf("| Grid | [%.4f, %.4f], %d bins, log1p=%t |\n",
			r.Result.Grid.Lo, r.Result.Grid.Hi, r.Result.Grid.NumBins, r.Result.Grid.LogTransform))
		sb.WriteString(fmt.Sprintf("| Bootstrap Samples | %d |\n", len(r.Result.Calibration)))
		sb.WriteString(fmt.Sprintf("| Elapsed (ms) | %d |\n", r.Result.ElapsedMS))
	} else {
		sb.WriteString("No diagnostic result available.\n")
	}
	sb.WriteString("\n")

	// Threshold Comparison
	sb.WriteString("## Threshold Comparison\n\n")
	if r.Thresholds != nil {
		sb.WriteString("| Statistic | Value |\n")
		sb.WriteString("|-----------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Null Mean | %.6f |\n", r.Thresholds.Mean))
		sb.WriteString(fmt.Sprintf("| Null Stddev | %.6f |\n", r.Thresholds.Stddev))
		sb.WriteString(fmt.Sprintf("| Null Min | %.6f |\n", r.Thresholds.Min))
		sb.WriteString(fmt.Sprintf("| Null Max | %.6f |\n", r.Thresholds.Max))
		sb.WriteString(fmt.Sprintf("| Null P95 | %.6f |\n", r.Thresholds.P95))
		sb.WriteString(fmt.Sprintf("| Null P99 | %.6f |\n", r.Thresholds.P99))
		if r.Result != nil {
			sb.WriteString(fmt.Sprintf("| Observed Score | %.6f |\n", r.Result.JSDScore))
		}
		sb.WriteString(fmt.Sprintf("\nCalibration: %d resamples of %d events, seed %d.\n",
			r.Thresholds.NumScores, r.Thresholds.SampleSize, r.Thresholds.Seed))
	} else {
		sb.WriteString("No calibrated thresholds available.\n")
	}
	sb.WriteString("\n")

	// Per-Segment Scores
	sb.WriteString("## Per-Segment Scores\n\n")
	if r.Result != nil && len(r.Result.PerSegment) > 0 {
		sb.WriteString("| SKU | Baseline Events | Sample Events | Score | Method |\n")
		sb.WriteString("|-----|-----------------|---------------|-------|--------|\n")
		skus := make([]string, 0, len(r.Result.PerSegment))
		for sku := range r.Result.PerSegment {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
		for _, sku := range skus {
			seg := r.Result.PerSegment[sku]
			score := "insufficient data"
			method := "-"
			if seg.Score != nil {
				score = fmt.Sprintf("%.6f", *seg.Score)
				method = string(seg.Method)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s |\n",
				sku, seg.BaselineEvents, seg.SampleEvents, score, method))
		}
	} else {
		sb.WriteString("No per-segment scores available.\n")
	}
	sb.WriteString("\n")

	// Score History
	sb.WriteString("## Score History\n\n")
	if len(r.History) > 0 {
		sb.WriteString("| Window End | Days | Score | Method | Baseline Events | Sample Events |\n")
		sb.WriteString("|------------|------|-------|--------|-----------------|---------------|\n")
		for _, p := range r.History {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.6f | %s | %d | %d |\n",
				time.UnixMilli(p.WindowEndMS).UTC().Format("2006-01-02 15:04"),
				p.WindowDays, p.Score, p.Method, p.BaselineEvents, p.SampleEvents))
		}
	} else {
		sb.WriteString("No score history available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatWindowSpan(startMS, endMS int64) string {
	return fmt.Sprintf("%s to %s",
		time.UnixMilli(startMS).UTC().Format("2006-01-02"),
		time.UnixMilli(endMS).UTC().Format("2006-01-02"))
}
