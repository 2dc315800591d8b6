package decision

import (
	"fmt"

	"driftlab/internal/domain"
)

// SigmaLimit bounds the z-distance criterion. A score more than SigmaLimit
// standard deviations above the null mean is flagged even when the
// percentile comparisons are close calls.
const SigmaLimit = 3.0

// Evaluator classifies diagnostic scores.
type Evaluator struct{}

// NewEvaluator creates a new verdict evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces a Result from an Input.
// DRIFT if the score exceeds the null P99.
// ELEVATED if any criterion fails but the P99 holds.
// NORMAL if every criterion passes.
// UNCALIBRATED if no threshold set is available.
func (e *Evaluator) Evaluate(input Input) (*Result, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if input.Thresholds == nil {
		return &Result{
			Verdict: VerdictUncalibrated,
			Criteria: []CriterionResult{{
				Name:      "Calibrated thresholds available",
				Threshold: "threshold set stored for manifest",
				Actual:    "none",
				Pass:      false,
			}},
			Summary: fmt.Sprintf("score %.6f cannot be classified: no calibrated thresholds for this manifest", input.Score),
		}, nil
	}

	criteria := e.evaluateCriteria(input)

	t := input.Thresholds
	verdict := VerdictNormal
	switch {
	case input.Score > t.P99:
		verdict = VerdictDrift
	case anyFailed(criteria):
		verdict = VerdictElevated
	}

	return &Result{
		Verdict:  verdict,
		Criteria: criteria,
		Summary:  summarize(verdict, input.Score, t),
	}, nil
}

// evaluateCriteria compares the score against the null distribution from
// four angles. The percentile rows drive the verdict; the range and sigma
// rows catch heavy-tailed nulls where P95 alone understates how unusual a
// score is.
func (e *Evaluator) evaluateCriteria(input Input) []CriterionResult {
	t := input.Thresholds
	score := input.Score

	criteria := []CriterionResult{
		{
			Name:      "Score within null P95",
			Threshold: fmt.Sprintf("<= %.6f", t.P95),
			Actual:    fmt.Sprintf("%.6f", score),
			Pass:      score <= t.P95,
		},
		{
			Name:      "Score within null P99",
			Threshold: fmt.Sprintf("<= %.6f", t.P99),
			Actual:    fmt.Sprintf("%.6f", score),
			Pass:      score <= t.P99,
		},
		{
			Name:      "Score within observed null range",
			Threshold: fmt.Sprintf("<= %.6f", t.Max),
			Actual:    fmt.Sprintf("%.6f", score),
			Pass:      score <= t.Max,
		},
	}

	sigma := CriterionResult{
		Name:      "Score sigma distance from null mean",
		Threshold: fmt.Sprintf("<= %.1f sigma", SigmaLimit),
	}
	if t.Stddev > 0 {
		z := (score - t.Mean) / t.Stddev
		sigma.Actual = fmt.Sprintf("%.2f sigma", z)
		sigma.Pass = z <= SigmaLimit
	} else {
		// Degenerate null: every resample scored identically. Fall back to
		// the range comparison.
		sigma.Actual = "n/a (null stddev is zero)"
		sigma.Pass = score <= t.Max
	}
	criteria = append(criteria, sigma)

	return criteria
}

func anyFailed(criteria []CriterionResult) bool {
	for _, c := range criteria {
		if !c.Pass {
			return true
		}
	}
	return false
}

func summarize(verdict Verdict, score float64, t *domain.ThresholdSet) string {
	switch verdict {
	case VerdictDrift:
		return fmt.Sprintf("score %.6f exceeds the null P99 %.6f: drift detected", score, t.P99)
	case VerdictElevated:
		return fmt.Sprintf("score %.6f is above the typical null spread (P95 %.6f) but within the P99 %.6f", score, t.P95, t.P99)
	default:
		return fmt.Sprintf("score %.6f is consistent with the calibrated null distribution (P95 %.6f)", score, t.P95)
	}
}
