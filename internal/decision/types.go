package decision

import (
	"fmt"
	"math"

	"driftlab/internal/domain"
)

// Verdict classifies one diagnostic score against its calibrated null
// distribution.
type Verdict string

const (
	// VerdictNormal means the score sits inside the calibrated null spread.
	VerdictNormal Verdict = "NORMAL"
	// VerdictElevated means at least one criterion failed but the score
	// stayed at or below the null P99.
	VerdictElevated Verdict = "ELEVATED"
	// VerdictDrift means the score exceeds the null P99.
	VerdictDrift Verdict = "DRIFT"
	// VerdictUncalibrated means no threshold set exists for the manifest,
	// so the score cannot be classified.
	VerdictUncalibrated Verdict = "UNCALIBRATED"
	// VerdictInsufficientData is assigned by callers whose quality gate
	// failed before a score was computed. Evaluate never returns it.
	VerdictInsufficientData Verdict = "INSUFFICIENT_DATA"
)

// Input contains the numeric facts the evaluator classifies.
type Input struct {
	// Score is the normalized divergence from one diagnostic run.
	Score float64

	// Method is the density-estimation path that produced the score.
	Method domain.Method

	// Window sizes, for context in the rendered report.
	BaselineEvents int
	SampleEvents   int

	// Thresholds is the null calibration for the same manifest. Nil means
	// the manifest has never been calibrated.
	Thresholds *domain.ThresholdSet
}

// Validate rejects inputs no diagnostic run can legitimately produce.
func (in Input) Validate() error {
	if math.IsNaN(in.Score) || math.IsInf(in.Score, 0) {
		return fmt.Errorf("score must be finite, got %v", in.Score)
	}
	if in.Score < 0 || in.Score > 1 {
		return fmt.Errorf("score must be in [0, 1], got %v", in.Score)
	}
	if in.BaselineEvents < 0 || in.SampleEvents < 0 {
		return fmt.Errorf("window event counts must be non-negative, got baseline=%d sample=%d",
			in.BaselineEvents, in.SampleEvents)
	}
	return nil
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result contains the verdict with its per-criterion checklist.
type Result struct {
	Verdict  Verdict
	Criteria []CriterionResult

	// Summary is a one-line explanation of the verdict.
	Summary string
}
