package decision

import (
	"errors"
	"fmt"

	"driftlab/internal/domain"
)

// ErrNilResult is returned when no diagnostic result is supplied.
var ErrNilResult = errors.New("nil diagnostic result")

// ErrManifestMismatch is returned when the threshold set was calibrated
// against a different frozen dataset than the one the result was scored on.
// Comparing across manifests would classify the score against the wrong null.
var ErrManifestMismatch = errors.New("threshold set and result belong to different manifests")

// BuildInput extracts the evaluator's input from a diagnostic result and
// the threshold set calibrated for the same manifest. thresholds may be
// nil; the evaluator then reports UNCALIBRATED rather than guessing.
func BuildInput(result *domain.DiagnosticResult, thresholds *domain.ThresholdSet) (Input, error) {
	if result == nil {
		return Input{}, ErrNilResult
	}
	if thresholds != nil && thresholds.ManifestHash != "" && result.ManifestHash != "" &&
		thresholds.ManifestHash != result.ManifestHash {
		return Input{}, fmt.Errorf("%w: thresholds %s, result %s",
			ErrManifestMismatch, thresholds.ManifestHash, result.ManifestHash)
	}

	input := Input{
		Score:          result.JSDScore,
		Method:         result.Method,
		BaselineEvents: result.BaselineWindow.NumEvents,
		SampleEvents:   result.SampleWindow.NumEvents,
		Thresholds:     thresholds,
	}

	if err := input.Validate(); err != nil {
		return Input{}, err
	}
	return input, nil
}
