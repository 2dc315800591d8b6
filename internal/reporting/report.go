package reporting

import (
	"time"

	"driftlab/internal/domain"
)

// VerdictPending is the placeholder verdict a generated report carries until
// the caller evaluates the score against its thresholds.
const VerdictPending = "PENDING"

// Report represents the drift diagnostic report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	// Dataset provenance
	Dataset DatasetSection

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Diagnostic outcome. Nil when the quality gate blocked the run.
	Result *domain.DiagnosticResult

	// Null calibration for the same manifest. Nil when never calibrated.
	Thresholds *domain.ThresholdSet

	// Score history for the manifest (sorted by window end)
	History []*domain.ScorePoint

	// Verdict classifies Result against Thresholds. Assigned by the caller
	// after evaluation; VerdictPending until then.
	Verdict string
}

// DatasetSection describes the frozen dataset under diagnosis.
type DatasetSection struct {
	ManifestHash string
	FileName     string
	SizeBytes    int64
	SourceType   string
	FrozenAt     time.Time

	NumRecords         int
	NumUniqueSKUs      int
	NumUniqueCustomers int
	NumUniqueCountries int
	DateRangeStart     time.Time
	DateRangeEnd       time.Time
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}
