package domain

// Method identifies which density-estimation path produced a score. The
// method actually used is part of the result contract, not an internal
// detail: consumers are allowed to branch on it.
type Method string

const (
	MethodKDE       Method = "kde"
	MethodHistogram Method = "histogram"
)

// DiagnosticResult is the outcome of one baseline-vs-sample comparison.
// Immutable once returned.
type DiagnosticResult struct {
	ResultID     string `json:"result_id,omitempty"`     // deterministic id, set when the result is persisted
	ManifestHash string `json:"manifest_hash,omitempty"` // digest of the frozen dataset, if known

	// Point estimate
	JSDScore float64 `json:"jsd_score"`   // normalized Jensen-Shannon distance in [0,1]
	Method   Method  `json:"method_used"` // "kde" | "histogram"

	// Calibration
	Calibration []float64 `json:"calibration"` // ordered bootstrap divergence values
	Seed        int64     `json:"seed"`

	// Breakdown
	PerSegment map[string]SegmentScore `json:"per_segment,omitempty"` // keyed by StockCode

	// Inputs
	BaselineWindow WindowSummary `json:"baseline_window"`
	SampleWindow   WindowSummary `json:"sample_window"`
	Grid           GridSummary   `json:"grid"`

	// Metadata
	ComputedAtMS int64 `json:"computed_at_ms"`
	ElapsedMS    int64 `json:"elapsed_ms"`
}

// SegmentScore is a per-segment (per-SKU) drift score. Score is nil and
// InsufficientData is true when either window holds fewer events than the
// configured segment minimum.
type SegmentScore struct {
	Score            *float64 `json:"score,omitempty"`
	Method           Method   `json:"method_used,omitempty"`
	InsufficientData bool     `json:"insufficient_data,omitempty"`
	BaselineEvents   int      `json:"baseline_events"`
	SampleEvents     int      `json:"sample_events"`
}

// GridSummary describes the fixed evaluation grid derived from the baseline.
type GridSummary struct {
	Lo           float64 `json:"lo"` // first bin edge (after padding)
	Hi           float64 `json:"hi"` // last bin edge (after padding)
	NumBins      int     `json:"n_bins"`
	LogTransform bool    `json:"log_transform"` // values are log1p-transformed
}
