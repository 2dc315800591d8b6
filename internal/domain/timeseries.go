package domain

// ScorePoint is one drift score laid on the diagnostic timeline. Rows are
// written append-only as sliding windows advance over the replay stream.
type ScorePoint struct {
	ManifestHash   string  `json:"manifest_hash"`
	WindowEndMS    int64   `json:"window_end_ms"` // exclusive sample-window bound
	WindowDays     int     `json:"window_days"`
	Score          float64 `json:"score"`
	Method         Method  `json:"method"`
	BaselineEvents int     `json:"baseline_events"`
	SampleEvents   int     `json:"sample_events"`
	ComputedAtMS   int64   `json:"computed_at_ms"`
}

// CalibrationSample is one member of a stored null distribution. A full
// calibration run writes NumScores rows sharing (manifest_hash, seed).
type CalibrationSample struct {
	ManifestHash string  `json:"manifest_hash"`
	Seed         int64   `json:"seed"`
	SampleIndex  int     `json:"sample_index"` // position in the resample sequence
	Score        float64 `json:"score"`
	ComputedAtMS int64   `json:"computed_at_ms"`
}
