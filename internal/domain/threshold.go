package domain

// ThresholdSet summarizes a null calibration distribution: the spread of
// drift scores observed when resampling the baseline against itself. A
// downstream consumer compares live scores against these percentiles.
type ThresholdSet struct {
	ManifestHash string  `json:"manifest_hash,omitempty"`
	Seed         int64   `json:"seed"`
	SampleSize   int     `json:"sample_size"` // events per resample
	NumScores    int     `json:"num_scores"`  // scores in the null distribution
	Mean         float64 `json:"mean"`
	Stddev       float64 `json:"std"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	P95          float64 `json:"p95"`
	P99          float64 `json:"p99"`
	ComputedAtMS int64   `json:"computed_at_ms"`
}
