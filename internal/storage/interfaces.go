package storage

import (
	"context"

	"driftlab/internal/domain"
)

// ManifestStore provides access to frozen dataset manifests.
type ManifestStore interface {
	// Insert adds a new manifest. Returns ErrDuplicateKey if the file hash exists.
	Insert(ctx context.Context, m *domain.Manifest) error

	// GetByHash retrieves a manifest by its file hash. Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, hash string) (*domain.Manifest, error)

	// GetLatest retrieves the most recently frozen manifest. Returns ErrNotFound when empty.
	GetLatest(ctx context.Context) (*domain.Manifest, error)

	// List retrieves all manifests, ordered by frozen_at ASC.
	List(ctx context.Context) ([]*domain.Manifest, error)
}

// ThresholdStore provides access to calibrated threshold sets.
type ThresholdStore interface {
	// Insert adds a new threshold set. Returns ErrDuplicateKey if
	// (manifest_hash, seed, sample_size) exists.
	Insert(ctx context.Context, t *domain.ThresholdSet) error

	// GetByKey retrieves a threshold set by its composite key. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, manifestHash string, seed int64, sampleSize int) (*domain.ThresholdSet, error)

	// GetLatest retrieves the most recently computed threshold set for a manifest.
	GetLatest(ctx context.Context, manifestHash string) (*domain.ThresholdSet, error)
}

// DiagnosticResultStore provides access to diagnostic run results.
type DiagnosticResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
	Insert(ctx context.Context, r *domain.DiagnosticResult) error

	// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, resultID string) (*domain.DiagnosticResult, error)

	// GetByManifest retrieves all results for a manifest, ordered by computed_at ASC.
	GetByManifest(ctx context.Context, manifestHash string) ([]*domain.DiagnosticResult, error)

	// GetByTimeRange retrieves results for a manifest whose sample window ends
	// within [start, end] (inclusive), ordered by sample_end ASC.
	GetByTimeRange(ctx context.Context, manifestHash string, start, end int64) ([]*domain.DiagnosticResult, error)
}

// ScoreTimeseriesStore provides access to drift_scores storage.
type ScoreTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (manifest_hash, window_end_ms).
	InsertBulk(ctx context.Context, points []*domain.ScorePoint) error

	// GetByManifest retrieves all points for a manifest, ordered by window_end ASC.
	GetByManifest(ctx context.Context, manifestHash string) ([]*domain.ScorePoint, error)

	// GetByTimeRange retrieves points for a manifest within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, manifestHash string, start, end int64) ([]*domain.ScorePoint, error)
}

// CalibrationSampleStore provides access to calibration_samples storage.
type CalibrationSampleStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate
	// (manifest_hash, seed, sample_index).
	InsertBulk(ctx context.Context, samples []*domain.CalibrationSample) error

	// GetByRun retrieves all samples for one calibration run, ordered by sample_index ASC.
	GetByRun(ctx context.Context, manifestHash string, seed int64) ([]*domain.CalibrationSample, error)
}
