package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// ThresholdStore implements storage.ThresholdStore using PostgreSQL.
type ThresholdStore struct {
	pool *Pool
}

// NewThresholdStore creates a new ThresholdStore.
func NewThresholdStore(pool *Pool) *ThresholdStore {
	return &ThresholdStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)

// Insert adds a new threshold set. Returns ErrDuplicateKey if
// (manifest_hash, seed, sample_size) exists.
func (s *ThresholdStore) Insert(ctx context.Context, t *domain.ThresholdSet) error {
	if t == nil || t.ManifestHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO thresholds (
			manifest_hash, seed, sample_size, num_scores, mean, stddev,
			min_score, max_score, p95, p99, computed_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ManifestHash,
		t.Seed,
		t.SampleSize,
		t.NumScores,
		t.Mean,
		t.Stddev,
		t.Min,
		t.Max,
		t.P95,
		t.P99,
		t.ComputedAtMS,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert threshold set: %w", err)
	}
	return nil
}

const thresholdColumns = `
	manifest_hash, seed, sample_size, num_scores, mean, stddev,
	min_score, max_score, p95, p99, computed_at_ms
`

// GetByKey retrieves a threshold set by its composite key.
func (s *ThresholdStore) GetByKey(ctx context.Context, manifestHash string, seed int64, sampleSize int) (*domain.ThresholdSet, error) {
	query := `
		SELECT ` + thresholdColumns + `
		FROM thresholds
		WHERE manifest_hash = $1 AND seed = $2 AND sample_size = $3
	`

	row := s.pool.QueryRow(ctx, query, manifestHash, seed, sampleSize)
	t, err := scanThresholdSet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get threshold set by key: %w", err)
	}
	return t, nil
}

// GetLatest retrieves the most recently computed threshold set for a manifest.
func (s *ThresholdStore) GetLatest(ctx context.Context, manifestHash string) (*domain.ThresholdSet, error) {
	query := `
		SELECT ` + thresholdColumns + `
		FROM thresholds
		WHERE manifest_hash = $1
		ORDER BY computed_at_ms DESC, seed DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, manifestHash)
	t, err := scanThresholdSet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest threshold set: %w", err)
	}
	return t, nil
}

// scanThresholdSet scans a single row into a ThresholdSet.
func scanThresholdSet(row pgx.Row) (*domain.ThresholdSet, error) {
	var t domain.ThresholdSet

	err := row.Scan(
		&t.ManifestHash,
		&t.Seed,
		&t.SampleSize,
		&t.NumScores,
		&t.Mean,
		&t.Stddev,
		&t.Min,
		&t.Max,
		&t.P95,
		&t.P99,
		&t.ComputedAtMS,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
