package clickhouse

import (
	"context"
	"fmt"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// CalibrationSampleStore implements storage.CalibrationSampleStore using ClickHouse.
type CalibrationSampleStore struct {
	conn *Conn
}

// NewCalibrationSampleStore creates a new CalibrationSampleStore.
func NewCalibrationSampleStore(conn *Conn) *CalibrationSampleStore {
	return &CalibrationSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CalibrationSampleStore = (*CalibrationSampleStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate
// (manifest_hash, seed, sample_index). A calibration run is written in one
// batch, so the existence check is done once per (manifest_hash, seed) pair.
func (s *CalibrationSampleStore) InsertBulk(ctx context.Context, samples []*domain.CalibrationSample) error {
	if len(samples) == 0 {
		return nil
	}

	type runKey struct {
		manifestHash string
		seed         int64
	}
	type sampleKey struct {
		runKey
		sampleIndex int
	}
	runs := make(map[runKey]struct{})
	seen := make(map[sampleKey]struct{}, len(samples))
	for _, c := range samples {
		if c == nil || c.ManifestHash == "" {
			return storage.ErrInvalidInput
		}
		rk := runKey{c.ManifestHash, c.Seed}
		runs[rk] = struct{}{}
		sk := sampleKey{rk, c.SampleIndex}
		if _, exists := seen[sk]; exists {
			return storage.ErrDuplicateKey
		}
		seen[sk] = struct{}{}
	}

	for rk := range runs {
		exists, err := s.runExists(ctx, rk.manifestHash, rk.seed)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO calibration_samples (
			manifest_hash, seed, sample_index, score, computed_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range samples {
		err = batch.Append(
			c.ManifestHash, c.Seed, uint32(c.SampleIndex),
			c.Score, uint64(c.ComputedAtMS),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves all samples for one calibration run, ordered by sample_index ASC.
func (s *CalibrationSampleStore) GetByRun(ctx context.Context, manifestHash string, seed int64) ([]*domain.CalibrationSample, error) {
	query := `
		SELECT manifest_hash, seed, sample_index, score, computed_at_ms
		FROM calibration_samples
		WHERE manifest_hash = ? AND seed = ?
		ORDER BY sample_index ASC
	`

	rows, err := s.conn.Query(ctx, query, manifestHash, seed)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	var samples []*domain.CalibrationSample
	for rows.Next() {
		var c domain.CalibrationSample
		var sampleIndex uint32
		var computedAtMS uint64

		err := rows.Scan(&c.ManifestHash, &c.Seed, &sampleIndex, &c.Score, &computedAtMS)
		if err != nil {
			return nil, fmt.Errorf("scan calibration sample row: %w", err)
		}

		c.SampleIndex = int(sampleIndex)
		c.ComputedAtMS = int64(computedAtMS)
		samples = append(samples, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calibration sample rows: %w", err)
	}

	return samples, nil
}

// runExists checks if any sample for (manifest_hash, seed) exists.
func (s *CalibrationSampleStore) runExists(ctx context.Context, manifestHash string, seed int64) (bool, error) {
	query := `
		SELECT count(*) FROM calibration_samples
		WHERE manifest_hash = ? AND seed = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, manifestHash, seed).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
