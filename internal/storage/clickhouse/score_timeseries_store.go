package clickhouse

import (
	"context"
	"fmt"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// ScoreTimeseriesStore implements storage.ScoreTimeseriesStore using ClickHouse.
type ScoreTimeseriesStore struct {
	conn *Conn
}

// NewScoreTimeseriesStore creates a new ScoreTimeseriesStore.
func NewScoreTimeseriesStore(conn *Conn) *ScoreTimeseriesStore {
	return &ScoreTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreTimeseriesStore = (*ScoreTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (manifest_hash, window_end_ms). MergeTree does not enforce uniqueness,
// so duplicates are rejected by explicit checks before the batch is sent.
func (s *ScoreTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.ScorePoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		manifestHash string
		windowEndMS  int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.ManifestHash == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.ManifestHash, p.WindowEndMS}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.ManifestHash, p.WindowEndMS)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO drift_scores (
			manifest_hash, window_end_ms, window_days, score, method,
			baseline_events, sample_events, computed_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.ManifestHash, uint64(p.WindowEndMS), uint32(p.WindowDays),
			p.Score, string(p.Method),
			uint32(p.BaselineEvents), uint32(p.SampleEvents), uint64(p.ComputedAtMS),
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

// GetByManifest retrieves all points for a manifest, ordered by window_end ASC.
func (s *ScoreTimeseriesStore) GetByManifest(ctx context.Context, manifestHash string) ([]*domain.ScorePoint, error) {
	query := `
		SELECT manifest_hash, window_end_ms, window_days, score, method,
		       baseline_events, sample_events, computed_at_ms
		FROM drift_scores
		WHERE manifest_hash = ?
		ORDER BY window_end_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, manifestHash)
	if err != nil {
		return nil, fmt.Errorf("query by manifest: %w", err)
	}
	defer rows.Close()

	return scanScorePoints(rows)
}

// GetByTimeRange retrieves points for a manifest within [start, end] (inclusive).
func (s *ScoreTimeseriesStore) GetByTimeRange(ctx context.Context, manifestHash string, start, end int64) ([]*domain.ScorePoint, error) {
	query := `
		SELECT manifest_hash, window_end_ms, window_days, score, method,
		       baseline_events, sample_events, computed_at_ms
		FROM drift_scores
		WHERE manifest_hash = ? AND window_end_ms >= ? AND window_end_ms <= ?
		ORDER BY window_end_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, manifestHash, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanScorePoints(rows)
}

// exists checks if a point with the given key exists.
func (s *ScoreTimeseriesStore) exists(ctx context.Context, manifestHash string, windowEndMS int64) (bool, error) {
	query := `
		SELECT count(*) FROM drift_scores
		WHERE manifest_hash = ? AND window_end_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, manifestHash, uint64(windowEndMS)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanScorePoints scans multiple rows.
func scanScorePoints(rows chRows) ([]*domain.ScorePoint, error) {
	var points []*domain.ScorePoint

	for rows.Next() {
		var p domain.ScorePoint
		var windowEndMS, computedAtMS uint64
		var windowDays, baselineEvents, sampleEvents uint32
		var method string

		err := rows.Scan(
			&p.ManifestHash, &windowEndMS, &windowDays,
			&p.Score, &method,
			&baselineEvents, &sampleEvents, &computedAtMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan drift score row: %w", err)
		}

		p.WindowEndMS = int64(windowEndMS)
		p.WindowDays = int(windowDays)
		p.Method = domain.Method(method)
		p.BaselineEvents = int(baselineEvents)
		p.SampleEvents = int(sampleEvents)
		p.ComputedAtMS = int64(computedAtMS)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drift score rows: %w", err)
	}

	return points, nil
}
