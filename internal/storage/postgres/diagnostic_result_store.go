package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// DiagnosticResultStore implements storage.DiagnosticResultStore using
// PostgreSQL. The calibration distribution and per-segment breakdown are
// stored as JSONB; scalar result fields and window bounds are columns.
type DiagnosticResultStore struct {
	pool *Pool
}

// NewDiagnosticResultStore creates a new DiagnosticResultStore.
func NewDiagnosticResultStore(pool *Pool) *DiagnosticResultStore {
	return &DiagnosticResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DiagnosticResultStore = (*DiagnosticResultStore)(nil)

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *DiagnosticResultStore) Insert(ctx context.Context, r *domain.DiagnosticResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	calibrationJSON, err := json.Marshal(r.Calibration)
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	var segmentsJSON []byte
	if r.PerSegment != nil {
		segmentsJSON, err = json.Marshal(r.PerSegment)
		if err != nil {
			return fmt.Errorf("marshal per-segment scores: %w", err)
		}
	}

	query := `
		INSERT INTO diagnostic_results (
			result_id, manifest_hash, jsd_score, method, seed,
			baseline_label, baseline_start_ms, baseline_end_ms, baseline_events,
			sample_label, sample_start_ms, sample_end_ms, sample_events,
			grid_lo, grid_hi, grid_bins, log_transform,
			calibration, per_segment, computed_at_ms, elapsed_ms
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ResultID,
		r.ManifestHash,
		r.JSDScore,
		string(r.Method),
		r.Seed,
		string(r.BaselineWindow.Label),
		r.BaselineWindow.StartMS,
		r.BaselineWindow.EndMS,
		r.BaselineWindow.NumEvents,
		string(r.SampleWindow.Label),
		r.SampleWindow.StartMS,
		r.SampleWindow.EndMS,
		r.SampleWindow.NumEvents,
		r.Grid.Lo,
		r.Grid.Hi,
		r.Grid.NumBins,
		r.Grid.LogTransform,
		calibrationJSON,
		segmentsJSON,
		r.ComputedAtMS,
		r.ElapsedMS,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert diagnostic result: %w", err)
	}
	return nil
}

const resultColumns = `
	result_id, manifest_hash, jsd_score, method, seed,
	baseline_label, baseline_start_ms, baseline_end_ms, baseline_events,
	sample_label, sample_start_ms, sample_end_ms, sample_events,
	grid_lo, grid_hi, grid_bins, log_transform,
	calibration, per_segment, computed_at_ms, elapsed_ms
`

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *DiagnosticResultStore) GetByID(ctx context.Context, resultID string) (*domain.DiagnosticResult, error) {
	query := `SELECT ` + resultColumns + ` FROM diagnostic_results WHERE result_id = $1`

	row := s.pool.QueryRow(ctx, query, resultID)
	r, err := scanResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get result by id: %w", err)
	}
	return r, nil
}

// GetByManifest retrieves all results for a manifest, ordered by computed_at ASC.
func (s *DiagnosticResultStore) GetByManifest(ctx context.Context, manifestHash string) ([]*domain.DiagnosticResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM diagnostic_results
		WHERE manifest_hash = $1
		ORDER BY computed_at_ms ASC, result_id ASC
	`

	rows, err := s.pool.Query(ctx, query, manifestHash)
	if err != nil {
		return nil, fmt.Errorf("get results by manifest: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetByTimeRange retrieves results whose sample window ends within [start, end].
func (s *DiagnosticResultStore) GetByTimeRange(ctx context.Context, manifestHash string, start, end int64) ([]*domain.DiagnosticResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM diagnostic_results
		WHERE manifest_hash = $1 AND sample_end_ms >= $2 AND sample_end_ms <= $3
		ORDER BY sample_end_ms ASC, result_id ASC
	`

	rows, err := s.pool.Query(ctx, query, manifestHash, start, end)
	if err != nil {
		return nil, fmt.Errorf("get results by time range: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// scanResult scans a single row into a DiagnosticResult.
func scanResult(row pgx.Row) (*domain.DiagnosticResult, error) {
	var r domain.DiagnosticResult
	var method, baselineLabel, sampleLabel string
	var calibrationJSON, segmentsJSON []byte

	err := row.Scan(
		&r.ResultID,
		&r.ManifestHash,
		&r.JSDScore,
		&method,
		&r.Seed,
		&baselineLabel,
		&r.BaselineWindow.StartMS,
		&r.BaselineWindow.EndMS,
		&r.BaselineWindow.NumEvents,
		&sampleLabel,
		&r.SampleWindow.StartMS,
		&r.SampleWindow.EndMS,
		&r.SampleWindow.NumEvents,
		&r.Grid.Lo,
		&r.Grid.Hi,
		&r.Grid.NumBins,
		&r.Grid.LogTransform,
		&calibrationJSON,
		&segmentsJSON,
		&r.ComputedAtMS,
		&r.ElapsedMS,
	)
	if err != nil {
		return nil, err
	}

	r.Method = domain.Method(method)
	r.BaselineWindow.Label = domain.WindowLabel(baselineLabel)
	r.SampleWindow.Label = domain.WindowLabel(sampleLabel)
	if err := json.Unmarshal(calibrationJSON, &r.Calibration); err != nil {
		return nil, fmt.Errorf("unmarshal calibration: %w", err)
	}
	if len(segmentsJSON) > 0 {
		if err := json.Unmarshal(segmentsJSON, &r.PerSegment); err != nil {
			return nil, fmt.Errorf("unmarshal per-segment scores: %w", err)
		}
	}
	return &r, nil
}

// scanResults scans multiple rows into a slice of DiagnosticResult.
func scanResults(rows pgx.Rows) ([]*domain.DiagnosticResult, error) {
	var results []*domain.DiagnosticResult

	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	return results, nil
}
