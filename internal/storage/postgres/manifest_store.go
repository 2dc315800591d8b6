package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// ManifestStore implements storage.ManifestStore using PostgreSQL.
// Nested manifest sections (statistics, publisher) are stored as JSONB;
// the fields queries filter on are first-class columns.
type ManifestStore struct {
	pool *Pool
}

// NewManifestStore creates a new ManifestStore.
func NewManifestStore(pool *Pool) *ManifestStore {
	return &ManifestStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ManifestStore = (*ManifestStore)(nil)

// Insert adds a new manifest. Returns ErrDuplicateKey if the file hash exists.
func (s *ManifestStore) Insert(ctx context.Context, m *domain.Manifest) error {
	if m == nil || m.File.Hash == "" {
		return storage.ErrInvalidInput
	}

	statsJSON, err := json.Marshal(m.Statistics)
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	var publisherJSON []byte
	if m.Publisher != nil {
		publisherJSON, err = json.Marshal(m.Publisher)
		if err != nil {
			return fmt.Errorf("marshal publisher: %w", err)
		}
	}

	query := `
		INSERT INTO manifests (
			manifest_hash, version, frozen_at, file_name, size_bytes,
			hash_algorithm, source_url, source_type, schema_columns,
			schema_validated, statistics, publisher
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		m.File.Hash,
		m.Version,
		m.FrozenAt,
		m.File.Name,
		m.File.SizeBytes,
		m.File.HashAlgorithm,
		m.Source.URL,
		string(m.Source.Type),
		m.Schema.Columns,
		m.Schema.Validated,
		statsJSON,
		publisherJSON,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert manifest: %w", err)
	}
	return nil
}

const manifestColumns = `
	manifest_hash, version, frozen_at, file_name, size_bytes,
	hash_algorithm, source_url, source_type, schema_columns,
	schema_validated, statistics, publisher
`

// GetByHash retrieves a manifest by its file hash. Returns ErrNotFound if not exists.
func (s *ManifestStore) GetByHash(ctx context.Context, hash string) (*domain.Manifest, error) {
	query := `SELECT ` + manifestColumns + ` FROM manifests WHERE manifest_hash = $1`

	row := s.pool.QueryRow(ctx, query, hash)
	m, err := scanManifest(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get manifest by hash: %w", err)
	}
	return m, nil
}

// GetLatest retrieves the most recently frozen manifest.
func (s *ManifestStore) GetLatest(ctx context.Context) (*domain.Manifest, error) {
	query := `SELECT ` + manifestColumns + ` FROM manifests ORDER BY frozen_at DESC, manifest_hash DESC LIMIT 1`

	row := s.pool.QueryRow(ctx, query)
	m, err := scanManifest(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest manifest: %w", err)
	}
	return m, nil
}

// List retrieves all manifests, ordered by frozen_at ASC.
func (s *ManifestStore) List(ctx context.Context) ([]*domain.Manifest, error) {
	query := `SELECT ` + manifestColumns + ` FROM manifests ORDER BY frozen_at ASC, manifest_hash ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list manifests: %w", err)
	}
	defer rows.Close()

	var manifests []*domain.Manifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manifest row: %w", err)
		}
		manifests = append(manifests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manifest rows: %w", err)
	}

	return manifests, nil
}

// scanManifest scans a single row into a Manifest.
func scanManifest(row pgx.Row) (*domain.Manifest, error) {
	var m domain.Manifest
	var sourceType string
	var statsJSON []byte
	var publisherJSON []byte

	err := row.Scan(
		&m.File.Hash,
		&m.Version,
		&m.FrozenAt,
		&m.File.Name,
		&m.File.SizeBytes,
		&m.File.HashAlgorithm,
		&m.Source.URL,
		&sourceType,
		&m.Schema.Columns,
		&m.Schema.Validated,
		&statsJSON,
		&publisherJSON,
	)
	if err != nil {
		return nil, err
	}

	m.Source.Type = domain.SourceType(sourceType)
	if err := json.Unmarshal(statsJSON, &m.Statistics); err != nil {
		return nil, fmt.Errorf("unmarshal statistics: %w", err)
	}
	if len(publisherJSON) > 0 {
		m.Publisher = &domain.ManifestPublisher{}
		if err := json.Unmarshal(publisherJSON, m.Publisher); err != nil {
			return nil, fmt.Errorf("unmarshal publisher: %w", err)
		}
	}
	return &m, nil
}
