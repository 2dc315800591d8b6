package memory

import (
	"context"
	"sort"
	"sync"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// ManifestStore is an in-memory implementation of storage.ManifestStore.
type ManifestStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Manifest // keyed by file hash
}

// NewManifestStore creates a new in-memory manifest store.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{
		data: make(map[string]*domain.Manifest),
	}
}

// Insert adds a new manifest. Returns ErrDuplicateKey if the file hash exists.
func (s *ManifestStore) Insert(_ context.Context, m *domain.Manifest) error {
	if m == nil || m.File.Hash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.File.Hash]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[m.File.Hash] = copyManifest(m)
	return nil
}

// GetByHash retrieves a manifest by its file hash. Returns ErrNotFound if not exists.
func (s *ManifestStore) GetByHash(_ context.Context, hash string) (*domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[hash]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyManifest(m), nil
}

// GetLatest retrieves the most recently frozen manifest.
func (s *ManifestStore) GetLatest(_ context.Context) (*domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Manifest
	for _, m := range s.data {
		if latest == nil || m.FrozenAt.After(latest.FrozenAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return copyManifest(latest), nil
}

// List retrieves all manifests, ordered by frozen_at ASC.
func (s *ManifestStore) List(_ context.Context) ([]*domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Manifest, 0, len(s.data))
	for _, m := range s.data {
		result = append(result, copyManifest(m))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].FrozenAt.Equal(result[j].FrozenAt) {
			return result[i].File.Hash < result[j].File.Hash
		}
		return result[i].FrozenAt.Before(result[j].FrozenAt)
	})

	return result, nil
}

// copyManifest clones a manifest including its column slice and publisher
// so callers cannot mutate stored state.
func copyManifest(m *domain.Manifest) *domain.Manifest {
	c := *m
	c.Schema.Columns = append([]string(nil), m.Schema.Columns...)
	if m.Publisher != nil {
		pub := *m.Publisher
		c.Publisher = &pub
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.ManifestStore = (*ManifestStore)(nil)
