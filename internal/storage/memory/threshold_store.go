package memory

import (
	"context"
	"fmt"
	"sync"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// ThresholdStore is an in-memory implementation of storage.ThresholdStore.
type ThresholdStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ThresholdSet // keyed by manifest_hash|seed|sample_size
}

// NewThresholdStore creates a new in-memory threshold store.
func NewThresholdStore() *ThresholdStore {
	return &ThresholdStore{
		data: make(map[string]*domain.ThresholdSet),
	}
}

func thresholdKey(manifestHash string, seed int64, sampleSize int) string {
	return fmt.Sprintf("%s|%d|%d", manifestHash, seed, sampleSize)
}

// Insert adds a new threshold set. Returns ErrDuplicateKey if the key exists.
func (s *ThresholdStore) Insert(_ context.Context, t *domain.ThresholdSet) error {
	if t == nil || t.ManifestHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := thresholdKey(t.ManifestHash, t.Seed, t.SampleSize)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	setCopy := *t
	s.data[key] = &setCopy
	return nil
}

// GetByKey retrieves a threshold set by its composite key.
func (s *ThresholdStore) GetByKey(_ context.Context, manifestHash string, seed int64, sampleSize int) (*domain.ThresholdSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[thresholdKey(manifestHash, seed, sampleSize)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	setCopy := *t
	return &setCopy, nil
}

// GetLatest retrieves the most recently computed threshold set for a manifest.
func (s *ThresholdStore) GetLatest(_ context.Context, manifestHash string) (*domain.ThresholdSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.ThresholdSet
	for _, t := range s.data {
		if t.ManifestHash != manifestHash {
			continue
		}
		if latest == nil || t.ComputedAtMS > latest.ComputedAtMS {
			latest = t
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	setCopy := *latest
	return &setCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)
