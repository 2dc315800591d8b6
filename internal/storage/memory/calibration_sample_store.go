package memory

import (
	"context"
	"sort"
	"sync"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// CalibrationSampleStore is an in-memory implementation of storage.CalibrationSampleStore.
type CalibrationSampleStore struct {
	mu   sync.RWMutex
	data []*domain.CalibrationSample
	seen map[sampleKey]struct{}
}

type sampleKey struct {
	manifestHash string
	seed         int64
	sampleIndex  int
}

// NewCalibrationSampleStore creates a new in-memory calibration sample store.
func NewCalibrationSampleStore() *CalibrationSampleStore {
	return &CalibrationSampleStore{
		seen: make(map[sampleKey]struct{}),
	}
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate
// (manifest_hash, seed, sample_index); nothing is written on failure.
func (s *CalibrationSampleStore) InsertBulk(_ context.Context, samples []*domain.CalibrationSample) error {
	if len(samples) == 0 {
		return nil
	}
	for _, c := range samples {
		if c == nil || c.ManifestHash == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[sampleKey]struct{}, len(samples))
	for _, c := range samples {
		k := sampleKey{c.ManifestHash, c.Seed, c.SampleIndex}
		if _, exists := s.seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[k]; exists {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, c := range samples {
		sampleCopy := *c
		s.data = append(s.data, &sampleCopy)
		s.seen[sampleKey{c.ManifestHash, c.Seed, c.SampleIndex}] = struct{}{}
	}
	return nil
}

// GetByRun retrieves all samples for one calibration run, ordered by sample_index ASC.
func (s *CalibrationSampleStore) GetByRun(_ context.Context, manifestHash string, seed int64) ([]*domain.CalibrationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CalibrationSample
	for _, c := range s.data {
		if c.ManifestHash == manifestHash && c.Seed == seed {
			sampleCopy := *c
			result = append(result, &sampleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SampleIndex < result[j].SampleIndex
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.CalibrationSampleStore = (*CalibrationSampleStore)(nil)
