package memory

import (
	"context"
	"sort"
	"sync"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// ScoreTimeseriesStore is an in-memory implementation of storage.ScoreTimeseriesStore.
type ScoreTimeseriesStore struct {
	mu   sync.RWMutex
	data []*domain.ScorePoint
	seen map[scoreKey]struct{}
}

type scoreKey struct {
	manifestHash string
	windowEndMS  int64
}

// NewScoreTimeseriesStore creates a new in-memory score timeseries store.
func NewScoreTimeseriesStore() *ScoreTimeseriesStore {
	return &ScoreTimeseriesStore{
		seen: make(map[scoreKey]struct{}),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (manifest_hash, window_end_ms); nothing is written on failure.
func (s *ScoreTimeseriesStore) InsertBulk(_ context.Context, points []*domain.ScorePoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil || p.ManifestHash == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[scoreKey]struct{}, len(points))
	for _, p := range points {
		k := scoreKey{p.ManifestHash, p.WindowEndMS}
		if _, exists := s.seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[k]; exists {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data = append(s.data, &pointCopy)
		s.seen[scoreKey{p.ManifestHash, p.WindowEndMS}] = struct{}{}
	}
	return nil
}

// GetByManifest retrieves all points for a manifest, ordered by window_end ASC.
func (s *ScoreTimeseriesStore) GetByManifest(_ context.Context, manifestHash string) ([]*domain.ScorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScorePoint
	for _, p := range s.data {
		if p.ManifestHash == manifestHash {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WindowEndMS < result[j].WindowEndMS
	})

	return result, nil
}

// GetByTimeRange retrieves points for a manifest within [start, end] (inclusive).
func (s *ScoreTimeseriesStore) GetByTimeRange(_ context.Context, manifestHash string, start, end int64) ([]*domain.ScorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScorePoint
	for _, p := range s.data {
		if p.ManifestHash != manifestHash {
			continue
		}
		if p.WindowEndMS >= start && p.WindowEndMS <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WindowEndMS < result[j].WindowEndMS
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ScoreTimeseriesStore = (*ScoreTimeseriesStore)(nil)
