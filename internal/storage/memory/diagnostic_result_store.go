package memory

import (
	"context"
	"sort"
	"sync"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// DiagnosticResultStore is an in-memory implementation of storage.DiagnosticResultStore.
type DiagnosticResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DiagnosticResult // keyed by result_id
}

// NewDiagnosticResultStore creates a new in-memory diagnostic result store.
func NewDiagnosticResultStore() *DiagnosticResultStore {
	return &DiagnosticResultStore{
		data: make(map[string]*domain.DiagnosticResult),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *DiagnosticResultStore) Insert(_ context.Context, r *domain.DiagnosticResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ResultID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ResultID] = copyResult(r)
	return nil
}

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *DiagnosticResultStore) GetByID(_ context.Context, resultID string) (*domain.DiagnosticResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[resultID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyResult(r), nil
}

// GetByManifest retrieves all results for a manifest, ordered by computed_at ASC.
func (s *DiagnosticResultStore) GetByManifest(_ context.Context, manifestHash string) ([]*domain.DiagnosticResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DiagnosticResult
	for _, r := range s.data {
		if r.ManifestHash == manifestHash {
			result = append(result, copyResult(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ComputedAtMS == result[j].ComputedAtMS {
			return result[i].ResultID < result[j].ResultID
		}
		return result[i].ComputedAtMS < result[j].ComputedAtMS
	})

	return result, nil
}

// GetByTimeRange retrieves results whose sample window ends within [start, end].
func (s *DiagnosticResultStore) GetByTimeRange(_ context.Context, manifestHash string, start, end int64) ([]*domain.DiagnosticResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DiagnosticResult
	for _, r := range s.data {
		if r.ManifestHash != manifestHash {
			continue
		}
		if r.SampleWindow.EndMS >= start && r.SampleWindow.EndMS <= end {
			result = append(result, copyResult(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SampleWindow.EndMS == result[j].SampleWindow.EndMS {
			return result[i].ResultID < result[j].ResultID
		}
		return result[i].SampleWindow.EndMS < result[j].SampleWindow.EndMS
	})

	return result, nil
}

// copyResult clones a result including its calibration slice and segment map
// so callers cannot mutate stored state.
func copyResult(r *domain.DiagnosticResult) *domain.DiagnosticResult {
	c := *r
	c.Calibration = append([]float64(nil), r.Calibration...)
	if r.PerSegment != nil {
		c.PerSegment = make(map[string]domain.SegmentScore, len(r.PerSegment))
		for k, v := range r.PerSegment {
			if v.Score != nil {
				score := *v.Score
				v.Score = &score
			}
			c.PerSegment[k] = v
		}
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.DiagnosticResultStore = (*DiagnosticResultStore)(nil)
