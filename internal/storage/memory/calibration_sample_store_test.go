package memory

import (
	"context"
	"errors"
	"testing"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

func testSamples(manifestHash string, seed int64, n int) []*domain.CalibrationSample {
	samples := make([]*domain.CalibrationSample, n)
	for i := range samples {
		samples[i] = &domain.CalibrationSample{
			ManifestHash: manifestHash,
			Seed:         seed,
			SampleIndex:  i,
			Score:        float64(i) * 0.001,
			ComputedAtMS: 1000,
		}
	}
	return samples
}

func TestCalibrationSampleStore_InsertBulkAndGet(t *testing.T) {
	store := NewCalibrationSampleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testSamples("m1", 42, 5)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "m1", 42)
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i, s := range got {
		if s.SampleIndex != i {
			t.Errorf("got[%d].SampleIndex = %d, want %d", i, s.SampleIndex, i)
		}
	}
}

func TestCalibrationSampleStore_DuplicateKey(t *testing.T) {
	store := NewCalibrationSampleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testSamples("m1", 42, 3)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := store.InsertBulk(ctx, testSamples("m1", 42, 3))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// A different seed is a separate run.
	if err := store.InsertBulk(ctx, testSamples("m1", 7, 3)); err != nil {
		t.Errorf("InsertBulk with different seed failed: %v", err)
	}
}

func TestCalibrationSampleStore_RunIsolation(t *testing.T) {
	store := NewCalibrationSampleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testSamples("m1", 42, 3)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, testSamples("m2", 42, 4)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "m2", 42)
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("len = %d, want 4", len(got))
	}

	empty, err := store.GetByRun(ctx, "m1", 99)
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown seed: len = %d, want 0", len(empty))
	}
}
