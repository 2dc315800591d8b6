package memory

import (
	"context"
	"errors"
	"testing"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

func testThresholdSet(manifestHash string, seed int64, computedAtMS int64) *domain.ThresholdSet {
	return &domain.ThresholdSet{
		ManifestHash: manifestHash,
		Seed:         seed,
		SampleSize:   1000,
		NumScores:    200,
		Mean:         0.02,
		Stddev:       0.005,
		Min:          0.01,
		Max:          0.04,
		P95:          0.031,
		P99:          0.038,
		ComputedAtMS: computedAtMS,
	}
}

func TestThresholdStore_InsertAndGet(t *testing.T) {
	store := NewThresholdStore()
	ctx := context.Background()

	ts := testThresholdSet("m1", 42, 1000)
	if err := store.Insert(ctx, ts); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByKey(ctx, "m1", 42, 1000)
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if got.P95 != ts.P95 {
		t.Errorf("P95 = %v, want %v", got.P95, ts.P95)
	}
	if got.NumScores != 200 {
		t.Errorf("NumScores = %d, want 200", got.NumScores)
	}
}

func TestThresholdStore_DuplicateKey(t *testing.T) {
	store := NewThresholdStore()
	ctx := context.Background()

	ts := testThresholdSet("m1", 42, 1000)
	if err := store.Insert(ctx, ts); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testThresholdSet("m1", 42, 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// A different seed is a different key.
	if err := store.Insert(ctx, testThresholdSet("m1", 7, 2000)); err != nil {
		t.Errorf("Insert with different seed failed: %v", err)
	}
}

func TestThresholdStore_NotFound(t *testing.T) {
	store := NewThresholdStore()
	ctx := context.Background()

	if _, err := store.GetByKey(ctx, "m1", 42, 1000); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetLatest(ctx, "m1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetLatest: expected ErrNotFound, got %v", err)
	}
}

func TestThresholdStore_GetLatest(t *testing.T) {
	store := NewThresholdStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testThresholdSet("m1", 1, 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testThresholdSet("m1", 2, 3000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testThresholdSet("other", 3, 9000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetLatest(ctx, "m1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if got.Seed != 2 {
		t.Errorf("GetLatest seed = %d, want 2", got.Seed)
	}
}
