package memory

import (
	"context"
	"errors"
	"testing"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

func testScorePoint(manifestHash string, windowEndMS int64, score float64) *domain.ScorePoint {
	return &domain.ScorePoint{
		ManifestHash:   manifestHash,
		WindowEndMS:    windowEndMS,
		WindowDays:     14,
		Score:          score,
		Method:         domain.MethodKDE,
		BaselineEvents: 500,
		SampleEvents:   480,
		ComputedAtMS:   windowEndMS + 10,
	}
}

func TestScoreTimeseriesStore_InsertBulkAndGet(t *testing.T) {
	store := NewScoreTimeseriesStore()
	ctx := context.Background()

	points := []*domain.ScorePoint{
		testScorePoint("m1", 3000, 0.03),
		testScorePoint("m1", 1000, 0.01),
		testScorePoint("m1", 2000, 0.02),
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByManifest(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByManifest failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if got[i].WindowEndMS != want {
			t.Errorf("got[%d].WindowEndMS = %d, want %d", i, got[i].WindowEndMS, want)
		}
	}
}

func TestScoreTimeseriesStore_EmptyBatch(t *testing.T) {
	store := NewScoreTimeseriesStore()
	if err := store.InsertBulk(context.Background(), nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}

func TestScoreTimeseriesStore_DuplicateInBatch(t *testing.T) {
	store := NewScoreTimeseriesStore()
	ctx := context.Background()

	points := []*domain.ScorePoint{
		testScorePoint("m1", 1000, 0.01),
		testScorePoint("m1", 1000, 0.02),
	}
	err := store.InsertBulk(ctx, points)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Failed batch writes nothing.
	got, err := store.GetByManifest(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByManifest failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d after failed batch, want 0", len(got))
	}
}

func TestScoreTimeseriesStore_DuplicateAcrossBatches(t *testing.T) {
	store := NewScoreTimeseriesStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.ScorePoint{testScorePoint("m1", 1000, 0.01)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	err := store.InsertBulk(ctx, []*domain.ScorePoint{testScorePoint("m1", 1000, 0.02)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same window end for a different manifest is fine.
	if err := store.InsertBulk(ctx, []*domain.ScorePoint{testScorePoint("m2", 1000, 0.02)}); err != nil {
		t.Errorf("InsertBulk for other manifest failed: %v", err)
	}
}

func TestScoreTimeseriesStore_GetByTimeRange(t *testing.T) {
	store := NewScoreTimeseriesStore()
	ctx := context.Background()

	var points []*domain.ScorePoint
	for _, end := range []int64{1000, 2000, 3000, 4000} {
		points = append(points, testScorePoint("m1", end, 0.01))
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "m1", 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (bounds inclusive)", len(got))
	}
}
