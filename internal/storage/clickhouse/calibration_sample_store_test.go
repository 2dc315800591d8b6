package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

func makeSamples(manifestHash string, seed int64, n int) []*domain.CalibrationSample {
	samples := make([]*domain.CalibrationSample, n)
	for i := range samples {
		samples[i] = &domain.CalibrationSample{
			ManifestHash: manifestHash,
			Seed:         seed,
			SampleIndex:  i,
			Score:        0.01 + float64(i)*0.001,
			ComputedAtMS: 1_700_000_000_000,
		}
	}
	return samples
}

func TestCalibrationSampleStore_InsertBulkAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCalibrationSampleStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, makeSamples("hash-a", 42, 10)))

	got, err := store.GetByRun(ctx, "hash-a", 42)
	require.NoError(t, err)
	require.Len(t, got, 10)

	for i, s := range got {
		assert.Equal(t, i, s.SampleIndex)
		assert.Equal(t, int64(42), s.Seed)
	}
	assert.Equal(t, 0.01, got[0].Score)
}

func TestCalibrationSampleStore_DuplicateRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCalibrationSampleStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, makeSamples("hash-b", 42, 3)))

	err := store.InsertBulk(ctx, makeSamples("hash-b", 42, 3))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same manifest with another seed is a distinct run.
	require.NoError(t, store.InsertBulk(ctx, makeSamples("hash-b", 7, 3)))
}

func TestCalibrationSampleStore_DuplicateIndexInBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCalibrationSampleStore(conn)
	ctx := context.Background()

	samples := makeSamples("hash-c", 42, 2)
	samples[1].SampleIndex = 0

	err := store.InsertBulk(ctx, samples)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCalibrationSampleStore_RunIsolation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCalibrationSampleStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, makeSamples("hash-d", 42, 5)))
	require.NoError(t, store.InsertBulk(ctx, makeSamples("hash-e", 42, 7)))

	got, err := store.GetByRun(ctx, "hash-e", 42)
	require.NoError(t, err)
	assert.Len(t, got, 7)

	empty, err := store.GetByRun(ctx, "hash-d", 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
