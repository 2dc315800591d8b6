package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

func makeScorePoint(manifestHash string, windowEndMS int64, score float64) *domain.ScorePoint {
	return &domain.ScorePoint{
		ManifestHash:   manifestHash,
		WindowEndMS:    windowEndMS,
		WindowDays:     14,
		Score:          score,
		Method:         domain.MethodKDE,
		BaselineEvents: 5000,
		SampleEvents:   4800,
		ComputedAtMS:   windowEndMS + 25,
	}
}

func TestScoreTimeseriesStore_InsertBulkAndGetByManifest(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreTimeseriesStore(conn)
	ctx := context.Background()

	points := []*domain.ScorePoint{
		makeScorePoint("hash-a", 3000, 0.031),
		makeScorePoint("hash-a", 1000, 0.012),
		makeScorePoint("hash-a", 2000, 0.024),
		makeScorePoint("hash-b", 1500, 0.5),
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByManifest(ctx, "hash-a")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(1000), got[0].WindowEndMS)
	assert.Equal(t, int64(2000), got[1].WindowEndMS)
	assert.Equal(t, int64(3000), got[2].WindowEndMS)
	assert.Equal(t, 0.012, got[0].Score)
	assert.Equal(t, domain.MethodKDE, got[0].Method)
	assert.Equal(t, 14, got[0].WindowDays)
	assert.Equal(t, 5000, got[0].BaselineEvents)
}

func TestScoreTimeseriesStore_DuplicateInBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreTimeseriesStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ScorePoint{
		makeScorePoint("hash-dup", 1000, 0.01),
		makeScorePoint("hash-dup", 1000, 0.02),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestScoreTimeseriesStore_DuplicateAcrossBatches(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreTimeseriesStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.ScorePoint{makeScorePoint("hash-x", 1000, 0.01)}))

	err := store.InsertBulk(ctx, []*domain.ScorePoint{makeScorePoint("hash-x", 1000, 0.02)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestScoreTimeseriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreTimeseriesStore(conn)
	ctx := context.Background()

	var points []*domain.ScorePoint
	for _, end := range []int64{1000, 2000, 3000, 4000} {
		points = append(points, makeScorePoint("hash-r", end, 0.01))
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByTimeRange(ctx, "hash-r", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].WindowEndMS)
	assert.Equal(t, int64(3000), got[1].WindowEndMS)
}

func TestScoreTimeseriesStore_EmptyBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreTimeseriesStore(conn)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
