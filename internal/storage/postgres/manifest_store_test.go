package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

func makeManifest(hash string, frozenAt time.Time) *domain.Manifest {
	return &domain.Manifest{
		Version:  domain.ManifestVersion,
		FrozenAt: frozenAt,
		File: domain.ManifestFile{
			Name:          "online_retail_II.csv",
			SizeBytes:     43_867_112,
			HashAlgorithm: domain.HashAlgorithmSHA256,
			Hash:          hash,
		},
		Source: domain.ManifestSource{
			URL:  domain.SourceSyntheticURL,
			Type: domain.SourceTypeSynthetic,
		},
		Schema: domain.ManifestSchema{
			Columns: []string{
				"Invoice", "StockCode", "Description", "Quantity",
				"InvoiceDate", "Price", "Customer ID", "Country",
			},
			Validated: true,
		},
		Statistics: domain.DatasetStatistics{
			NumRecords:         50_000,
			NumUniqueSKUs:      500,
			NumUniqueCustomers: 2_000,
			NumUniqueCountries: 10,
			DateRange: domain.DateRange{
				Start: time.Date(2009, 12, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2010, 12, 9, 0, 0, 0, 0, time.UTC),
			},
			PriceStats:    domain.ValueStats{Mean: 4.61, Stddev: 3.2, Min: 0.25, Max: 100, Median: 3.75},
			QuantityStats: domain.ValueStats{Mean: 3.1, Stddev: 4.4, Min: 1, Max: 24, Median: 2},
		},
	}
}

func TestManifestStore_InsertAndGetByHash(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewManifestStore(pool)
	ctx := context.Background()

	m := makeManifest("deadbeef01", time.Date(2010, 1, 15, 12, 0, 0, 0, time.UTC))
	err := store.Insert(ctx, m)
	require.NoError(t, err)

	got, err := store.GetByHash(ctx, "deadbeef01")
	require.NoError(t, err)

	assert.Equal(t, m.File.Hash, got.File.Hash)
	assert.Equal(t, m.File.Name, got.File.Name)
	assert.Equal(t, m.File.SizeBytes, got.File.SizeBytes)
	assert.Equal(t, m.Source.Type, got.Source.Type)
	assert.Equal(t, m.Schema.Columns, got.Schema.Columns)
	assert.True(t, got.Schema.Validated)
	assert.Equal(t, m.Statistics.NumRecords, got.Statistics.NumRecords)
	assert.Equal(t, m.Statistics.PriceStats.Mean, got.Statistics.PriceStats.Mean)
	assert.True(t, m.FrozenAt.Equal(got.FrozenAt))
	assert.Nil(t, got.Publisher)
}

func TestManifestStore_PublisherRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewManifestStore(pool)
	ctx := context.Background()

	m := makeManifest("deadbeef02", time.Date(2010, 1, 15, 12, 0, 0, 0, time.UTC))
	m.Publisher = &domain.ManifestPublisher{
		PublicKey: "4Nd1mY5yGqCount1ngSt4rs",
		Signature: "aabbccdd",
	}
	require.NoError(t, store.Insert(ctx, m))

	got, err := store.GetByHash(ctx, "deadbeef02")
	require.NoError(t, err)
	require.NotNil(t, got.Publisher)
	assert.Equal(t, m.Publisher.PublicKey, got.Publisher.PublicKey)
	assert.Equal(t, m.Publisher.Signature, got.Publisher.Signature)
}

func TestManifestStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewManifestStore(pool)
	ctx := context.Background()

	m := makeManifest("deadbeef03", time.Date(2010, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, m))

	err := store.Insert(ctx, m)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestManifestStore_GetByHashNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewManifestStore(pool)

	_, err := store.GetByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestManifestStore_GetLatestAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewManifestStore(pool)
	ctx := context.Background()

	older := makeManifest("hash-old", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := makeManifest("hash-new", time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, newer))
	require.NoError(t, store.Insert(ctx, older))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash-new", latest.File.Hash)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hash-old", list[0].File.Hash)
	assert.Equal(t, "hash-new", list[1].File.Hash)
}
