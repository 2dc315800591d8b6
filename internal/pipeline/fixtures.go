package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"driftlab/internal/datagen"
	"driftlab/internal/dataset"
	"driftlab/internal/domain"
	"driftlab/internal/manifest"
	"driftlab/internal/storage"
)

// Fixture dataset shape. Small enough for fast runs, dense enough that
// every 14-day window clears the default sufficiency thresholds.
const (
	fixtureSeed         = 7
	fixtureTransactions = 2400
	fixtureSKUs         = 40
	fixtureCustomers    = 120
)

// WriteFixtureDataset generates a deterministic synthetic dataset under dir
// and freezes it. Two months of activity from 2010-06-01. Returns the
// dataset path and its manifest.
func WriteFixtureDataset(dir string) (string, domain.Manifest, error) {
	cfg := datagen.Config{
		Seed:            fixtureSeed,
		NumTransactions: fixtureTransactions,
		NumSKUs:         fixtureSKUs,
		NumCustomers:    fixtureCustomers,
		StartMS:         time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		EndMS:           time.Date(2010, 8, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
	gen, err := datagen.New(cfg)
	if err != nil {
		return "", domain.Manifest{}, err
	}

	path := filepath.Join(dir, "fixture_retail.csv")
	if err := dataset.WriteFile(path, gen.Generate()); err != nil {
		return "", domain.Manifest{}, err
	}

	frozenAt := func() time.Time { return time.UnixMilli(cfg.EndMS).UTC() }
	m, err := manifest.NewFreezer().WithClock(frozenAt).Freeze(path, "")
	if err != nil {
		return "", domain.Manifest{}, err
	}

	return path, m, nil
}

// LoadFixtures populates stores with demonstration data: one frozen
// manifest, one diagnostic result and one calibrated threshold set.
func LoadFixtures(
	ctx context.Context,
	manifestStore storage.ManifestStore,
	resultStore storage.DiagnosticResultStore,
	thresholdStore storage.ThresholdStore,
) error {
	m := fixtureManifest()
	if err := manifestStore.Insert(ctx, m); err != nil {
		return err
	}
	if err := resultStore.Insert(ctx, fixtureResult(m.File.Hash)); err != nil {
		return err
	}
	if err := thresholdStore.Insert(ctx, fixtureThresholds(m.File.Hash)); err != nil {
		return err
	}
	return nil
}

func fixtureManifest() *domain.Manifest {
	return &domain.Manifest{
		Version:  domain.ManifestVersion,
		FrozenAt: time.Date(2010, 12, 10, 0, 0, 0, 0, time.UTC),
		File: domain.ManifestFile{
			Name:          "online_retail_II.csv",
			SizeBytes:     44524181,
			HashAlgorithm: domain.HashAlgorithmSHA256,
			Hash:          "b1946ac92492d2347c6235b4d2611184e3f3d0a2c2f06494e6f1c4f404c2b97a",
		},
		Source: domain.ManifestSource{URL: domain.SourceSyntheticURL, Type: domain.SourceTypeSynthetic},
		Schema: domain.ManifestSchema{
			Columns:   []string{"Invoice", "StockCode", "Description", "Quantity", "InvoiceDate", "Price", "Customer ID", "Country"},
			Validated: true,
		},
		Statistics: domain.DatasetStatistics{
			NumRecords:         525461,
			NumUniqueSKUs:      4631,
			NumUniqueCustomers: 4383,
			NumUniqueCountries: 40,
			DateRange: domain.DateRange{
				Start: time.Date(2009, 12, 1, 7, 45, 0, 0, time.UTC),
				End:   time.Date(2010, 12, 9, 20, 1, 0, 0, time.UTC),
			},
			PriceStats:    domain.ValueStats{Mean: 4.69, Stddev: 146.13, Min: 0.001, Max: 25111.09, Median: 2.10},
			QuantityStats: domain.ValueStats{Mean: 10.34, Stddev: 107.42, Min: 1, Max: 19152, Median: 3},
		},
	}
}

func fixtureResult(manifestHash string) *domain.DiagnosticResult {
	return &domain.DiagnosticResult{
		ResultID:     "9c3f1f62b2a44d14f4537fd371d39a2b76a8c2e5a0b93a9d2a1c758be3a40f11",
		ManifestHash: manifestHash,
		JSDScore:     0.0312,
		Method:       domain.MethodKDE,
		Calibration:  []float64{0.0118, 0.0195, 0.0241, 0.0287, 0.0355},
		Seed:         42,
		BaselineWindow: domain.WindowSummary{
			Label:     domain.WindowLabelBaseline,
			StartMS:   1289433600000, // 2010-11-11
			EndMS:     1290643200000, // 2010-11-25
			NumEvents: 18210,
		},
		SampleWindow: domain.WindowSummary{
			Label:     domain.WindowLabelSample,
			StartMS:   1290643200000, // 2010-11-25
			EndMS:     1291852800000, // 2010-12-09
			NumEvents: 19864,
		},
		Grid:         domain.GridSummary{Lo: 0.19, Hi: 12.75, NumBins: 256, LogTransform: true},
		ComputedAtMS: 1291982400000, // 2010-12-10 12:00
		ElapsedMS:    412,
	}
}

func fixtureThresholds(manifestHash string) *domain.ThresholdSet {
	return &domain.ThresholdSet{
		ManifestHash: manifestHash,
		Seed:         42,
		SampleSize:   5000,
		NumScores:    500,
		Mean:         0.0204,
		Stddev:       0.0051,
		Min:          0.0092,
		Max:          0.0455,
		P95:          0.0298,
		P99:          0.0391,
		ComputedAtMS: 1291982400000,
	}
}
