package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"driftlab/internal/domain"
	"driftlab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	manifestStore   storage.ManifestStore
	resultStore     storage.DiagnosticResultStore
	thresholdStore  storage.ThresholdStore
	timeseriesStore storage.ScoreTimeseriesStore // optional, enables the history section
	now             func() time.Time             // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	manifestStore storage.ManifestStore,
	resultStore storage.DiagnosticResultStore,
	thresholdStore storage.ThresholdStore,
) *Generator {
	return &Generator{
		manifestStore:  manifestStore,
		resultStore:    resultStore,
		thresholdStore: thresholdStore,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithTimeseries adds a score timeseries store so generated reports carry
// the manifest's score history.
func (g *Generator) WithTimeseries(store storage.ScoreTimeseriesStore) *Generator {
	g.timeseriesStore = store
	return g
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for the latest diagnostic result of a manifest.
// A manifest with no stored results yields a report with a nil Result; a
// manifest with no calibration yields a nil Thresholds. Only a missing
// manifest is an error.
func (g *Generator) Generate(ctx context.Context, manifestHash string) (*Report, error) {
	m, err := g.manifestStore.GetByHash(ctx, manifestHash)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	// Results are ordered by computed_at ascending; the latest is last.
	results, err := g.resultStore.GetByManifest(ctx, manifestHash)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	var latest *domain.DiagnosticResult
	if len(results) > 0 {
		latest = results[len(results)-1]
	}

	thresholds, err := g.thresholdStore.GetLatest(ctx, manifestHash)
	if errors.Is(err, storage.ErrNotFound) {
		thresholds = nil
	} else if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Dataset:     datasetSection(m),
		Result:      latest,
		Thresholds:  thresholds,
		Verdict:     VerdictPending,
	}

	if g.timeseriesStore != nil {
		points, err := g.timeseriesStore.GetByManifest(ctx, manifestHash)
		if err != nil {
			return nil, fmt.Errorf("load score history: %w", err)
		}
		report.History = points
	}

	return report, nil
}

func datasetSection(m *domain.Manifest) DatasetSection {
	return DatasetSection{
		ManifestHash:       m.File.Hash,
		FileName:           m.File.Name,
		SizeBytes:          m.File.SizeBytes,
		SourceType:         string(m.Source.Type),
		FrozenAt:           m.FrozenAt,
		NumRecords:         m.Statistics.NumRecords,
		NumUniqueSKUs:      m.Statistics.NumUniqueSKUs,
		NumUniqueCustomers: m.Statistics.NumUniqueCustomers,
		NumUniqueCountries: m.Statistics.NumUniqueCountries,
		DateRangeStart:     m.Statistics.DateRange.Start,
		DateRangeEnd:       m.Statistics.DateRange.End,
	}
}
