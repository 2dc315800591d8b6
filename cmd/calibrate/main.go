// Package main builds the null calibration distribution for a frozen
// baseline window: resample the baseline against itself, summarize the score
// spread into thresholds, and optionally persist thresholds (postgres),
// raw samples (clickhouse) or a CSV export.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driftlab/internal/calibration"
	"driftlab/internal/config"
	"driftlab/internal/diagnostic"
	"driftlab/internal/domain"
	"driftlab/internal/manifest"
	"driftlab/internal/observability"
	"driftlab/internal/replay"
	"driftlab/internal/reporting"
	"driftlab/internal/storage"
	chstore "driftlab/internal/storage/clickhouse"
	"driftlab/internal/storage/migrations"
	pgstore "driftlab/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults, config file for the rest)
	configPath := flag.String("config", os.Getenv("DRIFTLAB_CONFIG"), "Configuration file (TOML, JSON or YAML)")
	datasetPath := flag.String("dataset", "", "Dataset CSV (overrides config)")
	manifestPath := flag.String("manifest", "", "Manifest JSON path (overrides config)")
	baselineEnd := flag.String("baseline-end", "", "Baseline window end, exclusive (RFC3339, required)")
	windowDays := flag.Int("window-days", 0, "Window length in days (overrides config)")
	sampleSize := flag.Int("sample-size", 0, "Events per resample (0 = config, then baseline size)")
	numScores := flag.Int("num-scores", 0, "Null distribution size (0 = config default)")
	seed := flag.Int64("seed", 0, "Diagnostic seed (0 = config value)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for the threshold registry (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for calibration samples (overrides config)")
	csvPath := flag.String("csv", "", "Write the null score distribution to this CSV file")
	outputJSON := flag.Bool("json", false, "Output the threshold set as JSON")

	flag.Parse()

	// Setup structured logger
	logger := log.New(os.Stderr, "[calibrate] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *datasetPath == "" {
		*datasetPath = cfg.Dataset.Path
	}
	if *manifestPath == "" {
		*manifestPath = cfg.Dataset.ManifestPath
	}
	if *windowDays == 0 {
		*windowDays = cfg.Replay.WindowDays
	}
	if *sampleSize == 0 {
		*sampleSize = cfg.Calibration.SampleSize
	}
	if *numScores == 0 {
		*numScores = cfg.Calibration.NumScores
	}
	if *postgresDSN == "" {
		*postgresDSN = cfg.Storage.PostgresDSN
	}
	if *clickhouseDSN == "" {
		*clickhouseDSN = cfg.Storage.ClickHouseDSN
	}

	// Validate required flags
	if *baselineEnd == "" {
		logger.Fatal("--baseline-end is required")
	}
	endTime, err := time.Parse(time.RFC3339, *baselineEnd)
	if err != nil {
		logger.Fatalf("parse baseline-end: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run...", sig)
		cancel()
	}()

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		logger.Fatalf("load manifest: %v", err)
	}

	eng, err := replay.Open(*datasetPath, m, cfg.Replay.VerifyHash)
	if err != nil {
		logger.Fatalf("open dataset: %v", err)
	}

	baseline, err := eng.Window(endTime.UnixMilli(), *windowDays)
	if err != nil {
		logger.Fatalf("extract baseline window: %v", err)
	}
	baseline.Label = domain.WindowLabelBaseline
	logger.Printf("Baseline window holds %d events", baseline.Len())

	params := cfg.Diagnostic.Params()
	if *seed != 0 {
		params.Seed = *seed
	}
	diag, err := diagnostic.New(params)
	if err != nil {
		logger.Fatalf("configure diagnostic engine: %v", err)
	}

	start := time.Now()
	ts, scores, err := calibration.NewRunner(diag).RunWithScores(ctx, baseline, *sampleSize, *numScores)
	if err != nil {
		logger.Fatalf("calibration failed: %v", err)
	}
	ts.ManifestHash = m.File.Hash
	observability.RecordCalibrationRun(len(scores))

	if *postgresDSN != "" {
		if err := storeThresholds(ctx, logger, *postgresDSN, ts); err != nil {
			logger.Fatalf("store thresholds: %v", err)
		}
	}
	if *clickhouseDSN != "" {
		if err := storeSamples(ctx, logger, *clickhouseDSN, ts, scores); err != nil {
			logger.Fatalf("store calibration samples: %v", err)
		}
	}
	if *csvPath != "" {
		if err := os.WriteFile(*csvPath, []byte(reporting.RenderCalibrationCSV(scores)), 0644); err != nil {
			logger.Fatalf("write csv: %v", err)
		}
		logger.Printf("Wrote %d scores to %s", len(scores), *csvPath)
	}

	// Output summary
	if *outputJSON {
		out, _ := json.MarshalIndent(ts, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Calibration Summary ===\n")
	fmt.Printf("Manifest:  %s\n", ts.ManifestHash)
	fmt.Printf("Window:    %s to %s (%d events)\n",
		time.UnixMilli(baseline.StartMS).UTC().Format(time.RFC3339),
		time.UnixMilli(baseline.EndMS).UTC().Format(time.RFC3339),
		baseline.Len())
	fmt.Printf("Scores:    %d (sample size %d, seed %d)\n", ts.NumScores, ts.SampleSize, ts.Seed)
	fmt.Printf("Mean:      %.6f\n", ts.Mean)
	fmt.Printf("Stddev:    %.6f\n", ts.Stddev)
	fmt.Printf("P95:       %.6f\n", ts.P95)
	fmt.Printf("P99:       %.6f\n", ts.P99)
	fmt.Printf("Range:     [%.6f, %.6f]\n", ts.Min, ts.Max)
	fmt.Printf("Elapsed:   %v\n", time.Since(start).Round(time.Millisecond))
}

// storeThresholds registers the threshold set in postgres. Rerunning the
// same calibration is fine; the existing row wins.
func storeThresholds(ctx context.Context, logger *log.Logger, dsn string, ts *domain.ThresholdSet) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	err = pgstore.NewThresholdStore(pool).Insert(ctx, ts)
	if errors.Is(err, storage.ErrDuplicateKey) {
		logger.Printf("Thresholds already stored for this (manifest, seed, sample size)")
		return nil
	}
	if err == nil {
		logger.Printf("Stored thresholds in postgres")
	}
	return err
}

// storeSamples writes the raw null distribution into clickhouse, one row per
// resample index.
func storeSamples(ctx context.Context, logger *log.Logger, dsn string, ts *domain.ThresholdSet, scores []float64) error {
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	defer conn.Close()

	samples := make([]*domain.CalibrationSample, len(scores))
	for i, score := range scores {
		samples[i] = &domain.CalibrationSample{
			ManifestHash: ts.ManifestHash,
			Seed:         ts.Seed,
			SampleIndex:  i,
			Score:        score,
			ComputedAtMS: ts.ComputedAtMS,
		}
	}

	err = chstore.NewCalibrationSampleStore(conn).InsertBulk(ctx, samples)
	if errors.Is(err, storage.ErrDuplicateKey) {
		logger.Printf("Samples already stored for this (manifest, seed)")
		return nil
	}
	if err == nil {
		logger.Printf("Stored %d samples in clickhouse", len(samples))
	}
	return err
}
