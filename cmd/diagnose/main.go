// Package main runs one end-to-end drift diagnostic: verify the dataset,
// extract baseline and sample windows (or inject a scenario), score, persist
// and write the report pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driftlab/internal/config"
	"driftlab/internal/domain"
	"driftlab/internal/manifest"
	"driftlab/internal/observability"
	"driftlab/internal/pipeline"
	"driftlab/internal/storage"
	"driftlab/internal/storage/memory"
	"driftlab/internal/storage/migrations"
	pgstore "driftlab/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults, config file for the rest)
	configPath := flag.String("config", os.Getenv("DRIFTLAB_CONFIG"), "Configuration file (TOML, JSON or YAML)")
	datasetPath := flag.String("dataset", "", "Dataset CSV (overrides config)")
	manifestPath := flag.String("manifest", "", "Manifest JSON path (overrides config)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated reports")
	windowDays := flag.Int("window-days", 0, "Window length in days (overrides config)")
	baselineEnd := flag.String("baseline-end", "", "Baseline window end, exclusive (RFC3339, required)")
	sampleEnd := flag.String("sample-end", "", "Sample window end, exclusive (RFC3339, required)")
	scenarioName := flag.String("scenario", "", "Inject this scenario at the sample end instead of extracting the sample window")
	scenarioSeed := flag.Int64("scenario-seed", 42, "Scenario seed")
	calibrate := flag.Bool("calibrate", true, "Run null calibration before the verdict")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	flag.Parse()

	// Setup structured logger
	logger := log.New(os.Stderr, "[diagnose] ", log.LstdFlags)

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
	if *postgresDSN == "" {
		*postgresDSN = cfg.Storage.PostgresDSN
	}

	// Validate required flags
	if *baselineEnd == "" || *sampleEnd == "" {
		logger.Fatal("--baseline-end and --sample-end are required")
	}
	baselineEndMS := parseTimeFlag(logger, "baseline-end", *baselineEnd)
	sampleEndMS := parseTimeFlag(logger, "sample-end", *sampleEnd)

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

	// Create stores
	stores, cleanup, err := createStores(ctx, logger, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	req := pipeline.Request{
		DatasetPath:           *datasetPath,
		Manifest:              m,
		VerifyHash:            cfg.Replay.VerifyHash,
		WindowDays:            *windowDays,
		BaselineEndMS:         baselineEndMS,
		SampleEndMS:           sampleEndMS,
		Calibrate:             *calibrate,
		CalibrationSampleSize: cfg.Calibration.SampleSize,
		CalibrationNumScores:  cfg.Calibration.NumScores,
	}
	if *scenarioName != "" {
		req.Scenario = &domain.ScenarioSpec{
			Name:            *scenarioName,
			BaseTimestampMS: sampleEndMS,
			Seed:            *scenarioSeed,
		}
		logger.Printf("Scenario %s will replace the sample window", *scenarioName)
	}

	p := pipeline.NewPipeline(stores.manifests, stores.results, stores.thresholds, cfg.Diagnostic.Params(), *outputDir)

	start := time.Now()
	outcome, err := p.Run(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordPipelineRun("diagnose", "error", elapsed.Seconds())
		logger.Fatalf("diagnostic failed: %v", err)
	}
	observability.RecordPipelineRun("diagnose", "success", elapsed.Seconds())

	// Output summary
	fmt.Printf("\n=== Diagnostic Summary ===\n")
	fmt.Printf("Verdict:    %s\n", outcome.Verdict)
	if outcome.Gated {
		fmt.Printf("Gated:      data sufficiency checks failed\n")
		for _, check := range outcome.Sufficiency.Checks {
			if !check.Pass {
				fmt.Printf("  FAIL %s: %s (threshold %s)\n", check.Name, check.Actual, check.Threshold)
			}
		}
	} else {
		fmt.Printf("Score:      %.6f\n", outcome.Result.JSDScore)
		fmt.Printf("Method:     %s\n", outcome.Result.Method)
		fmt.Printf("Result ID:  %s\n", outcome.Result.ResultID)
		fmt.Printf("Windows:    baseline %d events, sample %d events\n",
			outcome.Result.BaselineWindow.NumEvents, outcome.Result.SampleWindow.NumEvents)
	}
	fmt.Printf("Elapsed:    %v\n", elapsed.Round(time.Millisecond))

	fmt.Printf("\nGenerated files:\n")
	for _, f := range outcome.OutputFiles {
		fmt.Printf("  - %s\n", f)
	}
}

// parseTimeFlag parses an RFC3339 flag value into Unix milliseconds.
func parseTimeFlag(logger *log.Logger, name, value string) int64 {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		logger.Fatalf("parse %s: %v", name, err)
	}
	return t.UnixMilli()
}

// diagStores holds the stores a diagnostic run persists into.
type diagStores struct {
	manifests  storage.ManifestStore
	results    storage.DiagnosticResultStore
	thresholds storage.ThresholdStore
}

// createStores selects postgres or in-memory stores and returns a cleanup
// function releasing whatever was opened.
func createStores(ctx context.Context, logger *log.Logger, postgresDSN string, useMemory bool) (*diagStores, func(), error) {
	if useMemory || postgresDSN == "" {
		return &diagStores{
			manifests:  memory.NewManifestStore(),
			results:    memory.NewDiagnosticResultStore(),
			thresholds: memory.NewThresholdStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Printf("Using postgres stores")

	return &diagStores{
		manifests:  pgstore.NewManifestStore(pool),
		results:    pgstore.NewDiagnosticResultStore(pool),
		thresholds: pgstore.NewThresholdStore(pool),
	}, pool.Close, nil
}
