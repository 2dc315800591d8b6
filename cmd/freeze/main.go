// Package main freezes a dataset into an immutable manifest: SHA256 digest,
// validated schema, summary statistics, optional ed25519 publisher signature,
// optional registration in the postgres manifest registry.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"driftlab/internal/domain"
	"driftlab/internal/idhash"
	"driftlab/internal/manifest"
	"driftlab/internal/storage"
	"driftlab/internal/storage/migrations"
	pgstore "driftlab/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults)
	datasetPath := flag.String("dataset", "", "Dataset CSV to freeze (required)")
	output := flag.String("output", "data/baselines/manifest.json", "Manifest output path")
	sourceURL := flag.String("source-url", "", "Dataset acquisition URL (empty means synthetic)")
	signKey := flag.String("sign-key", "", "File holding a hex-encoded ed25519 seed; signs the manifest when set")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("DRIFTLAB_POSTGRES_DSN"), "PostgreSQL connection string for the manifest registry")
	outputJSON := flag.Bool("json", false, "Print the manifest JSON to stdout")

	flag.Parse()

	// Setup structured logger
	logger := log.New(os.Stderr, "[freeze] ", log.LstdFlags)

	// Validate required flags
	if *datasetPath == "" {
		logger.Fatal("--dataset is required")
	}

	start := time.Now()
	m, err := manifest.NewFreezer().Freeze(*datasetPath, *sourceURL)
	if err != nil {
		logger.Fatalf("freeze failed: %v", err)
	}

	if *signKey != "" {
		priv, err := loadSigningKey(*signKey)
		if err != nil {
			logger.Fatalf("load signing key: %v", err)
		}
		if err := manifest.Sign(&m, priv); err != nil {
			logger.Fatalf("sign manifest: %v", err)
		}
		logger.Printf("Signed manifest with publisher key %s", m.Publisher.PublicKey)
	}

	if dir := filepath.Dir(*output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatalf("create output directory: %v", err)
		}
	}
	if err := manifest.Save(*output, m); err != nil {
		logger.Fatalf("save manifest: %v", err)
	}

	if *postgresDSN != "" {
		if err := registerManifest(context.Background(), *postgresDSN, &m); err != nil {
			logger.Fatalf("register manifest: %v", err)
		}
		logger.Printf("Registered manifest %s in postgres", idhash.ShortID(m.File.Hash))
	}

	// Output summary
	if *outputJSON {
		out, _ := json.MarshalIndent(m, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Freeze Summary ===\n")
	fmt.Printf("Dataset:     %s\n", *datasetPath)
	fmt.Printf("Manifest:    %s\n", *output)
	fmt.Printf("Hash:        %s\n", m.File.Hash)
	fmt.Printf("Size:        %d bytes\n", m.File.SizeBytes)
	fmt.Printf("Records:     %d\n", m.Statistics.NumRecords)
	fmt.Printf("Date Range:  %s to %s\n",
		m.Statistics.DateRange.Start.Format(time.RFC3339),
		m.Statistics.DateRange.End.Format(time.RFC3339))
	fmt.Printf("Source:      %s\n", m.Source.URL)
	fmt.Printf("Signed:      %v\n", m.Publisher != nil)
	fmt.Printf("Elapsed:     %v\n", time.Since(start).Round(time.Millisecond))
}

// loadSigningKey reads a hex ed25519 seed from a key file.
func loadSigningKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode hex seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// registerManifest inserts the manifest into the postgres registry. A
// duplicate hash means the same bytes were frozen before, which is fine.
func registerManifest(ctx context.Context, dsn string, m *domain.Manifest) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	err = pgstore.NewManifestStore(pool).Insert(ctx, m)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}
