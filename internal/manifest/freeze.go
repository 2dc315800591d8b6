package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"driftlab/internal/dataset"
	"driftlab/internal/domain"
	"driftlab/internal/schema"
)

// Freezer produces immutable manifests for dataset files.
type Freezer struct {
	now func() time.Time
}

// NewFreezer creates a freezer stamping manifests with wall-clock time.
func NewFreezer() *Freezer {
	return &Freezer{now: time.Now}
}

// WithClock overrides the freeze timestamp source (for deterministic tests).
func (f *Freezer) WithClock(now func() time.Time) *Freezer {
	f.now = now
	return f
}

// Freeze reads the dataset file, computes its SHA256 digest over the exact
// raw bytes, validates the header against the required schema and returns a
// manifest with summary statistics. sourceURL identifies where the dataset
// was acquired; empty means synthetic. The manifest is not written anywhere;
// persisting it is the caller's concern.
//
// A header missing required columns fails with *schema.ValidationError.
func (f *Freezer) Freeze(path string, sourceURL string) (domain.Manifest, error) {
	hash, size, err := HashFile(path)
	if err != nil {
		return domain.Manifest{}, err
	}

	txns, err := dataset.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, err
	}

	stats := ComputeStatistics(txns)

	url := sourceURL
	if url == "" {
		url = domain.SourceSyntheticURL
	}

	return domain.Manifest{
		Version:  domain.ManifestVersion,
		FrozenAt: f.now().UTC().Truncate(time.Millisecond),
		File: domain.ManifestFile{
			Name:          filepath.Base(path),
			SizeBytes:     size,
			HashAlgorithm: domain.HashAlgorithmSHA256,
			Hash:          hash,
		},
		Source: domain.ManifestSource{
			URL:  url,
			Type: domain.SourceFromURL(url),
		},
		Schema: domain.ManifestSchema{
			Columns:   append([]string(nil), schema.RequiredColumns...),
			Validated: true,
		},
		Statistics: stats,
	}, nil
}

// HashFile computes the SHA256 digest of a file's raw bytes, streamed so
// large files never load fully into memory. Hashing raw bytes (never a
// parsed re-serialization) is what makes whitespace, line-ending, and
// encoding differences detectable. Returns the hex digest and file size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}
