package domain

import "time"

// ManifestVersion is the current manifest format version.
const ManifestVersion = "1.0.0"

// HashAlgorithmSHA256 is the only supported digest algorithm.
const HashAlgorithmSHA256 = "sha256"

// SourceSyntheticURL marks a dataset that was generated rather than acquired.
const SourceSyntheticURL = "SYNTHETIC_DATA"

// Manifest is the immutable record describing a frozen dataset. Created once
// by the freeze operation and never mutated; a changed dataset gets a new
// manifest, it never edits an old one.
type Manifest struct {
	Version    string             `json:"version"`
	FrozenAt   time.Time          `json:"frozen_at"`
	File       ManifestFile       `json:"file"`
	Source     ManifestSource     `json:"source"`
	Schema     ManifestSchema     `json:"schema"`
	Statistics DatasetStatistics  `json:"statistics"`
	Publisher  *ManifestPublisher `json:"publisher,omitempty"`
}

// ManifestFile identifies the frozen file and its digest.
type ManifestFile struct {
	Name          string `json:"name"`
	SizeBytes     int64  `json:"size_bytes"`
	HashAlgorithm string `json:"hash_algorithm"` // always "sha256"
	Hash          string `json:"hash"`           // hex-encoded, 64 characters
}

// ManifestSource records where the dataset came from.
type ManifestSource struct {
	URL  string     `json:"url"`  // acquisition URL, or "SYNTHETIC_DATA"
	Type SourceType `json:"type"` // "synthetic" | "real"
}

// ManifestSchema records the validated column list.
type ManifestSchema struct {
	Columns   []string `json:"columns"`
	Validated bool     `json:"validated"`
}

// ManifestPublisher carries an optional detached signature over the manifest
// payload. PublicKey is base58-encoded ed25519; Signature is hex-encoded.
type ManifestPublisher struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// DatasetStatistics is the statistical fingerprint of a frozen dataset.
type DatasetStatistics struct {
	NumRecords         int        `json:"num_records"`
	NumUniqueSKUs      int        `json:"num_unique_skus"`
	NumUniqueCustomers int        `json:"num_unique_customers"`
	NumUniqueCountries int        `json:"num_unique_countries"`
	DateRange          DateRange  `json:"date_range"`
	PriceStats         ValueStats `json:"price_stats"`
	QuantityStats      ValueStats `json:"quantity_stats"`
}

// DateRange is the [earliest, latest] invoice timestamp span of a dataset.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ValueStats summarizes a numeric column's distribution.
type ValueStats struct {
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}
