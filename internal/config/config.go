// Package config handles configuration loading and validation for driftlab.
package config

import (
	"os"
	"strconv"

	"driftlab/internal/diagnostic"
)

// Version is the current configuration schema version.
const Version = 1

// Config is the root configuration for all driftlab tools.
type Config struct {
	Version int `toml:"version" json:"version" yaml:"version"`

	Dataset     DatasetConfig     `toml:"dataset" json:"dataset" yaml:"dataset"`
	Replay      ReplayConfig      `toml:"replay" json:"replay" yaml:"replay"`
	Diagnostic  DiagnosticConfig  `toml:"diagnostic" json:"diagnostic" yaml:"diagnostic"`
	Calibration CalibrationConfig `toml:"calibration" json:"calibration" yaml:"calibration"`
	Storage     StorageConfig     `toml:"storage" json:"storage" yaml:"storage"`
	Cache       CacheConfig       `toml:"cache" json:"cache" yaml:"cache"`
	Feed        FeedConfig        `toml:"feed" json:"feed" yaml:"feed"`
	Server      ServerConfig      `toml:"server" json:"server" yaml:"server"`
}

// DatasetConfig locates the frozen dataset and its manifest.
type DatasetConfig struct {
	Path         string `toml:"path" json:"path" yaml:"path"`
	ManifestPath string `toml:"manifest_path" json:"manifest_path" yaml:"manifest_path"`
	SourceURL    string `toml:"source_url" json:"source_url" yaml:"source_url"`
}

// ReplayConfig controls event streaming.
type ReplayConfig struct {
	WindowDays      int     `toml:"window_days" json:"window_days" yaml:"window_days"`
	SpeedMultiplier float64 `toml:"speed_multiplier" json:"speed_multiplier" yaml:"speed_multiplier"`
	MaxEvents       int     `toml:"max_events" json:"max_events" yaml:"max_events"`
	VerifyHash      bool    `toml:"verify_hash" json:"verify_hash" yaml:"verify_hash"`
}

// DiagnosticConfig mirrors diagnostic.Params in file-friendly form.
type DiagnosticConfig struct {
	NumBins          int     `toml:"num_bins" json:"num_bins" yaml:"num_bins"`
	GridLoQuantile   float64 `toml:"grid_lo_quantile" json:"grid_lo_quantile" yaml:"grid_lo_quantile"`
	GridHiQuantile   float64 `toml:"grid_hi_quantile" json:"grid_hi_quantile" yaml:"grid_hi_quantile"`
	Bandwidth        float64 `toml:"bandwidth" json:"bandwidth" yaml:"bandwidth"`
	LogTransform     bool    `toml:"log_transform" json:"log_transform" yaml:"log_transform"`
	ForceHistogram   bool    `toml:"force_histogram" json:"force_histogram" yaml:"force_histogram"`
	DegenerateStddev float64 `toml:"degenerate_stddev" json:"degenerate_stddev" yaml:"degenerate_stddev"`
	BootstrapSamples int     `toml:"bootstrap_samples" json:"bootstrap_samples" yaml:"bootstrap_samples"`
	Seed             int64   `toml:"seed" json:"seed" yaml:"seed"`
	Parallelism      int     `toml:"parallelism" json:"parallelism" yaml:"parallelism"`
	PerSegment       bool    `toml:"per_segment" json:"per_segment" yaml:"per_segment"`
	MinSegmentEvents int     `toml:"min_segment_events" json:"min_segment_events" yaml:"min_segment_events"`
}

// Params converts the section into engine parameters.
func (c DiagnosticConfig) Params() diagnostic.Params {
	return diagnostic.Params{
		NumBins:          c.NumBins,
		GridLoQuantile:   c.GridLoQuantile,
		GridHiQuantile:   c.GridHiQuantile,
		Bandwidth:        c.Bandwidth,
		LogTransform:     c.LogTransform,
		ForceHistogram:   c.ForceHistogram,
		DegenerateStddev: c.DegenerateStddev,
		BootstrapSamples: c.BootstrapSamples,
		Seed:             c.Seed,
		Parallelism:      c.Parallelism,
		PerSegment:       c.PerSegment,
		MinSegmentEvents: c.MinSegmentEvents,
	}
}

// CalibrationConfig controls threshold computation.
type CalibrationConfig struct {
	SampleSize int `toml:"sample_size" json:"sample_size" yaml:"sample_size"`
	NumScores  int `toml:"num_scores" json:"num_scores" yaml:"num_scores"`
}

// StorageConfig carries backend DSNs. Empty DSNs select in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `toml:"postgres_dsn" json:"postgres_dsn" yaml:"postgres_dsn"`
	ClickHouseDSN string `toml:"clickhouse_dsn" json:"clickhouse_dsn" yaml:"clickhouse_dsn"`
}

// CacheConfig configures the Redis result cache. Empty Addr disables it.
type CacheConfig struct {
	Addr       string `toml:"addr" json:"addr" yaml:"addr"`
	Password   string `toml:"password" json:"password" yaml:"password"`
	DB         int    `toml:"db" json:"db" yaml:"db"`
	TTLSeconds int    `toml:"ttl_seconds" json:"ttl_seconds" yaml:"ttl_seconds"`
}

// FeedConfig configures the websocket event feed.
type FeedConfig struct {
	URL              string `toml:"url" json:"url" yaml:"url"`
	ReconnectDelayMS int    `toml:"reconnect_delay_ms" json:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
	PingIntervalSec  int    `toml:"ping_interval_sec" json:"ping_interval_sec" yaml:"ping_interval_sec"`
}

// ServerConfig configures the HTTP diagnostics server.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr" json:"listen_addr" yaml:"listen_addr"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Dataset: DatasetConfig{
			Path:         "data/raw/online_retail_II.csv",
			ManifestPath: "data/baselines/manifest.json",
		},
		Replay: ReplayConfig{
			WindowDays:      14,
			SpeedMultiplier: 1.0,
			VerifyHash:      true,
		},
		Diagnostic: DiagnosticConfig{
			NumBins:          diagnostic.DefaultNumBins,
			GridLoQuantile:   diagnostic.DefaultGridLoQuantile,
			GridHiQuantile:   diagnostic.DefaultGridHiQuantile,
			LogTransform:     true,
			DegenerateStddev: diagnostic.DefaultDegenerateStddev,
			BootstrapSamples: diagnostic.DefaultBootstrapSamples,
			Seed:             42,
			Parallelism:      diagnostic.DefaultParallelism,
			MinSegmentEvents: diagnostic.DefaultMinSegmentEvents,
		},
		Calibration: CalibrationConfig{
			NumScores: 200,
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
		Feed: FeedConfig{
			ReconnectDelayMS: 1000,
			PingIntervalSec:  30,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// ApplyEnvOverrides lets deployment environments override file values.
func (c *Config) ApplyEnvOverrides() {
	// Dataset overrides
	if v := os.Getenv("DRIFTLAB_DATASET_PATH"); v != "" {
		c.Dataset.Path = v
	}
	if v := os.Getenv("DRIFTLAB_MANIFEST_PATH"); v != "" {
		c.Dataset.ManifestPath = v
	}

	// Storage overrides
	if v := os.Getenv("DRIFTLAB_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("DRIFTLAB_CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouseDSN = v
	}

	// Cache overrides
	if v := os.Getenv("DRIFTLAB_REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
	}

	// Feed override
	if v := os.Getenv("DRIFTLAB_FEED_URL"); v != "" {
		c.Feed.URL = v
	}

	// Server override
	if v := os.Getenv("DRIFTLAB_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}

	// Diagnostic overrides
	if v := os.Getenv("DRIFTLAB_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Diagnostic.Seed = seed
		}
	}
	if v := os.Getenv("DRIFTLAB_WINDOW_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Replay.WindowDays = days
		}
	}
}
