package config

import (
	"fmt"
	"strings"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every invalid field found in one pass.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version != Version {
		errs = append(errs, &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d, expected %d", c.Version, Version),
		})
	}

	if c.Dataset.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "dataset.path",
			Message: "must not be empty",
		})
	}
	if c.Dataset.ManifestPath == "" {
		errs = append(errs, &ValidationError{
			Field:   "dataset.manifest_path",
			Message: "must not be empty",
		})
	}

	if c.Replay.WindowDays <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "replay.window_days",
			Message: "must be positive",
		})
	}
	if c.Replay.SpeedMultiplier <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "replay.speed_multiplier",
			Message: "must be positive",
		})
	}
	if c.Replay.MaxEvents < 0 {
		errs = append(errs, &ValidationError{
			Field:   "replay.max_events",
			Message: "must not be negative",
		})
	}

	if err := c.Diagnostic.Params().Validate(); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "diagnostic",
			Message: err.Error(),
		})
	}

	if c.Calibration.SampleSize < 0 {
		errs = append(errs, &ValidationError{
			Field:   "calibration.sample_size",
			Message: "must not be negative",
		})
	}
	if c.Calibration.NumScores < 0 {
		errs = append(errs, &ValidationError{
			Field:   "calibration.num_scores",
			Message: "must not be negative",
		})
	}

	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, &ValidationError{
			Field:   "cache.ttl_seconds",
			Message: "must not be negative",
		})
	}

	if c.Feed.URL != "" && !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		errs = append(errs, &ValidationError{
			Field:   "feed.url",
			Message: "must use ws:// or wss:// scheme",
		})
	}
	if c.Feed.ReconnectDelayMS < 0 {
		errs = append(errs, &ValidationError{
			Field:   "feed.reconnect_delay_ms",
			Message: "must not be negative",
		})
	}

	if c.Server.ListenAddr == "" {
		errs = append(errs, &ValidationError{
			Field:   "server.listen_addr",
			Message: "must not be empty",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
