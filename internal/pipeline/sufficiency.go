package pipeline

import (
	"fmt"
	"time"

	"driftlab/internal/domain"
	"driftlab/internal/replay"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// Default sufficiency thresholds.
const (
	DefaultMinDatasetEvents = 100
	DefaultMinWindowEvents  = 30
)

// maxDivergenceErrors caps how many replay divergences are itemized as
// integrity errors. The check fails on the first one either way.
const maxDivergenceErrors = 5

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all 5 checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyChecker validates data sufficiency before a diagnostic run.
// A score computed from too few events is noise; the checker turns that
// judgement into named pass/fail rows instead of a silent bad number.
type SufficiencyChecker struct {
	minDatasetEvents int
	minWindowEvents  int
	checkDeterminism bool
}

// NewSufficiencyChecker creates a checker with the default thresholds.
func NewSufficiencyChecker() *SufficiencyChecker {
	return &SufficiencyChecker{
		minDatasetEvents: DefaultMinDatasetEvents,
		minWindowEvents:  DefaultMinWindowEvents,
		checkDeterminism: true,
	}
}

// WithMinDatasetEvents overrides the dataset event minimum.
func (c *SufficiencyChecker) WithMinDatasetEvents(n int) *SufficiencyChecker {
	c.minDatasetEvents = n
	return c
}

// WithMinWindowEvents overrides the per-window event minimum.
func (c *SufficiencyChecker) WithMinWindowEvents(n int) *SufficiencyChecker {
	c.minWindowEvents = n
	return c
}

// WithDeterminismCheck toggles the replay determinism check. It re-reads
// the dataset twice, which large files may want to skip.
func (c *SufficiencyChecker) WithDeterminismCheck(enabled bool) *SufficiencyChecker {
	c.checkDeterminism = enabled
	return c
}

// Check performs all 5 sufficiency checks against an opened engine and the
// two comparison windows.
func (c *SufficiencyChecker) Check(eng *replay.Engine, baseline, sample domain.Window) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 5),
		AllPass: true,
		Errors:  []string{},
	}

	// Check 1: total dataset events
	check1 := c.checkDatasetEvents(eng)
	result.Checks = append(result.Checks, check1)
	if !check1.Pass {
		result.AllPass = false
	}

	// Check 2: dataset coverage spans both windows
	check2 := c.checkDatasetCoverage(eng, baseline)
	result.Checks = append(result.Checks, check2)
	if !check2.Pass {
		result.AllPass = false
	}

	// Check 3: baseline window events
	check3 := c.checkWindowEvents("Baseline window events", baseline)
	result.Checks = append(result.Checks, check3)
	if !check3.Pass {
		result.AllPass = false
	}

	// Check 4: sample window events
	check4 := c.checkWindowEvents("Sample window events", sample)
	result.Checks = append(result.Checks, check4)
	if !check4.Pass {
		result.AllPass = false
	}

	// Check 5: replay determinism (two replays emit identical sequences)
	if c.checkDeterminism {
		check5, divergenceErrors := c.checkReplayDeterminism(eng)
		result.Checks = append(result.Checks, check5)
		if !check5.Pass {
			result.AllPass = false
			result.Errors = append(result.Errors, divergenceErrors...)
		}
	}

	return result
}

// checkDatasetEvents: loaded events >= minimum.
func (c *SufficiencyChecker) checkDatasetEvents(eng *replay.Engine) SufficiencyCheck {
	count := eng.Len()
	return SufficiencyCheck{
		Name:      "Dataset events",
		Threshold: fmt.Sprintf(">= %d", c.minDatasetEvents),
		Actual:    fmt.Sprintf("%d", count),
		Pass:      count >= c.minDatasetEvents,
	}
}

// checkDatasetCoverage: the manifest date range must span at least two
// window lengths, otherwise baseline and sample cannot both be filled.
func (c *SufficiencyChecker) checkDatasetCoverage(eng *replay.Engine, baseline domain.Window) SufficiencyCheck {
	windowDays := int((baseline.EndMS - baseline.StartMS) / msPerDay)
	requiredDays := 2 * windowDays

	stats := eng.Manifest().Statistics
	coverageDays := stats.DateRange.End.Sub(stats.DateRange.Start).Hours() / 24

	return SufficiencyCheck{
		Name:      "Dataset coverage",
		Threshold: fmt.Sprintf(">= %d days", requiredDays),
		Actual:    fmt.Sprintf("%.1f days", coverageDays),
		Pass:      coverageDays >= float64(requiredDays),
	}
}

// checkWindowEvents: window events >= minimum.
func (c *SufficiencyChecker) checkWindowEvents(name string, w domain.Window) SufficiencyCheck {
	count := w.Len()
	return SufficiencyCheck{
		Name:      name,
		Threshold: fmt.Sprintf(">= %d", c.minWindowEvents),
		Actual:    fmt.Sprintf("%d", count),
		Pass:      count >= c.minWindowEvents,
	}
}

// checkReplayDeterminism: replaying the dataset twice must emit identical
// sequences. Divergences mean some load step consumed a source of
// nondeterminism, which would silently change scores between runs.
func (c *SufficiencyChecker) checkReplayDeterminism(eng *replay.Engine) (SufficiencyCheck, []string) {
	report, err := replay.VerifyDeterminism(eng.Path(), eng.Manifest(), false)
	if err != nil {
		return SufficiencyCheck{
			Name:      "Replay determinism",
			Threshold: "0 divergences",
			Actual:    "verification failed",
			Pass:      false,
		}, []string{fmt.Sprintf("replay determinism verification failed: %v", err)}
	}

	check := SufficiencyCheck{
		Name:      "Replay determinism",
		Threshold: "0 divergences",
		Actual:    fmt.Sprintf("%d divergent of %d events", report.DivergentEvents, report.TotalEvents),
		Pass:      report.Deterministic(),
	}

	var errs []string
	for i, div := range report.Results {
		if i >= maxDivergenceErrors {
			errs = append(errs, fmt.Sprintf("... and %d more divergent events", report.DivergentEvents-maxDivergenceErrors))
			break
		}
		for _, f := range div.Divergences {
			errs = append(errs, fmt.Sprintf("replay divergence at position %d: %s expected %v, got %v",
				div.Position, f.Field, f.Expected, f.Actual))
		}
	}

	return check, errs
}
