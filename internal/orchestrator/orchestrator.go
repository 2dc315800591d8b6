// Package orchestrator provides scheduled sliding-window drift scoring.
// It coordinates: window planning → diagnostic → timeseries persistence → cache
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"driftlab/internal/diagnostic"
	"driftlab/internal/domain"
	"driftlab/internal/idhash"
	"driftlab/internal/replay"
	"driftlab/internal/storage"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// DefaultMinWindowEvents is the smallest window the sweep will score.
// Thinner windows are skipped, not errored: a sparse stretch of the
// dataset should leave a gap in the timeseries, not kill the sweep.
const DefaultMinWindowEvents = 30

// Cache receives the freshest scores. Implemented by cache.RedisCache;
// nil disables cache updates.
type Cache interface {
	SetLatestResult(ctx context.Context, r *domain.DiagnosticResult) error
	AppendScore(ctx context.Context, p *domain.ScorePoint) error
}

// Orchestrator sweeps a stride-aligned grid of window ends across the
// dataset and scores each end against its preceding baseline.
// Flow: plan ends → drop already-stored → diagnose → persist → cache
type Orchestrator struct {
	// Data
	engine *replay.Engine

	// Stores
	resultStore     storage.DiagnosticResultStore
	timeseriesStore storage.ScoreTimeseriesStore
	cache           Cache

	// Configs
	params          diagnostic.Params
	windowDays      int
	strideDays      int
	lookback        int
	minWindowEvents int

	// Options
	verbose bool
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required: an opened engine and the stores scores land in.
	Engine          *replay.Engine
	ResultStore     storage.DiagnosticResultStore
	TimeseriesStore storage.ScoreTimeseriesStore

	// Optional cache for the freshest result and score points.
	Cache Cache

	// Diagnostic parameters. Sweeps usually set BootstrapSamples to 0;
	// the null distribution belongs to calibration, not the timeline.
	Params diagnostic.Params

	// Window geometry. WindowDays is the length of both comparison
	// windows, StrideDays the distance between consecutive window ends,
	// Lookback how many stride steps behind the clock each sweep covers.
	WindowDays int
	StrideDays int
	Lookback   int

	// MinWindowEvents below which an end is skipped. 0 means default.
	MinWindowEvents int

	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	minEvents := opts.MinWindowEvents
	if minEvents <= 0 {
		minEvents = DefaultMinWindowEvents
	}
	return &Orchestrator{
		engine:          opts.Engine,
		resultStore:     opts.ResultStore,
		timeseriesStore: opts.TimeseriesStore,
		cache:           opts.Cache,
		params:          opts.Params,
		windowDays:      opts.WindowDays,
		strideDays:      opts.StrideDays,
		lookback:        opts.Lookback,
		minWindowEvents: minEvents,
		verbose:         opts.Verbose,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic sweeps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RunResult contains results from one sweep.
type RunResult struct {
	WindowsPlanned int
	WindowsScored  int
	WindowsSkipped int
	PointsStored   int
	Errors         []string
}

// RunOnce executes one sweep as of the current clock.
// Phases:
//  1. Plan stride-aligned window ends inside dataset coverage
//  2. Drop ends already present in the timeseries store
//  3. Diagnose each remaining end against its preceding baseline
//  4. Persist score points and the freshest full result
//  5. Update the cache
func (o *Orchestrator) RunOnce(ctx context.Context) (*RunResult, error) {
	if o.windowDays <= 0 || o.strideDays <= 0 || o.lookback <= 0 {
		return nil, fmt.Errorf("window geometry must be positive: window=%d stride=%d lookback=%d",
			o.windowDays, o.strideDays, o.lookback)
	}
	result := &RunResult{}
	manifestHash := o.engine.Manifest().File.Hash

	// Phase 1: plan window ends
	o.log("Phase 1: Planning window ends...")
	ends := o.planEnds()
	result.WindowsPlanned = len(ends)
	o.log("  Planned %d ends", len(ends))

	if len(ends) == 0 {
		return result, nil
	}

	// Phase 2: drop ends already stored
	o.log("Phase 2: Loading stored points...")
	stored, err := o.timeseriesStore.GetByManifest(ctx, manifestHash)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (load stored points) failed: %w", err)
	}
	ends, skipped := dropStored(ends, stored)
	result.WindowsSkipped += skipped
	o.log("  %d ends already scored, %d to go", skipped, len(ends))

	if len(ends) == 0 {
		return result, nil
	}

	// Phase 3: diagnose
	o.log("Phase 3: Scoring windows...")
	points, latest, scoreErrs := o.scoreEnds(ctx, ends, result)
	result.Errors = append(result.Errors, scoreErrs...)
	o.log("  Scored %d windows (%d errors)", result.WindowsScored, len(scoreErrs))

	if len(points) == 0 {
		return result, nil
	}

	// Phase 4: persist
	o.log("Phase 4: Persisting...")
	if err := o.timeseriesStore.InsertBulk(ctx, points); err != nil {
		return nil, fmt.Errorf("phase 4 (insert points) failed: %w", err)
	}
	result.PointsStored = len(points)
	if err := o.resultStore.Insert(ctx, latest); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("phase 4 (insert result) failed: %w", err)
	}

	// Phase 5: cache. Failures degrade to errors; the stores hold truth.
	if o.cache != nil {
		o.log("Phase 5: Updating cache...")
		for _, p := range points {
			if err := o.cache.AppendScore(ctx, p); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("cache append %d: %v", p.WindowEndMS, err))
			}
		}
		if err := o.cache.SetLatestResult(ctx, latest); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cache latest result: %v", err))
		}
	}

	o.log("Sweep completed: %d planned, %d scored, %d skipped, %d stored",
		result.WindowsPlanned, result.WindowsScored, result.WindowsSkipped, result.PointsStored)

	return result, nil
}

// Run sweeps on a fixed interval until the context is cancelled. Sweep
// errors are logged, not returned; the next tick retries.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := o.RunOnce(ctx); err != nil {
			log.Printf("[orchestrator] sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// planEnds lays a stride grid over dataset coverage and keeps the ends a
// full baseline+sample pair fits in front of, newest end aligned at or
// before the clock. Alignment to the grid keeps ends identical across
// sweeps, which is what makes phase 2 deduplication work.
func (o *Orchestrator) planEnds() []int64 {
	strideMS := int64(o.strideDays) * msPerDay
	windowMS := int64(o.windowDays) * msPerDay

	stats := o.engine.Manifest().Statistics
	coverageStart := stats.DateRange.Start.UnixMilli()
	coverageEnd := stats.DateRange.End.UnixMilli()

	newest := o.now().UnixMilli() / strideMS * strideMS
	if newest > coverageEnd {
		newest = coverageEnd / strideMS * strideMS
	}

	var ends []int64
	for i := o.lookback - 1; i >= 0; i-- {
		end := newest - int64(i)*strideMS
		if end-2*windowMS < coverageStart || end > coverageEnd {
			continue
		}
		ends = append(ends, end)
	}
	return ends
}

// dropStored removes ends that already have a point in the store.
func dropStored(ends []int64, stored []*domain.ScorePoint) ([]int64, int) {
	seen := make(map[int64]struct{}, len(stored))
	for _, p := range stored {
		seen[p.WindowEndMS] = struct{}{}
	}

	kept := ends[:0]
	skipped := 0
	for _, end := range ends {
		if _, ok := seen[end]; ok {
			skipped++
			continue
		}
		kept = append(kept, end)
	}
	return kept, skipped
}

// scoreEnds diagnoses every end, oldest first. Returns the score points,
// the full result of the newest scored end, and per-end soft errors.
func (o *Orchestrator) scoreEnds(ctx context.Context, ends []int64, result *RunResult) ([]*domain.ScorePoint, *domain.DiagnosticResult, []string) {
	manifestHash := o.engine.Manifest().File.Hash
	windowMS := int64(o.windowDays) * msPerDay

	var points []*domain.ScorePoint
	var latest *domain.DiagnosticResult
	var errs []string

	for _, end := range ends {
		baseline, err := o.engine.WindowAllowEmpty(end-windowMS, o.windowDays)
		if err != nil {
			errs = append(errs, fmt.Sprintf("baseline window at %d: %v", end, err))
			continue
		}
		baseline.Label = domain.WindowLabelBaseline
		sample, err := o.engine.WindowAllowEmpty(end, o.windowDays)
		if err != nil {
			errs = append(errs, fmt.Sprintf("sample window at %d: %v", end, err))
			continue
		}

		if baseline.Len() < o.minWindowEvents || sample.Len() < o.minWindowEvents {
			result.WindowsSkipped++
			o.log("  Skipping end %d: %d/%d events", end, baseline.Len(), sample.Len())
			continue
		}

		// Per-end seed keeps the score independent of which sweep
		// happens to compute it.
		params := o.params
		params.Seed = idhash.DeriveNamedSeed(o.params.Seed, strconv.FormatInt(end, 10))
		eng, err := diagnostic.New(params)
		if err != nil {
			errs = append(errs, fmt.Sprintf("diagnostic at %d: %v", end, err))
			continue
		}
		diag, err := eng.WithClock(o.now).Diagnose(ctx, baseline, sample)
		if err != nil {
			errs = append(errs, fmt.Sprintf("diagnose at %d: %v", end, err))
			continue
		}
		diag.ManifestHash = manifestHash
		diag.ResultID = idhash.ComputeResultID(manifestHash,
			diag.BaselineWindow.StartMS, diag.BaselineWindow.EndMS,
			diag.SampleWindow.StartMS, diag.SampleWindow.EndMS, params.Seed)

		points = append(points, &domain.ScorePoint{
			ManifestHash:   manifestHash,
			WindowEndMS:    end,
			WindowDays:     o.windowDays,
			Score:          diag.JSDScore,
			Method:         diag.Method,
			BaselineEvents: diag.BaselineWindow.NumEvents,
			SampleEvents:   diag.SampleWindow.NumEvents,
			ComputedAtMS:   diag.ComputedAtMS,
		})
		latest = diag
		result.WindowsScored++
	}

	return points, latest, errs
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
