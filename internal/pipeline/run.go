// Package pipeline wires replay, diagnostic, calibration and reporting into
// one-shot drift runs gated by data sufficiency.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"driftlab/internal/calibration"
	"driftlab/internal/decision"
	"driftlab/internal/diagnostic"
	"driftlab/internal/domain"
	"driftlab/internal/idhash"
	"driftlab/internal/replay"
	"driftlab/internal/reporting"
	"driftlab/internal/storage"
)

// Output file names written by Run.
const (
	ReportFileName      = "DRIFT_REPORT.md"
	VerdictFileName     = "VERDICT_REPORT.md"
	CalibrationFileName = "calibration_distribution.csv"
	SegmentFileName     = "per_segment_scores.csv"
)

// Pipeline executes one diagnostic run end to end: open and verify the
// dataset, gate on sufficiency, extract windows, score, persist, report.
type Pipeline struct {
	manifestStore  storage.ManifestStore
	resultStore    storage.DiagnosticResultStore
	thresholdStore storage.ThresholdStore

	params      diagnostic.Params
	sufficiency *SufficiencyChecker
	outputDir   string
	now         func() time.Time
}

// NewPipeline creates a pipeline that persists to the given stores and
// writes report files into outputDir.
func NewPipeline(
	manifestStore storage.ManifestStore,
	resultStore storage.DiagnosticResultStore,
	thresholdStore storage.ThresholdStore,
	params diagnostic.Params,
	outputDir string,
) *Pipeline {
	return &Pipeline{
		manifestStore:  manifestStore,
		resultStore:    resultStore,
		thresholdStore: thresholdStore,
		params:         params,
		sufficiency:    NewSufficiencyChecker(),
		outputDir:      outputDir,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithSufficiencyChecker replaces the default checker. Nil disables gating;
// an empty sample window then fails the diagnostic instead.
func (p *Pipeline) WithSufficiencyChecker(c *SufficiencyChecker) *Pipeline {
	p.sufficiency = c
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Request describes one diagnostic run.
type Request struct {
	DatasetPath string
	Manifest    domain.Manifest
	VerifyHash  bool

	WindowDays    int
	BaselineEndMS int64 // exclusive baseline window bound
	SampleEndMS   int64 // exclusive sample window bound; ignored when Scenario is set

	// Scenario synthesizes the sample window from the baseline period
	// instead of extracting it from the dataset.
	Scenario *domain.ScenarioSpec

	// Calibrate runs a null calibration against the baseline and stores
	// the threshold set before the verdict is evaluated.
	Calibrate             bool
	CalibrationSampleSize int
	CalibrationNumScores  int
}

// Outcome is what one Run produced.
type Outcome struct {
	Report      *reporting.Report
	Result      *domain.DiagnosticResult
	Verdict     decision.Verdict
	Sufficiency *SufficiencyResult
	Gated       bool     // sufficiency blocked the diagnostic
	OutputFiles []string // paths written, in write order
}

// Run executes the full pipeline and writes output files:
// - DRIFT_REPORT.md
// - VERDICT_REPORT.md
// - calibration_distribution.csv
// - per_segment_scores.csv
//
// A failed sufficiency gate is not an error: the run ends with an
// INSUFFICIENT_DATA report pair and Gated set on the outcome.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	if req.WindowDays <= 0 {
		return nil, fmt.Errorf("window days must be positive, got %d", req.WindowDays)
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, err
	}

	// 1. Open the dataset. Integrity failures are terminal.
	eng, err := replay.Open(req.DatasetPath, req.Manifest, req.VerifyHash)
	if err != nil {
		return nil, err
	}

	// 2. Register the manifest. Rerunning against the same freeze is fine.
	if err := p.manifestStore.Insert(ctx, &req.Manifest); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, err
	}

	// 3. Extract windows. Empty windows flow into the sufficiency gate
	// rather than failing outright.
	baseline, err := eng.WindowAllowEmpty(req.BaselineEndMS, req.WindowDays)
	if err != nil {
		return nil, err
	}
	baseline.Label = domain.WindowLabelBaseline

	var sample domain.Window
	if req.Scenario != nil {
		sample, err = eng.InjectScenario(scenarioWithWindow(*req.Scenario, req.WindowDays))
	} else {
		sample, err = eng.WindowAllowEmpty(req.SampleEndMS, req.WindowDays)
	}
	if err != nil {
		return nil, err
	}

	// 4. Sufficiency gate.
	var quality reporting.DataQualitySection
	var suffResult *SufficiencyResult
	if p.sufficiency != nil {
		suffResult = p.sufficiency.Check(eng, baseline, sample)
		quality = convertToDataQuality(suffResult)
		if !suffResult.AllPass {
			return p.writeGatedOutcome(ctx, req.Manifest, quality, suffResult)
		}
	}

	// 5. Diagnose.
	engine, err := diagnostic.New(p.params)
	if err != nil {
		return nil, err
	}
	engine.WithClock(p.now)

	result, err := engine.Diagnose(ctx, baseline, sample)
	if err != nil {
		return nil, err
	}

	// 6. Stamp identity and persist. Identical inputs yield the same
	// result id, so rerunning a stored diagnostic is a no-op. Scenario runs
	// get a scenario-qualified id: they score a synthesized distribution
	// over the same bounds.
	result.ManifestHash = req.Manifest.File.Hash
	if req.Scenario != nil {
		result.ResultID = idhash.ComputeScenarioResultID(result.ManifestHash,
			baseline.StartMS, baseline.EndMS, sample.StartMS, sample.EndMS, result.Seed,
			req.Scenario.Name, req.Scenario.Seed)
	} else {
		result.ResultID = idhash.ComputeResultID(result.ManifestHash,
			baseline.StartMS, baseline.EndMS, sample.StartMS, sample.EndMS, result.Seed)
	}
	if err := p.resultStore.Insert(ctx, result); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, err
	}

	// 7. Calibrate when asked.
	if req.Calibrate {
		runner := calibration.NewRunner(engine).WithClock(p.now)
		thresholds, err := runner.Run(ctx, baseline, req.CalibrationSampleSize, req.CalibrationNumScores)
		if err != nil {
			return nil, err
		}
		thresholds.ManifestHash = result.ManifestHash
		if err := p.thresholdStore.Insert(ctx, thresholds); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, err
		}
	}

	// 8. Build the report from the stores so it reflects what persisted.
	gen := reporting.NewGenerator(p.manifestStore, p.resultStore, p.thresholdStore).WithClock(p.now)
	report, err := gen.Generate(ctx, result.ManifestHash)
	if err != nil {
		return nil, err
	}
	report.DataQuality = quality

	// 9. Evaluate the verdict against the latest thresholds.
	input, err := decision.BuildInput(report.Result, report.Thresholds)
	if err != nil {
		return nil, err
	}
	verdict, err := decision.NewEvaluator().Evaluate(input)
	if err != nil {
		return nil, err
	}
	report.Verdict = string(verdict.Verdict)

	// 10. Write outputs.
	outcome := &Outcome{
		Report:      report,
		Result:      report.Result,
		Verdict:     verdict.Verdict,
		Sufficiency: suffResult,
	}
	if err := p.writeFile(ReportFileName, reporting.RenderMarkdown(report), outcome); err != nil {
		return nil, err
	}
	if err := p.writeFile(VerdictFileName, decision.RenderMarkdown(verdict), outcome); err != nil {
		return nil, err
	}
	if len(report.Result.Calibration) > 0 {
		if err := p.writeFile(CalibrationFileName, reporting.RenderCalibrationCSV(report.Result.Calibration), outcome); err != nil {
			return nil, err
		}
	}
	if len(report.Result.PerSegment) > 0 {
		if err := p.writeFile(SegmentFileName, reporting.RenderSegmentCSV(report.Result.PerSegment), outcome); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

// writeGatedOutcome renders the insufficient-data report pair and ends the
// run without scoring. An earlier stored result is deliberately left out of
// the report: a gated run proved nothing about the current windows.
func (p *Pipeline) writeGatedOutcome(ctx context.Context, m domain.Manifest, quality reporting.DataQualitySection, suff *SufficiencyResult) (*Outcome, error) {
	gen := reporting.NewGenerator(p.manifestStore, p.resultStore, p.thresholdStore).WithClock(p.now)
	report, err := gen.Generate(ctx, m.File.Hash)
	if err != nil {
		return nil, err
	}
	report.DataQuality = quality
	report.Result = nil
	report.Verdict = string(decision.VerdictInsufficientData)

	outcome := &Outcome{
		Report:      report,
		Verdict:     decision.VerdictInsufficientData,
		Sufficiency: suff,
		Gated:       true,
	}
	if err := p.writeFile(ReportFileName, reporting.RenderMarkdown(report), outcome); err != nil {
		return nil, err
	}
	if err := p.writeFile(VerdictFileName, decision.RenderMarkdown(insufficientDataResult(suff)), outcome); err != nil {
		return nil, err
	}

	return outcome, nil
}

func (p *Pipeline) writeFile(name, content string, outcome *Outcome) error {
	path := filepath.Join(p.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}
	outcome.OutputFiles = append(outcome.OutputFiles, path)
	return nil
}

// scenarioWithWindow aligns the scenario window length with the request
// unless the spec pins its own.
func scenarioWithWindow(spec domain.ScenarioSpec, windowDays int) domain.ScenarioSpec {
	params := make(map[string]float64, len(spec.Params)+1)
	for k, v := range spec.Params {
		params[k] = v
	}
	if _, ok := params[domain.ScenarioParamWindowDays]; !ok {
		params[domain.ScenarioParamWindowDays] = float64(windowDays)
	}
	spec.Params = params
	return spec
}

// convertToDataQuality maps checker output onto the report section.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	rows := make([]reporting.SufficiencyCheckRow, 0, len(result.Checks))
	for _, c := range result.Checks {
		rows = append(rows, reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		})
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: rows,
		IntegrityErrors:   append([]string(nil), result.Errors...),
		AllChecksPassed:   result.AllPass,
	}
}

// insufficientDataResult recasts the failed gate as a verdict checklist so
// the verdict report renders the same way on both paths.
func insufficientDataResult(suff *SufficiencyResult) *decision.Result {
	criteria := make([]decision.CriterionResult, 0, len(suff.Checks))
	failed := 0
	for _, c := range suff.Checks {
		criteria = append(criteria, decision.CriterionResult{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		})
		if !c.Pass {
			failed++
		}
	}
	return &decision.Result{
		Verdict:  decision.VerdictInsufficientData,
		Criteria: criteria,
		Summary:  fmt.Sprintf("%d of %d sufficiency checks failed; no score was computed", failed, len(suff.Checks)),
	}
}
