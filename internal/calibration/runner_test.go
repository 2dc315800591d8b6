package calibration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"driftlab/internal/diagnostic"
	"driftlab/internal/domain"
)

func fixedClock() time.Time {
	return time.Date(2011, 1, 10, 9, 0, 0, 0, time.UTC)
}

func baselineWindow(n int) domain.Window {
	events := make([]domain.Event, n)
	for i := range events {
		events[i] = domain.Event{Seq: int64(i), Transaction: domain.Transaction{
			Invoice:   fmt.Sprintf("INV%04d", i),
			StockCode: "85048",
			Quantity:  1,
			Price:     1.0 + float64(i%17)*0.35,
		}}
	}
	return domain.Window{Label: domain.WindowLabelBaseline, Events: events}
}

func newRunner(t *testing.T, seed int64) *Runner {
	t.Helper()
	p := diagnostic.DefaultParams()
	p.Seed = seed
	p.LogTransform = true
	engine, err := diagnostic.New(p)
	if err != nil {
		t.Fatalf("diagnostic.New() error = %v", err)
	}
	return NewRunner(engine).WithClock(fixedClock)
}

func TestRun_ThresholdSetShape(t *testing.T) {
	r := newRunner(t, 42)

	ts, err := r.Run(context.Background(), baselineWindow(120), 0, 150)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if ts.NumScores != 150 {
		t.Errorf("NumScores = %d, want 150", ts.NumScores)
	}
	if ts.SampleSize != 120 {
		t.Errorf("SampleSize = %d, want 120 (baseline size default)", ts.SampleSize)
	}
	if ts.Seed != 42 {
		t.Errorf("Seed = %d, want 42", ts.Seed)
	}
	if ts.ComputedAtMS != fixedClock().UnixMilli() {
		t.Errorf("ComputedAtMS = %d, want %d", ts.ComputedAtMS, fixedClock().UnixMilli())
	}

	if ts.Min < 0 || ts.Max > 1 {
		t.Errorf("score range [%v, %v] out of [0,1]", ts.Min, ts.Max)
	}
	if ts.Min > ts.P95 || ts.P95 > ts.P99 || ts.P99 > ts.Max {
		t.Errorf("percentile ordering violated: min=%v p95=%v p99=%v max=%v",
			ts.Min, ts.P95, ts.P99, ts.Max)
	}
	if ts.Mean < ts.Min || ts.Mean > ts.Max {
		t.Errorf("mean %v outside [min, max] = [%v, %v]", ts.Mean, ts.Min, ts.Max)
	}
}

func TestRun_Deterministic(t *testing.T) {
	w := baselineWindow(100)

	a, err := newRunner(t, 7).Run(context.Background(), w, 50, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b, err := newRunner(t, 7).Run(context.Background(), w, 50, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if a.P95 != b.P95 || a.P99 != b.P99 || a.Mean != b.Mean || a.Stddev != b.Stddev {
		t.Errorf("same seed produced different thresholds: %+v vs %+v", a, b)
	}

	c, err := newRunner(t, 8).Run(context.Background(), w, 50, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if a.P95 == c.P95 && a.Mean == c.Mean {
		t.Error("different seeds produced identical thresholds")
	}
}

func TestRun_DefaultNumScores(t *testing.T) {
	ts, err := newRunner(t, 1).Run(context.Background(), baselineWindow(60), 30, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ts.NumScores != DefaultNumScores {
		t.Errorf("NumScores = %d, want %d", ts.NumScores, DefaultNumScores)
	}
	if ts.SampleSize != 30 {
		t.Errorf("SampleSize = %d, want 30", ts.SampleSize)
	}
}

func TestRunWithScores(t *testing.T) {
	ts, scores, err := newRunner(t, 42).RunWithScores(context.Background(), baselineWindow(80), 40, 60)
	if err != nil {
		t.Fatalf("RunWithScores() error = %v", err)
	}
	if len(scores) != 60 {
		t.Fatalf("len(scores) = %d, want 60", len(scores))
	}
	if ts.NumScores != 60 {
		t.Errorf("NumScores = %d, want 60", ts.NumScores)
	}

	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if min != ts.Min || max != ts.Max {
		t.Errorf("score extremes [%v, %v] do not match thresholds [%v, %v]", min, max, ts.Min, ts.Max)
	}
}

func TestRun_EmptyBaseline(t *testing.T) {
	_, err := newRunner(t, 1).Run(context.Background(), domain.Window{}, 10, 10)
	var ierr *diagnostic.InsufficientDataError
	if !errors.As(err, &ierr) {
		t.Fatalf("Run(empty) error = %v, want *diagnostic.InsufficientDataError", err)
	}
}

func TestSummarizeScores_Percentiles(t *testing.T) {
	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = float64(i) / 99.0
	}

	ts := summarizeScores(scores)
	if ts.Min != 0 || ts.Max != 1 {
		t.Errorf("range = [%v, %v], want [0, 1]", ts.Min, ts.Max)
	}
	// P95 on 0..1 ramp of 100 points: idx 94.05 -> ~0.9500
	if diff := ts.P95 - 0.95; diff > 1e-9 || diff < -1e-2 {
		t.Errorf("P95 = %v, want ~0.95", ts.P95)
	}
	if ts.P99 <= ts.P95 {
		t.Errorf("P99 = %v not above P95 = %v", ts.P99, ts.P95)
	}
}
