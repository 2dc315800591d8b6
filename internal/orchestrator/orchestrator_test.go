package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"driftlab/internal/diagnostic"
	"driftlab/internal/domain"
	"driftlab/internal/pipeline"
	"driftlab/internal/replay"
	"driftlab/internal/storage/memory"
)

// sweepClock sits one day past the fixture dataset's coverage.
var sweepClock = func() time.Time {
	return time.Date(2010, 8, 2, 9, 0, 0, 0, time.UTC)
}

func sweepParams() diagnostic.Params {
	p := diagnostic.DefaultParams()
	p.Seed = 42
	p.BootstrapSamples = 0
	p.Parallelism = 1
	return p
}

func openFixtureEngine(t *testing.T) *replay.Engine {
	t.Helper()
	path, m, err := pipeline.WriteFixtureDataset(t.TempDir())
	if err != nil {
		t.Fatalf("WriteFixtureDataset failed: %v", err)
	}
	eng, err := replay.Open(path, m, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return eng
}

func newTestOrchestrator(t *testing.T, c Cache) (*Orchestrator, *memory.DiagnosticResultStore, *memory.ScoreTimeseriesStore) {
	t.Helper()
	resultStore := memory.NewDiagnosticResultStore()
	timeseriesStore := memory.NewScoreTimeseriesStore()
	orch := New(Options{
		Engine:          openFixtureEngine(t),
		ResultStore:     resultStore,
		TimeseriesStore: timeseriesStore,
		Cache:           c,
		Params:          sweepParams(),
		WindowDays:      7,
		StrideDays:      7,
		Lookback:        8,
	}).WithClock(sweepClock)
	return orch, resultStore, timeseriesStore
}

func TestOrchestrator_RunOnce(t *testing.T) {
	ctx := context.Background()
	orch, resultStore, timeseriesStore := newTestOrchestrator(t, nil)

	result, err := orch.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if result.WindowsPlanned == 0 {
		t.Fatal("no window ends planned")
	}
	if result.WindowsScored == 0 {
		t.Fatal("no windows scored")
	}
	if result.PointsStored != result.WindowsScored {
		t.Errorf("PointsStored = %d, want %d", result.PointsStored, result.WindowsScored)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	hash := orch.engine.Manifest().File.Hash
	points, err := timeseriesStore.GetByManifest(ctx, hash)
	if err != nil {
		t.Fatalf("GetByManifest failed: %v", err)
	}
	if len(points) != result.PointsStored {
		t.Fatalf("stored points = %d, want %d", len(points), result.PointsStored)
	}
	for i, p := range points {
		if p.ManifestHash != hash {
			t.Errorf("point %d manifest = %q, want %q", i, p.ManifestHash, hash)
		}
		if p.WindowDays != 7 {
			t.Errorf("point %d window days = %d, want 7", i, p.WindowDays)
		}
		if p.Score < 0 || p.Score > 1 {
			t.Errorf("point %d score = %v, want [0, 1]", i, p.Score)
		}
		if p.WindowEndMS%(7*msPerDay) != 0 {
			t.Errorf("point %d end %d is off the stride grid", i, p.WindowEndMS)
		}
		if i > 0 && points[i-1].WindowEndMS >= p.WindowEndMS {
			t.Errorf("points out of order at %d: %d >= %d", i, points[i-1].WindowEndMS, p.WindowEndMS)
		}
	}

	// Only the freshest end keeps a full result.
	results, err := resultStore.GetByManifest(ctx, hash)
	if err != nil {
		t.Fatalf("GetByManifest results failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("stored results = %d, want 1", len(results))
	}
	if got, want := results[0].SampleWindow.EndMS, points[len(points)-1].WindowEndMS; got != want {
		t.Errorf("latest result sample end = %d, want %d", got, want)
	}
}

func TestOrchestrator_RunOnce_Idempotent(t *testing.T) {
	ctx := context.Background()
	orch, _, timeseriesStore := newTestOrchestrator(t, nil)

	first, err := orch.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first RunOnce failed: %v", err)
	}
	second, err := orch.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce failed: %v", err)
	}

	if second.WindowsScored != 0 {
		t.Errorf("second sweep scored %d windows, want 0", second.WindowsScored)
	}
	if second.WindowsSkipped < first.WindowsScored {
		t.Errorf("second sweep skipped %d, want at least %d", second.WindowsSkipped, first.WindowsScored)
	}

	points, err := timeseriesStore.GetByManifest(ctx, orch.engine.Manifest().File.Hash)
	if err != nil {
		t.Fatalf("GetByManifest failed: %v", err)
	}
	if len(points) != first.PointsStored {
		t.Errorf("stored points = %d, want %d", len(points), first.PointsStored)
	}
}

func TestOrchestrator_RunOnce_AdvancingClock(t *testing.T) {
	ctx := context.Background()
	orch, _, timeseriesStore := newTestOrchestrator(t, nil)

	// First sweep sees the dataset only up to mid-July.
	orch.WithClock(func() time.Time { return time.Date(2010, 7, 15, 0, 0, 0, 0, time.UTC) })
	first, err := orch.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first RunOnce failed: %v", err)
	}
	if first.WindowsScored == 0 {
		t.Fatal("first sweep scored nothing")
	}

	// Clock moves past coverage; only the new ends get scored.
	orch.WithClock(sweepClock)
	second, err := orch.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce failed: %v", err)
	}
	if second.WindowsScored == 0 {
		t.Fatal("advancing the clock exposed no new ends")
	}
	if second.WindowsSkipped < first.WindowsScored {
		t.Errorf("second sweep skipped %d, want at least the %d already scored",
			second.WindowsSkipped, first.WindowsScored)
	}

	points, err := timeseriesStore.GetByManifest(ctx, orch.engine.Manifest().File.Hash)
	if err != nil {
		t.Fatalf("GetByManifest failed: %v", err)
	}
	if len(points) != first.PointsStored+second.PointsStored {
		t.Errorf("stored points = %d, want %d", len(points), first.PointsStored+second.PointsStored)
	}
}

func TestOrchestrator_RunOnce_BadGeometry(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)
	orch.windowDays = 0

	if _, err := orch.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error for zero window days")
	}
}

// stubCache records updates; fail makes every call error.
type stubCache struct {
	appends []domain.ScorePoint
	latest  *domain.DiagnosticResult
	fail    bool
}

func (s *stubCache) AppendScore(_ context.Context, p *domain.ScorePoint) error {
	if s.fail {
		return errors.New("cache down")
	}
	s.appends = append(s.appends, *p)
	return nil
}

func (s *stubCache) SetLatestResult(_ context.Context, r *domain.DiagnosticResult) error {
	if s.fail {
		return errors.New("cache down")
	}
	s.latest = r
	return nil
}

func TestOrchestrator_RunOnce_UpdatesCache(t *testing.T) {
	ctx := context.Background()
	c := &stubCache{}
	orch, _, _ := newTestOrchestrator(t, c)

	result, err := orch.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(c.appends) != result.PointsStored {
		t.Errorf("cache appends = %d, want %d", len(c.appends), result.PointsStored)
	}
	if c.latest == nil {
		t.Fatal("latest result never cached")
	}
	if c.latest.ManifestHash != orch.engine.Manifest().File.Hash {
		t.Errorf("cached result manifest = %q", c.latest.ManifestHash)
	}
}

func TestOrchestrator_RunOnce_CacheFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	orch, _, timeseriesStore := newTestOrchestrator(t, &stubCache{fail: true})

	result, err := orch.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(result.Errors) == 0 {
		t.Error("cache failures should surface as soft errors")
	}
	points, err := timeseriesStore.GetByManifest(ctx, orch.engine.Manifest().File.Hash)
	if err != nil {
		t.Fatalf("GetByManifest failed: %v", err)
	}
	if len(points) != result.PointsStored {
		t.Errorf("stored points = %d, want %d despite cache failure", len(points), result.PointsStored)
	}
}

func TestOrchestrator_Run_StopsOnCancel(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := orch.Run(ctx, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v, want deadline exceeded", err)
	}
}
