package diagnostic

import (
	"math"
	"testing"

	"driftlab/internal/domain"
)

func assertPMF(t *testing.T, pmf []float64, bins int) {
	t.Helper()
	if len(pmf) != bins {
		t.Fatalf("pmf has %d entries, want %d", len(pmf), bins)
	}
	sum := 0.0
	for i, v := range pmf {
		if v <= 0 {
			t.Fatalf("pmf[%d] = %v, want strictly positive", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("pmf sums to %v, want 1", sum)
	}
}

func ramp(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*(hi-lo)/float64(n-1)
	}
	return out
}

func TestKDEEstimator_MassConcentratesAtData(t *testing.T) {
	g := buildGrid(ramp(50, 0, 10), gridParams(16))
	est := &KDEEstimator{}

	// Values clustered near 2: bins around 2 must carry more mass than
	// bins around 8.
	pmf := est.Estimate([]float64{1.8, 1.9, 2.0, 2.1, 2.2}, g)
	assertPMF(t, pmf, 16)

	nearIdx := g.clampedBin(2.0)
	farIdx := g.clampedBin(8.0)
	if pmf[nearIdx] <= pmf[farIdx] {
		t.Errorf("mass at data (%v) not above mass far away (%v)", pmf[nearIdx], pmf[farIdx])
	}
}

func TestKDEEstimator_FixedBandwidth(t *testing.T) {
	g := buildGrid(ramp(50, 0, 10), gridParams(16))
	values := []float64{4.9, 5.0, 5.1}

	narrow := (&KDEEstimator{Bandwidth: 0.05}).Estimate(values, g)
	wide := (&KDEEstimator{Bandwidth: 5.0}).Estimate(values, g)
	assertPMF(t, narrow, 16)
	assertPMF(t, wide, 16)

	// Wider bandwidth spreads mass toward the edges.
	if wide[0] <= narrow[0] {
		t.Errorf("edge mass: wide %v <= narrow %v", wide[0], narrow[0])
	}
	peak := g.clampedBin(5.0)
	if narrow[peak] <= wide[peak] {
		t.Errorf("peak mass: narrow %v <= wide %v", narrow[peak], wide[peak])
	}
}

func TestKDEEstimator_EmptyAndSingleton(t *testing.T) {
	g := buildGrid(ramp(50, 0, 10), gridParams(8))
	est := &KDEEstimator{}

	empty := est.Estimate(nil, g)
	assertPMF(t, empty, 8)
	for i := 1; i < len(empty); i++ {
		if math.Abs(empty[i]-empty[0]) > 1e-12 {
			t.Fatalf("empty input pmf not uniform: %v", empty)
		}
	}

	single := est.Estimate([]float64{3.0}, g)
	assertPMF(t, single, 8)
	if idx := g.clampedBin(3.0); single[idx] < 0.99 {
		t.Errorf("singleton mass = %v, want ~1 in containing bin", single[idx])
	}
}

func TestKDEEstimator_ZeroSpreadFallsBackToPointMass(t *testing.T) {
	g := buildGrid(ramp(50, 0, 10), gridParams(8))
	pmf := (&KDEEstimator{}).Estimate([]float64{4, 4, 4, 4}, g)
	assertPMF(t, pmf, 8)
	if idx := g.clampedBin(4.0); pmf[idx] < 0.99 {
		t.Errorf("zero-spread mass = %v, want ~1 in containing bin", pmf[idx])
	}
}

func TestHistogramEstimator_Counts(t *testing.T) {
	g := Grid{
		Edges:   []float64{0, 1, 2, 3, 4},
		Centers: []float64{0.5, 1.5, 2.5, 3.5},
	}
	est := &HistogramEstimator{}

	// 4 values in bin 0, 2 in bin 2; 99 is outside and dropped.
	pmf := est.Estimate([]float64{0.1, 0.2, 0.3, 0.9, 2.1, 2.2, 99}, g)
	assertPMF(t, pmf, 4)

	if math.Abs(pmf[0]-4.0/6.0) > 1e-6 {
		t.Errorf("pmf[0] = %v, want ~%v", pmf[0], 4.0/6.0)
	}
	if math.Abs(pmf[2]-2.0/6.0) > 1e-6 {
		t.Errorf("pmf[2] = %v, want ~%v", pmf[2], 2.0/6.0)
	}
}

func TestHistogramEstimator_AllOutsideGrid(t *testing.T) {
	g := Grid{
		Edges:   []float64{0, 1, 2},
		Centers: []float64{0.5, 1.5},
	}
	pmf := (&HistogramEstimator{}).Estimate([]float64{50, 60, 70}, g)
	assertPMF(t, pmf, 2)
	if math.Abs(pmf[0]-0.5) > 1e-9 {
		t.Errorf("out-of-grid input pmf = %v, want uniform", pmf)
	}
}

func TestHistogramEstimator_SingletonClampsIntoGrid(t *testing.T) {
	g := Grid{
		Edges:   []float64{0, 1, 2},
		Centers: []float64{0.5, 1.5},
	}
	pmf := (&HistogramEstimator{}).Estimate([]float64{42}, g)
	if pmf[1] < 0.99 {
		t.Errorf("singleton above grid: pmf = %v, want mass in last bin", pmf)
	}
}

func TestSelectEstimator(t *testing.T) {
	p := DefaultParams().withDefaults()
	spread := ramp(20, 1, 10)
	flat := []float64{5, 5, 5, 5, 5}

	if m := selectEstimator(p, spread, spread).Method(); m != domain.MethodKDE {
		t.Errorf("spread windows method = %q, want kde", m)
	}
	if m := selectEstimator(p, flat, spread).Method(); m != domain.MethodHistogram {
		t.Errorf("degenerate baseline method = %q, want histogram", m)
	}
	if m := selectEstimator(p, spread, flat).Method(); m != domain.MethodHistogram {
		t.Errorf("degenerate sample method = %q, want histogram", m)
	}
	if m := selectEstimator(p, spread, []float64{1}).Method(); m != domain.MethodHistogram {
		t.Errorf("single-event sample method = %q, want histogram", m)
	}

	forced := p
	forced.ForceHistogram = true
	if m := selectEstimator(forced, spread, spread).Method(); m != domain.MethodHistogram {
		t.Errorf("forced method = %q, want histogram", m)
	}
}

func TestScottBandwidth(t *testing.T) {
	values := ramp(100, 0, 10)
	h := scottBandwidth(values)
	if h <= 0 {
		t.Fatalf("scottBandwidth = %v, want positive", h)
	}
	sd := computeStddev(values, computeMean(values))
	want := sd * math.Pow(100, -0.2)
	if math.Abs(h-want) > 1e-12 {
		t.Errorf("scottBandwidth = %v, want %v", h, want)
	}

	if h := scottBandwidth([]float64{3, 3, 3}); h != 0 {
		t.Errorf("scottBandwidth of constant values = %v, want 0", h)
	}
}
