package diagnostic

import (
	"math"
	"testing"
)

func TestComputePercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	if got := computePercentile(sorted, 0.5); got != 3 {
		t.Errorf("P50 = %v, want 3", got)
	}
	if got := computePercentile(sorted, 0); got != 1 {
		t.Errorf("P0 = %v, want 1", got)
	}
	if got := computePercentile(sorted, 1); got != 5 {
		t.Errorf("P100 = %v, want 5", got)
	}
	// 0.25 * 4 = idx 1.0 exactly
	if got := computePercentile(sorted, 0.25); got != 2 {
		t.Errorf("P25 = %v, want 2", got)
	}
	// 0.1 * 4 = idx 0.4 -> 1 + 0.4*(2-1)
	if got := computePercentile(sorted, 0.1); math.Abs(got-1.4) > 1e-12 {
		t.Errorf("P10 = %v, want 1.4", got)
	}
}

func TestComputePercentile_Degenerate(t *testing.T) {
	if got := computePercentile(nil, 0.5); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
	if got := computePercentile([]float64{7}, 0.99); got != 7 {
		t.Errorf("single = %v, want 7", got)
	}
}

func TestComputeStddev_SampleFormula(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)
	if mean != 5 {
		t.Fatalf("mean = %v, want 5", mean)
	}
	// Sum of squared deviations = 32, n-1 = 7
	want := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); math.Abs(got-want) > 1e-12 {
		t.Errorf("stddev = %v, want %v", got, want)
	}

	if got := computeStddev([]float64{3}, 3); got != 0 {
		t.Errorf("stddev of singleton = %v, want 0", got)
	}
}

func TestSafeNormalize(t *testing.T) {
	pmf := safeNormalize([]float64{1, 3, 0})

	sum := 0.0
	for _, v := range pmf {
		if v <= 0 {
			t.Errorf("entry %v not strictly positive", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("sum = %v, want 1", sum)
	}
	if pmf[1] <= pmf[0] || pmf[0] <= pmf[2] {
		t.Errorf("normalization broke ordering: %v", pmf)
	}
}

func TestSafeNormalize_AllZero(t *testing.T) {
	pmf := safeNormalize(make([]float64, 4))
	for i, v := range pmf {
		if math.Abs(v-0.25) > 1e-9 {
			t.Errorf("pmf[%d] = %v, want 0.25", i, v)
		}
	}
}

func TestLog1pTransform(t *testing.T) {
	out := log1pTransform([]float64{0, math.E - 1})
	if out[0] != 0 {
		t.Errorf("log1p(0) = %v, want 0", out[0])
	}
	if math.Abs(out[1]-1) > 1e-12 {
		t.Errorf("log1p(e-1) = %v, want 1", out[1])
	}
}
