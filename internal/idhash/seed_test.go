package idhash

import "testing"

func TestDeriveSubSeed_Determinism(t *testing.T) {
	results := make([]int64, 10)
	for i := 0; i < 10; i++ {
		results[i] = DeriveSubSeed(42, 7)
	}

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%d != results[0]=%d", i, results[i], results[0])
		}
	}
}

func TestDeriveSubSeed_IndexIndependence(t *testing.T) {
	// Each index must get its own stream; adjacent indexes must differ.
	seen := make(map[int64]int)
	for i := 0; i < 200; i++ {
		s := DeriveSubSeed(42, i)
		if s < 0 {
			t.Fatalf("DeriveSubSeed(42, %d) = %d, want non-negative", i, s)
		}
		if prev, ok := seen[s]; ok {
			t.Fatalf("DeriveSubSeed collision between index %d and %d", prev, i)
		}
		seen[s] = i
	}
}

func TestDeriveSubSeed_SeedSensitivity(t *testing.T) {
	if DeriveSubSeed(42, 0) == DeriveSubSeed(43, 0) {
		t.Error("Different root seeds should produce different sub-seeds")
	}
}

func TestDeriveNamedSeed(t *testing.T) {
	spoof := DeriveNamedSeed(42, "adversarial_spoof")
	crash := DeriveNamedSeed(42, "flash_crash")

	if spoof == crash {
		t.Error("Different names should produce different seeds")
	}
	if spoof != DeriveNamedSeed(42, "adversarial_spoof") {
		t.Error("DeriveNamedSeed() not deterministic")
	}
	if spoof < 0 || crash < 0 {
		t.Errorf("DeriveNamedSeed() produced negative seed: %d, %d", spoof, crash)
	}
}
