package idhash

import "testing"

func TestComputeManifestID(t *testing.T) {
	tests := []struct {
		name       string
		fileHash   string
		fileName   string
		frozenAtMS int64
		wantLen    int // hash length should be 64
	}{
		{
			name:       "synthetic baseline",
			fileHash:   "aabbccdd00112233aabbccdd00112233aabbccdd00112233aabbccdd00112233",
			fileName:   "online_retail_II.csv",
			frozenAtMS: 1700000000000,
			wantLen:    64,
		},
		{
			name:       "empty hash still hashes",
			fileHash:   "",
			fileName:   "data.csv",
			frozenAtMS: 0,
			wantLen:    64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeManifestID(tt.fileHash, tt.fileName, tt.frozenAtMS)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeManifestID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeManifestID(tt.fileHash, tt.fileName, tt.frozenAtMS)
			if got != got2 {
				t.Errorf("ComputeManifestID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeManifestID_DifferentInputs(t *testing.T) {
	base := ComputeManifestID("hash", "file.csv", 1000)

	diffHash := ComputeManifestID("otherhash", "file.csv", 1000)
	if base == diffHash {
		t.Error("Different file hash should produce different manifest ID")
	}

	diffName := ComputeManifestID("hash", "other.csv", 1000)
	if base == diffName {
		t.Error("Different file name should produce different manifest ID")
	}

	diffTime := ComputeManifestID("hash", "file.csv", 2000)
	if base == diffTime {
		t.Error("Different freeze time should produce different manifest ID")
	}
}

func TestComputeResultID_Determinism(t *testing.T) {
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeResultID("manifesthash", 100, 200, 200, 300, 42)
	}

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}
}

func TestComputeScenarioResultID(t *testing.T) {
	plain := ComputeResultID("manifesthash", 100, 200, 200, 300, 42)
	scenario := ComputeScenarioResultID("manifesthash", 100, 200, 200, 300, 42, "flash_crash", 7)

	if len(scenario) != 64 {
		t.Errorf("ComputeScenarioResultID() length = %d, want 64", len(scenario))
	}
	if scenario == plain {
		t.Error("Scenario run should never share an id with a plain comparison")
	}
	if scenario != ComputeScenarioResultID("manifesthash", 100, 200, 200, 300, 42, "flash_crash", 7) {
		t.Error("ComputeScenarioResultID() not deterministic")
	}
	if scenario == ComputeScenarioResultID("manifesthash", 100, 200, 200, 300, 42, "flash_crash", 8) {
		t.Error("Different scenario seed should produce different result ID")
	}
	if scenario == ComputeScenarioResultID("manifesthash", 100, 200, 200, 300, 42, "adversarial_spoof", 7) {
		t.Error("Different scenario name should produce different result ID")
	}
}

func TestShortID(t *testing.T) {
	id := ComputeManifestID("hash", "file.csv", 1000)

	short := ShortID(id)
	if short == "" {
		t.Fatal("ShortID() returned empty string")
	}
	if short != ShortID(id) {
		t.Error("ShortID() not deterministic")
	}

	// Invalid hex falls back to a prefix
	fallback := ShortID("not-hex-at-all-but-long-enough")
	if len(fallback) != 16 {
		t.Errorf("ShortID() fallback length = %d, want 16", len(fallback))
	}
}
