package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeManifestID computes a deterministic manifest identifier using SHA256.
// Formula: SHA256(file_hash|file_name|frozen_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeManifestID(fileHash string, fileName string, frozenAtMS int64) string {
	data := fmt.Sprintf("%s|%s|%d",
		fileHash,
		fileName,
		frozenAtMS,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeResultID computes a deterministic diagnostic-result identifier.
// Formula: SHA256(manifest_hash|baseline_start|baseline_end|sample_start|sample_end|seed)
// Returns hex-encoded hash (64 characters).
func ComputeResultID(
	manifestHash string,
	baselineStartMS int64,
	baselineEndMS int64,
	sampleStartMS int64,
	sampleEndMS int64,
	seed int64,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d|%d|%d",
		manifestHash,
		baselineStartMS,
		baselineEndMS,
		sampleStartMS,
		sampleEndMS,
		seed,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeScenarioResultID qualifies ComputeResultID with the scenario that
// synthesized the sample window. A scenario run scores a different sample
// distribution over the same bounds, so it must never share an id with a
// plain window comparison.
// Formula: SHA256(plain_formula|scenario_name|scenario_seed)
func ComputeScenarioResultID(
	manifestHash string,
	baselineStartMS int64,
	baselineEndMS int64,
	sampleStartMS int64,
	sampleEndMS int64,
	seed int64,
	scenarioName string,
	scenarioSeed int64,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d|%d|%d|%s|%d",
		manifestHash,
		baselineStartMS,
		baselineEndMS,
		sampleStartMS,
		sampleEndMS,
		seed,
		scenarioName,
		scenarioSeed,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortID renders the first 16 bytes of a hex identifier as base58 for
// compact display in logs and reports. Invalid hex falls back to the first
// 16 characters of the input.
func ShortID(hexID string) string {
	raw, err := hex.DecodeString(hexID)
	if err != nil || len(raw) < 16 {
		if len(hexID) > 16 {
			return hexID[:16]
		}
		return hexID
	}
	return base58.Encode(raw[:16])
}
