package manifest

import (
	"strings"

	"driftlab/internal/domain"
)

// VerificationResult is the outcome of re-hashing a dataset against its
// manifest. A mismatch is a result, not an error: I/O problems are errors,
// tampering is Valid=false.
type VerificationResult struct {
	Valid          bool
	ExpectedHash   string
	RecomputedHash string
}

// Verify recomputes the digest over the current file bytes and compares it
// to the manifest's frozen digest (case-insensitive hex compare). Any
// difference, down to a single flipped bit, yields Valid=false.
func Verify(path string, m domain.Manifest) (VerificationResult, error) {
	recomputed, _, err := HashFile(path)
	if err != nil {
		return VerificationResult{}, err
	}

	return VerificationResult{
		Valid:          strings.EqualFold(recomputed, m.File.Hash),
		ExpectedHash:   strings.ToLower(m.File.Hash),
		RecomputedHash: recomputed,
	}, nil
}
