package replay

import (
	"errors"
	"fmt"

	"driftlab/internal/dataset"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// IntegrityError reports a dataset whose digest no longer matches its
// manifest. It is terminal: an engine that failed verification returns the
// same error from every subsequent operation.
type IntegrityError struct {
	Path           string
	ExpectedHash   string
	RecomputedHash string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("baseline integrity failure for %s: expected hash %s, recomputed %s",
		e.Path, e.ExpectedHash, e.RecomputedHash)
}

// EmptyWindowError reports a window request that matched zero events.
type EmptyWindowError struct {
	StartMS int64
	EndMS   int64
}

func (e *EmptyWindowError) Error() string {
	return fmt.Sprintf("no events in window [%s, %s)",
		dataset.FormatTimestamp(e.StartMS), dataset.FormatTimestamp(e.EndMS))
}

// UnknownScenarioError reports an injection request for a scenario name the
// engine does not implement.
type UnknownScenarioError struct {
	Name string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("unknown scenario type: %q", e.Name)
}
