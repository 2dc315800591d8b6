package diagnostic

import "fmt"

// InsufficientDataError reports a window with too few events to diagnose.
type InsufficientDataError struct {
	Window string // "baseline" or "sample"
	Events int
	Needed int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data in %s window: %d events, need at least %d",
		e.Window, e.Events, e.Needed)
}
