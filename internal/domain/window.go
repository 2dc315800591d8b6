package domain

// WindowLabel identifies the role a window plays in a comparison.
type WindowLabel string

const (
	WindowLabelBaseline WindowLabel = "baseline"
	WindowLabelSample   WindowLabel = "sample"
	WindowLabelScenario WindowLabel = "scenario"
)

// Window is a contiguous span of events bounded by [StartMS, EndMS).
// Every contained event satisfies StartMS <= TimestampMS < EndMS.
type Window struct {
	Label   WindowLabel
	StartMS int64 // inclusive lower bound (ms)
	EndMS   int64 // exclusive upper bound (ms)
	Events  []Event
}

// Len returns the number of events in the window.
func (w Window) Len() int {
	return len(w.Events)
}

// Prices extracts the unit price of every event, preserving event order.
func (w Window) Prices() []float64 {
	prices := make([]float64, len(w.Events))
	for i, e := range w.Events {
		prices[i] = e.Transaction.Price
	}
	return prices
}

// Summary reduces the window to its descriptor without event payloads.
func (w Window) Summary() WindowSummary {
	return WindowSummary{
		Label:     w.Label,
		StartMS:   w.StartMS,
		EndMS:     w.EndMS,
		NumEvents: len(w.Events),
	}
}

// WindowSummary describes a window's bounds and size. Carried inside
// diagnostic results so consumers can identify what was compared without
// holding the full event payload.
type WindowSummary struct {
	Label     WindowLabel `json:"label"`
	StartMS   int64       `json:"start_ms"`
	EndMS     int64       `json:"end_ms"`
	NumEvents int         `json:"num_events"`
}
