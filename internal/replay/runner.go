package replay

import (
	"context"
	"time"

	"driftlab/internal/domain"
)

// EventSink consumes replayed events in emission order.
type EventSink interface {
	// OnEvent is called once per event. Returning an error stops the run.
	OnEvent(ctx context.Context, ev domain.Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, ev domain.Event) error

// OnEvent calls f(ctx, ev).
func (f EventSinkFunc) OnEvent(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}

// Runner drains an engine's stream into a sink. In realtime mode it sleeps
// the stream's scaled inter-event interval between emissions; correctness
// never depends on the sleeps, only pacing does.
type Runner struct {
	engine *Engine
	sleep  func(time.Duration)
}

// NewRunner creates a runner over an opened engine.
func NewRunner(engine *Engine) *Runner {
	return &Runner{engine: engine, sleep: time.Sleep}
}

// Run streams up to maxEvents events (<= 0 means all) into the sink and
// returns the number delivered. With realtime set, delivery is paced at
// speedMultiplier times the original inter-event spacing. The run stops
// early when ctx is cancelled or the sink returns an error.
func (r *Runner) Run(ctx context.Context, maxEvents int, speedMultiplier float64, realtime bool, sink EventSink) (int, error) {
	stream, err := r.engine.Stream(maxEvents, speedMultiplier)
	if err != nil {
		return 0, err
	}

	delivered := 0
	var prev domain.Event
	for {
		ev, ok := stream.Next()
		if !ok {
			return delivered, nil
		}

		if realtime && delivered > 0 {
			if d := stream.Interval(prev, ev); d > 0 {
				r.sleep(d)
			}
		}

		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := sink.OnEvent(ctx, ev); err != nil {
			return delivered, err
		}

		prev = ev
		delivered++
	}
}
