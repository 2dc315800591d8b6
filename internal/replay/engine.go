package replay

import (
	"fmt"
	"sort"
	"time"

	"driftlab/internal/dataset"
	"driftlab/internal/domain"
	"driftlab/internal/manifest"
)

// State is the engine lifecycle state.
type State string

// Engine states. Failed is terminal: every operation on a failed engine
// returns the verification error that caused the failure.
const (
	StateUninitialized State = "uninitialized"
	StateVerifying     State = "verifying"
	StateReady         State = "ready"
	StateStreaming     State = "streaming"
	StateExhausted     State = "exhausted"
	StateFailed        State = "failed"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// Engine replays a verified dataset as a deterministic event stream.
// Events are loaded once, sorted by timestamp with ties broken by original
// file order, and never mutated afterwards; streams and windows are views
// over that immutable sequence, so every traversal is restartable and
// reproducible.
type Engine struct {
	path   string
	m      domain.Manifest
	state  State
	failed error // set when state == StateFailed
	events []domain.Event
}

// Open loads a dataset into a replay engine. With verifyHash set, the
// dataset digest is recomputed and checked against the manifest first; a
// mismatch moves the engine to its terminal Failed state and returns
// *IntegrityError. Schema or parse failures fail the engine the same way.
func Open(path string, m domain.Manifest, verifyHash bool) (*Engine, error) {
	e := &Engine{path: path, m: m, state: StateVerifying}

	if verifyHash {
		res, err := manifest.Verify(path, m)
		if err != nil {
			e.state = StateFailed
			e.failed = err
			return e, err
		}
		if !res.Valid {
			e.state = StateFailed
			e.failed = &IntegrityError{
				Path:           path,
				ExpectedHash:   res.ExpectedHash,
				RecomputedHash: res.RecomputedHash,
			}
			return e, e.failed
		}
	}

	txns, err := dataset.ReadFile(path)
	if err != nil {
		e.state = StateFailed
		e.failed = err
		return e, err
	}

	e.events = liftSorted(txns)
	e.state = StateReady
	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Manifest returns the manifest the engine was opened with.
func (e *Engine) Manifest() domain.Manifest {
	return e.m
}

// Path returns the dataset path the engine was opened with.
func (e *Engine) Path() string {
	return e.path
}

// Len returns the number of loaded events.
func (e *Engine) Len() int {
	return len(e.events)
}

// guard returns the terminal failure, if any.
func (e *Engine) guard() error {
	if e.state == StateFailed {
		return e.failed
	}
	return nil
}

// Stream returns a fresh iterator over the loaded events in timestamp
// order. maxEvents <= 0 means the whole dataset. speedMultiplier is carried
// as pacing metadata for Interval; it never changes event content or order.
// Each call starts from the beginning and owns its own cursor, so concurrent
// or repeated streams never disturb one another.
func (e *Engine) Stream(maxEvents int, speedMultiplier float64) (*Stream, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}

	limit := len(e.events)
	if maxEvents > 0 && maxEvents < limit {
		limit = maxEvents
	}
	if speedMultiplier <= 0 {
		speedMultiplier = 1.0
	}

	e.state = StateStreaming
	return &Stream{engine: e, events: e.events[:limit], speed: speedMultiplier}, nil
}

// Window selects events with timestamp in [endMS - windowDays*day, endMS).
// The bound is half-open: an event exactly at endMS is excluded, one exactly
// at the lower bound is included. Zero matching events fail with
// *EmptyWindowError.
func (e *Engine) Window(endMS int64, windowDays int) (domain.Window, error) {
	w, err := e.WindowAllowEmpty(endMS, windowDays)
	if err != nil {
		return domain.Window{}, err
	}
	if len(w.Events) == 0 {
		return domain.Window{}, &EmptyWindowError{StartMS: w.StartMS, EndMS: w.EndMS}
	}
	return w, nil
}

// WindowAllowEmpty is Window for callers that explicitly accept zero events.
func (e *Engine) WindowAllowEmpty(endMS int64, windowDays int) (domain.Window, error) {
	if err := e.guard(); err != nil {
		return domain.Window{}, err
	}
	if windowDays <= 0 {
		return domain.Window{}, fmt.Errorf("window days must be positive, got %d", windowDays)
	}

	startMS := endMS - int64(windowDays)*msPerDay

	// events are sorted by timestamp, so the window is a contiguous run.
	lo := sort.Search(len(e.events), func(i int) bool {
		return e.events[i].Transaction.TimestampMS >= startMS
	})
	hi := sort.Search(len(e.events), func(i int) bool {
		return e.events[i].Transaction.TimestampMS >= endMS
	})

	events := make([]domain.Event, hi-lo)
	copy(events, e.events[lo:hi])

	return domain.Window{
		Label:   domain.WindowLabelSample,
		StartMS: startMS,
		EndMS:   endMS,
		Events:  events,
	}, nil
}

// Stream is a lazy, finite cursor over an engine's event sequence.
type Stream struct {
	engine *Engine
	events []domain.Event
	pos    int
	speed  float64
}

// Next returns the next event in timestamp order. The second return value
// is false once the stream is exhausted.
func (s *Stream) Next() (domain.Event, bool) {
	if s.pos >= len(s.events) {
		if s.engine.state == StateStreaming {
			s.engine.state = StateExhausted
		}
		return domain.Event{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	if s.pos == len(s.events) && s.engine.state == StateStreaming {
		s.engine.state = StateExhausted
	}
	return ev, true
}

// Remaining returns how many events the stream has not yet emitted.
func (s *Stream) Remaining() int {
	return len(s.events) - s.pos
}

// Interval returns the wall-clock delay a pacing consumer should apply
// between two consecutive events at the stream's speed multiplier, capped at
// one second. The engine itself never sleeps; correctness must not depend
// on timing.
func (s *Stream) Interval(prev, cur domain.Event) time.Duration {
	deltaMS := cur.Transaction.TimestampMS - prev.Transaction.TimestampMS
	if deltaMS <= 0 {
		return 0
	}
	scaled := time.Duration(float64(deltaMS) / s.speed * float64(time.Millisecond))
	if scaled > time.Second {
		return time.Second
	}
	return scaled
}
