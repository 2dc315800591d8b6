package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"driftlab/internal/domain"
)

func TestRunner_DeliversInOrder(t *testing.T) {
	path, m := writeDataset(t, fourTxns())
	e, err := Open(path, m, true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var got []domain.Event
	sink := EventSinkFunc(func(_ context.Context, ev domain.Event) error {
		got = append(got, ev)
		return nil
	})

	n, err := NewRunner(e).Run(context.Background(), 0, 1.0, false, sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 4 || len(got) != 4 {
		t.Fatalf("Run() delivered %d events (sink saw %d), want 4", n, len(got))
	}
	if err := VerifyOrdering(got); err != nil {
		t.Errorf("VerifyOrdering(delivered) = %v", err)
	}
}

func TestRunner_SinkErrorStops(t *testing.T) {
	path, m := writeDataset(t, fourTxns())
	e, err := Open(path, m, true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	sinkErr := errors.New("sink full")
	calls := 0
	sink := EventSinkFunc(func(_ context.Context, _ domain.Event) error {
		calls++
		if calls == 2 {
			return sinkErr
		}
		return nil
	})

	n, err := NewRunner(e).Run(context.Background(), 0, 1.0, false, sink)
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Run() error = %v, want sink error", err)
	}
	if n != 1 {
		t.Errorf("Run() delivered %d events before failing, want 1", n)
	}
	if calls != 2 {
		t.Errorf("sink called %d times, want 2", calls)
	}
}

func TestRunner_ContextCancelled(t *testing.T) {
	path, m := writeDataset(t, fourTxns())
	e, err := Open(path, m, true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sink := EventSinkFunc(func(_ context.Context, _ domain.Event) error {
		cancel()
		return nil
	})

	_, err = NewRunner(e).Run(ctx, 0, 1.0, false, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunner_RealtimePacing(t *testing.T) {
	// 500ms apart at 2x speed: one 250ms sleep between the two events.
	txns := []domain.Transaction{
		mkTxn("T1", "A", testBaseMS, 1.0),
		mkTxn("T2", "B", testBaseMS+500, 2.0),
	}
	path, m := writeDataset(t, txns)
	e, err := Open(path, m, true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	r := NewRunner(e)
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	sink := EventSinkFunc(func(_ context.Context, _ domain.Event) error { return nil })
	if _, err := r.Run(context.Background(), 0, 2.0, true, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(slept) != 1 {
		t.Fatalf("slept %d times, want 1", len(slept))
	}
	if slept[0] != 250*time.Millisecond {
		t.Errorf("sleep = %v, want 250ms", slept[0])
	}
}

func TestRunner_PacingCappedAtOneSecond(t *testing.T) {
	// A full day between events must never stall the run for a day.
	txns := []domain.Transaction{
		mkTxn("T1", "A", testBaseMS, 1.0),
		mkTxn("T2", "B", testBaseMS+dayMS, 2.0),
	}
	path, m := writeDataset(t, txns)
	e, err := Open(path, m, true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	r := NewRunner(e)
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	sink := EventSinkFunc(func(_ context.Context, _ domain.Event) error { return nil })
	if _, err := r.Run(context.Background(), 0, 1.0, true, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(slept) != 1 || slept[0] != time.Second {
		t.Errorf("slept = %v, want exactly [1s]", slept)
	}
}
