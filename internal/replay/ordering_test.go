package replay

import (
	"testing"

	"driftlab/internal/domain"
)

func TestSortTransactions_TiesKeepFileOrder(t *testing.T) {
	txns := []domain.Transaction{
		mkTxn("T3", "C", testBaseMS+1000, 3.0),
		mkTxn("T1", "A", testBaseMS, 1.0),
		mkTxn("T2", "B", testBaseMS, 2.0), // same timestamp as T1, later in file
	}

	SortTransactions(txns)

	want := []string{"T1", "T2", "T3"}
	for i, w := range want {
		if txns[i].Invoice != w {
			t.Errorf("position %d = %q, want %q", i, txns[i].Invoice, w)
		}
	}
}

func TestLiftSorted_AssignsSeq(t *testing.T) {
	txns := []domain.Transaction{
		mkTxn("T2", "B", testBaseMS+500, 2.0),
		mkTxn("T1", "A", testBaseMS, 1.0),
	}

	events := liftSorted(txns)

	if len(events) != 2 {
		t.Fatalf("liftSorted returned %d events, want 2", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i) {
			t.Errorf("events[%d].Seq = %d, want %d", i, ev.Seq, i)
		}
	}
	if events[0].Transaction.Invoice != "T1" {
		t.Errorf("events[0] = %q, want T1", events[0].Transaction.Invoice)
	}

	// Input slice is not reordered.
	if txns[0].Invoice != "T2" {
		t.Errorf("input mutated: txns[0] = %q, want T2", txns[0].Invoice)
	}
}

func TestVerifyOrdering(t *testing.T) {
	ok := []domain.Event{
		{Seq: 0, Transaction: mkTxn("T1", "A", testBaseMS, 1.0)},
		{Seq: 1, Transaction: mkTxn("T2", "B", testBaseMS, 2.0)},
		{Seq: 2, Transaction: mkTxn("T3", "C", testBaseMS+1, 3.0)},
	}
	if err := VerifyOrdering(ok); err != nil {
		t.Errorf("VerifyOrdering(valid) = %v, want nil", err)
	}

	badTS := []domain.Event{
		{Seq: 0, Transaction: mkTxn("T1", "A", testBaseMS+1, 1.0)},
		{Seq: 1, Transaction: mkTxn("T2", "B", testBaseMS, 2.0)},
	}
	if err := VerifyOrdering(badTS); err != ErrInvalidOrdering {
		t.Errorf("VerifyOrdering(decreasing ts) = %v, want ErrInvalidOrdering", err)
	}

	badSeq := []domain.Event{
		{Seq: 5, Transaction: mkTxn("T1", "A", testBaseMS, 1.0)},
		{Seq: 5, Transaction: mkTxn("T2", "B", testBaseMS, 2.0)},
	}
	if err := VerifyOrdering(badSeq); err != ErrInvalidOrdering {
		t.Errorf("VerifyOrdering(duplicate seq) = %v, want ErrInvalidOrdering", err)
	}
}

func TestCompareEvents_Order(t *testing.T) {
	a := domain.Event{Seq: 0, Transaction: mkTxn("T1", "A", testBaseMS, 1.0)}
	b := domain.Event{Seq: 1, Transaction: mkTxn("T2", "B", testBaseMS, 2.0)}
	c := domain.Event{Seq: 2, Transaction: mkTxn("T3", "C", testBaseMS+1, 3.0)}

	if got := compareEvents(a, b); got >= 0 {
		t.Errorf("compareEvents(a, b) = %d, want negative (seq tie-break)", got)
	}
	if got := compareEvents(c, b); got <= 0 {
		t.Errorf("compareEvents(c, b) = %d, want positive (later timestamp)", got)
	}
	if got := compareEvents(a, a); got != 0 {
		t.Errorf("compareEvents(a, a) = %d, want 0", got)
	}
}
