package replay

import (
	"sort"

	"driftlab/internal/domain"
)

// SortTransactions orders transactions by timestamp ascending. Ties keep
// their original file order, so a dataset replays in exactly one sequence no
// matter how many rows share a timestamp.
func SortTransactions(txns []domain.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].TimestampMS < txns[j].TimestampMS
	})
}

// liftSorted sorts transactions and lifts them into replay events. Seq is
// assigned after sorting, so it reflects final emission order: event i has
// Seq i.
func liftSorted(txns []domain.Transaction) []domain.Event {
	sorted := make([]domain.Transaction, len(txns))
	copy(sorted, txns)
	SortTransactions(sorted)

	events := make([]domain.Event, len(sorted))
	for i, t := range sorted {
		events[i] = domain.Event{Seq: int64(i), Transaction: t}
	}
	return events
}

// compareEvents returns:
//   - negative if a should be emitted before b
//   - zero if the two are order-equivalent
//   - positive if a should be emitted after b
//
// Order: (timestamp ASC, seq ASC). Seq encodes original file order for
// equal timestamps.
func compareEvents(a, b domain.Event) int {
	if a.Transaction.TimestampMS != b.Transaction.TimestampMS {
		if a.Transaction.TimestampMS < b.Transaction.TimestampMS {
			return -1
		}
		return 1
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	return 0
}

// VerifyOrdering checks that events form a valid emission sequence:
// timestamps non-decreasing and Seq strictly increasing. Returns
// ErrInvalidOrdering on the first violation.
func VerifyOrdering(events []domain.Event) error {
	for i := 1; i < len(events); i++ {
		if compareEvents(events[i-1], events[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}
