package replay

import (
	"fmt"
	"math"

	"driftlab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons between replays.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between two replays of one event.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // value from the first replay
	Actual   interface{} // value from the second replay
}

// EventDivergence collects the divergent fields of a single event position.
type EventDivergence struct {
	Position    int               // index in the emission sequence
	Divergences []FieldDivergence // list of divergent fields
}

// DeterminismReport contains the result of replaying a dataset twice and
// comparing the two emission sequences event by event.
type DeterminismReport struct {
	TotalEvents     int               // events compared
	MatchedEvents   int               // events identical across replays
	DivergentEvents int               // events with at least one divergence
	Results         []EventDivergence // per-event divergences, empty when deterministic
}

// Deterministic reports whether the two replays were identical.
func (r *DeterminismReport) Deterministic() bool {
	return r.DivergentEvents == 0
}

// VerifyDeterminism opens the dataset twice and compares the two emission
// sequences field by field. Any divergence means load or ordering is
// consuming a source of nondeterminism and the report pinpoints where.
func VerifyDeterminism(path string, m domain.Manifest, verifyHash bool) (*DeterminismReport, error) {
	first, err := Open(path, m, verifyHash)
	if err != nil {
		return nil, err
	}
	second, err := Open(path, m, verifyHash)
	if err != nil {
		return nil, err
	}
	return compareReplays(first, second)
}

// compareReplays drains both engines and diffs the sequences.
func compareReplays(first, second *Engine) (*DeterminismReport, error) {
	if first.Len() != second.Len() {
		return nil, fmt.Errorf("replay lengths diverge: %d vs %d events", first.Len(), second.Len())
	}

	a, err := first.Stream(0, 1.0)
	if err != nil {
		return nil, err
	}
	b, err := second.Stream(0, 1.0)
	if err != nil {
		return nil, err
	}

	report := &DeterminismReport{}
	for pos := 0; ; pos++ {
		ea, okA := a.Next()
		eb, okB := b.Next()
		if !okA || !okB {
			break
		}
		report.TotalEvents++

		divs := CompareEvents(ea, eb)
		if len(divs) == 0 {
			report.MatchedEvents++
			continue
		}
		report.DivergentEvents++
		report.Results = append(report.Results, EventDivergence{Position: pos, Divergences: divs})
	}
	return report, nil
}

// CompareEvents compares two events field by field. Prices use
// FloatTolerance; everything else must match exactly.
func CompareEvents(expected, actual domain.Event) []FieldDivergence {
	var divergences []FieldDivergence

	if expected.Seq != actual.Seq {
		divergences = append(divergences, FieldDivergence{
			Field:    "Seq",
			Expected: expected.Seq,
			Actual:   actual.Seq,
		})
	}

	if expected.Transaction.Invoice != actual.Transaction.Invoice {
		divergences = append(divergences, FieldDivergence{
			Field:    "Invoice",
			Expected: expected.Transaction.Invoice,
			Actual:   actual.Transaction.Invoice,
		})
	}

	if expected.Transaction.StockCode != actual.Transaction.StockCode {
		divergences = append(divergences, FieldDivergence{
			Field:    "StockCode",
			Expected: expected.Transaction.StockCode,
			Actual:   actual.Transaction.StockCode,
		})
	}

	if expected.Transaction.Description != actual.Transaction.Description {
		divergences = append(divergences, FieldDivergence{
			Field:    "Description",
			Expected: expected.Transaction.Description,
			Actual:   actual.Transaction.Description,
		})
	}

	if expected.Transaction.Quantity != actual.Transaction.Quantity {
		divergences = append(divergences, FieldDivergence{
			Field:    "Quantity",
			Expected: expected.Transaction.Quantity,
			Actual:   actual.Transaction.Quantity,
		})
	}

	if expected.Transaction.TimestampMS != actual.Transaction.TimestampMS {
		divergences = append(divergences, FieldDivergence{
			Field:    "TimestampMS",
			Expected: expected.Transaction.TimestampMS,
			Actual:   actual.Transaction.TimestampMS,
		})
	}

	if !floatEquals(expected.Transaction.Price, actual.Transaction.Price) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Price",
			Expected: expected.Transaction.Price,
			Actual:   actual.Transaction.Price,
		})
	}

	if expected.Transaction.CustomerID != actual.Transaction.CustomerID {
		divergences = append(divergences, FieldDivergence{
			Field:    "CustomerID",
			Expected: expected.Transaction.CustomerID,
			Actual:   actual.Transaction.CustomerID,
		})
	}

	if expected.Transaction.Country != actual.Transaction.Country {
		divergences = append(divergences, FieldDivergence{
			Field:    "Country",
			Expected: expected.Transaction.Country,
			Actual:   actual.Transaction.Country,
		})
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
