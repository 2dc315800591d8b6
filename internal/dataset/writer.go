package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"driftlab/internal/domain"
	"driftlab/internal/schema"
)

// WriteFile writes transactions as a dataset CSV with the required header.
// Output is deterministic for a given input slice.
func WriteFile(path string, txns []domain.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}

	if err := Write(f, txns); err != nil {
		f.Close()
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	return f.Close()
}

// Write writes the header and one record per transaction to w.
func Write(w io.Writer, txns []domain.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(schema.RequiredColumns); err != nil {
		return err
	}
	for _, t := range txns {
		record := []string{
			t.Invoice,
			t.StockCode,
			t.Description,
			strconv.FormatInt(t.Quantity, 10),
			FormatTimestamp(t.TimestampMS),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			t.CustomerID,
			t.Country,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatTimestamp renders Unix milliseconds as an InvoiceDate string.
// Millisecond precision is kept only when present so whole-second data
// round-trips byte-identically.
func FormatTimestamp(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	if ms%1000 != 0 {
		return t.Format("2006-01-02 15:04:05.000")
	}
	return t.Format("2006-01-02 15:04:05")
}
