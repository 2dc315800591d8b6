package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"driftlab/internal/domain"
	"driftlab/internal/schema"
)

// ErrEmptyDataset is returned when the file has no header row.
var ErrEmptyDataset = errors.New("dataset has no header row")

// timestampLayouts are the accepted InvoiceDate formats, tried in order.
// All timestamps are interpreted as UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006 15:04",
	"2006-01-02",
}

// ReadFile loads a dataset CSV, validates its header against the required
// schema and parses every row. Row order is preserved exactly as on disk.
func ReadFile(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	txns, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return txns, nil
}

// Read parses a dataset from r. The first record is the header; it must
// contain every required column (extras are ignored).
func Read(r io.Reader) ([]domain.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	idx, err := schema.Validate(header)
	if err != nil {
		return nil, err
	}

	var txns []domain.Transaction
	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		row++

		txn, err := parseRecord(record, idx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		txns = append(txns, txn)
	}

	return txns, nil
}

func parseRecord(record []string, idx schema.ColumnIndex) (domain.Transaction, error) {
	max := maxIndex(idx)
	if len(record) <= max {
		return domain.Transaction{}, fmt.Errorf("record has %d fields, need at least %d", len(record), max+1)
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(record[idx.Quantity]), 10, 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse Quantity %q: %w", record[idx.Quantity], err)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(record[idx.Price]), 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse Price %q: %w", record[idx.Price], err)
	}

	ts, err := ParseTimestamp(record[idx.InvoiceDate])
	if err != nil {
		return domain.Transaction{}, err
	}

	return domain.Transaction{
		Invoice:     record[idx.Invoice],
		StockCode:   record[idx.StockCode],
		Description: record[idx.Description],
		Quantity:    quantity,
		TimestampMS: ts,
		Price:       price,
		CustomerID:  strings.TrimSpace(record[idx.CustomerID]),
		Country:     record[idx.Country],
	}, nil
}

// ParseTimestamp parses an InvoiceDate value into Unix milliseconds UTC.
func ParseTimestamp(s string) (int64, error) {
	v := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("parse InvoiceDate %q: unrecognized format", s)
}

func maxIndex(idx schema.ColumnIndex) int {
	max := idx.Invoice
	for _, i := range []int{idx.StockCode, idx.Description, idx.Quantity, idx.InvoiceDate, idx.Price, idx.CustomerID, idx.Country} {
		if i > max {
			max = i
		}
	}
	return max
}
