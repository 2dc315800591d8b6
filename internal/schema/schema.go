package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Dataset column names. A dataset header must contain every one of these;
// unrecognized extra columns are tolerated and ignored.
const (
	ColumnInvoice     = "Invoice"
	ColumnStockCode   = "StockCode"
	ColumnDescription = "Description"
	ColumnQuantity    = "Quantity"
	ColumnInvoiceDate = "InvoiceDate"
	ColumnPrice       = "Price"
	ColumnCustomerID  = "Customer ID"
	ColumnCountry     = "Country"
)

// RequiredColumns is the frozen dataset schema, in canonical order.
var RequiredColumns = []string{
	ColumnInvoice,
	ColumnStockCode,
	ColumnDescription,
	ColumnQuantity,
	ColumnInvoiceDate,
	ColumnPrice,
	ColumnCustomerID,
	ColumnCountry,
}

// ValidationError reports a header that does not satisfy the required
// schema. Missing lists required columns absent from the header; Extra lists
// header columns outside the required set. Both are sorted.
type ValidationError struct {
	Missing []string
	Extra   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: missing columns [%s], unexpected columns [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Extra, ", "))
}

// ColumnIndex maps each required column to its position in a dataset header.
type ColumnIndex struct {
	Invoice     int
	StockCode   int
	Description int
	Quantity    int
	InvoiceDate int
	Price       int
	CustomerID  int
	Country     int
}

// Validate checks a dataset header against the required schema. Missing
// required columns fail with *ValidationError (which also lists any
// unexpected columns); extra columns alone are tolerated. On success the
// returned index locates every required column in the header.
func Validate(header []string) (ColumnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, col := range header {
		if _, ok := positions[col]; !ok {
			positions[col] = i
		}
	}

	required := make(map[string]bool, len(RequiredColumns))
	var missing []string
	for _, col := range RequiredColumns {
		required[col] = true
		if _, ok := positions[col]; !ok {
			missing = append(missing, col)
		}
	}

	var extra []string
	for col := range positions {
		if !required[col] {
			extra = append(extra, col)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)

	if len(missing) > 0 {
		return ColumnIndex{}, &ValidationError{Missing: missing, Extra: extra}
	}

	return ColumnIndex{
		Invoice:     positions[ColumnInvoice],
		StockCode:   positions[ColumnStockCode],
		Description: positions[ColumnDescription],
		Quantity:    positions[ColumnQuantity],
		InvoiceDate: positions[ColumnInvoiceDate],
		Price:       positions[ColumnPrice],
		CustomerID:  positions[ColumnCustomerID],
		Country:     positions[ColumnCountry],
	}, nil
}
