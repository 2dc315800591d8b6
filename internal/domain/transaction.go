package domain

// Transaction represents a single retail transaction lifted from a dataset row.
// Field order mirrors the dataset columns.
type Transaction struct {
	Invoice     string  // invoice number ("SPOOF00001" etc. for injected rows)
	StockCode   string  // product SKU
	Description string  // product description
	Quantity    int64   // units sold
	TimestampMS int64   // invoice timestamp, Unix milliseconds UTC
	Price       float64 // unit price
	CustomerID  string  // customer identifier (may be empty)
	Country     string  // country name
}

// Revenue returns quantity * unit price for this transaction.
func (t Transaction) Revenue() float64 {
	return float64(t.Quantity) * t.Price
}

// Event is a transaction lifted into the replay stream. Seq is the emission
// order assigned after load-time sorting and is monotonically non-decreasing
// across a stream. Events are read-only to consumers.
type Event struct {
	Seq         int64
	Transaction Transaction
}
