package feed

import "driftlab/internal/domain"

// Frame types carried in Frame.Type. A subscriber sends exactly one
// "subscribe" frame per stream; the server answers with "subscribed" and
// then pushes "event" frames until either side closes.
const (
	TypeSubscribe  = "subscribe"
	TypeSubscribed = "subscribed"
	TypeEvent      = "event"
	TypeError      = "error"
)

// SubscribeRequest asks the feed server to start an event stream.
type SubscribeRequest struct {
	Type      string   `json:"type"`
	ID        uint64   `json:"id"`
	Countries []string `json:"countries,omitempty"`
}

// Frame is a single server-to-client message. Type selects which of the
// remaining fields are populated.
type Frame struct {
	Type         string      `json:"type"`
	ID           uint64      `json:"id,omitempty"`           // echoes SubscribeRequest.ID on acks and errors
	Subscription int64       `json:"subscription,omitempty"` // stream the frame belongs to
	Event        *EventFrame `json:"event,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// EventFrame is the wire form of a replay event.
type EventFrame struct {
	Seq         int64   `json:"seq"`
	Invoice     string  `json:"invoice"`
	StockCode   string  `json:"stock_code"`
	Description string  `json:"description,omitempty"`
	Quantity    int64   `json:"quantity"`
	TimestampMS int64   `json:"timestamp_ms"`
	Price       float64 `json:"price"`
	CustomerID  string  `json:"customer_id,omitempty"`
	Country     string  `json:"country"`
}

// EncodeEvent converts a domain event to its wire form.
func EncodeEvent(ev domain.Event) EventFrame {
	return EventFrame{
		Seq:         ev.Seq,
		Invoice:     ev.Transaction.Invoice,
		StockCode:   ev.Transaction.StockCode,
		Description: ev.Transaction.Description,
		Quantity:    ev.Transaction.Quantity,
		TimestampMS: ev.Transaction.TimestampMS,
		Price:       ev.Transaction.Price,
		CustomerID:  ev.Transaction.CustomerID,
		Country:     ev.Transaction.Country,
	}
}

// Event converts the wire form back to a domain event.
func (f EventFrame) Event() domain.Event {
	return domain.Event{
		Seq: f.Seq,
		Transaction: domain.Transaction{
			Invoice:     f.Invoice,
			StockCode:   f.StockCode,
			Description: f.Description,
			Quantity:    f.Quantity,
			TimestampMS: f.TimestampMS,
			Price:       f.Price,
			CustomerID:  f.CustomerID,
			Country:     f.Country,
		},
	}
}
