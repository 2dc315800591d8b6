// Package feed consumes a live transaction stream over WebSocket. A feed
// delivers the same domain events the replay engine emits, so downstream
// diagnostics do not care whether events were replayed or received live.
package feed

import (
	"context"

	"driftlab/internal/domain"
)

// Source delivers live transaction events.
type Source interface {
	// Subscribe opens a filtered event stream. The returned channel is
	// closed when the source shuts down.
	Subscribe(ctx context.Context, filter Filter) (<-chan domain.Event, error)

	// Close shuts the source down and releases its connections.
	Close() error
}

// Filter narrows a subscription.
type Filter struct {
	// Countries limits the stream to events from these countries.
	// Empty subscribes to the full stream.
	Countries []string
}
