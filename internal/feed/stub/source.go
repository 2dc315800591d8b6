package stub

import (
	"context"
	"errors"
	"sync"

	"driftlab/internal/domain"
	"driftlab/internal/feed"
)

// ErrClosed is returned when subscribing to a closed source.
var ErrClosed = errors.New("source closed")

// Source implements feed.Source for testing. Events passed to Publish fan
// out to every subscription whose filter matches.
type Source struct {
	mu     sync.Mutex
	subs   []*subscription
	closed bool
}

type subscription struct {
	ch        chan domain.Event
	countries map[string]struct{}
}

var _ feed.Source = (*Source)(nil)

// NewSource creates a new stub feed source.
func NewSource() *Source {
	return &Source{}
}

// Subscribe registers a new filtered stream.
func (s *Source) Subscribe(_ context.Context, filter feed.Filter) (<-chan domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	sub := &subscription{ch: make(chan domain.Event, 256)}
	if len(filter.Countries) > 0 {
		sub.countries = make(map[string]struct{}, len(filter.Countries))
		for _, country := range filter.Countries {
			sub.countries[country] = struct{}{}
		}
	}

	s.subs = append(s.subs, sub)
	return sub.ch, nil
}

// Publish delivers the event to all matching subscriptions. It blocks if a
// subscriber falls more than one buffer behind.
func (s *Source) Publish(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for _, sub := range s.subs {
		if sub.countries != nil {
			if _, ok := sub.countries[ev.Transaction.Country]; !ok {
				continue
			}
		}
		sub.ch <- ev
	}
}

// PublishAll publishes events in order.
func (s *Source) PublishAll(evs []domain.Event) {
	for _, ev := range evs {
		s.Publish(ev)
	}
}

// Close closes all subscription channels. Subsequent publishes are dropped.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	return nil
}
