package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stockboard/internal/stock"
)

// DefaultTTL is used when a store is built with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// entry stores one cached payload with its capture time.
type entry[T any] struct {
	capturedAt time.Time
	value      T
}

// Store is a time-boxed store for one payload kind, keyed by symbol.
// Capacity is unbounded; entries only leave by expiry or replacement.
type Store[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[string]entry[T]
}

func NewStore[T any](ttl time.Duration) *Store[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[T]{ttl: ttl, now: time.Now, items: make(map[string]entry[T])}
}

// Get returns the stored value when present and fresh. An entry whose age
// exceeds the TTL is evicted as a side effect and reported as a miss.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	if s.now().Sub(e.capturedAt) > s.ttl {
		delete(s.items, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Put records the value with the current time as its capture timestamp,
// replacing any previous entry for the key.
func (s *Store[T]) Put(key string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry[T]{capturedAt: s.now(), value: v}
}

// Len reports the number of entries, expired ones included.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Source caches results from an underlying source per symbol, one store per
// payload kind. Concurrent misses for the same key are coalesced so a burst
// of callers triggers a single upstream call.
type Source struct {
	next stock.Source

	quotes    *Store[stock.Quote]
	histories *Store[stock.History]
	overviews *Store[stock.Overview]

	sf singleflight.Group
}

// New wraps next with a TTL cache. A non-positive ttl falls back to
// DefaultTTL.
func New(next stock.Source, ttl time.Duration) *Source {
	return &Source{
		next:      next,
		quotes:    NewStore[stock.Quote](ttl),
		histories: NewStore[stock.History](ttl),
		overviews: NewStore[stock.Overview](ttl),
	}
}

// Quote returns the cached quote when fresh, otherwise fetches and caches.
// Errors pass through uncached.
func (s *Source) Quote(ctx context.Context, symbol string) (stock.Quote, error) {
	if q, ok := s.quotes.Get(symbol); ok {
		return q, nil
	}
	v, err, _ := s.sf.Do("quote:"+symbol, func() (any, error) {
		q, err := s.next.Quote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		s.quotes.Put(symbol, q)
		return q, nil
	})
	if err != nil {
		return stock.Quote{}, err
	}
	return v.(stock.Quote), nil
}

// Daily returns the cached history when fresh, otherwise fetches and caches.
func (s *Source) Daily(ctx context.Context, symbol string) (stock.History, error) {
	if h, ok := s.histories.Get(symbol); ok {
		return h, nil
	}
	v, err, _ := s.sf.Do("history:"+symbol, func() (any, error) {
		h, err := s.next.Daily(ctx, symbol)
		if err != nil {
			return nil, err
		}
		s.histories.Put(symbol, h)
		return h, nil
	})
	if err != nil {
		return stock.History{}, err
	}
	return v.(stock.History), nil
}

// Overview never fails: any upstream error degrades to a name-only record,
// and the degraded record is cached too, so a failing lookup is not repeated
// until the entry expires.
func (s *Source) Overview(ctx context.Context, symbol string) (stock.Overview, error) {
	if ov, ok := s.overviews.Get(symbol); ok {
		return ov, nil
	}
	v, _, _ := s.sf.Do("overview:"+symbol, func() (any, error) {
		ov, err := s.next.Overview(ctx, symbol)
		if err != nil || ov.Name == "" {
			ov = stock.DegradedOverview(symbol)
		}
		s.overviews.Put(symbol, ov)
		return ov, nil
	})
	return v.(stock.Overview), nil
}
