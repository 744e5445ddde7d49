package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockboard/internal/stock"
)

// MinInterval wraps a stock.Source and enforces a minimum time between calls.
// Concurrent calls will wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	Next     stock.Source
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Quote(ctx context.Context, symbol string) (stock.Quote, error) {
	if err := m.gate(ctx); err != nil {
		return stock.Quote{}, err
	}
	q, err := m.Next.Quote(ctx, symbol)
	m.stamp()
	return q, err
}

func (m *MinInterval) Daily(ctx context.Context, symbol string) (stock.History, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	h, err := m.Next.Daily(ctx, symbol)
	m.stamp()
	return h, err
}

func (m *MinInterval) Overview(ctx context.Context, symbol string) (stock.Overview, error) {
	if err := m.gate(ctx); err != nil {
		return stock.Overview{}, err
	}
	o, err := m.Next.Overview(ctx, symbol)
	m.stamp()
	return o, err
}

// gate blocks until Interval has elapsed since the last call.
func (m *MinInterval) gate(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (m *MinInterval) stamp() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
