package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockboard/internal/stock"
)

// TokenBucket is a stdlib-only token bucket limiter.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst), // start full to allow an initial burst
		last:     time.Now(),
	}
}

// wait blocks until one token is available or context is canceled.
func (tb *TokenBucket) wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		// Refill
		elapsed := now.Sub(tb.last).Seconds()
		if elapsed > 0 {
			tb.tokens += elapsed * tb.rate
			if tb.tokens > tb.capacity {
				tb.tokens = tb.capacity
			}
			tb.last = now
		}
		if tb.tokens >= 1 {
			tb.tokens -= 1
			tb.mu.Unlock()
			return nil
		}
		// Need to wait for the remaining fraction
		deficit := 1 - tb.tokens
		tb.mu.Unlock()
		// time needed to accumulate one token
		waitDur := time.Duration(deficit/tb.rate*1e9) * time.Nanosecond
		if waitDur <= 0 {
			waitDur = time.Millisecond
		}
		timer := time.NewTimer(waitDur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Source wraps a stock.Source and gates every remote call with a token
// bucket, so the free-tier per-minute quota is spent evenly.
type Source struct {
	Next stock.Source
	TB   *TokenBucket
}

func (s *Source) Quote(ctx context.Context, symbol string) (stock.Quote, error) {
	if s.TB != nil {
		if err := s.TB.wait(ctx); err != nil {
			return stock.Quote{}, err
		}
	}
	return s.Next.Quote(ctx, symbol)
}

func (s *Source) Daily(ctx context.Context, symbol string) (stock.History, error) {
	if s.TB != nil {
		if err := s.TB.wait(ctx); err != nil {
			return nil, err
		}
	}
	return s.Next.Daily(ctx, symbol)
}

func (s *Source) Overview(ctx context.Context, symbol string) (stock.Overview, error) {
	if s.TB != nil {
		if err := s.TB.wait(ctx); err != nil {
			return stock.Overview{}, err
		}
	}
	return s.Next.Overview(ctx, symbol)
}
