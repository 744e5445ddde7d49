// Package demo implements a stock.Source that synthesizes plausible data
// with no network access, for running the dashboard without an API key.
package demo

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"stockboard/internal/stock"
)

const (
	// DefaultDelay simulates network latency so loading states stay visible.
	DefaultDelay = 350 * time.Millisecond

	historyDays      = 100
	defaultBasePrice = 100.0
)

// Familiar tickers start their random walk near a recognizable price.
var basePrices = map[string]float64{
	"AAPL":  185.0,
	"MSFT":  420.0,
	"GOOGL": 175.0,
	"AMZN":  220.0,
	"TSLA":  175.0,
	"NVDA":  140.0,
}

// Source generates demo data. Each symbol is generated once and memoized so
// quote, history, and overview stay coherent across the fan-out calls.
type Source struct {
	delay time.Duration
	now   func() time.Time

	mu   sync.Mutex
	rng  *rand.Rand
	data map[string]stock.Data
}

// Option configures a Source.
type Option func(*Source)

// WithDelay overrides the simulated latency. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(s *Source) {
		s.delay = d
	}
}

// WithSeed makes generation deterministic.
func WithSeed(seed int64) Option {
	return func(s *Source) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithClock overrides the time source for date stamping.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

// New creates a demo Source.
func New(options ...Option) *Source {
	var source = &Source{
		delay: DefaultDelay,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		data:  map[string]stock.Data{},
	}

	for _, option := range options {
		option(source)
	}

	return source
}

// Quote implements stock.Source. It never fails beyond ctx cancellation.
func (s *Source) Quote(ctx context.Context, symbol string) (stock.Quote, error) {
	if err := s.wait(ctx); err != nil {
		return stock.Quote{}, err
	}
	return s.dataFor(symbol).Quote, nil
}

// Daily implements stock.Source.
func (s *Source) Daily(ctx context.Context, symbol string) (stock.History, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.dataFor(symbol).History, nil
}

// Overview implements stock.Source.
func (s *Source) Overview(ctx context.Context, symbol string) (stock.Overview, error) {
	if err := s.wait(ctx); err != nil {
		return stock.Overview{}, err
	}
	return s.dataFor(symbol).Overview, nil
}

// wait sleeps for the simulated latency, honoring cancellation.
func (s *Source) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Source) dataFor(symbol string) stock.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[symbol]
	if !ok {
		d = s.generate(symbol)
		s.data[symbol] = d
	}
	return d
}

// generate builds one coherent record: a quote around the symbol's base
// price, a random-walk history ending yesterday at roughly the quote price,
// and an overview spanning that history's extremes. Caller holds s.mu.
func (s *Source) generate(symbol string) stock.Data {
	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}
	price := base + s.uniform(-5, 5)
	change := s.uniform(-3, 3)
	now := s.now()

	quote := stock.Quote{
		Symbol:           symbol,
		Price:            round2(price),
		Change:           round2(change),
		ChangePercent:    round2(change / price * 100),
		Open:             round2(price - s.uniform(0, 2)),
		High:             round2(price + s.uniform(0, 3)),
		Low:              round2(price - s.uniform(0, 3)),
		Volume:           s.volume(),
		PrevClose:        round2(price - change),
		LatestTradingDay: stock.DateOf(now).String(),
	}
	history := s.history(price, now)
	overview := stock.Overview{Name: symbol + " (Demo)"}
	if len(history) > 0 {
		high, low := history.Extremes()
		overview.High52 = &high
		overview.Low52 = &low
	}

	return stock.Data{
		Symbol:   symbol,
		Quote:    quote,
		History:  history,
		Overview: overview,
	}
}

// history walks prices backward from 10% under the quote price, one point
// per weekday, ending the day before now.
func (s *Source) history(quotePrice float64, now time.Time) stock.History {
	h := make(stock.History, 0, historyDays)
	price := quotePrice * 0.9
	for i := 0; i < historyDays; i++ {
		day := now.AddDate(0, 0, -(historyDays - i))
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		step := s.uniform(-0.03, 0.035) * price
		price = max(price*0.5, min(price*1.5, price+step))
		volatility := s.uniform(1, 4)

		h = append(h, stock.HistoryPoint{
			Date:   stock.DateOf(day),
			Open:   round2(price - volatility),
			High:   round2(price + volatility + s.uniform(0, 2)),
			Low:    round2(price - volatility - s.uniform(0, 2)),
			Close:  round2(price),
			Volume: s.volume(),
		})
	}
	return h
}

func (s *Source) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Source) volume() int64 {
	return 20_000_000 + s.rng.Int63n(60_000_001)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
