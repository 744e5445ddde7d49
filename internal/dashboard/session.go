// Package dashboard coordinates the search flow. A Session owns the active
// data source, the load state machine, and the persisted preferences; there
// is no package-level mutable state.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"stockboard/internal/state"
	"stockboard/internal/stock"
)

// State is the session's position in the search lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// FetchAll retrieves quote, history, and overview for symbol concurrently
// and joins them into one record. Quote and history are mandatory; the first
// failure fails the join and cancels the rest. The overview branch cannot
// fail: any error there is replaced by the degraded name-only record.
func FetchAll(ctx context.Context, src stock.Source, symbol string) (*stock.Data, error) {
	data := &stock.Data{Symbol: symbol}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := src.Quote(ctx, symbol)
		if err != nil {
			return err
		}
		data.Quote = q
		return nil
	})
	g.Go(func() error {
		h, err := src.Daily(ctx, symbol)
		if err != nil {
			return err
		}
		data.History = h
		return nil
	})
	g.Go(func() error {
		o, err := src.Overview(ctx, symbol)
		if err != nil {
			o = stock.DegradedOverview(symbol)
		}
		data.Overview = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// Session drives searches against one source and remembers the outcome.
// Methods are safe for concurrent use.
type Session struct {
	src   stock.Source
	prefs *state.Store
	demo  bool

	mu      sync.Mutex
	state   State
	gen     uint64
	current *stock.Data
	lastErr error
}

// NewSession creates an idle session. prefs may be nil to skip persistence;
// demo marks the source as synthetic for display purposes.
func NewSession(src stock.Source, prefs *state.Store, demo bool) *Session {
	return &Session{src: src, prefs: prefs, demo: demo, state: StateIdle}
}

// Begin starts a search: it normalizes the symbol, moves the session to
// Loading, and returns the generation number the eventual Complete must
// present. An empty symbol is rejected without a state change.
func (s *Session) Begin(symbol string) (string, uint64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", 0, errors.New("empty symbol")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateLoading
	return symbol, s.gen, nil
}

// Fetch runs the fan-out against the session's source. Callers with an
// event loop pair it with Begin and Complete; everyone else uses Search.
func (s *Session) Fetch(ctx context.Context, symbol string) (*stock.Data, error) {
	return FetchAll(ctx, s.src, symbol)
}

// Complete applies a search outcome and reports whether it was applied.
// An outcome whose generation has been superseded by a newer Begin is
// dropped, so a stale response can never overwrite a fresher one.
func (s *Session) Complete(gen uint64, data *stock.Data, err error) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	var persist string
	if err != nil {
		s.state = StateErrored
		s.lastErr = err
	} else {
		s.state = StateLoaded
		s.current = data
		s.lastErr = nil
		persist = data.Symbol
	}
	s.mu.Unlock()

	if persist != "" && s.prefs != nil {
		// Best effort; a failed preference write must not fail the search.
		_ = s.prefs.SetLastSymbol(persist)
	}
	return true
}

// Search runs Begin, Fetch, and Complete synchronously, for callers without
// an event loop.
func (s *Session) Search(ctx context.Context, symbol string) (*stock.Data, error) {
	sym, gen, err := s.Begin(symbol)
	if err != nil {
		return nil, err
	}
	data, err := s.Fetch(ctx, sym)
	s.Complete(gen, data, err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Demo reports whether the session runs against the synthetic source.
func (s *Session) Demo() bool { return s.demo }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the last loaded record, nil before the first success.
func (s *Session) Current() *stock.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Err returns the error behind the Errored state, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
