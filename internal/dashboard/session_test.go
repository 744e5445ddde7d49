package dashboard_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"stockboard/internal/dashboard"
	"stockboard/internal/state"
	"stockboard/internal/stock"
)

type fakeSource struct {
	quote    stock.Quote
	history  stock.History
	overview stock.Overview

	quoteErr error
	dailyErr error
	viewErr  error
}

func (f *fakeSource) Quote(_ context.Context, symbol string) (stock.Quote, error) {
	if f.quoteErr != nil {
		return stock.Quote{}, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeSource) Daily(_ context.Context, symbol string) (stock.History, error) {
	if f.dailyErr != nil {
		return nil, f.dailyErr
	}
	return f.history, nil
}

func (f *fakeSource) Overview(_ context.Context, symbol string) (stock.Overview, error) {
	if f.viewErr != nil {
		return stock.Overview{}, f.viewErr
	}
	return f.overview, nil
}

func workingSource() *fakeSource {
	return &fakeSource{
		quote: stock.Quote{Symbol: "AAPL", Price: 185.42, Change: 2.34, ChangePercent: 1.28},
		history: stock.History{
			{Date: stock.NewDate(2024, 1, 12), Close: 183.08, Volume: 1},
			{Date: stock.NewDate(2024, 1, 15), Close: 185.42, Volume: 1},
		},
		overview: stock.Overview{Name: "Apple Inc"},
	}
}

func TestFetchAll_JoinsAllThree(t *testing.T) {
	data, err := dashboard.FetchAll(t.Context(), workingSource(), "AAPL")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if data.Symbol != "AAPL" || data.Quote.Price != 185.42 {
		t.Fatalf("unexpected data: %+v", data)
	}
	if len(data.History) != 2 {
		t.Fatalf("want 2 history points, got %d", len(data.History))
	}
	if data.Overview.Name != "Apple Inc" {
		t.Fatalf("overview: %+v", data.Overview)
	}
}

func TestFetchAll_QuoteFailureFailsJoin(t *testing.T) {
	src := workingSource()
	src.quoteErr = stock.ErrInvalidSymbol

	data, err := dashboard.FetchAll(t.Context(), src, "NOPE")
	if data != nil {
		t.Fatalf("want nil data, got %+v", data)
	}
	if !errors.Is(err, stock.ErrInvalidSymbol) {
		t.Fatalf("want invalid symbol, got %v", err)
	}
}

func TestFetchAll_HistoryFailureFailsJoin(t *testing.T) {
	src := workingSource()
	src.dailyErr = stock.ErrNoData

	_, err := dashboard.FetchAll(t.Context(), src, "AAPL")
	if !errors.Is(err, stock.ErrNoData) {
		t.Fatalf("want no data, got %v", err)
	}
}

func TestFetchAll_OverviewFailureDegrades(t *testing.T) {
	src := workingSource()
	src.viewErr = errors.New("quota exceeded")

	data, err := dashboard.FetchAll(t.Context(), src, "AAPL")
	if err != nil {
		t.Fatalf("overview failure must not fail the join: %v", err)
	}
	if data.Overview.Name != "AAPL" {
		t.Fatalf("want degraded name-only overview, got %+v", data.Overview)
	}
}

func TestSession_SearchLifecycle(t *testing.T) {
	sess := dashboard.NewSession(workingSource(), nil, false)
	if sess.State() != dashboard.StateIdle {
		t.Fatalf("want idle, got %s", sess.State())
	}

	data, err := sess.Search(t.Context(), "aapl")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if data.Symbol != "AAPL" {
		t.Fatalf("symbol not normalized: %q", data.Symbol)
	}
	if sess.State() != dashboard.StateLoaded {
		t.Fatalf("want loaded, got %s", sess.State())
	}
	if sess.Current() == nil || sess.Err() != nil {
		t.Fatalf("current=%v err=%v", sess.Current(), sess.Err())
	}
}

func TestSession_BeginRejectsEmptySymbol(t *testing.T) {
	sess := dashboard.NewSession(workingSource(), nil, false)
	if _, _, err := sess.Begin("   "); err == nil {
		t.Fatalf("want error for blank symbol")
	}
	if sess.State() != dashboard.StateIdle {
		t.Fatalf("blank symbol must not change state, got %s", sess.State())
	}
}

func TestSession_BeginNormalizes(t *testing.T) {
	sess := dashboard.NewSession(workingSource(), nil, false)
	sym, gen, err := sess.Begin("  msft ")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if sym != "MSFT" || gen == 0 {
		t.Fatalf("sym=%q gen=%d", sym, gen)
	}
	if sess.State() != dashboard.StateLoading {
		t.Fatalf("want loading, got %s", sess.State())
	}
}

func TestSession_StaleGenerationDropped(t *testing.T) {
	sess := dashboard.NewSession(workingSource(), nil, false)

	_, gen1, err := sess.Begin("AAPL")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	sym2, gen2, err := sess.Begin("MSFT")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// The first search finishes after being superseded; its result must not
	// land.
	stale := &stock.Data{Symbol: "AAPL"}
	if sess.Complete(gen1, stale, nil) {
		t.Fatalf("stale completion applied")
	}
	if sess.State() != dashboard.StateLoading {
		t.Fatalf("stale completion changed state to %s", sess.State())
	}

	fresh := &stock.Data{Symbol: sym2}
	if !sess.Complete(gen2, fresh, nil) {
		t.Fatalf("fresh completion dropped")
	}
	if got := sess.Current(); got == nil || got.Symbol != "MSFT" {
		t.Fatalf("current: %+v", got)
	}
}

func TestSession_FailureSetsErrored(t *testing.T) {
	src := workingSource()
	src.quoteErr = stock.ErrRateLimited
	sess := dashboard.NewSession(src, nil, false)

	_, err := sess.Search(t.Context(), "AAPL")
	if !errors.Is(err, stock.ErrRateLimited) {
		t.Fatalf("want rate limited, got %v", err)
	}
	if sess.State() != dashboard.StateErrored {
		t.Fatalf("want errored, got %s", sess.State())
	}
	if !errors.Is(sess.Err(), stock.ErrRateLimited) {
		t.Fatalf("err: %v", sess.Err())
	}
}

func TestSession_FailureKeepsPreviousData(t *testing.T) {
	src := workingSource()
	sess := dashboard.NewSession(src, nil, false)

	if _, err := sess.Search(t.Context(), "AAPL"); err != nil {
		t.Fatalf("search: %v", err)
	}

	src.quoteErr = stock.ErrRateLimited
	if _, err := sess.Search(t.Context(), "MSFT"); err == nil {
		t.Fatalf("want failure")
	}

	if sess.State() != dashboard.StateErrored {
		t.Fatalf("want errored, got %s", sess.State())
	}
	if got := sess.Current(); got == nil || got.Symbol != "AAPL" {
		t.Fatalf("previous data lost: %+v", got)
	}
}

func TestSession_PersistsLastSymbol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := state.Open(path)
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	sess := dashboard.NewSession(workingSource(), store, false)

	if _, err := sess.Search(t.Context(), "aapl"); err != nil {
		t.Fatalf("search: %v", err)
	}

	reopened, err := state.Open(path)
	if err != nil {
		t.Fatalf("reopen state: %v", err)
	}
	if got := reopened.Prefs().LastSymbol; got != "AAPL" {
		t.Fatalf("want AAPL persisted, got %q", got)
	}
}

func TestSession_DemoFlag(t *testing.T) {
	if !dashboard.NewSession(workingSource(), nil, true).Demo() {
		t.Fatalf("demo flag dropped")
	}
	if dashboard.NewSession(workingSource(), nil, false).Demo() {
		t.Fatalf("demo flag invented")
	}
}
