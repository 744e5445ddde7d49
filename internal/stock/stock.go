package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors shared by all sources. Wrap with fmt.Errorf("...: %w", err) to add
// detail; callers match with errors.Is.
var (
	// ErrInvalidSymbol means the ticker is unknown or the remote payload was
	// malformed for it.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrRateLimited means the remote quota is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoData means the symbol is recognized but the series came back empty.
	ErrNoData = errors.New("no data")
)

// Quote is the normalized snapshot of a symbol's current trading stats.
type Quote struct {
	Symbol           string  `json:"symbol" validate:"required"`
	Price            float64 `json:"price" validate:"finite,gt=0"`
	Change           float64 `json:"change" validate:"finite"`
	ChangePercent    float64 `json:"changePercent" validate:"finite"`
	Open             float64 `json:"open" validate:"finite,gte=0"`
	High             float64 `json:"high" validate:"finite,gte=0"`
	Low              float64 `json:"low" validate:"finite,gte=0"`
	Volume           int64   `json:"volume" validate:"gte=0"`
	PrevClose        float64 `json:"prevClose" validate:"finite,gte=0"`
	LatestTradingDay string  `json:"latestTradingDay,omitempty"`
}

// HistoryPoint is one daily OHLCV record.
type HistoryPoint struct {
	Date   Date    `json:"date"`
	Open   float64 `json:"open" validate:"finite,gte=0"`
	High   float64 `json:"high" validate:"finite,gte=0"`
	Low    float64 `json:"low" validate:"finite,gte=0"`
	Close  float64 `json:"close" validate:"finite,gte=0"`
	Volume int64   `json:"volume" validate:"gte=0"`
}

// History is a daily series ordered strictly ascending by date, at most one
// point per date.
type History []HistoryPoint

// Extremes returns the highest high and lowest low across the series.
// Both are zero for an empty series.
func (h History) Extremes() (high, low float64) {
	for i, p := range h {
		if i == 0 {
			high, low = p.High, p.Low
			continue
		}
		if p.High > high {
			high = p.High
		}
		if p.Low < low {
			low = p.Low
		}
	}
	return high, low
}

// Closes returns the close column, in series order.
func (h History) Closes() []float64 {
	out := make([]float64, len(h))
	for i, p := range h {
		out[i] = p.Close
	}
	return out
}

// Volumes returns the volume column as floats, in series order.
func (h History) Volumes() []float64 {
	out := make([]float64, len(h))
	for i, p := range h {
		out[i] = float64(p.Volume)
	}
	return out
}

// Overview is descriptive metadata for a symbol. Everything past Name is
// best-effort and may be absent.
type Overview struct {
	Name      string   `json:"name"`
	High52    *float64 `json:"high52,omitempty"`
	Low52     *float64 `json:"low52,omitempty"`
	MarketCap string   `json:"marketCap,omitempty"`
	PERatio   string   `json:"peRatio,omitempty"`
}

// DegradedOverview is the fallback record used when overview data cannot be
// fetched: just the symbol standing in for a name.
func DegradedOverview(symbol string) Overview {
	return Overview{Name: symbol}
}

// Data is the combined record for one symbol, as handed to presentation
// collaborators.
type Data struct {
	Symbol   string   `json:"symbol"`
	Quote    Quote    `json:"quote"`
	History  History  `json:"history"`
	Overview Overview `json:"overview"`
}

// Source supplies quote, history, and overview data for a symbol. ctx bounds
// the underlying work; symbol is expected upper-cased by the caller.
type Source interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	Daily(ctx context.Context, symbol string) (History, error)
	Overview(ctx context.Context, symbol string) (Overview, error)
}

// Date is a calendar day with no meaningful time of day. It marshals as a
// bare YYYY-MM-DD string to match the upstream wire format.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
