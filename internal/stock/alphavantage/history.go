package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"stockboard/internal/stock"
)

// Field labels inside each daily bar object.
const (
	barOpen   = "1. open"
	barHigh   = "2. high"
	barLow    = "3. low"
	barClose  = "4. close"
	barVolume = "5. volume"
)

// Daily fetches the daily series for symbol from the TIME_SERIES_DAILY
// endpoint. The API returns a date-keyed map with no ordering guarantee;
// the result is sorted ascending by date. An absent or empty series maps to
// stock.ErrNoData.
func (c *Client) Daily(ctx context.Context, symbol string) (stock.History, error) {
	var payload struct {
		envelope
		TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	}
	params := url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {c.outputSize},
	}
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("daily %s: %w", symbol, err)
	}
	if err := payload.check(); err != nil {
		return nil, fmt.Errorf("daily %s: %w", symbol, err)
	}
	if len(payload.TimeSeries) == 0 {
		return nil, fmt.Errorf("daily %s: %w", symbol, stock.ErrNoData)
	}

	h := make(stock.History, 0, len(payload.TimeSeries))
	for dateStr, bar := range payload.TimeSeries {
		p, err := parseDailyBar(dateStr, bar)
		if err != nil {
			return nil, fmt.Errorf("daily %s: %w", symbol, err)
		}
		h = append(h, p)
	}
	slices.SortFunc(h, func(a, b stock.HistoryPoint) int {
		return a.Date.Compare(b.Date.Time)
	})

	if err := c.validator.History(h); err != nil {
		return nil, fmt.Errorf("%w: %v", stock.ErrInvalidSymbol, err)
	}
	return h, nil
}

// parseDailyBar converts one date-keyed entry into a HistoryPoint. All five
// OHLCV fields are required.
func parseDailyBar(dateStr string, bar map[string]string) (stock.HistoryPoint, error) {
	date, err := stock.ParseDate(dateStr)
	if err != nil {
		return stock.HistoryPoint{}, fmt.Errorf("%w: %v", stock.ErrInvalidSymbol, err)
	}
	p := stock.HistoryPoint{Date: date}
	if p.Open, err = floatField(bar, barOpen); err != nil {
		return stock.HistoryPoint{}, err
	}
	if p.High, err = floatField(bar, barHigh); err != nil {
		return stock.HistoryPoint{}, err
	}
	if p.Low, err = floatField(bar, barLow); err != nil {
		return stock.HistoryPoint{}, err
	}
	if p.Close, err = floatField(bar, barClose); err != nil {
		return stock.HistoryPoint{}, err
	}
	if p.Volume, err = intField(bar, barVolume); err != nil {
		return stock.HistoryPoint{}, err
	}
	return p, nil
}
