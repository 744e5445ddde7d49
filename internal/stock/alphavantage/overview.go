package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"stockboard/internal/stock"
)

// Overview fetches company fundamentals from the OVERVIEW endpoint. The
// payload is flat, so an empty Name is the only signal that the API had
// nothing for the symbol. Errors are returned as-is; callers that want a
// name-only fallback wrap this source in the cache decorator.
func (c *Client) Overview(ctx context.Context, symbol string) (stock.Overview, error) {
	var payload struct {
		envelope
		Name      string `json:"Name"`
		High52    string `json:"52WeekHigh"`
		Low52     string `json:"52WeekLow"`
		MarketCap string `json:"MarketCapitalization"`
		PERatio   string `json:"PERatio"`
	}
	params := url.Values{
		"function": {"OVERVIEW"},
		"symbol":   {symbol},
	}
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return stock.Overview{}, fmt.Errorf("overview %s: %w", symbol, err)
	}
	if err := payload.check(); err != nil {
		return stock.Overview{}, fmt.Errorf("overview %s: %w", symbol, err)
	}
	if payload.Name == "" {
		return stock.Overview{}, fmt.Errorf("overview %s: %w", symbol, stock.ErrNoData)
	}

	return stock.Overview{
		Name:      payload.Name,
		High52:    optionalFloat(payload.High52),
		Low52:     optionalFloat(payload.Low52),
		MarketCap: payload.MarketCap,
		PERatio:   payload.PERatio,
	}, nil
}

// optionalFloat parses fields the API fills with "None" or "-" when it has
// no value. Unparseable input means the field is absent, not an error.
func optionalFloat(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
