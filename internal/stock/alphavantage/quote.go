package alphavantage

import (
	"context"
	"fmt"
	"net/url"

	"stockboard/internal/stock"
)

// Field labels inside the "Global Quote" object. The numbering is part of
// the wire format.
const (
	fieldSymbol           = "01. symbol"
	fieldOpen             = "02. open"
	fieldHigh             = "03. high"
	fieldLow              = "04. low"
	fieldPrice            = "05. price"
	fieldVolume           = "06. volume"
	fieldLatestTradingDay = "07. latest trading day"
	fieldPrevClose        = "08. previous close"
	fieldChange           = "09. change"
	fieldChangePercent    = "10. change percent"
)

// Quote fetches the current snapshot for symbol from the GLOBAL_QUOTE
// endpoint and normalizes it. An empty "Global Quote" object means the
// symbol is recognized but silent and maps to stock.ErrNoData.
func (c *Client) Quote(ctx context.Context, symbol string) (stock.Quote, error) {
	var payload struct {
		envelope
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	params := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	}
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return stock.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if err := payload.check(); err != nil {
		return stock.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if len(payload.GlobalQuote) == 0 {
		return stock.Quote{}, fmt.Errorf("quote %s: %w", symbol, stock.ErrNoData)
	}

	q, err := parseGlobalQuote(payload.GlobalQuote)
	if err != nil {
		return stock.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if err := c.validator.Quote(q); err != nil {
		return stock.Quote{}, fmt.Errorf("%w: %v", stock.ErrInvalidSymbol, err)
	}
	return q, nil
}

// parseGlobalQuote converts the label-keyed object into a Quote. Every field
// except the trading day is required; a missing or non-numeric field fails
// rather than defaulting to zero.
func parseGlobalQuote(fields map[string]string) (stock.Quote, error) {
	var q stock.Quote
	var err error

	if q.Symbol, err = stringField(fields, fieldSymbol); err != nil {
		return stock.Quote{}, err
	}
	if q.Price, err = floatField(fields, fieldPrice); err != nil {
		return stock.Quote{}, err
	}
	if q.Change, err = floatField(fields, fieldChange); err != nil {
		return stock.Quote{}, err
	}
	if q.ChangePercent, err = percentField(fields, fieldChangePercent); err != nil {
		return stock.Quote{}, err
	}
	if q.Open, err = floatField(fields, fieldOpen); err != nil {
		return stock.Quote{}, err
	}
	if q.High, err = floatField(fields, fieldHigh); err != nil {
		return stock.Quote{}, err
	}
	if q.Low, err = floatField(fields, fieldLow); err != nil {
		return stock.Quote{}, err
	}
	if q.Volume, err = intField(fields, fieldVolume); err != nil {
		return stock.Quote{}, err
	}
	if q.PrevClose, err = floatField(fields, fieldPrevClose); err != nil {
		return stock.Quote{}, err
	}
	// Optional; the API omits it on some symbol classes.
	q.LatestTradingDay = fields[fieldLatestTradingDay]

	return q, nil
}
