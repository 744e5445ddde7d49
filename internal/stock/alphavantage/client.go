package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"stockboard/internal/stock"
)

// defaultBaseURL is the single query endpoint Alpha Vantage exposes; the
// function parameter selects the dataset.
const defaultBaseURL = "https://www.alphavantage.co/query"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Alpha Vantage API. It implements stock.Source.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client used for all requests.
	httpClient HTTPClient
	// outputSize selects compact (100 days) or full daily series.
	outputSize string
	// query contains the parameters sent with every request (the credential).
	query url.Values
	// validator rejects payloads that parse but violate the record contract.
	validator *stock.Validator
}

// Option is a configuration option for the Alpha Vantage client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithOutputSize sets the daily series output size: "compact" or "full".
func WithOutputSize(size string) Option {
	return func(c *Client) {
		c.outputSize = size
	}
}

// New creates a new Alpha Vantage client. An empty key is allowed (the API
// answers demo keys for a few symbols); real use requires one.
func New(apiKey string, options ...Option) (*Client, error) {
	var client = &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		outputSize: "compact",
		query:      url.Values{},
		validator:  stock.NewValidator(),
	}
	if apiKey != "" {
		client.query.Set("apikey", apiKey)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// getJSON performs one GET against the query endpoint and decodes the body
// into out. params are merged over the client's standing query values.
func (c *Client) getJSON(ctx context.Context, params url.Values, out any) error {
	query := maps.Clone(c.query)
	for key, values := range params {
		for _, value := range values {
			query.Set(key, value)
		}
	}

	u := fmt.Sprintf("%s?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", stock.ErrRateLimited, res.StatusCode)

	default:
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// envelope carries the error markers Alpha Vantage embeds in 200 responses.
// Pointers distinguish a present key from an absent one.
type envelope struct {
	ErrorMessage *string `json:"Error Message"`
	Note         *string `json:"Note"`
}

// check maps the markers to the error taxonomy. The rate-limit note wins over
// everything else present in the payload.
func (e envelope) check() error {
	if e.Note != nil {
		return fmt.Errorf("%w: %s", stock.ErrRateLimited, strings.TrimSpace(*e.Note))
	}
	if e.ErrorMessage != nil {
		return fmt.Errorf("%w: %s", stock.ErrInvalidSymbol, strings.TrimSpace(*e.ErrorMessage))
	}
	return nil
}

// stringField extracts a required field from a label-keyed object.
func stringField(fields map[string]string, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: missing field %q", stock.ErrInvalidSymbol, key)
	}
	return v, nil
}

// floatField extracts and parses a required numeric field.
func floatField(fields map[string]string, key string) (float64, error) {
	s, err := stringField(fields, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %q is not numeric", stock.ErrInvalidSymbol, key, s)
	}
	return f, nil
}

// intField extracts and parses a required integer field.
func intField(fields map[string]string, key string) (int64, error) {
	s, err := stringField(fields, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %q is not an integer", stock.ErrInvalidSymbol, key, s)
	}
	return n, nil
}

// percentField extracts a required percentage field, stripping the trailing
// percent sign the API appends ("1.28%" -> 1.28).
func percentField(fields map[string]string, key string) (float64, error) {
	s, err := stringField(fields, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %q is not a percentage", stock.ErrInvalidSymbol, key, s)
	}
	return f, nil
}
