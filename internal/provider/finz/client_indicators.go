package finz

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// Table maps a ticker to its raw indicator fields, exactly as the API
// labeled them ("Cotação", "P/L", ...). Values are numbers or strings.
type Table map[string]map[string]any

// GetIndicators retrieves the indicator table for one asset namespace
// ("acoes", "fiis"). The API scopes the response by the requested
// symbol's namespace but returns a table of tickers; the caller picks
// its symbol out of the table.
func (c *Client) GetIndicators(ctx context.Context, namespace, symbol string, opts ...Option) (Table, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	u := fmt.Sprintf("%s/%s/%s", override.baseURL,
		url.PathEscape(namespace), url.PathEscape(strings.ToLower(symbol)))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break
	case http.StatusNotFound:
		// Unknown namespace or symbol: an empty table, not a failure.
		return Table{}, nil
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")
	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	// The payload nests the table under a single top-level key whose name
	// varies; take the first one.
	var body map[string]map[string]map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding indicators response: %w", err)
	}
	for _, table := range body {
		return Table(table), nil
	}
	return Table{}, nil
}
