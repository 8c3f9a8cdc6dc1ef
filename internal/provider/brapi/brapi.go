// Package brapi adapts the brapi.dev quote API to the series provider
// contract. It sits behind Yahoo in the fallback chain.
package brapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"stockprovider/internal/httpx"
	"stockprovider/internal/provider"
	"stockprovider/internal/quote"
)

type Config struct {
	Name        string
	Endpoint    string // e.g. https://brapi.dev/api
	Token       string // optional bearer token
	CallTimeout time.Duration
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Brapi"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://brapi.dev/api"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 8 * time.Second
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) FetchSeries(ctx context.Context, symbol string, params provider.SeriesParams) (quote.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("interval", interval(params.Granularity))
	q.Set("range", rangeToken(params))

	u := p.cfg.Endpoint + "/quote/" + url.PathEscape(symbol) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("brapi fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("brapi: %s: %w", symbol, provider.ErrAbsent)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("brapi: GET %s -> %d: %s", u, resp.StatusCode, string(b))
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("brapi decode: %w", err)
	}
	if body.Error {
		return nil, fmt.Errorf("brapi api error: %s", body.Message)
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("brapi: %s: %w", symbol, provider.ErrAbsent)
	}

	hist := body.Results[0].HistoricalDataPrice
	bars := make(quote.Series, 0, len(hist))
	rng := windowOf(params)
	for _, h := range hist {
		if h.Date <= 0 {
			continue
		}
		day := quote.Day(time.Unix(h.Date, 0))
		if rng != nil && !rng.Contains(day) {
			continue
		}
		b := quote.Bar{
			Date:   day,
			Open:   num(h.Open),
			High:   num(h.High),
			Low:    num(h.Low),
			Close:  num(h.Close),
			Volume: int64(num(h.Volume)),
		}
		if h.AdjustedClose.set {
			a := num(h.AdjustedClose)
			b.AdjClose = &a
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func interval(g quote.Granularity) string {
	if g == quote.Weekly {
		return "1wk"
	}
	return "1d"
}

// rangeToken picks the widest brapi range covering the request; explicit
// start/end pairs are trimmed client-side from a max-range fetch.
func rangeToken(p provider.SeriesParams) string {
	if p.Start != nil || p.End != nil {
		return "max"
	}
	years := p.LookbackYears
	if years <= 0 {
		years = 5
	}
	return strconv.Itoa(years) + "y"
}

func windowOf(p provider.SeriesParams) *quote.DateRange {
	if p.Start == nil || p.End == nil {
		return nil
	}
	return &quote.DateRange{Start: *p.Start, End: *p.End}
}

type apiResponse struct {
	Results []struct {
		Symbol              string  `json:"symbol"`
		HistoricalDataPrice []price `json:"historicalDataPrice"`
	} `json:"results"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type price struct {
	Date          int64   `json:"date"`
	Open          flexNum `json:"open"`
	High          flexNum `json:"high"`
	Low           flexNum `json:"low"`
	Close         flexNum `json:"close"`
	Volume        flexNum `json:"volume"`
	AdjustedClose flexNum `json:"adjustedClose"`
}

// flexNum accepts a JSON number, a numeric string (including
// comma-decimal text), or null.
type flexNum struct {
	val float64
	set bool
}

func (f *flexNum) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if v, ok := quote.ParseCommaDecimal(s); ok {
		f.val, f.set = v, true
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("brapi: bad numeric field %q", s)
	}
	f.val, f.set = v, true
	return nil
}

func num(n flexNum) float64 { return n.val }
