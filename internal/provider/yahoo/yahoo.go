// Package yahoo adapts the Yahoo Finance chart API to the series
// provider contract.
package yahoo

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
	Name     string
	Endpoint string // chart API base, without the trailing symbol
	// Suffix is appended to the canonical symbol when addressing Yahoo.
	// B3 tickers live under ".SA".
	Suffix string
	// CallTimeout bounds a single upstream round trip. Defaults to 8s.
	CallTimeout time.Duration
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if cfg.Suffix == "" {
		cfg.Suffix = ".SA"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 8 * time.Second
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func interval(g quote.Granularity) string {
	if g == quote.Weekly {
		return "1wk"
	}
	return "1d"
}

// FetchSeries queries the chart API for the symbol (with the venue
// suffix re-appended) and returns bars ascending by date. A symbol Yahoo
// does not know yields ErrAbsent; a valid symbol with zero bars in the
// window yields an empty series.
func (p *Provider) FetchSeries(ctx context.Context, symbol string, params provider.SeriesParams) (quote.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	u := p.cfg.Endpoint + "/" + url.PathEscape(symbol+p.cfg.Suffix)
	q := url.Values{}
	q.Set("interval", interval(params.Granularity))
	q.Set("events", "div")
	switch {
	case params.Start != nil && params.End != nil:
		q.Set("period1", strconv.FormatInt(quote.Day(*params.Start).Unix(), 10))
		// period2 is exclusive upstream; push it one day past End so the
		// End date itself is included.
		q.Set("period2", strconv.FormatInt(quote.Day(*params.End).AddDate(0, 0, 1).Unix(), 10))
	default:
		years := params.LookbackYears
		if years <= 0 {
			years = 5
		}
		q.Set("range", fmt.Sprintf("%dy", years))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("yahoo: %s: %w", symbol, provider.ErrAbsent)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("yahoo: GET %s -> %d: %s", u, resp.StatusCode, string(b))
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("yahoo: %s: %w", symbol, provider.ErrAbsent)
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: %s: %w", symbol, provider.ErrAbsent)
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		// Valid symbol, nothing in the window (holiday-only range etc.).
		return quote.Series{}, nil
	}

	qt := result.Indicators.Quote[0]
	var adj []any
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}
	dividends := dividendsByDay(result.Events.Dividends)

	bars := make(quote.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		ov, hv, lv, cv := at(qt.Open, i), at(qt.High, i), at(qt.Low, i), at(qt.Close, i)
		if ov == nil || hv == nil || lv == nil || cv == nil {
			// Null rows on holidays, and partial rows: a bar missing any
			// OHLC field would be a broken record, so drop the whole row.
			continue
		}
		o := toFloat(ov)
		h := toFloat(hv)
		l := toFloat(lv)
		c := toFloat(cv)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue
		}
		day := quote.Day(time.Unix(ts, 0))
		b := quote.Bar{
			Date:   day,
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: toInt(at(qt.Volume, i)),
		}
		if v := at(adj, i); v != nil {
			a := toFloat(v)
			b.AdjClose = &a
		}
		if d, ok := dividends[day]; ok {
			b.Dividend = &d
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []any `json:"open"`
					High   []any `json:"high"`
					Low    []any `json:"low"`
					Close  []any `json:"close"`
					Volume []any `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []any `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
			Events struct {
				Dividends map[string]dividend `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type dividend struct {
	Amount json.Number `json:"amount"`
	Date   int64       `json:"date"`
}

func dividendsByDay(in map[string]dividend) map[time.Time]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[time.Time]float64, len(in))
	for _, d := range in {
		if d.Date <= 0 {
			continue
		}
		if v, err := d.Amount.Float64(); err == nil {
			out[quote.Day(time.Unix(d.Date, 0))] = v
		}
	}
	return out
}

func at(xs []any, i int) any {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}

// toFloat tolerates providers returning numeric fields as text,
// including locale-formatted comma decimals.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		s := strings.TrimSpace(n)
		if f, ok := quote.ParseCommaDecimal(s); ok {
			return f
		}
		f, _ := strconv.ParseFloat(s, 64)
		return f
	default:
		return 0
	}
}

func toInt(v any) int64 {
	return int64(toFloat(v))
}
