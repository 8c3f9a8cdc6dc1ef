package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockprovider/internal/httpx"
	"stockprovider/internal/provider"
	"stockprovider/internal/quote"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := New(Config{Endpoint: srv.URL}, httpx.New(5*time.Second))
	return p, srv
}

const chartBody = `{
  "chart": {
    "result": [{
      "timestamp": [1709251200, 1709337600, 1709596800],
      "indicators": {
        "quote": [{
          "open":   [10.1, "10,45", null],
          "high":   [10.9, 11.2, 11.5],
          "low":    [9.8, 10.0, 10.9],
          "close":  [10.5, 11.0, 11.3],
          "volume": [1000, 2000, 3000]
        }],
        "adjclose": [{"adjclose": [10.4, 10.9, 11.2]}]
      },
      "events": {
        "dividends": {
          "1709337600": {"amount": 0.35, "date": 1709337600}
        }
      }
    }],
    "error": null
  }
}`

func TestFetchSeries_DecodesAndSortsBars(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, chartBody)
	})

	s, err := p.FetchSeries(context.Background(), "PETR4", provider.SeriesParams{
		Granularity:   quote.Daily,
		LookbackYears: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "/PETR4.SA", gotPath, "venue suffix re-appended for Yahoo")
	require.Contains(t, gotQuery, "interval=1d")
	require.Contains(t, gotQuery, "range=5y")

	// The third row has a null open: a bar with only part of its OHLC
	// fields would violate low <= open,close <= high, so it is dropped.
	require.Len(t, s, 2)
	for i := 1; i < len(s); i++ {
		require.True(t, s[i-1].Date.Before(s[i].Date), "ascending by date")
	}

	// Comma-decimal text converted to a number.
	require.InDelta(t, 10.45, s[1].Open, 1e-9)
	require.Equal(t, int64(1000), s[0].Volume)
	require.NotNil(t, s[0].AdjClose)
	require.InDelta(t, 10.4, *s[0].AdjClose, 1e-9)

	// Dividend event lands on its bar.
	require.NotNil(t, s[1].Dividend)
	require.InDelta(t, 0.35, *s[1].Dividend, 1e-9)
	require.Nil(t, s[0].Dividend)
}

func TestFetchSeries_ExplicitRangeUsesPeriods(t *testing.T) {
	t.Parallel()

	var gotQuery string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, chartBody)
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err := p.FetchSeries(context.Background(), "VALE3", provider.SeriesParams{
		Granularity: quote.Weekly,
		Start:       &start,
		End:         &end,
	})
	require.NoError(t, err)
	require.Contains(t, gotQuery, "interval=1wk")
	require.Contains(t, gotQuery, "period1=")
	require.Contains(t, gotQuery, "period2=")
	require.NotContains(t, gotQuery, "range=")
}

func TestFetchSeries_NotFoundIsAbsent(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	})

	_, err := p.FetchSeries(context.Background(), "ZZZZ9", provider.SeriesParams{Granularity: quote.Daily})
	require.ErrorIs(t, err, provider.ErrAbsent)
}

func TestFetchSeries_ServerErrorIsNotAbsent(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.FetchSeries(context.Background(), "PETR4", provider.SeriesParams{Granularity: quote.Daily})
	require.Error(t, err)
	require.NotErrorIs(t, err, provider.ErrAbsent)
}

func TestFetchSeries_EmptyWindowIsEmptySeries(t *testing.T) {
	t.Parallel()

	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[]}}],"error":null}}`)
	})

	s, err := p.FetchSeries(context.Background(), "PETR4", provider.SeriesParams{Granularity: quote.Daily})
	require.NoError(t, err)
	require.Empty(t, s)
}

func TestFetchSeries_PartialNullRowDropped(t *testing.T) {
	t.Parallel()

	// First row has prices for everything but open. Coercing the null to
	// zero would emit Open=0 below Low, so the row must not survive.
	body := `{"chart":{"result":[{"timestamp":[1709251200,1709337600],"indicators":{"quote":[{
		"open":[null,10],"high":[11.5,11],"low":[10.9,9.8],"close":[11.3,10.5],"volume":[3000,500]}]}}],"error":null}}`
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})

	s, err := p.FetchSeries(context.Background(), "PETR4", provider.SeriesParams{Granularity: quote.Daily})
	require.NoError(t, err)
	require.Len(t, s, 1)
	for _, b := range s {
		require.LessOrEqual(t, b.Low, b.Open)
		require.LessOrEqual(t, b.Low, b.Close)
		require.LessOrEqual(t, b.Open, b.High)
		require.LessOrEqual(t, b.Close, b.High)
	}
}

func TestFetchSeries_HolidayNullRowsSkipped(t *testing.T) {
	t.Parallel()

	body := `{"chart":{"result":[{"timestamp":[1709251200,1709337600],"indicators":{"quote":[{
		"open":[null,10],"high":[null,11],"low":[null,9],"close":[null,10.5],"volume":[null,500]}]}}],"error":null}}`
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})

	s, err := p.FetchSeries(context.Background(), "PETR4", provider.SeriesParams{Granularity: quote.Daily})
	require.NoError(t, err)
	require.Len(t, s, 1)
	require.Equal(t, 10.5, s[0].Close)
}
