// Package chain tries an ordered list of series providers in sequence
// for the mandatory historical fetch, short-circuiting on the first
// usable result.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stockprovider/internal/provider"
	"stockprovider/internal/quote"
)

// Series is itself a SeriesProvider, so decorators compose around it the
// same way they do around a single adapter.
type Series struct {
	Providers []provider.SeriesProvider
	Log       zerolog.Logger
}

func (c *Series) Name() string {
	names := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		names = append(names, p.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// FetchSeries returns the first non-Absent, non-error result. When every
// provider reports Absent the chain reports Absent; otherwise the last
// failure is returned.
func (c *Series) FetchSeries(ctx context.Context, symbol string, p provider.SeriesParams) (quote.Series, error) {
	if len(c.Providers) == 0 {
		return nil, errors.New("chain: no providers configured")
	}

	var lastFailure error
	for _, sp := range c.Providers {
		s, err := sp.FetchSeries(ctx, symbol, p)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Absence is expected and never masks a real failure from an
		// earlier provider.
		if !errors.Is(err, provider.ErrAbsent) {
			lastFailure = err
		}
		c.Log.Warn().Str("provider", sp.Name()).Str("symbol", symbol).Err(err).
			Msg("series provider failed, trying next")
	}
	if lastFailure != nil {
		return nil, lastFailure
	}
	return nil, fmt.Errorf("chain: %w", provider.ErrAbsent)
}
