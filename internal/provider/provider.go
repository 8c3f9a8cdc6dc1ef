// Package provider defines the contracts shared by all upstream data
// source adapters.
package provider

import (
	"context"
	"errors"
	"time"

	"stockprovider/internal/quote"
	"stockprovider/internal/ticker"
)

// ErrAbsent is returned when an upstream answered but carried no usable
// data for the requested symbol. It is a distinct outcome from a
// transport or protocol failure, and from a successful-but-empty result
// set (a zero-length series is a success).
var ErrAbsent = errors.New("provider: no data for symbol")

// SeriesParams selects the query window for a time-series fetch. Either
// LookbackYears or the Start/End pair is set, never both.
type SeriesParams struct {
	Granularity   quote.Granularity
	LookbackYears int
	Start         *time.Time
	End           *time.Time
}

// SeriesProvider fetches historical bars for a canonical symbol and
// returns them in ascending date order.
type SeriesProvider interface {
	Name() string
	FetchSeries(ctx context.Context, symbol string, p SeriesParams) (quote.Series, error)
}

// SnapshotProvider fetches a point-in-time quote supplement. The asset
// class routes the call to the provider-specific namespace.
type SnapshotProvider interface {
	Name() string
	FetchSnapshot(ctx context.Context, symbol string, class ticker.AssetClass) (quote.Snapshot, error)
}
