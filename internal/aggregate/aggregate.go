// Package aggregate orchestrates the fetch-normalize-merge-cache
// pipeline: normalize the ticker, consult the cache, on miss drive the
// provider adapters, merge, store, return.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stockprovider/internal/cache"
	"stockprovider/internal/merge"
	"stockprovider/internal/provider"
	"stockprovider/internal/quote"
	"stockprovider/internal/ticker"
)

// allowedLookbacks is the enumerated set of lookback windows callers may
// request.
var allowedLookbacks = map[int]struct{}{5: {}, 10: {}}

const defaultLookbackYears = 5

// Request is the inbound query shape handed over by the boundary layer.
type Request struct {
	Symbol        string
	Granularity   quote.Granularity
	LookbackYears int // 0 means unset
	Start, End    *time.Time
}

// Service runs the pipeline. The cache instance is constructed
// explicitly and injected; there is no hidden global state.
type Service struct {
	Series    provider.SeriesProvider   // mandatory source (usually a fallback chain)
	Snapshots provider.SnapshotProvider // optional enrichment source; may be nil
	Cache     *cache.Cache
	Log       zerolog.Logger
}

// History returns the historical series for the request, enriched with a
// fundamentals snapshot on the first bar for daily granularity.
func (s *Service) History(ctx context.Context, req Request) (quote.Series, error) {
	id, rng, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	key := cache.Key("history", id.Symbol, req.Granularity, req.LookbackYears, req.Start, req.End)
	if payload, ok := s.Cache.Get(key); ok {
		s.Log.Debug().Str("key", key).Msg("cache hit")
		return payload, nil
	}

	series, snap, err := s.fetch(ctx, id, provider.SeriesParams{
		Granularity:   req.Granularity,
		LookbackYears: req.LookbackYears,
		Start:         req.Start,
		End:           req.End,
	}, req.Granularity == quote.Daily)
	if err != nil {
		return nil, err
	}

	merged := merge.Apply(series, snap, rng, false)
	s.Cache.Put(key, merged)
	return merged, nil
}

// LastValue returns the most recent daily bar for symbol with the
// fundamentals snapshot overlaid.
func (s *Service) LastValue(ctx context.Context, symbol string) (quote.Series, error) {
	id, _, err := s.validate(Request{Symbol: symbol, Granularity: quote.Daily})
	if err != nil {
		return nil, err
	}

	key := cache.Key("latest", id.Symbol, quote.Daily, 0, nil, nil)
	if payload, ok := s.Cache.Get(key); ok {
		s.Log.Debug().Str("key", key).Msg("cache hit")
		return payload, nil
	}

	series, snap, err := s.fetch(ctx, id, provider.SeriesParams{
		Granularity:   quote.Daily,
		LookbackYears: defaultLookbackYears,
	}, true)
	if err != nil {
		return nil, err
	}

	merged := merge.Apply(series, snap, nil, true)
	s.Cache.Put(key, merged)
	return merged, nil
}

// validate covers the Init -> Validated transition. Everything it
// rejects maps to ErrInvalidInput.
func (s *Service) validate(req Request) (ticker.Identity, *quote.DateRange, error) {
	if !ticker.Validate(req.Symbol) {
		return ticker.Identity{}, nil, fmt.Errorf("bad symbol %q: %w", req.Symbol, quote.ErrInvalidInput)
	}
	if !req.Granularity.Valid() {
		return ticker.Identity{}, nil, fmt.Errorf("bad granularity %q: %w", req.Granularity, quote.ErrInvalidInput)
	}
	if req.LookbackYears != 0 {
		if _, ok := allowedLookbacks[req.LookbackYears]; !ok {
			return ticker.Identity{}, nil, fmt.Errorf("lookback %d years not allowed: %w", req.LookbackYears, quote.ErrInvalidInput)
		}
		if req.Start != nil || req.End != nil {
			return ticker.Identity{}, nil, fmt.Errorf("lookback and explicit range are mutually exclusive: %w", quote.ErrInvalidInput)
		}
	}
	if (req.Start == nil) != (req.End == nil) {
		return ticker.Identity{}, nil, fmt.Errorf("start and end must be given together: %w", quote.ErrInvalidInput)
	}

	var rng *quote.DateRange
	if req.Start != nil {
		if req.End.Before(*req.Start) {
			return ticker.Identity{}, nil, fmt.Errorf("end before start: %w", quote.ErrInvalidInput)
		}
		rng = &quote.DateRange{Start: *req.Start, End: *req.End}
	}
	return ticker.Normalize(req.Symbol), rng, nil
}

// fetch drives the provider adapters on a cache miss. The series fetch
// is mandatory; the snapshot fetch runs concurrently and its failure
// only degrades the result.
func (s *Service) fetch(ctx context.Context, id ticker.Identity, params provider.SeriesParams, enrich bool) (quote.Series, quote.Snapshot, error) {
	var (
		series quote.Series
		snap   quote.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		series, err = s.Series.FetchSeries(gctx, id.Symbol, params)
		return err
	})
	if enrich && s.Snapshots != nil {
		g.Go(func() error {
			sn, err := s.Snapshots.FetchSnapshot(gctx, id.Symbol, id.Class)
			if err != nil {
				// Partial enrichment unavailable: proceed unenriched.
				s.Log.Warn().Str("symbol", id.Symbol).Err(err).
					Msg("snapshot unavailable, serving unenriched series")
				return nil
			}
			snap = sn
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, provider.ErrAbsent) {
			return nil, nil, fmt.Errorf("%s: %w", id.Symbol, quote.ErrNotFound)
		}
		s.Log.Error().Str("symbol", id.Symbol).Err(err).Msg("mandatory series fetch failed")
		return nil, nil, fmt.Errorf("%s: %v: %w", id.Symbol, err, quote.ErrUpstreamUnavailable)
	}
	return series, snap, nil
}
