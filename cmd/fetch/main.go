package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"stockprovider/internal/aggregate"
	"stockprovider/internal/cache"
	"stockprovider/internal/config"
	"stockprovider/internal/httpx"
	"stockprovider/internal/logger"
	"stockprovider/internal/provider"
	"stockprovider/internal/provider/brapi"
	"stockprovider/internal/provider/chain"
	"stockprovider/internal/provider/finz"
	"stockprovider/internal/provider/ratelimit"
	"stockprovider/internal/provider/yahoo"
	"stockprovider/internal/quote"
)

// One-shot fetch CLI. Runs the same pipeline as the server for a single
// ticker and prints the resulting series as JSON, useful for smoke tests
// against the live upstreams without standing up the HTTP layer.
func main() {
	var (
		symbol      string
		granularity string
		years       int
		start       string
		end         string
		latest      bool
		configPath  string
		timeout     int
	)

	flag.StringVar(&symbol, "symbol", "", "B3 ticker symbol (required), e.g. PETR4")
	flag.StringVar(&granularity, "granularity", "daily", "bar granularity: daily or weekly")
	flag.IntVar(&years, "years", 0, "lookback window in years (5 or 10)")
	flag.StringVar(&start, "start", "", "explicit range start, YYYY-MM-DD")
	flag.StringVar(&end, "end", "", "explicit range end, YYYY-MM-DD")
	flag.BoolVar(&latest, "latest", false, "fetch only the most recent enriched bar")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.IntVar(&timeout, "timeout", 30, "overall timeout in seconds")
	flag.Parse()

	if symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: fetch -symbol PETR4 [-granularity daily|weekly] [-years 5|10] [-start YYYY-MM-DD -end YYYY-MM-DD] [-latest]")
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Server.LogLevel, Pretty: cfg.Server.LogPretty})

	hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var seriesProviders []provider.SeriesProvider
	if cfg.Yahoo.Enabled {
		var p provider.SeriesProvider = yahoo.New(yahoo.Config{
			Endpoint: cfg.Yahoo.Endpoint,
			Suffix:   cfg.Yahoo.Suffix,
		}, hc)
		p = withRateLimit(p, cfg.Yahoo.MaxRequestsPerMinute, cfg.Yahoo.Burst, cfg.Yahoo.MinRequestIntervalSec)
		seriesProviders = append(seriesProviders, p)
	}
	if cfg.Brapi.Enabled {
		var p provider.SeriesProvider = brapi.New(brapi.Config{
			Endpoint: cfg.Brapi.Endpoint,
			Token:    cfg.Brapi.Token,
		}, hc)
		p = withRateLimit(p, cfg.Brapi.MaxRequestsPerMinute, cfg.Brapi.Burst, cfg.Brapi.MinRequestIntervalSec)
		seriesProviders = append(seriesProviders, p)
	}
	if len(seriesProviders) == 0 {
		log.Fatal().Msg("no series provider enabled")
	}

	var snapshots provider.SnapshotProvider
	if cfg.Finz.Enabled {
		client, err := finz.NewClient(cfg.Finz.APIKey,
			finz.WithBaseURL(cfg.Finz.Endpoint),
			finz.WithHTTPClient(hc.HTTP),
		)
		if err != nil {
			log.Warn().Err(err).Msg("finz client unavailable, fetching unenriched data")
		} else {
			snapshots = finz.NewAdapter(finz.AdapterConfig{
				TableCacheTTLSeconds: cfg.Finz.TableCacheTTLSec,
			}, client)
		}
	}

	svc := &aggregate.Service{
		Series:    &chain.Series{Providers: seriesProviders, Log: log},
		Snapshots: snapshots,
		Cache:     cache.New(time.Duration(cfg.Cache.TTLSeconds) * time.Second),
		Log:       log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	var series quote.Series
	if latest {
		series, err = svc.LastValue(ctx, symbol)
	} else {
		req := aggregate.Request{
			Symbol:        symbol,
			Granularity:   quote.Granularity(granularity),
			LookbackYears: years,
		}
		if req.Start, err = dateFlag(start); err != nil {
			log.Fatal().Err(err).Msg("invalid -start")
		}
		if req.End, err = dateFlag(end); err != nil {
			log.Fatal().Err(err).Msg("invalid -end")
		}
		if req.LookbackYears == 0 && req.Start == nil && req.End == nil {
			req.LookbackYears = 5
		}
		series, err = svc.History(ctx, req)
	}
	if err != nil {
		log.Fatal().Err(err).Str("symbol", symbol).Msg("fetch failed")
	}

	log.Info().Str("symbol", symbol).Int("bars", len(series)).Msg("fetched")
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(series); err != nil {
		log.Fatal().Err(err).Msg("encode output")
	}
}

func withRateLimit(p provider.SeriesProvider, rpm, burst, minIntervalSec int) provider.SeriesProvider {
	if rpm > 0 {
		if burst <= 0 {
			burst = 1
		}
		return &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(float64(rpm)/60.0, burst)}
	}
	if minIntervalSec > 0 {
		return &ratelimit.MinInterval{P: p, Interval: time.Duration(minIntervalSec) * time.Second}
	}
	return p
}

func dateFlag(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
