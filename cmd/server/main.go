package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

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
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Server.LogLevel, Pretty: cfg.Server.LogPretty})
	log.Info().Str("port", cfg.Server.Port).Msg("starting stockprovider")

	svc := buildService(cfg, log)
	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome to the stock data API!"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/stock", func(r chi.Router) {
		r.Get("/daily/{ticker}", h.handleDaily)
		r.Get("/weekly/{ticker}", h.handleWeekly)
		r.Get("/last_value/{ticker}", h.handleLastValue)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildService wires the fetch pipeline: provider adapters behind a
// fallback chain and best-effort rate limits, the snapshot adapter, and
// an explicitly constructed cache.
func buildService(cfg config.Config, log zerolog.Logger) *aggregate.Service {
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
			log.Warn().Err(err).Msg("finz client unavailable, serving unenriched data")
		} else {
			snapshots = finz.NewAdapter(finz.AdapterConfig{
				TableCacheTTLSeconds: cfg.Finz.TableCacheTTLSec,
			}, client)
		}
	}

	return &aggregate.Service{
		Series:    &chain.Series{Providers: seriesProviders, Log: log},
		Snapshots: snapshots,
		Cache:     cache.New(time.Duration(cfg.Cache.TTLSeconds) * time.Second),
		Log:       log,
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
