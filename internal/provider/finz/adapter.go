// Package finz adapts the Finz fundamentals API to the snapshot
// provider contract. The asset class picks the upstream namespace, and
// the symbol is located in the returned table case-insensitively.
package finz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stockprovider/internal/provider"
	"stockprovider/internal/quote"
	"stockprovider/internal/ticker"
)

type AdapterConfig struct {
	Name string
	// TableCacheTTLSeconds caches a fetched indicator table briefly so a
	// burst of requests does not re-pull the same namespace. <= 0
	// disables it.
	TableCacheTTLSeconds int
	// CallTimeout bounds a single upstream round trip. Defaults to 8s.
	CallTimeout time.Duration
}

// Adapter implements provider.SnapshotProvider on top of Client.
type Adapter struct {
	cfg    AdapterConfig
	client *Client

	mu     sync.RWMutex
	tables map[string]tableCache // key: namespace/symbol

	// coalesce concurrent refreshes of the same table
	sf singleflight.Group
}

type tableCache struct {
	table Table
	until time.Time
}

func NewAdapter(cfg AdapterConfig, client *Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Finz"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 8 * time.Second
	}
	return &Adapter{cfg: cfg, client: client, tables: make(map[string]tableCache)}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// namespaceFor maps an asset class to the Finz URL namespace. Units are
// listed with equities upstream.
func namespaceFor(class ticker.AssetClass) (string, bool) {
	switch class {
	case ticker.Equity, ticker.Unit:
		return "acoes", true
	case ticker.RealEstateFund:
		return "fiis", true
	default:
		return "", false
	}
}

// FetchSnapshot returns the normalized indicator snapshot for symbol.
// An unknown asset class, an empty upstream table, or a symbol missing
// from the table all yield ErrAbsent.
func (a *Adapter) FetchSnapshot(ctx context.Context, symbol string, class ticker.AssetClass) (quote.Snapshot, error) {
	ns, ok := namespaceFor(class)
	if !ok {
		return nil, fmt.Errorf("finz: unclassified symbol %s: %w", symbol, provider.ErrAbsent)
	}

	table, err := a.table(ctx, ns, symbol)
	if err != nil {
		return nil, fmt.Errorf("finz: %w", err)
	}

	raw, ok := findSymbol(table, symbol)
	if !ok {
		return nil, fmt.Errorf("finz: %s not in %s table: %w", symbol, ns, provider.ErrAbsent)
	}

	snap := make(quote.Snapshot, len(raw))
	for k, v := range raw {
		snap[quote.NormalizeFieldName(k)] = quote.NormalizeValue(v)
	}
	return snap, nil
}

func (a *Adapter) table(ctx context.Context, namespace, symbol string) (Table, error) {
	key := namespace + "/" + strings.ToLower(symbol)
	ttl := time.Duration(a.cfg.TableCacheTTLSeconds) * time.Second

	if ttl > 0 {
		a.mu.RLock()
		tc, ok := a.tables[key]
		a.mu.RUnlock()
		if ok && time.Now().Before(tc.until) {
			return tc.table, nil
		}
	}

	v, err, _ := a.sf.Do(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
		defer cancel()
		return a.client.GetIndicators(callCtx, namespace, symbol)
	})
	if err != nil {
		return nil, err
	}
	table := v.(Table)

	if ttl > 0 {
		a.mu.Lock()
		a.tables[key] = tableCache{table: table, until: time.Now().Add(ttl)}
		a.mu.Unlock()
	}
	return table, nil
}

// findSymbol locates the caller's symbol among the table's tickers via
// case-insensitive match.
func findSymbol(table Table, symbol string) (map[string]any, bool) {
	if raw, ok := table[symbol]; ok {
		return raw, true
	}
	for k, raw := range table {
		if strings.EqualFold(k, symbol) {
			return raw, true
		}
	}
	return nil, false
}
