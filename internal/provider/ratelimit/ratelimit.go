// Package ratelimit provides best-effort pacing decorators for upstream
// adapters. Upstream limits are not negotiated; these just keep us polite.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockprovider/internal/provider"
	"stockprovider/internal/quote"
)

// MinInterval wraps a series provider and enforces a minimum time
// between calls. Concurrent calls wait until the interval has elapsed
// since the last call, or return early when the context is canceled.
type MinInterval struct {
	P        provider.SeriesProvider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) FetchSeries(ctx context.Context, symbol string, p provider.SeriesParams) (quote.Series, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	s, err := m.P.FetchSeries(ctx, symbol, p)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return s, err
}
