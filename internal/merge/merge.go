// Package merge combines a time-series result with an enrichment
// snapshot into a single ordered dataset. Pure functions, no I/O.
package merge

import (
	"stockprovider/internal/quote"
)

// Apply trims series to rng when given (inclusive on both ends), keeps
// only the most recent bar when latestOnly is set, and overlays the
// snapshot's fields onto the first retained bar. Snapshot fields win a
// name collision because the snapshot is considered more current.
// Ascending date order from the input is preserved. An empty
// intersection yields an empty series, not an error.
func Apply(series quote.Series, snapshot quote.Snapshot, rng *quote.DateRange, latestOnly bool) quote.Series {
	out := series
	if rng != nil {
		out = filter(series, *rng)
	} else if latestOnly && len(out) > 0 {
		out = out[len(out)-1:]
	}
	if len(out) == 0 || len(snapshot) == 0 {
		return out
	}

	// Copy before mutating so callers (and cached payloads) never see a
	// shared bar change underneath them.
	merged := make(quote.Series, len(out))
	copy(merged, out)
	first := merged[0]
	extra := make(map[string]any, len(first.Extra)+len(snapshot))
	for k, v := range first.Extra {
		extra[k] = v
	}
	for k, v := range snapshot {
		extra[k] = v
	}
	first.Extra = extra
	merged[0] = first
	return merged
}

func filter(series quote.Series, rng quote.DateRange) quote.Series {
	out := make(quote.Series, 0, len(series))
	for _, b := range series {
		if rng.Contains(b.Date) {
			out = append(out, b)
		}
	}
	return out
}
