package quote

import (
	"encoding/json"
	"time"
)

// Granularity is the bar period requested by the caller.
type Granularity string

const (
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool { return g == Daily || g == Weekly }

// Bar is one OHLCV observation for a trading period. Date carries no time
// component; it is normalized to midnight UTC. Extra holds enrichment
// fields whose names are not known at compile time (snapshot overlay).
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	AdjClose *float64
	Dividend *float64
	Extra    map[string]any
}

const dateLayout = "2006-01-02"

// MarshalJSON flattens the bar into a single flat record. Extra entries
// are written last so that an enrichment field wins a name collision with
// a core field.
func (b Bar) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 8+len(b.Extra))
	m["date"] = b.Date.UTC().Format(dateLayout)
	m["open"] = b.Open
	m["high"] = b.High
	m["low"] = b.Low
	m["close"] = b.Close
	m["volume"] = b.Volume
	if b.AdjClose != nil {
		m["adjusted_close"] = *b.AdjClose
	}
	if b.Dividend != nil {
		m["dividend"] = *b.Dividend
	}
	for k, v := range b.Extra {
		m[k] = v
	}
	return json.Marshal(m)
}

// Day truncates t to a calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Series is an ordered sequence of bars, strictly ascending by date.
type Series []Bar

// Snapshot is a point-in-time quote supplement keyed by normalized field
// name. It has no temporal ordering and is always considered latest.
type Snapshot map[string]any

// DateRange is an inclusive [Start, End] calendar interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the date d falls inside the range, inclusive
// on both ends.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}
