package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockprovider/internal/quote"
)

func TestGetPut_RoundTripWithinTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(time.Hour)
	c.Now = func() time.Time { return now }

	s := quote.Series{{Close: 27.05}}
	c.Put("k", s)

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, s, got)

	// One second before expiry: still a hit.
	now = now.Add(time.Hour - time.Second)
	_, ok = c.Get("k")
	require.True(t, ok)
}

func TestGet_LazyExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(time.Hour)
	c.Now = func() time.Time { return now }

	c.Put("k", quote.Series{})
	now = now.Add(time.Hour + time.Second)

	_, ok := c.Get("k")
	require.False(t, ok, "expired entry must be a miss")

	_, ok = c.Get("never-stored")
	require.False(t, ok, "expired and never-stored are indistinguishable")
}

func TestPut_OverwritesEntry(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	c.Put("k", quote.Series{{Close: 1}})
	c.Put("k", quote.Series{{Close: 2}})

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 2.0, got[0].Close)
}

func TestNew_DefaultTTL(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultTTL, New(0).TTL)
	require.Equal(t, DefaultTTL, New(-time.Second).TTL)
}

func TestKey_Derivation(t *testing.T) {
	t.Parallel()

	k5 := Key("history", "VALE3", quote.Daily, 5, nil, nil)
	k10 := Key("history", "VALE3", quote.Daily, 10, nil, nil)
	require.NotEqual(t, k5, k10)

	// Absent parameters map to one fixed sentinel, consistently.
	require.Equal(t, "history:VALE3:daily:y5:null:null", k5)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	kr := Key("history", "VALE3", quote.Daily, 0, &start, &end)
	require.Equal(t, "history:VALE3:daily:null:2024-01-01:2024-01-31", kr)
	require.NotEqual(t, k5, kr)

	// Granularity is part of the key.
	require.NotEqual(t,
		Key("history", "VALE3", quote.Daily, 5, nil, nil),
		Key("history", "VALE3", quote.Weekly, 5, nil, nil))

	// So is the operation namespace.
	require.NotEqual(t,
		Key("history", "VALE3", quote.Daily, 5, nil, nil),
		Key("latest", "VALE3", quote.Daily, 5, nil, nil))
}
