package samlvalidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(now time.Time) Clock {
	return Clock{Now: func() time.Time { return now }}
}

func TestClockIsWithinMaxAge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := fixedClock(now)

	require.True(t, c.IsWithinMaxAge(now.Add(-30*time.Second), 60))
	require.False(t, c.IsWithinMaxAge(now.Add(-90*time.Second), 60))
	require.True(t, c.IsWithinMaxAge(now.Add(10*time.Hour), 0), "maxAge <= 0 disables the check")
	require.True(t, c.IsWithinMaxAge(now.Add(10*time.Hour), -1))
}

func TestClockNotOnOrAfterBoundary(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := fixedClock(now)

	require.False(t, c.NotOnOrAfterOK(now, 0), "notOnOrAfter == now must be expired")
	require.True(t, c.NotOnOrAfterOK(now.Add(time.Second), 0))
}

func TestClockNotBeforeBoundary(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := fixedClock(now)
	skew := 30

	require.True(t, c.NotBeforeOK(now.Add(time.Duration(skew)*time.Second), skew), "notBefore == now + skew (notBefore - skew == now) must be accepted")
	require.False(t, c.NotBeforeOK(now.Add(time.Duration(skew+1)*time.Second), skew))
}

func TestClockExpiresAt(t *testing.T) {
	c := Clock{}
	notOnOrAfter := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	got := c.ExpiresAt(notOnOrAfter, 90)
	require.Equal(t, notOnOrAfter.Add(90*time.Second), got)
}
