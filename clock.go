package samlvalidate

import "time"

// Clock (C1) performs the bounded temporal comparisons used throughout the
// validator, parameterized on the "now" function so tests can control it
// without a global clock, following the teacher's own TimeNow() convention
// in service_multiple_provider.go.
type Clock struct {
	// Now returns the current time. Defaults to time.Now if nil.
	Now func() time.Time
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// IsWithinMaxAge reports whether instant is within maxAgeSeconds of now, in
// either direction. maxAgeSeconds <= 0 disables the check (always valid).
func (c Clock) IsWithinMaxAge(instant time.Time, maxAgeSeconds int) bool {
	if maxAgeSeconds <= 0 {
		return true
	}
	now := c.now()
	delta := now.Sub(instant.UTC())
	if delta < 0 {
		delta = -delta
	}
	return delta <= time.Duration(maxAgeSeconds)*time.Second
}

// NotBeforeOK reports whether a condition's notBefore value t is honored:
// t - skew <= now.
func (c Clock) NotBeforeOK(t time.Time, skewSeconds int) bool {
	now := c.now()
	bound := t.UTC().Add(-time.Duration(skewSeconds) * time.Second)
	return !bound.After(now)
}

// NotOnOrAfterOK reports whether a condition's notOnOrAfter value t is
// honored: t + skew > now. Equality (notOnOrAfter == now) is expired, per
// spec §8 boundary behavior.
func (c Clock) NotOnOrAfterOK(t time.Time, skewSeconds int) bool {
	now := c.now()
	bound := t.UTC().Add(time.Duration(skewSeconds) * time.Second)
	return bound.After(now)
}

// ExpiresAt computes the replay-cache expiry for a notOnOrAfter value:
// notOnOrAfter + skew.
func (c Clock) ExpiresAt(notOnOrAfter time.Time, skewSeconds int) time.Time {
	return notOnOrAfter.UTC().Add(time.Duration(skewSeconds) * time.Second)
}

// InFuture reports whether t is strictly after now, with no skew applied —
// used for sessionNotOnOrAfter per spec §4.6.6.
func (c Clock) InFuture(t time.Time) bool {
	return t.UTC().After(c.now())
}
