package samlvalidate

import (
	"testing"
	"time"

	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

func TestInMemoryReplayCacheRejectsRepeat(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewInMemoryReplayCache(func() time.Time { return now })
	expires := now.Add(5 * time.Minute)

	assert.Check(t, is.Equal(cache.Check("scope", "a1", expires), true))
	assert.Check(t, is.Equal(cache.Check("scope", "a1", expires), false))
	assert.Check(t, is.Equal(cache.Check("other-scope", "a1", expires), true), "scopes partition the cache")
}

func TestInMemoryReplayCacheExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &now
	cache := NewInMemoryReplayCache(func() time.Time { return *clock })
	expires := now.Add(time.Minute)

	assert.Check(t, is.Equal(cache.Check("scope", "a1", expires), true))
	later := now.Add(2 * time.Minute)
	clock = &later
	assert.Check(t, is.Equal(cache.Check("scope", "a1", expires), true), "entry should have expired and swept")
}

func TestReplayGuardSkipsWithNoCacheConfigured(t *testing.T) {
	g := ReplayGuard{}
	err := g.Check("scope", "a1", time.Now())
	assert.NilError(t, err)
}

func TestReplayGuardRejectsMissingIDWhenCacheConfigured(t *testing.T) {
	g := ReplayGuard{Cache: NewInMemoryReplayCache(nil)}
	err := g.Check("scope", "", time.Now().Add(time.Minute))
	assert.ErrorContains(t, err, "no id")
}
