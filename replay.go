package samlvalidate

import (
	"sync"
	"time"

	"github.com/dchest/uniuri"

	"github.com/insaplace/samlvalidate/logger"
)

// ReplayCache (C4's collaborator) provides at-most-once acceptance of a
// (scope, id) pair within a validity window, per spec §6.
type ReplayCache interface {
	// Check returns true the first time (scope, id) is seen, and records it
	// as used through expiresAt. Subsequent calls for the same pair, before
	// expiresAt, return false.
	Check(scope, id string, expiresAt time.Time) bool
}

// ReplayGuard (C4) wraps an optional ReplayCache with the validator's
// fail-open/fail-closed policy from spec §4.4: with no cache configured,
// replay checking is skipped (with a warning); with a cache configured, a
// repeated id is rejected.
type ReplayGuard struct {
	Cache ReplayCache
	Log   logger.Interface
}

func (g ReplayGuard) log() logger.Interface {
	if g.Log != nil {
		return g.Log
	}
	return logger.DefaultLogger
}

// Check enforces the replay policy for one assertion id within scope,
// returning a *ValidationError of kind Replay on rejection.
func (g ReplayGuard) Check(scope, assertionID string, expiresAt time.Time) error {
	if g.Cache == nil {
		g.log().Printf("replay cache not configured, skipping replay check for scope %q", scope)
		return nil
	}
	if assertionID == "" {
		return newErr(Replay, "assertion has no id and a replay cache is configured for scope %q", scope)
	}
	if !g.Cache.Check(scope, assertionID, expiresAt) {
		return newErr(Replay, "assertion id %q already accepted within its validity window (scope %q)", assertionID, scope)
	}
	return nil
}

// InMemoryReplayCache is a mutex-guarded, sweep-on-access reference
// ReplayCache implementation, grounded on the cache-of-used-ids pattern
// common across the pack's SSO connectors (spec only specifies the
// interface; a complete repository ships a usable default).
type InMemoryReplayCache struct {
	mu      sync.Mutex
	entries map[string]time.Time // "scope\x00id" -> expiresAt
	// generation tags each accepted entry with a short opaque token, useful
	// for correlating cache hits in diagnostic logs.
	generation map[string]string
	now        func() time.Time
}

// NewInMemoryReplayCache constructs an empty cache. now defaults to
// time.Now when nil.
func NewInMemoryReplayCache(now func() time.Time) *InMemoryReplayCache {
	if now == nil {
		now = time.Now
	}
	return &InMemoryReplayCache{
		entries:    make(map[string]time.Time),
		generation: make(map[string]string),
		now:        now,
	}
}

func replayKey(scope, id string) string {
	return scope + "\x00" + id
}

// Check implements ReplayCache.
func (c *InMemoryReplayCache) Check(scope, id string, expiresAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	key := replayKey(scope, id)
	if prevExpiry, ok := c.entries[key]; ok && prevExpiry.After(c.now()) {
		return false
	}
	c.entries[key] = expiresAt
	c.generation[key] = uniuri.NewLen(12)
	return true
}

// sweepLocked drops expired entries; callers must hold c.mu.
func (c *InMemoryReplayCache) sweepLocked() {
	now := c.now()
	for key, expiresAt := range c.entries {
		if !expiresAt.After(now) {
			delete(c.entries, key)
			delete(c.generation, key)
		}
	}
}

// Len reports the number of live (non-expired) entries, for diagnostics and
// tests.
func (c *InMemoryReplayCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	return len(c.entries)
}
