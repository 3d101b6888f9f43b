package signalgen

import (
	"context"
	"sync"
	"time"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/events"
	"github.com/gpwsignals/engine/internal/store"
)

// prefTTL is the cache lifetime for preferences read without an explicit
// invalidation (spec.md §5 "Shared-resource policy").
const prefTTL = 5 * time.Minute

// prefCache is the in-process, 5-minute TTL preference cache. It
// invalidates early on events.UserPreferencesUpdated, grounded on the
// teacher's pattern of subscribing side caches to the event manager
// rather than polling.
type prefCache struct {
	users store.UserStore

	mu      sync.Mutex
	entries map[int64]cachedPrefs
}

type cachedPrefs struct {
	prefs     domain.UserPreferences
	expiresAt time.Time
}

// newPrefCache builds a prefCache subscribed to bus for invalidation. bus
// may be nil in tests that don't exercise invalidation.
func newPrefCache(users store.UserStore, bus *events.Manager) *prefCache {
	c := &prefCache{users: users, entries: make(map[int64]cachedPrefs)}
	if bus != nil {
		bus.On(events.UserPreferencesUpdated, func(e events.Event) {
			if uid, ok := e.Data["user_id"].(int64); ok {
				c.invalidate(uid)
			} else {
				c.invalidateAll()
			}
		})
	}
	return c
}

func (c *prefCache) invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

func (c *prefCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]cachedPrefs)
}

// get returns cached preferences if fresh, otherwise reloads from the
// store and repopulates the cache.
func (c *prefCache) get(ctx context.Context, userID int64) (*domain.UserPreferences, error) {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		p := e.prefs
		return &p, nil
	}
	c.mu.Unlock()

	p, err := c.users.Get(ctx, userID)
	if err != nil || p == nil {
		return p, err
	}

	c.mu.Lock()
	c.entries[userID] = cachedPrefs{prefs: *p, expiresAt: time.Now().Add(prefTTL)}
	c.mu.Unlock()
	return p, nil
}
