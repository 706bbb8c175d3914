package contacts

import (
	"time"

	"realtime-chat-api/internal/cache"
	"realtime-chat-api/internal/store"

	"golang.org/x/sync/singleflight"
)

// DefaultIdleWindow is how long a disconnected user's friend set stays cached.
const DefaultIdleWindow = time.Hour

// FriendsCache is a lazily-populated per-user friend-id cache over the store.
// Entries never expire on their own; they are removed synchronously by friend
// mutations and asynchronously after the idle window following a disconnect.
// The store remains authoritative; the cache is purely a read optimization.
type FriendsCache struct {
	store      store.Store
	entries    *cache.SimpleCache[string, []string]
	group      singleflight.Group
	idleWindow time.Duration
}

// NewFriendsCache constructs a cache resolving misses through the given store.
func NewFriendsCache(st store.Store, idleWindow time.Duration) *FriendsCache {
	return &FriendsCache{
		store:      st,
		entries:    cache.NewSimpleCache[string, []string](),
		idleWindow: idleWindow,
	}
}

// Friends returns the user's friend-id set, resolving a miss with exactly one
// store lookup even under concurrent callers (singleflight collapses them).
func (fc *FriendsCache) Friends(userID string) ([]string, error) {
	if ids, ok := fc.entries.Get(userID); ok {
		return ids, nil
	}

	v, err, _ := fc.group.Do(userID, func() (any, error) {
		if ids, ok := fc.entries.Get(userID); ok {
			return ids, nil
		}
		ids, err := fc.store.FindUserFriends(userID)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		fc.entries.Set(userID, ids, 0)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Invalidate drops the user's entry. Callers that mutate a user's friend set
// must invalidate synchronously as part of the mutation.
func (fc *FriendsCache) Invalidate(userID string) {
	fc.entries.Delete(userID)
}

// Cached reports whether the user currently has a cache entry.
func (fc *FriendsCache) Cached(userID string) bool {
	return fc.entries.Has(userID)
}

// ScheduleIdleInvalidation arms a one-shot timer that drops the user's entry
// after the idle window, unless stillOffline reports the user reconnected in
// the meantime (in which case the expiry is a no-op and the entry survives).
func (fc *FriendsCache) ScheduleIdleInvalidation(userID string, stillOffline func(userID string) bool) {
	time.AfterFunc(fc.idleWindow, func() {
		if stillOffline(userID) {
			fc.entries.Delete(userID)
		}
	})
}
