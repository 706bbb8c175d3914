package realtime

import (
	"sync"
)

// Registry tracks which users currently hold an active realtime connection.
// At most one handle is recorded per user id; a later Register for the same
// user silently supersedes the earlier handle (last-connect-wins).
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Client
}

// NewRegistry constructs an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]Client),
	}
}

var registryInstance *Registry
var registryOnce sync.Once

// GetRegistry returns the process-wide registry instance.
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		registryInstance = NewRegistry()
	})
	return registryInstance
}

// Register records the connection handle for a user, superseding any prior
// handle. The superseded handle is orphaned from the registry's perspective;
// its socket keeps operating until its own read loop exits.
func (r *Registry) Register(userID string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[userID] = client
}

// Deregister removes the user's entry only if it still points at the given
// handle. A disconnecting superseded connection must not evict the newer
// session that replaced it. Returns whether an entry was removed.
func (r *Registry) Deregister(userID string, client Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.handles[userID]
	if !ok || current != client {
		return false
	}
	delete(r.handles, userID)
	return true
}

// IsOnline reports whether the user has a registered connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[userID]
	return ok
}

// HandleOf returns the user's current connection handle, if any.
func (r *Registry) HandleOf(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.handles[userID]
	return c, ok
}

// OnlineUserIDs returns the ids of all currently connected users.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}
