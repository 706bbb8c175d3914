package realtime

import (
	"log/slog"
)

// FriendSource resolves a user's friend-id set. It is implemented by the
// friends cache; an interface keeps this package free of storage concerns.
type FriendSource interface {
	Friends(userID string) ([]string, error)
}

// Fanout pushes presence-delta events to the connections affected by one
// user's presence change.
type Fanout struct {
	registry *Registry
	friends  FriendSource
}

// NewFanout constructs a fanout engine over the given registry and friend source.
func NewFanout(registry *Registry, friends FriendSource) *Fanout {
	return &Fanout{
		registry: registry,
		friends:  friends,
	}
}

// NotifyPresenceChange recomputes and pushes the online-friends view for the
// user (if connected) and for every online friend. It runs on both connect
// and disconnect, so friends learn when the user is gone. A failure while
// resolving one friend's list is logged and never aborts the rest of the loop.
func (f *Fanout) NotifyPresenceChange(userID string) {
	friendIDs, err := f.friends.Friends(userID)
	if err != nil {
		slog.Warn("presence fanout: failed to resolve friends", "user", userID, "error", err)
		return
	}

	if self, ok := f.registry.HandleOf(userID); ok {
		self.Send(OnlineFriendsPayload(f.onlineSubset(friendIDs)))
	}

	for _, friendID := range friendIDs {
		handle, ok := f.registry.HandleOf(friendID)
		if !ok {
			continue
		}
		// Each friend gets their own online subset, not the triggering user's.
		friendsOfFriend, err := f.friends.Friends(friendID)
		if err != nil {
			slog.Warn("presence fanout: failed to resolve friend's list", "user", userID, "friend", friendID, "error", err)
			continue
		}
		handle.Send(OnlineFriendsPayload(f.onlineSubset(friendsOfFriend)))
	}
}

// onlineSubset filters a friend-id set down to the currently connected ids.
func (f *Fanout) onlineSubset(friendIDs []string) []string {
	online := make([]string, 0, len(friendIDs))
	for _, id := range friendIDs {
		if f.registry.IsOnline(id) {
			online = append(online, id)
		}
	}
	return online
}
