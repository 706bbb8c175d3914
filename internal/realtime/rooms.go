package realtime

import (
	"sync"
)

// RoomHub maintains the set of connections subscribed to each conversation's
// broadcasts. Joining is idempotent; membership is purely in-memory and a
// connection must re-join after reconnecting.
type RoomHub struct {
	mu    sync.RWMutex
	rooms map[string]map[Client]struct{}
}

// NewRoomHub constructs an empty room hub.
func NewRoomHub() *RoomHub {
	return &RoomHub{
		rooms: make(map[string]map[Client]struct{}),
	}
}

var roomHubInstance *RoomHub
var roomHubOnce sync.Once

// GetRoomHub returns the process-wide room hub instance.
func GetRoomHub() *RoomHub {
	roomHubOnce.Do(func() {
		roomHubInstance = NewRoomHub()
	})
	return roomHubInstance
}

// Join subscribes a client to a conversation's broadcasts.
func (h *RoomHub) Join(conversationID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[Client]struct{})
	}
	h.rooms[conversationID][client] = struct{}{}
}

// Leave removes a client from one room; empty rooms are cleaned up.
func (h *RoomHub) Leave(conversationID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[conversationID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// LeaveAll removes a client from every room it joined; called on disconnect.
func (h *RoomHub) LeaveAll(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conversationID, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// MemberCount returns how many connections are joined to a conversation.
func (h *RoomHub) MemberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Broadcast sends a payload to every connection currently joined to the
// conversation. Delivery is at-most-once; a failed write is dropped and the
// failing connection cleans itself up on its side.
func (h *RoomHub) Broadcast(conversationID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[conversationID] {
		// a failed write is dropped; the connection cleans itself up on its side
		c.Send(payload)
	}
}
