package chat

import (
	"errors"
	"log/slog"
	"strings"

	"realtime-chat-api/internal/models"
	"realtime-chat-api/internal/realtime"
	"realtime-chat-api/internal/store"
)

var (
	// ErrEmptyMessage rejects blank message text.
	ErrEmptyMessage = errors.New("message text is required")

	// ErrNotParticipant rejects senders outside the conversation's friend pair.
	ErrNotParticipant = errors.New("sender is not a participant of this conversation")
)

// Relay accepts a message for a conversation, persists it, maintains the
// conversation's last-message summary and broadcasts it to the room.
type Relay struct {
	store store.Store
	rooms *realtime.RoomHub
}

// NewRelay constructs a message relay.
func NewRelay(st store.Store, rooms *realtime.RoomHub) *Relay {
	return &Relay{
		store: st,
		rooms: rooms,
	}
}

// Relay persists the message and broadcasts it to every connection currently
// joined to the conversation's room. Persistence strictly precedes broadcast:
// a persistence failure aborts with an error to the sender and nothing is
// pushed; a broadcast failure can never lose a persisted message.
func (r *Relay) Relay(conversationID, senderID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := r.store.FindConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        text,
	}
	if err := r.store.CreateMessage(msg); err != nil {
		return nil, err
	}

	// The summary is a denormalized convenience; the message row is already
	// durable, so a summary failure does not abort delivery.
	if err := r.store.UpdateConversationLastMessage(conv.ID, text); err != nil {
		slog.Warn("relay: failed to update last-message summary", "conversation", conv.ID, "error", err)
	}

	r.rooms.Broadcast(conv.ID, realtime.EncodeEvent(realtime.EventMessage, msg))
	return msg, nil
}
