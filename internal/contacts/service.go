package contacts

import (
	"errors"
	"log/slog"

	"realtime-chat-api/internal/models"
	"realtime-chat-api/internal/realtime"
	"realtime-chat-api/internal/store"
)

var (
	// ErrSelfFriend rejects adding oneself as a contact.
	ErrSelfFriend = errors.New("cannot add yourself as a friend")

	// ErrAlreadyFriends rejects a duplicate friend edge in either direction.
	ErrAlreadyFriends = errors.New("already friends")
)

// ContactSummary is the denormalized view of one contact returned to clients.
// Field names follow the client contract: profile, backing conversation,
// unread count and live presence flag.
type ContactSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Avatar      string `json:"avatar"`
	LastMessage string `json:"lastMessage,omitempty"`
	Unread      int64  `json:"unread"`
	Online      bool   `json:"online"`
	ChatID      string `json:"chatId,omitempty"`
}

// Service owns friend-edge mutations and contact aggregation.
type Service struct {
	store    store.Store
	cache    *FriendsCache
	registry *realtime.Registry
}

// NewService constructs a contact service.
func NewService(st store.Store, fc *FriendsCache, registry *realtime.Registry) *Service {
	return &Service{
		store:    st,
		cache:    fc,
		registry: registry,
	}
}

// AddFriend creates the mutual friend edge and its backing conversation in a
// single transaction, refreshes both users' cache entries, notifies both
// parties' live connections, and returns the new contact as seen by userID.
func (s *Service) AddFriend(userID, friendID string) (*ContactSummary, error) {
	if userID == friendID {
		return nil, ErrSelfFriend
	}

	user, err := s.store.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	friend, err := s.store.FindUserByID(friendID)
	if err != nil {
		return nil, err
	}

	already, err := s.store.AreFriends(userID, friendID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyFriends
	}

	// The conversation and both edge directions commit or roll back together:
	// no partial edge, no orphan conversation. Two racing adds for the same
	// pair are serialized by the unique indexes; the loser lands here with a
	// duplicate-edge failure.
	var conv *models.Conversation
	err = s.store.RunTransaction(func(tx store.Store) error {
		// A pair that was friends before keeps its old conversation (and its
		// history); only a first-time pair gets a fresh one.
		existing, txErr := tx.FindConversationBetween(userID, friendID)
		switch {
		case txErr == nil:
			conv = existing
		case errors.Is(txErr, store.ErrConversationNotFound):
			conv, txErr = tx.CreateConversation(userID, friendID)
			if txErr != nil {
				return txErr
			}
		default:
			return txErr
		}
		if txErr = tx.AddFriendEdge(userID, friendID); txErr != nil {
			return txErr
		}
		return tx.AddFriendEdge(friendID, userID)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEdge) {
			return nil, ErrAlreadyFriends
		}
		return nil, err
	}

	// Both sides' cached friend sets are stale now; clear them before anyone
	// can observe the old view.
	s.cache.Invalidate(userID)
	s.cache.Invalidate(friendID)

	userSummary := s.summarize(user, conv, 0)
	friendSummary := s.summarize(friend, conv, 0)

	// Each online party is told about the other.
	if handle, ok := s.registry.HandleOf(userID); ok {
		handle.Send(realtime.EncodeEvent(realtime.EventFriendAdded, friendSummary))
	}
	if handle, ok := s.registry.HandleOf(friendID); ok {
		handle.Send(realtime.EncodeEvent(realtime.EventFriendAdded, userSummary))
	}

	return friendSummary, nil
}

// RemoveFriend removes both directions of the edge and clears both caches.
// The conversation and its messages are kept; message-level soft deletion is
// handled elsewhere. Removal is not transactional: a half-removed edge is
// self-healing on retry.
func (s *Service) RemoveFriend(userID, friendID string) error {
	if _, err := s.store.FindUserByID(userID); err != nil {
		return err
	}
	if _, err := s.store.FindUserByID(friendID); err != nil {
		return err
	}

	if err := s.store.RemoveFriendEdge(userID, friendID); err != nil {
		return err
	}
	if err := s.store.RemoveFriendEdge(friendID, userID); err != nil {
		return err
	}

	s.cache.Invalidate(userID)
	s.cache.Invalidate(friendID)
	return nil
}

// ContactSummaries aggregates the full contact list for a user. A failure on
// one contact is logged and skipped so the rest of the list still loads.
func (s *Service) ContactSummaries(userID string) ([]ContactSummary, error) {
	friendIDs, err := s.cache.Friends(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ContactSummary, 0, len(friendIDs))
	for _, friendID := range friendIDs {
		summary, err := s.ContactSummaryFor(userID, friendID)
		if err != nil {
			slog.Warn("contacts: failed to aggregate contact", "user", userID, "friend", friendID, "error", err)
			continue
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// ContactSummaryFor builds one contact view: the friend's profile, the shared
// conversation, the unread count of messages the friend sent, and presence.
func (s *Service) ContactSummaryFor(userID, friendID string) (*ContactSummary, error) {
	friend, err := s.store.FindUserByID(friendID)
	if err != nil {
		return nil, err
	}
	conv, err := s.store.FindConversationBetween(userID, friendID)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnreadMessages(conv.ID, friendID)
	if err != nil {
		return nil, err
	}
	return s.summarize(friend, conv, unread), nil
}

func (s *Service) summarize(u *models.User, conv *models.Conversation, unread int64) *ContactSummary {
	return &ContactSummary{
		ID:          u.ID,
		Name:        u.Username,
		Email:       u.Email,
		Avatar:      u.Avatar,
		LastMessage: conv.LastMessage,
		Unread:      unread,
		Online:      s.registry.IsOnline(u.ID),
		ChatID:      conv.ID,
	}
}
