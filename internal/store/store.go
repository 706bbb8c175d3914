package store

import (
	"errors"
	"time"

	"realtime-chat-api/internal/models"
)

var (
	// ErrUserNotFound is returned when a user id/email/username does not resolve.
	ErrUserNotFound = errors.New("user not found")

	// ErrConversationNotFound is returned when a conversation id does not resolve.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrDuplicateEdge is returned when a friend edge (or its backing
	// conversation) already exists in either direction.
	ErrDuplicateEdge = errors.New("friend edge already exists")
)

// Store is the storage collaborator consumed by the realtime core.
// Implementations must be safe for concurrent use. RunTransaction yields a
// Store bound to the transaction; writes made through it are atomic.
type Store interface {
	// Users
	CreateUser(u *models.User) error
	FindUserByID(id string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	FindUserByUsername(username string) (*models.User, error)
	UpdateLastSeen(id string, t time.Time) error
	SearchUsers(query, excludeID string) ([]models.User, error)

	// Friend edges (one row per direction)
	FindUserFriends(id string) ([]string, error)
	AreFriends(userID, friendID string) (bool, error)
	AddFriendEdge(userID, friendID string) error
	RemoveFriendEdge(userID, friendID string) error

	// Conversations
	CreateConversation(userA, userB string) (*models.Conversation, error)
	FindConversationByID(id string) (*models.Conversation, error)
	FindConversationBetween(userA, userB string) (*models.Conversation, error)
	UpdateConversationLastMessage(id, text string) error

	// Messages
	CreateMessage(m *models.Message) error
	FindMessages(conversationID string, limit int) ([]models.Message, error)
	CountUnreadMessages(conversationID, senderID string) (int64, error)
	MarkConversationRead(conversationID, readerID string) error

	// RunTransaction executes fn atomically; any error rolls back all writes.
	RunTransaction(fn func(Store) error) error
}
