package store

import (
	"errors"
	"strings"
	"time"

	"realtime-chat-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQLStore implements Store on top of gorm.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps a gorm connection (or transaction) in a Store.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// The sqlite driver does not always translate to gorm.ErrDuplicatedKey,
// so the raw constraint message is checked as well.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func (s *SQLStore) CreateUser(u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return s.db.Create(u).Error
}

func (s *SQLStore) FindUserByID(id string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) FindUserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) FindUserByUsername(username string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) UpdateLastSeen(id string, t time.Time) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("last_seen", t).Error
}

// SearchUsers matches username or email prefixes, excluding the searcher and
// anyone already in their contact list.
func (s *SQLStore) SearchUsers(query, excludeID string) ([]models.User, error) {
	var users []models.User
	pattern := query + "%"
	friendsOf := s.db.Model(&models.Friendship{}).
		Select("friend_id").
		Where("user_id = ?", excludeID)
	err := s.db.
		Where("(username LIKE ? OR email LIKE ?) AND id <> ?", pattern, pattern, excludeID).
		Where("id NOT IN (?)", friendsOf).
		Order("username asc").
		Limit(20).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *SQLStore) FindUserFriends(id string) ([]string, error) {
	// The user must exist; an empty friend list is not the same as a missing user.
	if _, err := s.FindUserByID(id); err != nil {
		return nil, err
	}
	var friendIDs []string
	err := s.db.Model(&models.Friendship{}).
		Where("user_id = ?", id).
		Pluck("friend_id", &friendIDs).Error
	if err != nil {
		return nil, err
	}
	return friendIDs, nil
}

func (s *SQLStore) AreFriends(userID, friendID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Friendship{}).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLStore) AddFriendEdge(userID, friendID string) error {
	edge := models.Friendship{UserID: userID, FriendID: friendID}
	if err := s.db.Create(&edge).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEdge
		}
		return err
	}
	return nil
}

func (s *SQLStore) RemoveFriendEdge(userID, friendID string) error {
	// Hard delete: a soft-deleted row would still occupy the unique index and
	// block the pair from ever becoming friends again.
	return s.db.Unscoped().
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Delete(&models.Friendship{}).Error
}

func (s *SQLStore) CreateConversation(userA, userB string) (*models.Conversation, error) {
	a, b := models.CanonicalPair(userA, userB)
	conv := models.Conversation{
		ID:      uuid.NewString(),
		UserAID: a,
		UserBID: b,
	}
	if err := s.db.Create(&conv).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEdge
		}
		return nil, err
	}
	return &conv, nil
}

func (s *SQLStore) FindConversationByID(id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (s *SQLStore) FindConversationBetween(userA, userB string) (*models.Conversation, error) {
	a, b := models.CanonicalPair(userA, userB)
	var conv models.Conversation
	if err := s.db.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (s *SQLStore) UpdateConversationLastMessage(id, text string) error {
	return s.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("last_message", text).Error
}

func (s *SQLStore) CreateMessage(m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return s.db.Create(m).Error
}

// FindMessages returns messages oldest-first; limit <= 0 means no limit.
func (s *SQLStore) FindMessages(conversationID string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	q := s.db.Where("conversation_id = ?", conversationID).Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// CountUnreadMessages counts unread messages sent by senderID in the conversation.
func (s *SQLStore) CountUnreadMessages(conversationID, senderID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id = ? AND is_read = ?", conversationID, senderID, false).
		Count(&count).Error
	return count, err
}

// MarkConversationRead flags every message not sent by readerID as read.
func (s *SQLStore) MarkConversationRead(conversationID, readerID string) error {
	return s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true).Error
}

func (s *SQLStore) RunTransaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&SQLStore{db: tx})
	})
}

// Ensure SQLStore implements Store at compile time.
var _ Store = (*SQLStore)(nil)
