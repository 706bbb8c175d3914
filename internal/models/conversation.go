package models

import (
	"gorm.io/gorm"
)

// Conversation backs exactly one friendship's message channel.
// UserAID/UserBID hold the two participants in canonical (lexicographic)
// order so the composite unique index guarantees at most one conversation
// per friend pair.
type Conversation struct {
	ID          string `json:"id" gorm:"primaryKey"`
	UserAID     string `json:"userAId" gorm:"column:user_a_id;uniqueIndex:idx_conversation_pair;not null"`
	UserBID     string `json:"userBId" gorm:"column:user_b_id;uniqueIndex:idx_conversation_pair;not null"`
	LastMessage string `json:"lastMessage" gorm:"column:last_message"`
	gorm.Model
}

// TableName specifies the table name for Conversation Model
func (Conversation) TableName() string {
	return "conversations"
}

// CanonicalPair returns the two user ids in the order they are stored.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether the given user is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherParticipant returns the participant that is not the given user.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}
