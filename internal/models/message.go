package models

import (
	"gorm.io/gorm"
)

// Message is immutable once created; only IsRead and DeletedFor change
// afterwards, and only through the read-receipt flows.
type Message struct {
	ID             string   `json:"id" gorm:"primaryKey"`
	ConversationID string   `json:"conversationId" gorm:"column:conversation_id;index;not null"`
	SenderID       string   `json:"senderId" gorm:"column:sender_id;not null"`
	Content        string   `json:"content" gorm:"not null"`
	IsRead         bool     `json:"isRead" gorm:"column:is_read;default:false"`
	DeletedFor     []string `json:"-" gorm:"column:deleted_for;serializer:json"`
	gorm.Model
}

// TableName specifies the table name for Message Model
func (Message) TableName() string {
	return "messages"
}

// VisibleTo reports whether the message has been soft-deleted for the user.
func (m *Message) VisibleTo(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return false
		}
	}
	return true
}
