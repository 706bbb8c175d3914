package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultAvatarBase is the avatar generator prefix; the username is appended as the seed.
const DefaultAvatarBase = "https://api.dicebear.com/6.x/micah/svg?seed="

// User represents a registered user in the system.
// Friend relations are stored as Friendship rows, not on the user row itself.
type User struct {
	ID       string    `json:"id" gorm:"primaryKey"`
	Username string    `json:"username" gorm:"unique;not null"`
	Email    string    `json:"email" gorm:"unique;not null"`
	Password string    `json:"-" gorm:"not null"`
	Avatar   string    `json:"avatar"`
	LastSeen time.Time `json:"lastSeen" gorm:"column:last_seen"`
	gorm.Model
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// Friendship represents one direction of a mutual friend edge.
// A friendship between A and B is always two rows (A->B and B->A); the
// composite unique index is the storage-level constraint that serializes
// concurrent duplicate adds.
type Friendship struct {
	UserID   string `json:"userId" gorm:"column:user_id;uniqueIndex:idx_friend_edge;not null"`
	FriendID string `json:"friendId" gorm:"column:friend_id;uniqueIndex:idx_friend_edge;not null"`
	gorm.Model
}

// TableName specifies the table name for Friendship Model
func (Friendship) TableName() string {
	return "friendships"
}
