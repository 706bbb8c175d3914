package handlers

import (
	"errors"
	"net/http"
	"strings"

	"realtime-chat-api/internal/contacts"
	"realtime-chat-api/internal/database"
	"realtime-chat-api/internal/models"
	"realtime-chat-api/internal/store"

	"github.com/gin-gonic/gin"
)

// UserProfile is the public projection of a user returned by search endpoints.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// GetContacts handles GET /api/contacts
// Returns the authenticated user's contact summaries. Pure read path with
// no presence side effects.
func GetContacts(svc *contacts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
			return
		}

		summaries, err := svc.ContactSummaries(userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contacts"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    summaries,
		})
	}
}

// RemoveContact handles DELETE /api/contacts/:friendId
// Removes both directions of the friend edge; the conversation and its
// messages are kept.
func RemoveContact(svc *contacts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
			return
		}

		friendID := c.Param("friendId")
		if friendID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Friend ID is required"})
			return
		}

		if err := svc.RemoveFriend(userID, friendID); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User or friend not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove friend"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Friend removed",
		})
	}
}

// SearchUsers handles GET /api/users/search?q=
// Matches username/email prefixes, excluding the searcher and existing contacts.
func SearchUsers(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	st := store.NewSQLStore(database.GetDB())
	users, err := st.SearchUsers(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
		return
	}

	profiles := make([]UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, UserProfile{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Avatar:   u.Avatar,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profiles,
	})
}

// GetMe handles GET /api/me
func GetMe(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	st := store.NewSQLStore(database.GetDB())
	user, err := st.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetMessages handles GET /api/messages/:conversationId
// History catch-up for a participant: returns the conversation's messages
// (minus ones soft-deleted for the caller) and marks the rest as read.
func GetMessages(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	conversationID := c.Param("conversationId")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID is required"})
		return
	}

	st := store.NewSQLStore(database.GetDB())
	conv, err := st.FindConversationByID(conversationID)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	msgs, err := st.FindMessages(conversationID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	visible := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.VisibleTo(userID) {
			visible = append(visible, m)
		}
	}

	if err := st.MarkConversationRead(conversationID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    visible,
	})
}
