package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"realtime-chat-api/internal/chat"
	"realtime-chat-api/internal/contacts"
	"realtime-chat-api/internal/realtime"
	"realtime-chat-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// Sends can originate from other users' connections (fanout, room broadcast),
// so writes are serialized by a mutex; gorilla allows one concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil || message == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false
	}
	return true
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// RealtimeDeps bundles everything the connection lifecycle needs.
type RealtimeDeps struct {
	Registry *realtime.Registry
	Rooms    *realtime.RoomHub
	Fanout   *realtime.Fanout
	Cache    *contacts.FriendsCache
	Contacts *contacts.Service
	Relay    *chat.Relay
	Store    store.Store
}

type joinChatPayload struct {
	ConversationID string `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type addFriendPayload struct {
	FriendID string `json:"friendId"`
}

// WebSocketHandler drives the per-connection state machine:
// connect → authenticate (JWT middleware) → register presence → handle
// events → disconnect → deregister. It requires the JWT middleware to have
// set "user_id" in context; a connection without a verified identity is
// never registered in the presence registry.
func WebSocketHandler(deps RealtimeDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
			return
		}

		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "user", userID, "error", err)
			return
		}

		client := &wsClient{conn: conn}

		// Last-connect-wins: an earlier session for this user is superseded
		// in the registry but its socket stays open until it disconnects.
		deps.Registry.Register(userID, client)
		deps.Fanout.NotifyPresenceChange(userID)

		// Heartbeat: send periodic pings; close on error
		pingTicker := time.NewTicker(30 * time.Second)
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case <-pingTicker.C:
					if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
						// ping failed; reader loop will exit on next error
						return
					}
				}
			}
		}()
		defer func() {
			close(done)
			pingTicker.Stop()
			deps.Rooms.LeaveAll(client)
			// Deregister only evicts our own handle; a superseding session's
			// entry must survive a stale disconnect.
			if deps.Registry.Deregister(userID, client) {
				deps.Fanout.NotifyPresenceChange(userID)
				deps.Cache.ScheduleIdleInvalidation(userID, func(id string) bool {
					return !deps.Registry.IsOnline(id)
				})
				if err := deps.Store.UpdateLastSeen(userID, time.Now()); err != nil {
					slog.Warn("failed to update last seen", "user", userID, "error", err)
				}
			}
			client.Close()
		}()

		// Reader loop: inbound events are handled serially, so one
		// connection's messages are persisted and broadcast in arrival order.
		conn.SetReadLimit(4096)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				// Normal close or error; exit loop
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			dispatchEvent(deps, client, userID, raw)
		}
	}
}

// dispatchEvent routes one inbound frame. Requests that declare a response in
// their contract (send_message, add_friend) get exactly one correlated
// response frame; join_chat is ack-free and only reports failures.
func dispatchEvent(deps RealtimeDeps, client *wsClient, userID string, raw []byte) {
	var evt realtime.ClientEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		respond(client, "", false, "malformed event", nil)
		return
	}

	switch evt.Event {
	case realtime.EventJoinChat:
		var payload joinChatPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.ConversationID == "" {
			respond(client, evt.RequestID, false, "conversationId is required", nil)
			return
		}
		conv, err := deps.Store.FindConversationByID(payload.ConversationID)
		if err != nil {
			respond(client, evt.RequestID, false, failureMessage(err), nil)
			return
		}
		if !conv.HasParticipant(userID) {
			respond(client, evt.RequestID, false, "not a participant of this conversation", nil)
			return
		}
		deps.Rooms.Join(conv.ID, client)

	case realtime.EventSendMessage:
		var payload sendMessagePayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.ConversationID == "" {
			respond(client, evt.RequestID, false, "conversationId and text are required", nil)
			return
		}
		msg, err := deps.Relay.Relay(payload.ConversationID, userID, payload.Text)
		if err != nil {
			respond(client, evt.RequestID, false, failureMessage(err), nil)
			return
		}
		respond(client, evt.RequestID, true, "message sent", msg)

	case realtime.EventAddFriend:
		var payload addFriendPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.FriendID == "" {
			respond(client, evt.RequestID, false, "friendId is required", nil)
			return
		}
		summary, err := deps.Contacts.AddFriend(userID, payload.FriendID)
		if err != nil {
			respond(client, evt.RequestID, false, failureMessage(err), nil)
			return
		}
		respond(client, evt.RequestID, true, "friend added", summary)

	default:
		respond(client, evt.RequestID, false, "unknown event", nil)
	}
}

// respond emits the single correlated response frame for an inbound request.
func respond(client *wsClient, requestID string, success bool, message string, data any) {
	client.Send(realtime.EncodeEvent(realtime.EventResponse, realtime.Response{
		RequestID: requestID,
		Success:   success,
		Message:   message,
		Data:      data,
	}))
}

// failureMessage maps known failures to their human-readable reason; anything
// unexpected is logged and reported generically so internals do not leak.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, contacts.ErrSelfFriend),
		errors.Is(err, contacts.ErrAlreadyFriends),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrConversationNotFound):
		return err.Error()
	default:
		slog.Error("realtime request failed", "error", err)
		return "internal error"
	}
}
