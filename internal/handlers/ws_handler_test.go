package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"realtime-chat-api/internal/auth"
	"realtime-chat-api/internal/chat"
	"realtime-chat-api/internal/contacts"
	"realtime-chat-api/internal/database"
	"realtime-chat-api/internal/middleware"
	"realtime-chat-api/internal/models"
	"realtime-chat-api/internal/realtime"
	"realtime-chat-api/internal/store"
	"realtime-chat-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	server *httptest.Server
	store  store.Store
	svc    *contacts.Service
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	st := store.NewSQLStore(db)
	registry := realtime.NewRegistry()
	rooms := realtime.NewRoomHub()
	fc := contacts.NewFriendsCache(st, contacts.DefaultIdleWindow)
	fanout := realtime.NewFanout(registry, fc)
	svc := contacts.NewService(st, fc, registry)
	relay := chat.NewRelay(st, rooms)

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.JWTAuthMiddleware())
	api.GET("/ws", WebSocketHandler(RealtimeDeps{
		Registry: registry,
		Rooms:    rooms,
		Fanout:   fanout,
		Cache:    fc,
		Contacts: svc,
		Relay:    relay,
		Store:    st,
	}))

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &wsFixture{server: server, store: st, svc: svc}
}

func (f *wsFixture) seedUser(t *testing.T, id string) {
	t.Helper()
	u := models.User{ID: id, Username: id, Email: id + "@example.com", Password: "x"}
	require.NoError(t, f.store.CreateUser(&u))
}

type wsSession struct {
	conn *websocket.Conn
}

func (f *wsFixture) dial(t *testing.T, userID string) *wsSession {
	t.Helper()
	token, err := auth.GenerateToken(userID, userID)
	require.NoError(t, err)
	url := strings.Replace(f.server.URL, "http", "ws", 1) + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsSession{conn: conn}
}

func (s *wsSession) send(t *testing.T, event, requestID string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(realtime.ClientEvent{Event: event, RequestID: requestID, Data: raw})
	require.NoError(t, err)
	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, frame))
}

// next reads one server frame, failing the test if nothing arrives in time.
func (s *wsSession) next(t *testing.T) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, s.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := s.conn.ReadMessage()
	require.NoError(t, err)
	var evt struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &evt))
	return evt.Event, evt.Data
}

// waitFor discards frames until one with the wanted event name arrives.
func (s *wsSession) waitFor(t *testing.T, event string) json.RawMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		name, data := s.next(t)
		if name == event {
			return data
		}
	}
	t.Fatalf("no %q frame received", event)
	return nil
}

// waitForResponse discards frames until the response correlated to requestID.
func (s *wsSession) waitForResponse(t *testing.T, requestID string) realtime.Response {
	t.Helper()
	for i := 0; i < 20; i++ {
		data := s.waitFor(t, realtime.EventResponse)
		var resp realtime.Response
		require.NoError(t, json.Unmarshal(data, &resp))
		if resp.RequestID == requestID {
			return resp
		}
	}
	t.Fatalf("no response for request %q", requestID)
	return realtime.Response{}
}

func (s *wsSession) waitForOnlineFriends(t *testing.T, want []string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last []string
	for time.Now().Before(deadline) {
		data := s.waitFor(t, realtime.EventOnlineFriends)
		var ids []string
		require.NoError(t, json.Unmarshal(data, &ids))
		last = ids
		if len(ids) == len(want) {
			require.ElementsMatch(t, want, ids)
			return
		}
	}
	t.Fatalf("never saw online friends %v, last push was %v", want, last)
}

func TestWebSocket_RequiresToken(t *testing.T) {
	f := newWSFixture(t)
	resp, err := http.Get(f.server.URL + "/api/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_ConnectPushesOnlineFriends(t *testing.T) {
	f := newWSFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")
	require.NoError(t, f.store.AddFriendEdge("alice", "bob"))
	require.NoError(t, f.store.AddFriendEdge("bob", "alice"))

	bob := f.dial(t, "bob")
	bob.waitForOnlineFriends(t, nil) // nobody else online yet

	alice := f.dial(t, "alice")
	alice.waitForOnlineFriends(t, []string{"bob"})

	// Bob is told about alice arriving.
	bob.waitForOnlineFriends(t, []string{"alice"})
}

func TestWebSocket_DisconnectPushesOnlineFriends(t *testing.T) {
	f := newWSFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")
	require.NoError(t, f.store.AddFriendEdge("alice", "bob"))
	require.NoError(t, f.store.AddFriendEdge("bob", "alice"))

	bob := f.dial(t, "bob")
	alice := f.dial(t, "alice")
	bob.waitForOnlineFriends(t, []string{"alice"})

	require.NoError(t, alice.conn.Close())

	// The departure is pushed to bob without any action on his part.
	bob.waitForOnlineFriends(t, nil)

	// And the user's last-seen timestamp was stamped on the way out.
	require.Eventually(t, func() bool {
		user, err := f.store.FindUserByID("alice")
		return err == nil && !user.LastSeen.IsZero()
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWebSocket_AddFriendFlow(t *testing.T) {
	f := newWSFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")

	alice := f.dial(t, "alice")
	bob := f.dial(t, "bob")

	reqID := uuid.NewString()
	alice.send(t, realtime.EventAddFriend, reqID, map[string]string{"friendId": "bob"})

	resp := alice.waitForResponse(t, reqID)
	require.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var summary contacts.ContactSummary
	require.NoError(t, json.Unmarshal(raw, &summary))
	require.Equal(t, "bob", summary.ID)
	require.True(t, summary.Online)
	require.NotEmpty(t, summary.ChatID)

	// The other party learns of the new contact without asking.
	data := bob.waitFor(t, realtime.EventFriendAdded)
	var bobView contacts.ContactSummary
	require.NoError(t, json.Unmarshal(data, &bobView))
	require.Equal(t, "alice", bobView.ID)
	require.Equal(t, summary.ChatID, bobView.ChatID)
}

func TestWebSocket_AddFriendFailure(t *testing.T) {
	f := newWSFixture(t)
	f.seedUser(t, "alice")

	alice := f.dial(t, "alice")

	reqID := uuid.NewString()
	alice.send(t, realtime.EventAddFriend, reqID, map[string]string{"friendId": "ghost"})

	resp := alice.waitForResponse(t, reqID)
	require.False(t, resp.Success)
	require.Equal(t, "user not found", resp.Message)
}

func TestWebSocket_SendMessageFlow(t *testing.T) {
	f := newWSFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")
	summary, err := f.svc.AddFriend("alice", "bob")
	require.NoError(t, err)

	alice := f.dial(t, "alice")
	bob := f.dial(t, "bob")

	// join_chat is ack-free; sequence bob's join by piggybacking a message
	// whose response proves the earlier frame was handled.
	bob.send(t, realtime.EventJoinChat, uuid.NewString(), map[string]string{"conversationId": summary.ChatID})
	probeID := uuid.NewString()
	bob.send(t, realtime.EventSendMessage, probeID, map[string]string{"conversationId": summary.ChatID, "text": "probe"})
	require.True(t, bob.waitForResponse(t, probeID).Success)

	alice.send(t, realtime.EventJoinChat, uuid.NewString(), map[string]string{"conversationId": summary.ChatID})

	reqID := uuid.NewString()
	alice.send(t, realtime.EventSendMessage, reqID, map[string]string{"conversationId": summary.ChatID, "text": "hello bob"})

	resp := alice.waitForResponse(t, reqID)
	require.True(t, resp.Success)

	// Bob receives the broadcast frame with the persisted message.
	var delivered models.Message
	for {
		data := bob.waitFor(t, realtime.EventMessage)
		require.NoError(t, json.Unmarshal(data, &delivered))
		if delivered.Content != "probe" {
			break
		}
	}
	require.Equal(t, "hello bob", delivered.Content)
	require.Equal(t, "alice", delivered.SenderID)
	require.NotEmpty(t, delivered.ID)

	// And it is durable.
	stored, err := f.store.FindMessages(summary.ChatID, 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestWebSocket_JoinChatRejectsNonParticipant(t *testing.T) {
	f := newWSFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")
	f.seedUser(t, "mallory")
	summary, err := f.svc.AddFriend("alice", "bob")
	require.NoError(t, err)

	mallory := f.dial(t, "mallory")

	reqID := uuid.NewString()
	mallory.send(t, realtime.EventJoinChat, reqID, map[string]string{"conversationId": summary.ChatID})

	resp := mallory.waitForResponse(t, reqID)
	require.False(t, resp.Success)
}

func TestWebSocket_UnknownEvent(t *testing.T) {
	f := newWSFixture(t)
	f.seedUser(t, "alice")

	alice := f.dial(t, "alice")

	reqID := uuid.NewString()
	alice.send(t, "no_such_event", reqID, map[string]string{})

	resp := alice.waitForResponse(t, reqID)
	require.False(t, resp.Success)
	require.Equal(t, "unknown event", resp.Message)
}
