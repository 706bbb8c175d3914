package realtime

import "encoding/json"

// Server-to-client event names on the realtime channel.
const (
	EventOnlineFriends = "online_friends"
	EventFriendAdded   = "friend_added"
	EventMessage       = "message"
	EventResponse      = "response"
)

// Client-to-server event names.
const (
	EventJoinChat    = "join_chat"
	EventSendMessage = "send_message"
	EventAddFriend   = "add_friend"
)

// ServerEvent is the envelope for every server→client frame.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ClientEvent is the envelope for every client→server frame. RequestID is the
// correlation id echoed back on the matching response frame.
type ClientEvent struct {
	Event     string          `json:"event"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
}

// Response acknowledges exactly one ClientEvent that declares a response in
// its contract. It is wrapped in a ServerEvent with Event == EventResponse.
type Response struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// EncodeEvent marshals a server event envelope. An envelope that fails to
// marshal is a programming error; callers treat nil as "do not send".
func EncodeEvent(event string, data any) []byte {
	payload, err := json.Marshal(ServerEvent{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return payload
}

// OnlineFriendsPayload builds the online_friends frame for one recipient.
// The id list is always non-nil so clients receive [] rather than null.
func OnlineFriendsPayload(onlineFriendIDs []string) []byte {
	if onlineFriendIDs == nil {
		onlineFriendIDs = []string{}
	}
	return EncodeEvent(EventOnlineFriends, onlineFriendIDs)
}
