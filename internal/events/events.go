// Package events defines the wire vocabulary shared by the hub and its
// clients. Every frame in either direction is a JSON envelope of the form
// {"event": "<name>", "data": {...}}.
package events

import "encoding/json"

// Inbound event names (client -> hub).
const (
	Identify               = "identify"
	FriendRequestSent      = "friend-request-sent"
	FriendRequestAccepted  = "friend-request-accepted"
	FriendRequestCancelled = "friend-request-cancelled"
	Unfriend               = "unfriend"
	Unblock                = "unblock"
	JoinRoom               = "join-room"
	MarkRead               = "mark-read"
	SendMessage            = "send-message"
	Typing                 = "typing"
	StopTyping             = "stop-typing"
	CreateRoom             = "create-room"
	JoinServer             = "join-server"
	CreateServer           = "create-server"
	UpdateServer           = "update-server"
	LeaveServer            = "leave-server"
	UpdateDMs              = "update-dms"
)

// Outbound event names (hub -> client).
const (
	DirectorySnapshot     = "directory-snapshot"
	PresenceAck           = "presence-ack"
	FriendPresenceChanged = "friend-presence-changed"
	FriendListChanged     = "friend-list-changed"
	MessageReceived       = "message-received"
	UnreadUpdate          = "unread-update"
	ReadConfirmation      = "read-confirmation"
	TypingShown           = "typing-shown"
	TypingStopped         = "typing-stopped"
	RoomCreated           = "room-created"
	ServerUpdated         = "server-updated"
	UserJoinedServer      = "user-joined-server"
	DMListChanged         = "dm-list-changed"
)

// Envelope is the frame wrapper. Data is left raw on decode so the
// dispatcher can bind it against the payload type the event name implies.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses a raw inbound frame.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Encode builds an outbound frame. A marshal failure here means a
// programming error in the payload type, so it is surfaced to the caller.
func Encode(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Inbound payloads.

type IdentifyPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type FriendPairPayload struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type MarkReadPayload struct {
	UserID string `json:"userId"`
}

type SendMessagePayload struct {
	RoomID    string   `json:"roomId"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

type TypingPayload struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type ServerPayload struct {
	UserID    string   `json:"userId,omitempty"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

// Outbound payloads.

type OnlinePayload struct {
	Online bool `json:"online"`
}

type UserInfoPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type RoomEventPayload struct {
	RoomID string `json:"roomId"`
}

type JoinedServerPayload struct {
	UserID string `json:"userId"`
}

// SnapshotEntry is one row of a directory-snapshot broadcast.
type SnapshotEntry struct {
	DisplayName  string `json:"displayName"`
	ConnectionID string `json:"connectionId"`
}
