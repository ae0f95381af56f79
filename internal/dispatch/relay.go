package dispatch

import (
	"presence-hub-api/internal/directory"
	"presence-hub-api/internal/events"
	"presence-hub-api/internal/realtime"
	"presence-hub-api/internal/rooms"
)

// Relay routes room-scoped and targeted session events. It holds no state
// of its own; every targeted send resolves identity -> connection through
// the directory at send time and drops silently when the recipient is
// offline.
type Relay struct {
	dir   *directory.Directory
	rooms *rooms.Table
	hub   *realtime.Hub
}

func NewRelay(dir *directory.Directory, tbl *rooms.Table, hub *realtime.Hub) *Relay {
	return &Relay{dir: dir, rooms: tbl, hub: hub}
}

// JoinRoom adds the requesting connection to a named room.
func (r *Relay) JoinRoom(connectionID, roomID string) {
	r.rooms.Join(roomID, connectionID)
}

// SendMessage broadcasts a message-arrival notice to the room, excluding
// the sender, and additionally pushes an unread update to each listed
// member who is online but possibly not joined to the room's live group.
func (r *Relay) SendMessage(connectionID string, p events.SendMessagePayload) {
	payload := events.RoomEventPayload{RoomID: p.RoomID}
	r.hub.EmitTo(r.rooms.Members(p.RoomID), connectionID, events.MessageReceived, payload)

	for _, memberID := range p.MemberIDs {
		if connID, ok := r.dir.ConnectionFor(memberID); ok {
			r.hub.Emit(connID, events.UnreadUpdate, payload)
		}
	}
}

// Typing shows a transient typing indicator to everyone else in the room.
func (r *Relay) Typing(connectionID string, p events.TypingPayload) {
	r.hub.EmitTo(r.rooms.Members(p.RoomID), connectionID, events.TypingShown,
		events.UserInfoPayload{UserID: p.UserID, DisplayName: p.DisplayName})
}

// StopTyping clears the indicator for everyone else in the room.
func (r *Relay) StopTyping(connectionID string, p events.TypingPayload) {
	r.hub.EmitTo(r.rooms.Members(p.RoomID), connectionID, events.TypingStopped,
		events.UserInfoPayload{UserID: p.UserID, DisplayName: p.DisplayName})
}

// CreateRoom acknowledges a new channel to its creator only.
func (r *Relay) CreateRoom(connectionID, roomID string) {
	r.hub.Emit(connectionID, events.RoomCreated, events.RoomEventPayload{RoomID: roomID})
}

// JoinServer tells every listed member that a user joined their server.
func (r *Relay) JoinServer(p events.ServerPayload) {
	payload := events.JoinedServerPayload{UserID: p.UserID}
	for _, memberID := range p.MemberIDs {
		if connID, ok := r.dir.ConnectionFor(memberID); ok {
			r.hub.Emit(connID, events.UserJoinedServer, payload)
		}
	}
}

// CreateServer tells the initiating user to refresh their server view.
func (r *Relay) CreateServer(userID string) {
	if connID, ok := r.dir.ConnectionFor(userID); ok {
		r.hub.Emit(connID, events.ServerUpdated, nil)
	}
}

// UpdateServer tells every listed member to refresh their server view.
func (r *Relay) UpdateServer(p events.ServerPayload) {
	for _, memberID := range p.MemberIDs {
		if connID, ok := r.dir.ConnectionFor(memberID); ok {
			r.hub.Emit(connID, events.ServerUpdated, nil)
		}
	}
}

// LeaveServer refreshes only the leaving user's own view.
func (r *Relay) LeaveServer(userID string) {
	if connID, ok := r.dir.ConnectionFor(userID); ok {
		r.hub.Emit(connID, events.ServerUpdated, nil)
	}
}

// MarkRead confirms to a single user that their message was read.
func (r *Relay) MarkRead(userID string) {
	if connID, ok := r.dir.ConnectionFor(userID); ok {
		r.hub.Emit(connID, events.ReadConfirmation, nil)
	}
}

// UpdateDMs tells both parties of a direct-message exchange to refresh
// their DM list.
func (r *Relay) UpdateDMs(recipientID, senderID string) {
	for _, userID := range []string{recipientID, senderID} {
		if connID, ok := r.dir.ConnectionFor(userID); ok {
			r.hub.Emit(connID, events.DMListChanged, nil)
		}
	}
}
