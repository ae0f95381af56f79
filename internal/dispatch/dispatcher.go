// Package dispatch binds the inbound event vocabulary of one live
// connection to the presence, relay, and friendship handlers. Events from
// a single connection are processed strictly in the order the transport
// delivers them; events from different connections interleave freely.
package dispatch

import (
	"context"
	"encoding/json"
	"log"

	"presence-hub-api/internal/directory"
	"presence-hub-api/internal/events"
	"presence-hub-api/internal/realtime"
	"presence-hub-api/internal/rooms"
	"presence-hub-api/internal/status"
)

// friendInvalidator is implemented by status services that cache social
// edges; relationship events evict the affected entries.
type friendInvalidator interface {
	InvalidateFriends(userIDs ...string)
}

// Dispatcher owns the connection lifecycle hooks and routes each decoded
// frame to the right handler. Malformed frames are logged and dropped;
// they never close the connection or reach the handlers.
type Dispatcher struct {
	presence *Presence
	relay    *Relay
	friends  *FriendNotifier
	rooms    *rooms.Table
	status   status.Service
}

func New(dir *directory.Directory, tbl *rooms.Table, hub *realtime.Hub, svc status.Service) *Dispatcher {
	return &Dispatcher{
		presence: NewPresence(dir, hub, svc),
		relay:    NewRelay(dir, tbl, hub),
		friends:  NewFriendNotifier(dir, hub),
		rooms:    tbl,
		status:   svc,
	}
}

// HandleOpen runs when the transport accepts a connection. Nothing is
// registered yet; the connection stays anonymous until it identifies.
func (d *Dispatcher) HandleOpen(connectionID string) {
	log.Printf("Connection %s opened", connectionID)
}

// HandleClose runs on transport-level close, which may fire without any
// prior event from the connection.
func (d *Dispatcher) HandleClose(ctx context.Context, connectionID string) {
	d.rooms.LeaveAll(connectionID)
	d.presence.HandleDisconnect(ctx, connectionID)
}

// HandleFrame decodes and routes one inbound frame.
func (d *Dispatcher) HandleFrame(ctx context.Context, connectionID string, raw []byte) {
	env, err := events.Decode(raw)
	if err != nil {
		log.Printf("Dropping undecodable frame from %s: %v", connectionID, err)
		return
	}

	switch env.Event {
	case events.Identify:
		p, err := bind[events.IdentifyPayload](env.Data, func(p events.IdentifyPayload) bool {
			return p.UserID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.presence.HandleConnect(ctx, connectionID, p.UserID, p.DisplayName)

	case events.FriendRequestSent, events.FriendRequestAccepted,
		events.FriendRequestCancelled, events.Unfriend, events.Unblock:
		p, err := bind[events.FriendPairPayload](env.Data, func(p events.FriendPairPayload) bool {
			return p.SenderID != "" && p.RecipientID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		if inv, ok := d.status.(friendInvalidator); ok {
			inv.InvalidateFriends(p.SenderID, p.RecipientID)
		}
		d.friends.Notify(p.SenderID, p.RecipientID)

	case events.JoinRoom:
		p, err := bind[events.RoomPayload](env.Data, func(p events.RoomPayload) bool {
			return p.RoomID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.JoinRoom(connectionID, p.RoomID)

	case events.MarkRead:
		p, err := bind[events.MarkReadPayload](env.Data, func(p events.MarkReadPayload) bool {
			return p.UserID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.MarkRead(p.UserID)

	case events.SendMessage:
		p, err := bind[events.SendMessagePayload](env.Data, func(p events.SendMessagePayload) bool {
			return p.RoomID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.SendMessage(connectionID, p)

	case events.Typing, events.StopTyping:
		p, err := bind[events.TypingPayload](env.Data, func(p events.TypingPayload) bool {
			return p.RoomID != "" && p.UserID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		if env.Event == events.Typing {
			d.relay.Typing(connectionID, p)
		} else {
			d.relay.StopTyping(connectionID, p)
		}

	case events.CreateRoom:
		p, err := bind[events.RoomPayload](env.Data, func(p events.RoomPayload) bool {
			return p.RoomID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.CreateRoom(connectionID, p.RoomID)

	case events.JoinServer:
		p, err := bind[events.ServerPayload](env.Data, func(p events.ServerPayload) bool {
			return p.UserID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.JoinServer(p)

	case events.CreateServer:
		p, err := bind[events.ServerPayload](env.Data, func(p events.ServerPayload) bool {
			return p.UserID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.CreateServer(p.UserID)

	case events.UpdateServer:
		p, err := bind[events.ServerPayload](env.Data, func(p events.ServerPayload) bool {
			return len(p.MemberIDs) > 0
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.UpdateServer(p)

	case events.LeaveServer:
		p, err := bind[events.ServerPayload](env.Data, func(p events.ServerPayload) bool {
			return p.UserID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.LeaveServer(p.UserID)

	case events.UpdateDMs:
		p, err := bind[events.FriendPairPayload](env.Data, func(p events.FriendPairPayload) bool {
			return p.SenderID != "" || p.RecipientID != ""
		})
		if err != nil {
			d.drop(connectionID, env.Event, err)
			return
		}
		d.relay.UpdateDMs(p.RecipientID, p.SenderID)

	default:
		log.Printf("Dropping unknown event %q from %s", env.Event, connectionID)
	}
}

func (d *Dispatcher) drop(connectionID, event string, err error) {
	log.Printf("Dropping malformed %s event from %s: %v", event, connectionID, err)
}

// errMissingField is deliberately generic: the log line already names the
// event, and the frame is discarded either way.
type payloadError string

func (e payloadError) Error() string { return string(e) }

const errInvalidPayload = payloadError("missing or invalid payload fields")

// bind unmarshals an event payload and checks its required fields.
func bind[T any](raw json.RawMessage, valid func(T) bool) (T, error) {
	var p T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, err
		}
	}
	if !valid(p) {
		return p, errInvalidPayload
	}
	return p, nil
}
