package dispatch

import (
	"context"
	"log"

	"presence-hub-api/internal/directory"
	"presence-hub-api/internal/events"
	"presence-hub-api/internal/realtime"
	"presence-hub-api/internal/status"
)

// Presence keeps the system-of-record online flag consistent with the
// directory and notifies the affected social graph on connect/disconnect.
type Presence struct {
	dir    *directory.Directory
	hub    *realtime.Hub
	status status.Service
}

func NewPresence(dir *directory.Directory, hub *realtime.Hub, svc status.Service) *Presence {
	return &Presence{dir: dir, hub: hub, status: svc}
}

// HandleConnect processes an identify event from a connection.
//
// The status call is the handler's only suspension point: other
// connections' events may mutate the directory while it is in flight, so
// everything sent afterwards is resolved against the live directory, and
// the ack is skipped if this connection has been superseded meanwhile.
func (p *Presence) HandleConnect(ctx context.Context, connectionID, userID, displayName string) {
	p.dir.Register(userID, connectionID, displayName)
	log.Printf("User %s identified on connection %s. Active users: %d", userID, connectionID, p.dir.Len())

	profile, err := p.status.SetOnlineStatus(ctx, userID, true)
	if err != nil {
		// Registration is kept: the connection stays usable for relay
		// events even though the presence broadcast did not fire.
		log.Printf("Online status update failed for %s: %v", userID, err)
		return
	}

	p.broadcastSnapshot()
	if entry, ok := p.dir.Lookup(userID); ok && entry.ConnectionID == connectionID {
		p.hub.Emit(connectionID, events.PresenceAck, events.OnlinePayload{Online: true})
	}
	p.notifyFriends(profile.Friends, true)
}

// HandleDisconnect processes a transport-level close.
func (p *Presence) HandleDisconnect(ctx context.Context, connectionID string) {
	userID, ok := p.dir.UnregisterConnection(connectionID)
	if !ok {
		// Anonymous connection, or one superseded by a reconnect.
		log.Printf("Connection %s closed without a directory entry", connectionID)
		return
	}
	log.Printf("User %s disconnected. Active users: %d", userID, p.dir.Len())

	profile, err := p.status.SetOnlineStatus(ctx, userID, false)
	if err != nil {
		// Degraded path: the global refresh still goes out, only the
		// targeted friend notifications are skipped.
		log.Printf("Offline status update failed for %s: %v", userID, err)
		p.broadcastSnapshot()
		return
	}

	p.broadcastSnapshot()
	p.notifyFriends(profile.Friends, false)
}

func (p *Presence) broadcastSnapshot() {
	snap := p.dir.Snapshot()
	payload := make(map[string]events.SnapshotEntry, len(snap))
	for id, e := range snap {
		payload[id] = events.SnapshotEntry{
			DisplayName:  e.DisplayName,
			ConnectionID: e.ConnectionID,
		}
	}
	p.hub.EmitAll(events.DirectorySnapshot, payload)
}

// notifyFriends sends a targeted presence-change to each friend that is
// online right now. Offline friends are skipped silently.
func (p *Presence) notifyFriends(friendIDs []string, online bool) {
	for _, friendID := range friendIDs {
		if connID, ok := p.dir.ConnectionFor(friendID); ok {
			p.hub.Emit(connID, events.FriendPresenceChanged, events.OnlinePayload{Online: online})
		}
	}
}
