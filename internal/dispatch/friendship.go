package dispatch

import (
	"presence-hub-api/internal/directory"
	"presence-hub-api/internal/events"
	"presence-hub-api/internal/realtime"
)

// FriendNotifier handles the relationship-mutation events: request sent,
// accepted, cancelled, unfriend, unblock. All five produce the same
// payload-free "refresh your friend list" nudge to whichever of the two
// parties is online; the recipient re-fetches state, so repeating the
// notification is harmless.
type FriendNotifier struct {
	dir *directory.Directory
	hub *realtime.Hub
}

func NewFriendNotifier(dir *directory.Directory, hub *realtime.Hub) *FriendNotifier {
	return &FriendNotifier{dir: dir, hub: hub}
}

// Notify nudges the sender and the recipient independently.
func (n *FriendNotifier) Notify(senderID, recipientID string) {
	for _, userID := range []string{senderID, recipientID} {
		if connID, ok := n.dir.ConnectionFor(userID); ok {
			n.hub.Emit(connID, events.FriendListChanged, nil)
		}
	}
}
