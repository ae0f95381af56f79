// Package rooms tracks which connections have joined which named broadcast
// scope (a channel or a server). Membership is explicit state owned here
// rather than delegated to the transport.
package rooms

import "sync"

// Table maps room ID -> set of connection IDs.
type Table struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

func NewTable() *Table {
	return &Table{
		members: make(map[string]map[string]struct{}),
	}
}

// Join adds a connection to a room. Joining twice is a no-op.
func (t *Table) Join(roomID, connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		t.members[roomID] = set
	}
	set[connectionID] = struct{}{}
}

// Leave removes a connection from one room, dropping the room once empty.
func (t *Table) Leave(roomID, connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if set, ok := t.members[roomID]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(t.members, roomID)
		}
	}
}

// LeaveAll removes a connection from every room it joined. Called when the
// connection closes.
func (t *Table) LeaveAll(connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for roomID, set := range t.members {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(t.members, roomID)
		}
	}
}

// Members returns a copy of the connection set for a room. An unknown room
// yields an empty slice; broadcasting to it is simply a no-op.
func (t *Table) Members(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set := t.members[roomID]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Contains reports whether a connection is currently in a room.
func (t *Table) Contains(roomID, connectionID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[roomID][connectionID]
	return ok
}
