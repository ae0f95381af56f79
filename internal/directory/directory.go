// Package directory maintains the bidirectional mapping between user
// identities and live connection endpoints. It is the hub's only shared
// mutable registry; every other component reads it through the operations
// below and never touches the maps directly.
package directory

import "sync"

// Entry records one currently-connected identity.
type Entry struct {
	UserID       string
	ConnectionID string
	DisplayName  string
}

// Directory holds two maps kept as exact inverses of each other:
// byIdentity[id].ConnectionID == c if and only if byConnection[c] == id.
// At most one entry exists per identity; a new connection for an
// already-present identity overwrites the old one (last-connect-wins).
type Directory struct {
	mu           sync.RWMutex
	byIdentity   map[string]Entry
	byConnection map[string]string
}

func New() *Directory {
	return &Directory{
		byIdentity:   make(map[string]Entry),
		byConnection: make(map[string]string),
	}
}

// Register binds an identity to a connection. If the identity was already
// registered on another connection, that connection's reverse entry is
// evicted so a later close of the superseded connection is a no-op instead
// of tearing down the fresh registration.
func (d *Directory) Register(userID, connectionID, displayName string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.byIdentity[userID]; ok && prev.ConnectionID != connectionID {
		delete(d.byConnection, prev.ConnectionID)
	}
	d.byIdentity[userID] = Entry{
		UserID:       userID,
		ConnectionID: connectionID,
		DisplayName:  displayName,
	}
	d.byConnection[connectionID] = userID
}

// UnregisterConnection removes the entry addressed by a connection and
// returns the identity it freed. Unknown connections return ok=false;
// a connection that never identified, or one that was superseded by a
// reconnect, closes silently.
func (d *Directory) UnregisterConnection(connectionID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	userID, ok := d.byConnection[connectionID]
	if !ok {
		return "", false
	}
	delete(d.byConnection, connectionID)
	delete(d.byIdentity, userID)
	return userID, true
}

// Lookup returns the live entry for an identity, if any.
func (d *Directory) Lookup(userID string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byIdentity[userID]
	return e, ok
}

// ConnectionFor resolves an identity straight to its connection ID.
// Absence means the user is offline, which callers treat as "drop the
// send", never as an error.
func (d *Directory) ConnectionFor(userID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byIdentity[userID]
	if !ok {
		return "", false
	}
	return e.ConnectionID, true
}

// Snapshot returns a copy of the identity map. Callers iterate it for the
// global presence broadcast, so it must not alias live state.
func (d *Directory) Snapshot() map[string]Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]Entry, len(d.byIdentity))
	for id, e := range d.byIdentity {
		out[id] = e
	}
	return out
}

// Len reports the number of connected identities.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byIdentity)
}
