package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"presence-hub-api/internal/directory"
	"presence-hub-api/internal/events"
	"presence-hub-api/internal/realtime"
	"presence-hub-api/internal/rooms"
	"presence-hub-api/internal/status"

	"github.com/stretchr/testify/require"
)

// recordingClient captures every outbound frame.
type recordingClient struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, message)
	return true
}

func (c *recordingClient) Close() {}

// count returns how many frames with the given event name were received.
func (c *recordingClient) count(t *testing.T, event string) int {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		env, err := events.Decode(f)
		require.NoError(t, err)
		if env.Event == event {
			n++
		}
	}
	return n
}

// lastData returns the decoded data of the most recent frame with the
// given event name.
func (c *recordingClient) lastData(t *testing.T, event string, out any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		env, err := events.Decode(c.frames[i])
		require.NoError(t, err)
		if env.Event == event {
			require.NoError(t, json.Unmarshal(env.Data, out))
			return
		}
	}
	t.Fatalf("no %s frame received", event)
}

func (c *recordingClient) total(t *testing.T) int {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// stubStatus is an in-memory status collaborator.
type stubStatus struct {
	profiles    map[string]*status.Profile
	err         error
	invalidated []string
}

func (s *stubStatus) SetOnlineStatus(_ context.Context, userID string, _ bool) (*status.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return nil, status.ErrUserNotFound
}

func (s *stubStatus) InvalidateFriends(userIDs ...string) {
	s.invalidated = append(s.invalidated, userIDs...)
}

type harness struct {
	dir        *directory.Directory
	rooms      *rooms.Table
	hub        *realtime.Hub
	status     *stubStatus
	dispatcher *Dispatcher
}

func newHarness() *harness {
	h := &harness{
		dir:    directory.New(),
		rooms:  rooms.NewTable(),
		hub:    realtime.NewHub(),
		status: &stubStatus{profiles: map[string]*status.Profile{}},
	}
	h.dispatcher = New(h.dir, h.rooms, h.hub, h.status)
	return h
}

func (h *harness) addProfile(userID string, friends ...string) {
	h.status.profiles[userID] = &status.Profile{UserID: userID, Friends: friends}
}

// open registers a raw connection without identifying it.
func (h *harness) open(connID string) *recordingClient {
	client := &recordingClient{}
	h.hub.Register(connID, client)
	h.dispatcher.HandleOpen(connID)
	return client
}

// connect opens a connection and identifies it.
func (h *harness) connect(t *testing.T, connID, userID string) *recordingClient {
	t.Helper()
	client := h.open(connID)
	h.frame(t, connID, events.Identify, events.IdentifyPayload{UserID: userID, DisplayName: userID})
	return client
}

func (h *harness) frame(t *testing.T, connID, event string, data any) {
	t.Helper()
	raw, err := events.Encode(event, data)
	require.NoError(t, err)
	h.dispatcher.HandleFrame(context.Background(), connID, raw)
}

func (h *harness) close(connID string) {
	h.hub.Unregister(connID)
	h.dispatcher.HandleClose(context.Background(), connID)
}

func TestIdentifyRegistersAndFansOut(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("ursula", "alice", "bob") // bob stays offline

	aliceClient := h.connect(t, "c-alice", "alice")
	ursulaClient := h.connect(t, "c-ursula", "ursula")

	// Ursula is registered and acked.
	entry, ok := h.dir.Lookup("ursula")
	require.True(t, ok)
	require.Equal(t, "c-ursula", entry.ConnectionID)
	require.Equal(t, 1, ursulaClient.count(t, events.PresenceAck))

	// Everyone got the refreshed global snapshot.
	require.Equal(t, 1, ursulaClient.count(t, events.DirectorySnapshot))
	require.GreaterOrEqual(t, aliceClient.count(t, events.DirectorySnapshot), 1)

	var snap map[string]events.SnapshotEntry
	ursulaClient.lastData(t, events.DirectorySnapshot, &snap)
	require.Len(t, snap, 2)
	require.Contains(t, snap, "alice")
	require.Contains(t, snap, "ursula")

	// Online friend alice was nudged; offline bob received nothing at all.
	require.Equal(t, 1, aliceClient.count(t, events.FriendPresenceChanged))
	var online events.OnlinePayload
	aliceClient.lastData(t, events.FriendPresenceChanged, &online)
	require.True(t, online.Online)
}

func TestIdentifyCollaboratorFailureKeepsRegistration(t *testing.T) {
	h := newHarness()
	other := h.connect(t, "c-other", "nobody") // profile missing: status fails
	client := h.open("c-1")
	h.frame(t, "c-1", events.Identify, events.IdentifyPayload{UserID: "ghost", DisplayName: "Ghost"})

	// Registration kept so the connection stays usable for relay events.
	_, ok := h.dir.Lookup("ghost")
	require.True(t, ok)

	// But no broadcast fired.
	require.Equal(t, 0, client.total(t))
	require.Equal(t, 0, other.total(t))
}

func TestDisconnectFansOut(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("ursula", "alice")

	aliceClient := h.connect(t, "c-alice", "alice")
	h.connect(t, "c-ursula", "ursula")

	before := aliceClient.count(t, events.DirectorySnapshot)
	h.close("c-ursula")

	_, ok := h.dir.Lookup("ursula")
	require.False(t, ok)

	require.Equal(t, before+1, aliceClient.count(t, events.DirectorySnapshot))
	var snap map[string]events.SnapshotEntry
	aliceClient.lastData(t, events.DirectorySnapshot, &snap)
	require.NotContains(t, snap, "ursula")

	require.Equal(t, 2, aliceClient.count(t, events.FriendPresenceChanged))
	var online events.OnlinePayload
	aliceClient.lastData(t, events.FriendPresenceChanged, &online)
	require.False(t, online.Online)
}

func TestDisconnectCollaboratorFailureDegrades(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("ursula", "alice")

	aliceClient := h.connect(t, "c-alice", "alice")
	h.connect(t, "c-ursula", "ursula")
	require.Equal(t, 1, aliceClient.count(t, events.FriendPresenceChanged))

	snapshotsBefore := aliceClient.count(t, events.DirectorySnapshot)
	h.status.err = errors.New("system of record unreachable")
	h.close("c-ursula")

	// Entry removed and global refresh still broadcast.
	_, ok := h.dir.Lookup("ursula")
	require.False(t, ok)
	require.Equal(t, snapshotsBefore+1, aliceClient.count(t, events.DirectorySnapshot))

	// Degraded: no targeted friend notification.
	require.Equal(t, 1, aliceClient.count(t, events.FriendPresenceChanged))
}

func TestAnonymousDisconnectIsSilent(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	aliceClient := h.connect(t, "c-alice", "alice")

	before := aliceClient.total(t)
	h.open("c-anon")
	h.close("c-anon")
	require.Equal(t, before, aliceClient.total(t))
}

func TestStaleConnectionCloseIsNoOp(t *testing.T) {
	h := newHarness()
	h.addProfile("ursula")

	h.connect(t, "c-1", "ursula")
	newClient := h.connect(t, "c-2", "ursula")

	entry, ok := h.dir.Lookup("ursula")
	require.True(t, ok)
	require.Equal(t, "c-2", entry.ConnectionID)

	snapshotsBefore := newClient.count(t, events.DirectorySnapshot)
	h.close("c-1")

	// Closing the superseded connection neither removed the fresh entry
	// nor triggered a presence broadcast.
	entry, ok = h.dir.Lookup("ursula")
	require.True(t, ok)
	require.Equal(t, "c-2", entry.ConnectionID)
	require.Equal(t, snapshotsBefore, newClient.count(t, events.DirectorySnapshot))
}

func TestMessageRelayScoping(t *testing.T) {
	h := newHarness()
	h.addProfile("sender")
	h.addProfile("member")
	h.addProfile("alice")

	senderClient := h.connect(t, "c-sender", "sender")
	memberClient := h.connect(t, "c-member", "member")
	aliceClient := h.connect(t, "c-alice", "alice") // online, not in room

	h.frame(t, "c-sender", events.JoinRoom, events.RoomPayload{RoomID: "room-1"})
	h.frame(t, "c-member", events.JoinRoom, events.RoomPayload{RoomID: "room-1"})

	h.frame(t, "c-sender", events.SendMessage, events.SendMessagePayload{
		RoomID:    "room-1",
		MemberIDs: []string{"alice", "bob"}, // bob is offline
	})

	// Room members other than the sender get the arrival notice.
	require.Equal(t, 0, senderClient.count(t, events.MessageReceived))
	require.Equal(t, 1, memberClient.count(t, events.MessageReceived))
	require.Equal(t, 0, aliceClient.count(t, events.MessageReceived))

	// Listed online members get the unread update; offline bob is dropped.
	require.Equal(t, 1, aliceClient.count(t, events.UnreadUpdate))
	var room events.RoomEventPayload
	aliceClient.lastData(t, events.UnreadUpdate, &room)
	require.Equal(t, "room-1", room.RoomID)
}

func TestTypingIndicatorScoping(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("bob")

	aliceClient := h.connect(t, "c-alice", "alice")
	bobClient := h.connect(t, "c-bob", "bob")
	h.frame(t, "c-alice", events.JoinRoom, events.RoomPayload{RoomID: "room-1"})
	h.frame(t, "c-bob", events.JoinRoom, events.RoomPayload{RoomID: "room-1"})

	h.frame(t, "c-alice", events.Typing, events.TypingPayload{
		RoomID: "room-1", UserID: "alice", DisplayName: "Alice",
	})
	require.Equal(t, 0, aliceClient.count(t, events.TypingShown))
	require.Equal(t, 1, bobClient.count(t, events.TypingShown))

	var info events.UserInfoPayload
	bobClient.lastData(t, events.TypingShown, &info)
	require.Equal(t, "alice", info.UserID)
	require.Equal(t, "Alice", info.DisplayName)

	h.frame(t, "c-alice", events.StopTyping, events.TypingPayload{
		RoomID: "room-1", UserID: "alice", DisplayName: "Alice",
	})
	require.Equal(t, 1, bobClient.count(t, events.TypingStopped))
}

func TestFriendshipEventsNudgeBothParties(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("bob")

	aliceClient := h.connect(t, "c-alice", "alice")
	bobClient := h.connect(t, "c-bob", "bob")

	pair := events.FriendPairPayload{SenderID: "alice", RecipientID: "bob"}
	for _, name := range []string{
		events.FriendRequestSent,
		events.FriendRequestAccepted,
		events.FriendRequestCancelled,
		events.Unfriend,
		events.Unblock,
	} {
		h.frame(t, "c-alice", name, pair)
	}

	require.Equal(t, 5, aliceClient.count(t, events.FriendListChanged))
	require.Equal(t, 5, bobClient.count(t, events.FriendListChanged))

	// Relationship mutations evict the cached social edges.
	require.Contains(t, h.status.invalidated, "alice")
	require.Contains(t, h.status.invalidated, "bob")
}

func TestFriendshipNotifierIdempotence(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("bob")

	aliceClient := h.connect(t, "c-alice", "alice")
	bobClient := h.connect(t, "c-bob", "bob")

	pair := events.FriendPairPayload{SenderID: "alice", RecipientID: "offline-carol"}
	h.frame(t, "c-alice", events.FriendRequestSent, pair)
	h.frame(t, "c-alice", events.FriendRequestSent, pair)

	// Two identical nudges to the online party, nothing anywhere else.
	require.Equal(t, 2, aliceClient.count(t, events.FriendListChanged))
	require.Equal(t, 0, bobClient.count(t, events.FriendListChanged))
}

func TestMarkRead(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	aliceClient := h.connect(t, "c-alice", "alice")

	h.frame(t, "c-alice", events.MarkRead, events.MarkReadPayload{UserID: "alice"})
	require.Equal(t, 1, aliceClient.count(t, events.ReadConfirmation))

	// Offline recipients are dropped silently.
	h.frame(t, "c-alice", events.MarkRead, events.MarkReadPayload{UserID: "nobody"})
	require.Equal(t, 1, aliceClient.count(t, events.ReadConfirmation))
}

func TestRoomCreatedGoesToCreatorOnly(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("bob")

	aliceClient := h.connect(t, "c-alice", "alice")
	bobClient := h.connect(t, "c-bob", "bob")

	h.frame(t, "c-alice", events.CreateRoom, events.RoomPayload{RoomID: "room-1"})
	require.Equal(t, 1, aliceClient.count(t, events.RoomCreated))
	require.Equal(t, 0, bobClient.count(t, events.RoomCreated))
}

func TestServerLifecycle(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("bob")

	aliceClient := h.connect(t, "c-alice", "alice")
	bobClient := h.connect(t, "c-bob", "bob")

	// join-server notifies every listed member with a live connection.
	h.frame(t, "c-alice", events.JoinServer, events.ServerPayload{
		UserID:    "alice",
		MemberIDs: []string{"alice", "bob", "offline-carol"},
	})
	require.Equal(t, 1, aliceClient.count(t, events.UserJoinedServer))
	require.Equal(t, 1, bobClient.count(t, events.UserJoinedServer))
	var joined events.JoinedServerPayload
	bobClient.lastData(t, events.UserJoinedServer, &joined)
	require.Equal(t, "alice", joined.UserID)

	// create-server refreshes only the initiator.
	h.frame(t, "c-alice", events.CreateServer, events.ServerPayload{UserID: "alice"})
	require.Equal(t, 1, aliceClient.count(t, events.ServerUpdated))
	require.Equal(t, 0, bobClient.count(t, events.ServerUpdated))

	// update-server refreshes every listed member.
	h.frame(t, "c-alice", events.UpdateServer, events.ServerPayload{
		MemberIDs: []string{"alice", "bob"},
	})
	require.Equal(t, 2, aliceClient.count(t, events.ServerUpdated))
	require.Equal(t, 1, bobClient.count(t, events.ServerUpdated))

	// leave-server refreshes only the leaver's own view.
	h.frame(t, "c-bob", events.LeaveServer, events.ServerPayload{UserID: "bob"})
	require.Equal(t, 2, aliceClient.count(t, events.ServerUpdated))
	require.Equal(t, 2, bobClient.count(t, events.ServerUpdated))
}

func TestUpdateDMs(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	h.addProfile("bob")

	aliceClient := h.connect(t, "c-alice", "alice")
	bobClient := h.connect(t, "c-bob", "bob")

	h.frame(t, "c-alice", events.UpdateDMs, events.FriendPairPayload{
		SenderID: "alice", RecipientID: "bob",
	})
	require.Equal(t, 1, aliceClient.count(t, events.DMListChanged))
	require.Equal(t, 1, bobClient.count(t, events.DMListChanged))

	// One side offline: the other still gets its refresh.
	h.frame(t, "c-alice", events.UpdateDMs, events.FriendPairPayload{
		SenderID: "alice", RecipientID: "offline-carol",
	})
	require.Equal(t, 2, aliceClient.count(t, events.DMListChanged))
}

func TestMalformedFramesAreDropped(t *testing.T) {
	h := newHarness()
	h.addProfile("alice")
	aliceClient := h.connect(t, "c-alice", "alice")
	before := aliceClient.total(t)

	conn := h.open("c-raw")
	h.dispatcher.HandleFrame(context.Background(), "c-raw", []byte("not json"))
	h.frame(t, "c-raw", "no-such-event", nil)
	h.frame(t, "c-raw", events.Identify, events.IdentifyPayload{DisplayName: "anon"})
	h.frame(t, "c-raw", events.SendMessage, events.SendMessagePayload{})
	h.frame(t, "c-raw", events.FriendRequestSent, events.FriendPairPayload{SenderID: "alice"})

	// Nothing was processed: no registration, no outbound traffic.
	require.Equal(t, 1, h.dir.Len())
	require.Equal(t, before, aliceClient.total(t))
	require.Equal(t, 0, conn.total(t))
}
