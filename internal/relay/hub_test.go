package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabeelqr/couchsync/internal/signal"
)

func newTestClient(id string) *Client {
	return &Client{ID: id, Send: make(chan *signal.Message, 8)}
}

// recv pops the next queued message or fails the test.
func recv(t *testing.T, c *Client) *signal.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		t.Fatalf("client %s: no message queued", c.ID)
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("client %s: unexpected message %q", c.ID, msg.Type)
	default:
	}
}

func rolePeerID(t *testing.T, msg *signal.Message) string {
	t.Helper()
	var payload signal.RolePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload.PeerID
}

func TestJoinMissingRoomID(t *testing.T) {
	h := NewHub()
	c := newTestClient("alice-0001")

	h.handleJoin(c, "", "alice")

	msg := recv(t, c)
	assert.Equal(t, signal.TypeError, msg.Type)

	var payload signal.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "missing room id", payload.Message)
	assert.Empty(t, c.RoomID)
}

func TestJoinCreatesRoomAndAcks(t *testing.T) {
	h := NewHub()
	c := newTestClient("alice-0001")

	h.handleJoin(c, "abc123", "alice")

	msg := recv(t, c)
	assert.Equal(t, signal.TypeJoined, msg.Type)
	assert.Equal(t, "abc123", msg.RoomID)
	assert.Equal(t, "abc123", c.RoomID)
	assert.Equal(t, "alice", c.DisplayName)

	require.Contains(t, h.rooms, "abc123")
	assert.Equal(t, 1, h.rooms["abc123"].Len())

	// First joiner has no role yet.
	assertNoMessage(t, c)
}

func TestJoinDefaultsDisplayName(t *testing.T) {
	h := NewHub()
	c := newTestClient("f00dcafe-uuid")

	h.handleJoin(c, "abc123", "")

	assert.Equal(t, "guest-f00d", c.DisplayName)
}

func TestRoleAssignmentOnSecondJoin(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	bob := newTestClient("bob-00002")

	h.handleJoin(alice, "abc123", "alice")
	recv(t, alice) // joined

	h.handleJoin(bob, "abc123", "bob")
	recv(t, bob) // joined

	offerMsg := recv(t, alice)
	assert.Equal(t, signal.TypeYouAreOfferer, offerMsg.Type)
	assert.Equal(t, bob.ID, rolePeerID(t, offerMsg))

	answerMsg := recv(t, bob)
	assert.Equal(t, signal.TypeYouAreAnswerer, answerMsg.Type)
	assert.Equal(t, alice.ID, rolePeerID(t, answerMsg))

	// Assignment happens exactly once.
	assertNoMessage(t, alice)
	assertNoMessage(t, bob)
}

func TestThirdJoinGetsRoomFull(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	bob := newTestClient("bob-00002")
	carol := newTestClient("carol-0003")

	h.handleJoin(alice, "abc123", "alice")
	h.handleJoin(bob, "abc123", "bob")
	h.handleJoin(carol, "abc123", "carol")

	msg := recv(t, carol)
	assert.Equal(t, signal.TypeRoomFull, msg.Type)
	assert.Empty(t, carol.RoomID)
	assert.Equal(t, 2, h.rooms["abc123"].Len())
}

func TestForwardIsPeerExclusive(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	bob := newTestClient("bob-00002")

	h.handleJoin(alice, "abc123", "alice")
	h.handleJoin(bob, "abc123", "bob")
	drain(alice)
	drain(bob)

	offer := signal.NewSDP(signal.TypeOffer, "abc123", "v=0 fake sdp")
	h.handleForward(alice, offer)

	got := recv(t, bob)
	assert.Equal(t, signal.TypeOffer, got.Type)
	assert.JSONEq(t, string(offer.Payload), string(got.Payload))
	assert.Empty(t, got.RoomID)

	// Never echoed back to the sender.
	assertNoMessage(t, alice)
}

func TestForwardWithoutPeerIsNoOp(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	roomless := newTestClient("drifter-04")

	h.handleJoin(alice, "abc123", "alice")
	drain(alice)

	h.handleForward(alice, signal.NewSDP(signal.TypeOffer, "abc123", "sdp"))
	assertNoMessage(t, alice)

	h.handleForward(roomless, signal.NewSDP(signal.TypeOffer, "abc123", "sdp"))
	assertNoMessage(t, alice)
}

func TestLeaveNotifiesRemainingPeerOnce(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	bob := newTestClient("bob-00002")

	h.handleJoin(alice, "abc123", "alice")
	h.handleJoin(bob, "abc123", "bob")
	drain(alice)
	drain(bob)

	h.handleLeave(bob)

	msg := recv(t, alice)
	assert.Equal(t, signal.TypePeerLeft, msg.Type)
	assertNoMessage(t, alice)
	assert.Empty(t, bob.RoomID)

	// Leaving again changes nothing.
	h.handleLeave(bob)
	assertNoMessage(t, alice)
}

func TestEmptyRoomIsDeletedAndReusable(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	bob := newTestClient("bob-00002")

	h.handleJoin(alice, "abc123", "alice")
	h.handleJoin(bob, "abc123", "bob")
	h.handleLeave(alice)
	h.handleLeave(bob)

	assert.NotContains(t, h.rooms, "abc123")

	// A fresh join treats the identifier as brand new.
	carol := newTestClient("carol-0003")
	h.handleJoin(carol, "abc123", "carol")
	msg := recv(t, carol)
	assert.Equal(t, signal.TypeJoined, msg.Type)
	assert.Equal(t, 1, h.rooms["abc123"].Len())
}

func TestRejoinSameRoomIsIdempotent(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")

	h.handleJoin(alice, "abc123", "alice")
	drain(alice)

	h.handleJoin(alice, "abc123", "alice")
	msg := recv(t, alice)
	assert.Equal(t, signal.TypeJoined, msg.Type)
	assert.Equal(t, 1, h.rooms["abc123"].Len())
}

func TestJoinSwitchesRooms(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	bob := newTestClient("bob-00002")

	h.handleJoin(alice, "abc123", "alice")
	h.handleJoin(bob, "abc123", "bob")
	drain(alice)
	drain(bob)

	h.handleJoin(bob, "xyz789", "bob")

	assert.Equal(t, "xyz789", bob.RoomID)
	msg := recv(t, alice)
	assert.Equal(t, signal.TypePeerLeft, msg.Type)
	assert.Equal(t, 1, h.rooms["abc123"].Len())
}

func TestSwitchToFullRoomKeepsOldMembership(t *testing.T) {
	h := NewHub()
	alice := newTestClient("alice-0001")
	bob := newTestClient("bob-00002")
	carol := newTestClient("carol-0003")
	dave := newTestClient("dave-00004")

	h.handleJoin(alice, "abc123", "alice")
	h.handleJoin(bob, "abc123", "bob")
	h.handleJoin(carol, "xyz789", "carol")
	h.handleJoin(dave, "xyz789", "dave")
	drain(alice)
	drain(bob)
	drain(carol)
	drain(dave)

	h.handleJoin(bob, "xyz789", "bob")

	msg := recv(t, bob)
	assert.Equal(t, signal.TypeRoomFull, msg.Type)

	// The failed switch is non-destructive: bob stays paired with alice.
	assert.Equal(t, "abc123", bob.RoomID)
	assert.Equal(t, 2, h.rooms["abc123"].Len())
	assertNoMessage(t, alice)
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}
