package session

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabeelqr/couchsync/internal/config"
	"github.com/nabeelqr/couchsync/internal/signal"
)

// captureSender records outbound signaling messages. ICE candidate discovery
// runs on pion's goroutines, so it has to be safe for concurrent use.
type captureSender struct {
	mu   sync.Mutex
	msgs []*signal.Message
}

func (s *captureSender) Send(msg *signal.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *captureSender) byType(msgType string) []*signal.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*signal.Message
	for _, m := range s.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{STUNServer: "stun:stun.l.google.com:19302"}
}

func sdpOf(t *testing.T, msg *signal.Message) string {
	t.Helper()
	var payload signal.SDPPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload.SDP
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "have-local-offer", HaveLocalOffer.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "failed", Failed.String())
}

func TestOffererSendsOffer(t *testing.T) {
	sender := &captureSender{}
	s := New("abc123", testConfig(), sender, Callbacks{})
	defer s.Close()

	require.NoError(t, s.StartOfferer("peer-1"))

	assert.Equal(t, RoleOfferer, s.Role())
	assert.Equal(t, HaveLocalOffer, s.State())

	offers := sender.byType(signal.TypeOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "abc123", offers[0].RoomID)
	assert.NotEmpty(t, sdpOf(t, offers[0]))
}

func TestAnswererWaitsForOffer(t *testing.T) {
	sender := &captureSender{}
	s := New("abc123", testConfig(), sender, Callbacks{})
	defer s.Close()

	require.NoError(t, s.StartAnswerer("peer-1"))

	assert.Equal(t, RoleAnswerer, s.Role())
	assert.Equal(t, RoleAssigned, s.State())
	assert.Empty(t, sender.byType(signal.TypeOffer))
	assert.Empty(t, sender.byType(signal.TypeAnswer))
}

func TestOfferAnswerHandshake(t *testing.T) {
	offerSender := &captureSender{}
	offerer := New("abc123", testConfig(), offerSender, Callbacks{})
	defer offerer.Close()

	answerSender := &captureSender{}
	answerer := New("abc123", testConfig(), answerSender, Callbacks{})
	defer answerer.Close()

	require.NoError(t, offerer.StartOfferer("b"))
	require.NoError(t, answerer.StartAnswerer("a"))

	offers := offerSender.byType(signal.TypeOffer)
	require.Len(t, offers, 1)

	require.NoError(t, answerer.HandleOffer(sdpOf(t, offers[0])))
	assert.Equal(t, HaveLocalAnswer, answerer.State())

	answers := answerSender.byType(signal.TypeAnswer)
	require.Len(t, answers, 1)

	require.NoError(t, offerer.HandleAnswer(sdpOf(t, answers[0])))
}

func TestMalformedOfferFailsSession(t *testing.T) {
	sender := &captureSender{}
	s := New("abc123", testConfig(), sender, Callbacks{})
	defer s.Close()

	require.NoError(t, s.StartAnswerer("peer-1"))

	err := s.HandleOffer("this is not sdp")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadDescription)
	assert.Equal(t, Failed, s.State())
}

func TestAnswerWithoutPendingOffer(t *testing.T) {
	sender := &captureSender{}
	s := New("abc123", testConfig(), sender, Callbacks{})
	defer s.Close()

	require.NoError(t, s.StartAnswerer("peer-1"))

	err := s.HandleAnswer("v=0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedAnswer)
}

func TestCandidateBeforeRemoteDescriptionIsDropped(t *testing.T) {
	sender := &captureSender{}
	s := New("abc123", testConfig(), sender, Callbacks{})
	defer s.Close()

	require.NoError(t, s.StartOfferer("peer-1"))

	// No remote description yet: the candidate is dropped, not buffered.
	s.HandleCandidate(json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 192.0.2.1 54321 typ host"}`))
	assert.Equal(t, HaveLocalOffer, s.State())
}

func TestCandidateOnClosedSessionIsDropped(t *testing.T) {
	sender := &captureSender{}
	s := New("abc123", testConfig(), sender, Callbacks{})

	s.HandleCandidate(json.RawMessage(`{"candidate":"candidate:1"}`))
	assert.Equal(t, Idle, s.State())
}

func TestCloseMovesToClosed(t *testing.T) {
	sender := &captureSender{}
	s := New("abc123", testConfig(), sender, Callbacks{})

	require.NoError(t, s.StartOfferer("peer-1"))
	s.Close()
	assert.Equal(t, Closed, s.State())
}

func TestSessionErrorWrapping(t *testing.T) {
	err := WrapError("set remote description", ErrBadDescription, "boom")
	assert.ErrorIs(t, err, ErrBadDescription)
	assert.Contains(t, err.Error(), "set remote description")
	assert.Contains(t, err.Error(), "boom")
}
