// Package session drives the handshake between two peers to a usable direct
// channel: role assignment, offer/answer exchange and connectivity candidates,
// with the relay as the message transport.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/nabeelqr/couchsync/internal/config"
	"github.com/nabeelqr/couchsync/internal/signal"
)

// Sender carries outbound signaling messages to the relay.
type Sender interface {
	Send(msg *signal.Message)
}

// Callbacks surface session events to the layer above. All of them may be
// invoked from pion's goroutines.
type Callbacks struct {
	OnChannelOpen  func(dc *pion.DataChannel)
	OnChannelClose func()
	OnMessage      func(data []byte)
	OnNotice       func(text string)
}

// Session owns one negotiation attempt: a single peer connection and its data
// channel. A reconnect discards the session entirely and starts a fresh one;
// no partial state is ever reused.
type Session struct {
	mu     sync.Mutex
	state  State
	role   Role
	peerID string

	roomID string
	cfg    *config.Config
	sender Sender
	cb     Callbacks

	pc *pion.PeerConnection
	dc *pion.DataChannel
}

// New creates an idle session for the given room.
func New(roomID string, cfg *config.Config, sender Sender, cb Callbacks) *Session {
	return &Session{
		state:  Idle,
		roomID: roomID,
		cfg:    cfg,
		sender: sender,
		cb:     cb,
	}
}

// State returns the current negotiation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role returns the assigned negotiation role.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// StartOfferer reacts to a you-are-offerer notification: this side owns the
// data channel, creates the offer and sends it through the relay.
func (s *Session) StartOfferer(peerID string) error {
	s.setRole(RoleOfferer, peerID)

	if err := s.createPeer(); err != nil {
		s.fail()
		return err
	}

	dc, err := s.pc.CreateDataChannel(DataChannelLabel, nil)
	if err != nil {
		s.fail()
		return NewError("create data channel", err)
	}
	s.wireChannel(dc)

	offer, err := createOffer(s.pc)
	if err != nil {
		s.fail()
		return err
	}

	s.sender.Send(signal.NewSDP(signal.TypeOffer, s.roomID, offer.SDP))
	s.setState(HaveLocalOffer)
	return nil
}

// StartAnswerer reacts to a you-are-answerer notification: prepare to receive
// the peer's data channel and wait for the forwarded offer.
func (s *Session) StartAnswerer(peerID string) error {
	s.setRole(RoleAnswerer, peerID)

	if err := s.createPeer(); err != nil {
		s.fail()
		return err
	}

	s.pc.OnDataChannel(func(dc *pion.DataChannel) {
		s.wireChannel(dc)
	})

	s.setState(RoleAssigned)
	return nil
}

// HandleOffer reacts to a forwarded offer: install it, answer it and send the
// answer back through the relay.
func (s *Session) HandleOffer(sdpText string) error {
	if s.pc == nil {
		return NewError("handle offer", ErrClosed)
	}

	answer, err := createAnswer(s.pc, sdpText)
	if err != nil {
		s.fail()
		return err
	}

	s.sender.Send(signal.NewSDP(signal.TypeAnswer, s.roomID, answer.SDP))
	s.setState(HaveLocalAnswer)
	return nil
}

// HandleAnswer reacts to a forwarded answer on the offerer side. Connected is
// reached only once the data channel itself reports open.
func (s *Session) HandleAnswer(sdpText string) error {
	if s.pc == nil {
		return NewError("handle answer", ErrClosed)
	}
	if s.State() != HaveLocalOffer {
		return NewError("handle answer", ErrUnexpectedAnswer)
	}

	desc := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdpText}
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		s.fail()
		return WrapError("set remote description", ErrBadDescription, err.Error())
	}
	return nil
}

// HandleCandidate adds a forwarded connectivity candidate to the check pool.
// Candidates arriving before the remote description is set are dropped rather
// than buffered; the peer keeps trickling fresh ones, so the handshake still
// converges.
func (s *Session) HandleCandidate(candidate json.RawMessage) {
	if s.pc == nil || s.pc.RemoteDescription() == nil {
		return
	}

	var ice pion.ICECandidateInit
	if err := json.Unmarshal(candidate, &ice); err != nil {
		return
	}
	s.pc.AddICECandidate(ice)
}

// Close tears down the peer connection unconditionally.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state != Failed {
		s.state = Closed
	}
	pc := s.pc
	s.mu.Unlock()

	if pc != nil {
		pc.Close()
	}
}

// createPeer builds the peer connection and wires candidate and connection
// state handlers. Local candidates are forwarded the moment they are
// discovered, independent of handshake phase.
func (s *Session) createPeer() error {
	pc, err := NewPeerConnection(s.cfg)
	if err != nil {
		return err
	}
	s.pc = pc

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		b, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		s.sender.Send(signal.NewCandidate(s.roomID, b))
	})

	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		s.notice(fmt.Sprintf("ICE: %s", state))
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		s.notice(fmt.Sprintf("peer: %s", state))
		if state == pion.PeerConnectionStateFailed {
			s.fail()
		}
	})

	return nil
}

// wireChannel attaches the data channel lifecycle handlers. The channel's own
// open/close notifications drive Connected/Closed independent of the SDP
// exchange above.
func (s *Session) wireChannel(dc *pion.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.setState(Connected)
		if s.cb.OnChannelOpen != nil {
			s.cb.OnChannelOpen(dc)
		}
	})

	dc.OnClose(func() {
		s.mu.Lock()
		if s.state != Failed {
			s.state = Closed
		}
		s.mu.Unlock()
		if s.cb.OnChannelClose != nil {
			s.cb.OnChannelClose()
		}
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		if s.cb.OnMessage != nil {
			s.cb.OnMessage(msg.Data)
		}
	})
}

func (s *Session) setRole(role Role, peerID string) {
	s.mu.Lock()
	s.role = role
	s.peerID = peerID
	s.state = RoleAssigned
	s.mu.Unlock()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) fail() {
	s.setState(Failed)
}

func (s *Session) notice(text string) {
	if s.cb.OnNotice != nil {
		s.cb.OnNotice(text)
	}
}
