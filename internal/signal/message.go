package signal

import "encoding/json"

// Message is the envelope for all websocket traffic between a client and the
// relay, in both directions. RoomID is only meaningful on client-to-server
// messages; the relay strips it when forwarding.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-to-server message types.
const (
	TypeJoin         = "join"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeLeave        = "leave"
)

// Server-to-client message types.
const (
	TypeJoined         = "joined"
	TypeRoomFull       = "room-full"
	TypeYouAreOfferer  = "you-are-offerer"
	TypeYouAreAnswerer = "you-are-answerer"
	TypePeerLeft       = "peer-left"
	TypeError          = "error"
)

// JoinPayload carries the caller's display name on a join request.
type JoinPayload struct {
	DisplayName string `json:"displayName,omitempty"`
}

// SDPPayload carries a session description for offer and answer messages.
type SDPPayload struct {
	SDP string `json:"sdp"`
}

// CandidatePayload carries a connectivity candidate. The relay never inspects
// the candidate itself, so it stays raw JSON end to end.
type CandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
}

// RolePayload names the other member of the room on a role notification.
type RolePayload struct {
	PeerID string `json:"peerId"`
}

// ErrorPayload carries a human-readable error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewJoin builds a join request for roomID with the given display name.
func NewJoin(roomID, displayName string) *Message {
	return newMessage(TypeJoin, roomID, JoinPayload{DisplayName: displayName})
}

// NewSDP builds an offer or answer message for roomID.
func NewSDP(msgType, roomID, sdp string) *Message {
	return newMessage(msgType, roomID, SDPPayload{SDP: sdp})
}

// NewCandidate builds an ice-candidate message wrapping an already-encoded
// candidate.
func NewCandidate(roomID string, candidate json.RawMessage) *Message {
	return newMessage(TypeICECandidate, roomID, CandidatePayload{Candidate: candidate})
}

// NewRole builds a you-are-offerer or you-are-answerer notification.
func NewRole(msgType, peerID string) *Message {
	return newMessage(msgType, "", RolePayload{PeerID: peerID})
}

// NewError builds an error notification for the requesting client.
func NewError(message string) *Message {
	return newMessage(TypeError, "", ErrorPayload{Message: message})
}

// NewJoined builds the acknowledgement for a successful join, naming the
// resolved room.
func NewJoined(roomID string) *Message {
	return &Message{Type: TypeJoined, RoomID: roomID}
}

func newMessage(msgType, roomID string, payload any) *Message {
	b, _ := json.Marshal(payload)
	return &Message{Type: msgType, RoomID: roomID, Payload: b}
}
