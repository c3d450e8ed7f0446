package signaling

import (
	"encoding/json"

	"github.com/nabeelqr/couchsync/internal/signal"
)

// Event is one decoded relay message. Negotiation is order-sensitive: a role
// assignment must be observed before the offer it provoked, so events ride a
// single channel instead of being fanned out per type.
type Event struct {
	Type      string
	RoomID    string
	PeerID    string
	SDP       string
	Candidate json.RawMessage
	Err       string
}

// Handler decodes the relay stream into negotiation events. Unknown message
// types are dropped.
type Handler struct {
	incoming <-chan *signal.Message
	events   chan Event
}

// NewHandler creates a handler reading from the given message stream.
func NewHandler(incoming <-chan *signal.Message) *Handler {
	return &Handler{
		incoming: incoming,
		events:   make(chan Event, 32),
	}
}

// Events returns the decoded stream, in exactly the order the relay sent it.
// The channel closes when the connection drops.
func (h *Handler) Events() <-chan Event {
	return h.events
}

// Start consumes the incoming stream until it closes, then closes the event
// stream so consumers unblock. Run it on its own goroutine.
func (h *Handler) Start() {
	defer close(h.events)

	for msg := range h.incoming {
		if ev, ok := decodeEvent(msg); ok {
			h.events <- ev
		}
	}
}

func decodeEvent(msg *signal.Message) (Event, bool) {
	ev := Event{Type: msg.Type, RoomID: msg.RoomID}

	switch msg.Type {
	case signal.TypeJoined, signal.TypeRoomFull, signal.TypePeerLeft:
		// No payload.

	case signal.TypeYouAreOfferer, signal.TypeYouAreAnswerer:
		var payload signal.RolePayload
		if msg.Payload != nil {
			json.Unmarshal(msg.Payload, &payload)
		}
		ev.PeerID = payload.PeerID

	case signal.TypeOffer, signal.TypeAnswer:
		var payload signal.SDPPayload
		if msg.Payload != nil {
			json.Unmarshal(msg.Payload, &payload)
		}
		ev.SDP = payload.SDP

	case signal.TypeICECandidate:
		var payload signal.CandidatePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return Event{}, false
		}
		ev.Candidate = payload.Candidate

	case signal.TypeError:
		var payload signal.ErrorPayload
		if msg.Payload == nil || json.Unmarshal(msg.Payload, &payload) != nil {
			ev.Err = "unknown error from relay"
			break
		}
		ev.Err = payload.Message

	default:
		return Event{}, false
	}

	return ev, true
}
