package session

// State tracks the negotiation handshake.
type State int

const (
	// Idle means no negotiation has started.
	Idle State = iota

	// RoleAssigned means the relay has told us whether we offer or answer.
	RoleAssigned

	// HaveLocalOffer means the offerer has sent its offer and waits for the
	// answer.
	HaveLocalOffer

	// HaveLocalAnswer means the answerer has replied to the peer's offer.
	HaveLocalAnswer

	// Connected means the handshake finished and the data channel is open.
	Connected

	// Closed means the data channel or connection shut down normally.
	Closed

	// Failed means an irrecoverable negotiation error occurred. A reconnect
	// discards the whole session and starts over.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RoleAssigned:
		return "role-assigned"
	case HaveLocalOffer:
		return "have-local-offer"
	case HaveLocalAnswer:
		return "have-local-answer"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Role is the side this session plays in the handshake.
type Role string

const (
	RoleNone     Role = ""
	RoleOfferer  Role = "offerer"
	RoleAnswerer Role = "answerer"
)
