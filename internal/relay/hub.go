package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/nabeelqr/couchsync/internal/signal"
)

// envelope pairs an inbound message with the client that sent it.
type envelope struct {
	msg    *signal.Message
	sender *Client
}

// Hub owns the room table. All state is mutated from the single Run goroutine,
// which serializes join/forward/leave handling: a join and its possible role
// assignment happen as one atomic step, so two simultaneous joiners can never
// both observe themselves as the second participant.
type Hub struct {
	rooms map[string]*Room

	// Register is the channel for newly upgraded connections.
	Register chan *Client

	// Unregister is the channel for disconnected clients.
	Unregister chan *Client

	// Inbound carries every message read from a client.
	Inbound chan *envelope
}

// NewHub creates a hub with an empty room table.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *envelope),
	}
}

// Run starts the hub's main processing loop. It is the only goroutine that
// touches the room table.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Not in a room yet; the client has to send a join first.
			log.Info().Str("client", client.ID).Msg("client connected")

		case client := <-h.Unregister:
			log.Info().Str("client", client.ID).Msg("client disconnected")
			h.handleLeave(client)
			close(client.Send)

		case in := <-h.Inbound:
			h.dispatch(in.sender, in.msg)
		}
	}
}

// dispatch routes one inbound message. Unknown types are logged and dropped.
func (h *Hub) dispatch(sender *Client, msg *signal.Message) {
	switch msg.Type {
	case signal.TypeJoin:
		var payload signal.JoinPayload
		if msg.Payload != nil {
			json.Unmarshal(msg.Payload, &payload)
		}
		h.handleJoin(sender, msg.RoomID, payload.DisplayName)

	case signal.TypeOffer, signal.TypeAnswer, signal.TypeICECandidate:
		h.handleForward(sender, msg)

	case signal.TypeLeave:
		h.handleLeave(sender)

	default:
		log.Warn().Str("client", sender.ID).Str("type", msg.Type).Msg("unknown message type")
	}
}

// handleJoin admits a client into a room, creating the room on first join.
// When the join brings the room to two members, roles are assigned in the same
// step: the earlier joiner offers, the newcomer answers.
func (h *Hub) handleJoin(c *Client, roomID, displayName string) {
	if roomID == "" {
		h.send(c, signal.NewError("missing room id"))
		return
	}

	// Already a member: just re-acknowledge.
	if c.RoomID == roomID {
		h.send(c, signal.NewJoined(roomID))
		return
	}

	// Reject before touching existing membership, so a failed switch leaves
	// the client where it was.
	room, ok := h.rooms[roomID]
	if ok && room.Full() {
		log.Info().Str("room", roomID).Str("client", c.ID).Msg("join rejected, room full")
		h.send(c, &signal.Message{Type: signal.TypeRoomFull})
		return
	}

	// A participant belongs to at most one room at a time.
	if c.RoomID != "" {
		h.handleLeave(c)
	}

	if !ok {
		room = NewRoom(roomID)
		h.rooms[roomID] = room
		log.Info().Str("room", roomID).Msg("room created")
	}

	if displayName == "" {
		displayName = "guest-" + c.ID[:4]
	}

	room.Add(c)
	c.RoomID = roomID
	c.DisplayName = displayName
	log.Info().Str("room", roomID).Str("client", c.ID).Str("name", displayName).
		Int("size", room.Len()).Msg("client joined room")

	h.send(c, signal.NewJoined(roomID))

	if room.Full() {
		members := room.Members()
		first, second := members[0], members[1]
		h.send(first, signal.NewRole(signal.TypeYouAreOfferer, second.ID))
		h.send(second, signal.NewRole(signal.TypeYouAreAnswerer, first.ID))
		log.Info().Str("room", roomID).Str("offerer", first.ID).Str("answerer", second.ID).
			Msg("roles assigned")
	}
}

// handleForward relays a handshake message verbatim to the other member of the
// sender's room. A missing destination is a normal race (the peer may have
// just disconnected) and is a no-op.
func (h *Hub) handleForward(c *Client, msg *signal.Message) {
	if c.RoomID == "" {
		log.Debug().Str("client", c.ID).Str("type", msg.Type).Msg("forward from roomless client dropped")
		return
	}

	room, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}

	other := room.Other(c)
	if other == nil {
		log.Debug().Str("room", c.RoomID).Str("type", msg.Type).Msg("no peer to forward to")
		return
	}

	h.send(other, &signal.Message{Type: msg.Type, Payload: msg.Payload})
}

// handleLeave removes a client from its room, notifies the remaining member
// and deletes the room once it is empty.
func (h *Hub) handleLeave(c *Client) {
	if c.RoomID == "" {
		return
	}

	room, ok := h.rooms[c.RoomID]
	if !ok {
		c.RoomID = ""
		return
	}

	room.Remove(c)
	c.RoomID = ""

	if room.Empty() {
		delete(h.rooms, room.ID)
		log.Info().Str("room", room.ID).Msg("room deleted")
		return
	}

	if other := room.Members()[0]; other != nil {
		log.Info().Str("room", room.ID).Str("client", c.ID).Msg("peer left room")
		h.send(other, &signal.Message{Type: signal.TypePeerLeft})
	}
}

// send queues a message without blocking the hub loop. A client whose buffer
// is full loses the message rather than stalling everyone else.
func (h *Hub) send(c *Client, msg *signal.Message) {
	select {
	case c.Send <- msg:
	default:
		log.Warn().Str("client", c.ID).Str("type", msg.Type).Msg("send buffer full, message dropped")
	}
}
