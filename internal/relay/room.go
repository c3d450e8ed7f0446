package relay

import "errors"

// Capacity is the hard cap on live participants per room.
const Capacity = 2

var ErrRoomFull = errors.New("room is full")

// Room is a rendezvous point for exactly two peers. Member order is insertion
// order and decides negotiation roles: the first joiner becomes the offerer
// when the second arrives.
type Room struct {
	ID      string
	members []*Client
}

// NewRoom creates an empty room with the given identifier.
func NewRoom(id string) *Room {
	return &Room{ID: id}
}

// Add appends a client to the room, or returns ErrRoomFull.
func (r *Room) Add(c *Client) error {
	if len(r.members) >= Capacity {
		return ErrRoomFull
	}
	r.members = append(r.members, c)
	return nil
}

// Remove deletes a client from the room, preserving the order of the rest.
func (r *Room) Remove(c *Client) {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

// Other returns the member that is not c, or nil if there is none.
func (r *Room) Other(c *Client) *Client {
	for _, m := range r.members {
		if m != c {
			return m
		}
	}
	return nil
}

// Members returns the current members in insertion order.
func (r *Room) Members() []*Client {
	return r.members
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.members)
}

// Full reports whether the room is at capacity.
func (r *Room) Full() bool {
	return len(r.members) >= Capacity
}

// Empty reports whether the room has no members left.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}
