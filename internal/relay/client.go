package relay

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nabeelqr/couchsync/internal/signal"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Large enough for SDP payloads.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection to the relay. Its RoomID and
// DisplayName fields are owned by the hub goroutine and must not be touched
// elsewhere.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// ID is the opaque per-connection identity.
	ID string

	// DisplayName is set when the client joins a room.
	DisplayName string

	// RoomID is the room the client currently belongs to, or "".
	RoomID string

	// Send is the buffered channel of outbound messages. The hub writes to
	// it, WritePump drains it.
	Send chan *signal.Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// There is at most one reader per connection; all reads happen on this
// goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signal.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Str("client", c.ID).Err(err).Msg("websocket read failed")
			}
			break
		}

		c.Hub.Inbound <- &envelope{msg: &msg, sender: c}
	}
}

// WritePump pumps messages from the hub to the websocket connection and keeps
// the connection alive with periodic pings.
//
// There is at most one writer per connection; all writes happen on this
// goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				log.Debug().Str("client", c.ID).Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
