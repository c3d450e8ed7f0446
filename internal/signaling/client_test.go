package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabeelqr/couchsync/internal/signal"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// relayStub upgrades connections and records every frame it reads.
func relayStub(t *testing.T) (*httptest.Server, chan *signal.Message) {
	t.Helper()
	received := make(chan *signal.Message, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg signal.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- &msg
		}
	}))
	t.Cleanup(srv.Close)

	return srv, received
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectRejectsNonWebsocketScheme(t *testing.T) {
	c := NewClient("https://relay.example.com/ws")

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws://")
}

func TestConnectHonorsContext(t *testing.T) {
	srv, _ := relayStub(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(wsURL(srv))
	assert.Error(t, c.Connect(ctx))
}

func TestCloseFlushesQueuedMessages(t *testing.T) {
	srv, received := relayStub(t)

	c := NewClient(wsURL(srv))
	require.NoError(t, c.Connect(context.Background()))

	c.Send(&signal.Message{Type: signal.TypeLeave})
	c.Close()

	select {
	case msg := <-received:
		assert.Equal(t, signal.TypeLeave, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("queued message never reached the relay")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, _ := relayStub(t)

	c := NewClient(wsURL(srv))
	require.NoError(t, c.Connect(context.Background()))

	c.Close()
	c.Close()
}

func TestIncomingClosesWhenConnectionDrops(t *testing.T) {
	srv, _ := relayStub(t)

	c := NewClient(wsURL(srv))
	require.NoError(t, c.Connect(context.Background()))

	srv.CloseClientConnections()

	select {
	case _, ok := <-c.Incoming():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("incoming channel never closed")
	}
}
