package syncplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	cases := []Message{
		{Type: KindChat, Text: "hi", DisplayName: "bob"},
		{Type: KindPresenceHello, DisplayName: "alice"},
		{Type: KindVideoLoad, VideoID: "dQw4w9WgXcQ"},
		{Type: KindVideoSeek, Time: 42.5},
		{Type: KindVideoSnapshot, VideoID: "dQw4w9WgXcQ", Time: 12.25, Playing: true},
	}

	for _, original := range cases {
		b, err := Encode(&original)
		require.NoError(t, err)

		decoded, err := Decode(b)
		require.NoError(t, err)

		assert.Equal(t, original.Type, decoded.Type)
		assert.Equal(t, original.Text, decoded.Text)
		assert.Equal(t, original.DisplayName, decoded.DisplayName)
		assert.Equal(t, original.VideoID, decoded.VideoID)
		assert.Equal(t, original.Time, decoded.Time)
		assert.Equal(t, original.Playing, decoded.Playing)
	}
}

func TestEncodeStampsTimestamp(t *testing.T) {
	m := &Message{Type: KindChat, Text: "hi"}
	b, err := Encode(m)
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	assert.Positive(t, decoded.SentAt)
}

func TestEncodeKeepsCallerTimestamp(t *testing.T) {
	m := &Message{Type: KindChat, Text: "hi", SentAt: 1234}
	b, err := Encode(m)
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), decoded.SentAt)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json at all"))
	assert.Error(t, err)
}

func TestDecodeToleratesUnknownKind(t *testing.T) {
	decoded, err := Decode([]byte(`{"type":"blorp","text":"?"}`))
	require.NoError(t, err)
	assert.Equal(t, Kind("blorp"), decoded.Type)
}
