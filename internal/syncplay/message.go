// Package syncplay implements the event protocol spoken over the direct
// channel once negotiation finishes: chat, presence, typing indicators and
// playback synchronization with feedback-loop suppression.
package syncplay

import (
	"encoding/json"
	"time"
)

// Kind tags a direct-channel message.
type Kind string

const (
	KindChat          Kind = "chat"
	KindPresenceHello Kind = "presence-hello"
	KindTypingStart   Kind = "typing-start"
	KindTypingStop    Kind = "typing-stop"
	KindVideoLoad     Kind = "video-load"
	KindVideoPlay     Kind = "video-play"
	KindVideoPause    Kind = "video-pause"
	KindVideoSeek     Kind = "video-seek"
	KindVideoSnapshot Kind = "video-snapshot"
)

// Message is the direct-channel vocabulary. Fields are populated per kind;
// every instance carries its origination timestamp. Messages only exist in
// flight and are never persisted.
type Message struct {
	Type        Kind    `json:"type"`
	Text        string  `json:"text,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	VideoID     string  `json:"videoId,omitempty"`
	Time        float64 `json:"time,omitempty"`
	Playing     bool    `json:"playing,omitempty"`
	SentAt      int64   `json:"_ts,omitempty"`
}

// Encode serializes the message, stamping SentAt if the caller left it zero.
func Encode(m *Message) ([]byte, error) {
	if m.SentAt == 0 {
		m.SentAt = time.Now().UnixMilli()
	}
	return json.Marshal(m)
}

// Decode parses a direct-channel message. Recognizing the kind is the
// caller's concern: an unknown Type decodes fine and is ignored at dispatch.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
