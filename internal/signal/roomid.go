package signal

import (
	"crypto/rand"
	"log"
	"math/big"
)

const (
	roomIDLength  = 6
	roomIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateRoomID creates a short random room identifier for callers that did
// not pick one themselves. Uniqueness is probabilistic only; a collision
// merges two sessions, which is accepted for identifiers of this length.
func GenerateRoomID() string {
	id := make([]byte, roomIDLength)
	for i := range id {
		id[i] = roomIDCharset[randomIndex(len(roomIDCharset))]
	}
	return string(id)
}

// randomIndex returns a cryptographically secure random index in [0, max).
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("failed to generate random index:", err)
	}
	return int(n.Int64())
}
