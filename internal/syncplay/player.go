package syncplay

import "errors"

// ErrPlayerNotReady is returned by player operations before media is loaded.
// The engine swallows it; a not-yet-ready player delays the visual effect but
// never desynchronizes protocol state.
var ErrPlayerNotReady = errors.New("player not ready")

// PlayerState is the playback widget's coarse state.
type PlayerState int

const (
	PlayerUnstarted PlayerState = iota
	PlayerPlaying
	PlayerPaused
)

func (s PlayerState) String() string {
	switch s {
	case PlayerPlaying:
		return "playing"
	case PlayerPaused:
		return "paused"
	default:
		return "unstarted"
	}
}

// Player is the playback widget the engine drives. Implementations emit a
// state-change notification whenever playback starts or stops, regardless of
// what caused the transition; the engine decides whether to re-broadcast it.
type Player interface {
	Load(videoID string) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	CurrentTime() (float64, error)
	State() (PlayerState, error)

	// OnStateChange registers the notification callback. The callback may be
	// invoked on the caller's goroutine of whatever triggered the change.
	OnStateChange(fn func(PlayerState))
}
