package syncplay

import (
	"sync"
	"time"
)

// SimPlayer is a headless playback widget: position advances with the wall
// clock while playing. It stands in for a real embedded player in the CLI and
// in tests.
type SimPlayer struct {
	mu       sync.Mutex
	videoID  string
	position float64
	playing  bool
	playedAt time.Time
	onChange func(PlayerState)

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewSimPlayer creates a stopped player with no media loaded.
func NewSimPlayer() *SimPlayer {
	return &SimPlayer{now: time.Now}
}

// Load sets the current video and rewinds to zero without altering the
// play/pause state.
func (p *SimPlayer) Load(videoID string) error {
	p.mu.Lock()
	p.videoID = videoID
	p.position = 0
	if p.playing {
		p.playedAt = p.now()
	}
	p.mu.Unlock()
	return nil
}

// Play starts playback. No-op if already playing.
func (p *SimPlayer) Play() error {
	p.mu.Lock()
	if p.videoID == "" {
		p.mu.Unlock()
		return ErrPlayerNotReady
	}
	if p.playing {
		p.mu.Unlock()
		return nil
	}
	p.playing = true
	p.playedAt = p.now()
	fn := p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn(PlayerPlaying)
	}
	return nil
}

// Pause stops playback, freezing the position. No-op if already paused.
func (p *SimPlayer) Pause() error {
	p.mu.Lock()
	if p.videoID == "" {
		p.mu.Unlock()
		return ErrPlayerNotReady
	}
	if !p.playing {
		p.mu.Unlock()
		return nil
	}
	p.position += p.now().Sub(p.playedAt).Seconds()
	p.playing = false
	fn := p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn(PlayerPaused)
	}
	return nil
}

// Seek jumps to an absolute position.
func (p *SimPlayer) Seek(seconds float64) error {
	p.mu.Lock()
	if p.videoID == "" {
		p.mu.Unlock()
		return ErrPlayerNotReady
	}
	if seconds < 0 {
		seconds = 0
	}
	p.position = seconds
	if p.playing {
		p.playedAt = p.now()
	}
	p.mu.Unlock()
	return nil
}

// CurrentTime returns the current playback position in seconds.
func (p *SimPlayer) CurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.videoID == "" {
		return 0, ErrPlayerNotReady
	}
	if p.playing {
		return p.position + p.now().Sub(p.playedAt).Seconds(), nil
	}
	return p.position, nil
}

// State returns the coarse playback state.
func (p *SimPlayer) State() (PlayerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.videoID == "" {
		return PlayerUnstarted, nil
	}
	if p.playing {
		return PlayerPlaying, nil
	}
	return PlayerPaused, nil
}

// OnStateChange registers the state notification callback. The callback runs
// on the goroutine that triggered the transition, after the player's own
// state has settled.
func (p *SimPlayer) OnStateChange(fn func(PlayerState)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// VideoID returns the loaded video identifier, or "".
func (p *SimPlayer) VideoID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoID
}
