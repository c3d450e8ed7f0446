package syncplay

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultSettleWindow is how long locally observed player notifications
	// stay muted after applying a remote command. Chosen to exceed the
	// player's notification latency.
	DefaultSettleWindow = 300 * time.Millisecond

	// DefaultTypingIdle is the quiet period after which typing-stop fires.
	DefaultTypingIdle = 1500 * time.Millisecond
)

// Channel is the open direct channel the engine speaks over.
type Channel interface {
	Send(data []byte) error
	Open() bool
}

// EventKind classifies engine events surfaced to the UI.
type EventKind int

const (
	EventChat EventKind = iota
	EventNotice
	EventTyping
)

// Event is what the UI renders: a transcript entry, a status notice or a
// change of the peer's typing indicator.
type Event struct {
	Kind   EventKind
	From   string
	Text   string
	Active bool
	At     time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettleWindow overrides the suppression settle window.
func WithSettleWindow(d time.Duration) Option {
	return func(e *Engine) { e.settle = d }
}

// WithTypingIdle overrides the typing-stop idle window.
func WithTypingIdle(d time.Duration) Option {
	return func(e *Engine) { e.typingIdle = d }
}

// Engine interprets inbound sync messages and produces outbound ones. Only
// the engine mutates playback state: either from a local user action or from
// a remote command applied under suppression, never both paths at once.
type Engine struct {
	player      Player
	ch          Channel
	displayName string
	settle      time.Duration
	typingIdle  time.Duration

	// suppressed mutes outbound re-broadcast of player notifications while a
	// remote command is being reflected locally. Time-boxed, not a logical
	// clock; the race at the window edge is accepted.
	suppressed atomic.Bool

	mu            sync.Mutex
	suppressTimer *time.Timer
	typingTimer   *time.Timer
	typingActive  bool
	videoID       string
	closed        bool

	events chan Event
}

// NewEngine wires an engine to an open channel and a player.
func NewEngine(player Player, ch Channel, displayName string, opts ...Option) *Engine {
	e := &Engine{
		player:      player,
		ch:          ch,
		displayName: displayName,
		settle:      DefaultSettleWindow,
		typingIdle:  DefaultTypingIdle,
		events:      make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start hooks the player's notifications and announces presence to the peer.
// Call once the channel reports open.
func (e *Engine) Start() {
	e.player.OnStateChange(e.handlePlayerChange)
	e.send(&Message{Type: KindPresenceHello, DisplayName: e.displayName})
}

// Events returns the UI event stream.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Close stops the engine's timers and ends the event stream. The channel
// itself is owned by the session.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.suppressTimer != nil {
		e.suppressTimer.Stop()
	}
	if e.typingTimer != nil {
		e.typingTimer.Stop()
	}
	close(e.events)
}

// HandleRaw dispatches one inbound channel payload. Malformed data and
// unrecognized kinds are ignored; player failures are swallowed so transient
// widget unavailability never desynchronizes protocol state.
func (e *Engine) HandleRaw(data []byte) {
	m, err := Decode(data)
	if err != nil {
		return
	}

	switch m.Type {
	case KindChat:
		e.emit(Event{Kind: EventChat, From: peerName(m), Text: m.Text, At: sentAt(m)})

	case KindPresenceHello:
		e.emit(Event{Kind: EventNotice, Text: peerName(m) + " joined", At: sentAt(m)})
		e.sendSnapshot()

	case KindTypingStart:
		e.emit(Event{Kind: EventTyping, From: peerName(m), Active: true, At: sentAt(m)})

	case KindTypingStop:
		e.emit(Event{Kind: EventTyping, From: peerName(m), Active: false, At: sentAt(m)})

	case KindVideoLoad:
		e.setVideoID(m.VideoID)
		e.player.Load(m.VideoID)
		e.emit(Event{Kind: EventNotice, Text: "video loaded: " + m.VideoID, At: sentAt(m)})

	case KindVideoPlay:
		e.suppress()
		e.player.Seek(m.Time)
		e.player.Play()

	case KindVideoPause:
		e.suppress()
		e.player.Seek(m.Time)
		e.player.Pause()

	case KindVideoSeek:
		e.suppress()
		e.player.Seek(m.Time)

	case KindVideoSnapshot:
		e.applySnapshot(m)

	default:
		// Unknown kind: single well-defined ignore branch.
	}
}

// SendChat transmits a chat line and echoes it into the local transcript.
// Empty input is a no-op.
func (e *Engine) SendChat(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	e.stopTyping()
	e.send(&Message{Type: KindChat, Text: text, DisplayName: e.displayName})
	e.emit(Event{Kind: EventChat, From: e.displayName, Text: text, At: time.Now()})
}

// InputActivity records local text-input activity. The first keystroke sends
// typing-start; typing-stop fires after the idle window.
func (e *Engine) InputActivity() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	start := !e.typingActive
	e.typingActive = true
	if e.typingTimer != nil {
		e.typingTimer.Stop()
	}
	e.typingTimer = time.AfterFunc(e.typingIdle, e.stopTyping)
	e.mu.Unlock()

	if start {
		e.send(&Message{Type: KindTypingStart, DisplayName: e.displayName})
	}
}

// LoadVideo loads a video locally and tells the peer to load it too. Play
// state is left untouched on both sides.
func (e *Engine) LoadVideo(videoID string) {
	if videoID == "" {
		return
	}
	e.setVideoID(videoID)
	e.player.Load(videoID)
	e.send(&Message{Type: KindVideoLoad, VideoID: videoID})
	e.emit(Event{Kind: EventNotice, Text: "video loaded: " + videoID, At: time.Now()})
}

// Play resumes local playback and broadcasts the command with the current
// position. The local action is sent explicitly, so the player notification
// it triggers is muted under the same suppression window.
func (e *Engine) Play() {
	e.suppress()
	e.player.Play()
	e.send(&Message{Type: KindVideoPlay, Time: e.currentTime()})
}

// Pause is symmetric to Play.
func (e *Engine) Pause() {
	e.suppress()
	e.player.Pause()
	e.send(&Message{Type: KindVideoPause, Time: e.currentTime()})
}

// SeekTo jumps to an explicit position and broadcasts it.
func (e *Engine) SeekTo(seconds float64) {
	e.suppress()
	e.player.Seek(seconds)
	e.send(&Message{Type: KindVideoSeek, Time: seconds})
}

// handlePlayerChange re-broadcasts genuine local playback transitions. While
// suppressed, the transition is known to be the echo of a command we just
// applied and stays local.
func (e *Engine) handlePlayerChange(state PlayerState) {
	if e.suppressed.Load() {
		return
	}
	if !e.ch.Open() {
		return
	}

	switch state {
	case PlayerPlaying:
		e.send(&Message{Type: KindVideoPlay, Time: e.currentTime()})
	case PlayerPaused:
		e.send(&Message{Type: KindVideoPause, Time: e.currentTime()})
	}
}

// applySnapshot brings this side to the peer's playback state in one step:
// load, position and play/pause, all under one suppression window.
func (e *Engine) applySnapshot(m *Message) {
	e.suppress()
	if m.VideoID != "" && m.VideoID != e.getVideoID() {
		e.setVideoID(m.VideoID)
		e.player.Load(m.VideoID)
		e.emit(Event{Kind: EventNotice, Text: "video loaded: " + m.VideoID, At: sentAt(m)})
	}
	e.player.Seek(m.Time)
	if m.Playing {
		e.player.Play()
	} else {
		e.player.Pause()
	}
}

// sendSnapshot answers a presence-hello with the current playback state, so a
// freshly joined peer catches up in a single message. No-op without media.
func (e *Engine) sendSnapshot() {
	videoID := e.getVideoID()
	if videoID == "" {
		return
	}

	state, err := e.player.State()
	if err != nil {
		return
	}
	e.send(&Message{
		Type:    KindVideoSnapshot,
		VideoID: videoID,
		Time:    e.currentTime(),
		Playing: state == PlayerPlaying,
	})
}

// suppress opens the settle window. Repeated remote commands keep pushing the
// deadline out.
func (e *Engine) suppress() {
	e.suppressed.Store(true)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.suppressTimer != nil {
		e.suppressTimer.Stop()
	}
	e.suppressTimer = time.AfterFunc(e.settle, func() {
		e.suppressed.Store(false)
	})
}

func (e *Engine) stopTyping() {
	e.mu.Lock()
	if e.closed || !e.typingActive {
		e.mu.Unlock()
		return
	}
	e.typingActive = false
	if e.typingTimer != nil {
		e.typingTimer.Stop()
	}
	e.mu.Unlock()

	e.send(&Message{Type: KindTypingStop, DisplayName: e.displayName})
}

func (e *Engine) send(m *Message) {
	if !e.ch.Open() {
		return
	}
	b, err := Encode(m)
	if err != nil {
		return
	}
	e.ch.Send(b)
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}

func (e *Engine) currentTime() float64 {
	t, err := e.player.CurrentTime()
	if err != nil {
		return 0
	}
	return t
}

func (e *Engine) setVideoID(id string) {
	e.mu.Lock()
	e.videoID = id
	e.mu.Unlock()
}

func (e *Engine) getVideoID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.videoID
}

func peerName(m *Message) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return "peer"
}

func sentAt(m *Message) time.Time {
	if m.SentAt > 0 {
		return time.UnixMilli(m.SentAt)
	}
	return time.Now()
}
