package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nabeelqr/couchsync/internal/syncplay"
)

const maxTranscript = 200

// Actions is what the watch view can ask of the running session.
type Actions interface {
	Chat(text string)
	Typing()
	Play()
	Pause()
	Seek(seconds float64)
	Load(videoID string)
	Reconnect()
}

type eventMsg syncplay.Event
type tickMsg time.Time

// Model is the bubbletea model for the watch-party view: transcript, typing
// indicator, player status line and the input box.
type Model struct {
	roomID    string
	shareLink string

	input      textinput.Model
	lines      []string
	peerTyping string
	status     string

	actions    Actions
	events     <-chan syncplay.Event
	playerLine func() string

	width    int
	quitting bool
}

// NewModel builds the watch view. playerLine is polled for the status bar;
// events carries transcript entries and notices.
func NewModel(roomID, shareLink string, actions Actions, events <-chan syncplay.Event, playerLine func() string) Model {
	input := textinput.New()
	input.Placeholder = "say something, or /play /pause /seek N /load ID /reconnect /quit"
	input.CharLimit = 500
	input.Focus()

	return Model{
		roomID:     roomID,
		shareLink:  shareLink,
		input:      input,
		actions:    actions,
		events:     events,
		playerLine: playerLine,
		status:     "waiting for a peer...",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			if quit := m.submit(); quit {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		default:
			m.actions.Typing()
		}

	case eventMsg:
		m.apply(syncplay.Event(msg))
		return m, waitForEvent(m.events)

	case tickMsg:
		return m, tick()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("couchsync") + "  " +
		MutedStyle.Render("room "+m.roomID+" • "+m.shareLink) + "\n\n")

	start := 0
	if len(m.lines) > maxTranscript {
		start = len(m.lines) - maxTranscript
	}
	for _, line := range m.lines[start:] {
		b.WriteString(line + "\n")
	}

	if m.peerTyping != "" {
		b.WriteString(TypingStyle.Render(m.peerTyping+" is typing...") + "\n")
	}

	b.WriteString("\n" + StatusStyle.Render(m.playerLine()+" • "+m.status) + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(HelpStyle.Render("enter to send • esc to quit"))

	return b.String()
}

// submit consumes the input line: slash commands drive playback, anything
// else is chat. Reports whether the user asked to quit.
func (m *Model) submit() bool {
	text := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if text == "" {
		return false
	}

	if !strings.HasPrefix(text, "/") {
		m.actions.Chat(text)
		return false
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case "/play":
		m.actions.Play()
	case "/pause":
		m.actions.Pause()
	case "/seek":
		if len(fields) > 1 {
			if t, err := strconv.ParseFloat(fields[1], 64); err == nil {
				m.actions.Seek(t)
			}
		}
	case "/load":
		if len(fields) > 1 {
			m.actions.Load(fields[1])
		}
	case "/reconnect":
		m.actions.Reconnect()
	case "/quit":
		return true
	default:
		m.lines = append(m.lines, NoticeStyle.Render("— unknown command: "+fields[0]))
	}
	return false
}

func (m *Model) apply(ev syncplay.Event) {
	switch ev.Kind {
	case syncplay.EventChat:
		meta := MutedStyle.Render(ev.At.Format("15:04")) + " " + NameStyle.Render(ev.From)
		m.lines = append(m.lines, fmt.Sprintf("%s: %s", meta, ev.Text))

	case syncplay.EventNotice:
		m.lines = append(m.lines, NoticeStyle.Render("— "+ev.Text))
		m.status = ev.Text

	case syncplay.EventTyping:
		if ev.Active {
			m.peerTyping = ev.From
		} else {
			m.peerTyping = ""
		}
	}
}

func waitForEvent(ch <-chan syncplay.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
