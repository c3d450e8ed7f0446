package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	pion "github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"github.com/nabeelqr/couchsync/internal/config"
	"github.com/nabeelqr/couchsync/internal/session"
	"github.com/nabeelqr/couchsync/internal/signal"
	"github.com/nabeelqr/couchsync/internal/signaling"
	"github.com/nabeelqr/couchsync/internal/syncplay"
	"github.com/nabeelqr/couchsync/internal/ui"
)

var watchOpts struct {
	roomID string
	name   string
	video  string

	domain    string
	serverURL string
	stun      string
	turn      string
	turnUser  string
	turnPass  string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Join a room and watch together",
	Long:  `Joins the given room (or creates one with a generated ID), waits for a peer, negotiates the direct channel and opens the watch-party view.`,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOpts.roomID, "room", "r", "", "room ID to join (generated when empty)")
	watchCmd.Flags().StringVarP(&watchOpts.name, "name", "n", "", "display name")
	watchCmd.Flags().StringVar(&watchOpts.video, "video", "", "video ID to load once connected")

	watchCmd.Flags().StringVar(&watchOpts.domain, "domain", "", "relay server domain")
	watchCmd.Flags().StringVar(&watchOpts.serverURL, "server", "", "relay websocket URL (overrides domain)")
	watchCmd.Flags().StringVar(&watchOpts.stun, "stun", "", "STUN server")
	watchCmd.Flags().StringVar(&watchOpts.turn, "turn", "", "TURN server")
	watchCmd.Flags().StringVar(&watchOpts.turnUser, "turn-user", "", "TURN username")
	watchCmd.Flags().StringVar(&watchOpts.turnPass, "turn-pass", "", "TURN password")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Options{
		Domain:     watchOpts.domain,
		ServerURL:  watchOpts.serverURL,
		STUNServer: watchOpts.stun,
		TURNServer: watchOpts.turn,
		TURNUser:   watchOpts.turnUser,
		TURNPass:   watchOpts.turnPass,
	})
	if err != nil {
		return err
	}

	roomID := watchOpts.roomID
	if roomID == "" {
		roomID = signal.GenerateRoomID()
		ui.PrintInfo("room created: " + cfg.GetRoomLink(roomID))
	}

	name := watchOpts.name
	if name == "" {
		name = "guest-" + signal.GenerateRoomID()[:4]
	}

	app := newApp(cfg, roomID, name, watchOpts.video)
	if err := app.connect(); err != nil {
		return err
	}
	defer app.shutdown()

	app.join()

	model := ui.NewModel(roomID, cfg.GetRoomLink(roomID), app, app.uiEvents, app.playerLine)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return err
	}
	return nil
}

// app ties the signaling connection, the negotiation session and the sync
// engine together for one run of the watch command. Session and engine are
// replaced wholesale on reconnect; the UI event stream stays stable.
type app struct {
	cfg        *config.Config
	roomID     string
	name       string
	startVideo string

	player   *syncplay.SimPlayer
	uiEvents chan syncplay.Event

	mu     sync.Mutex
	client *signaling.Client
	sess   *session.Session
	engine *syncplay.Engine
}

func newApp(cfg *config.Config, roomID, name, startVideo string) *app {
	return &app{
		cfg:        cfg,
		roomID:     roomID,
		name:       name,
		startVideo: startVideo,
		player:     syncplay.NewSimPlayer(),
		uiEvents:   make(chan syncplay.Event, 64),
	}
}

const connectTimeout = 10 * time.Second

// connect dials the relay and starts routing its messages.
func (a *app) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client := signaling.NewClient(a.cfg.WebSocketURL)
	if err := client.Connect(ctx); err != nil {
		return err
	}

	handler := signaling.NewHandler(client.Incoming())
	go handler.Start()
	go a.route(handler)

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()
	return nil
}

func (a *app) join() {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client != nil {
		client.Send(signal.NewJoin(a.roomID, a.name))
	}
}

// route drives the negotiation from relay events. Events arrive in relay
// order on one stream, so a role assignment is always handled before the
// offer that follows it. The loop exits when the connection drops.
func (a *app) route(h *signaling.Handler) {
	for ev := range h.Events() {
		switch ev.Type {
		case signal.TypeJoined:
			a.notice("joined room " + ev.RoomID)

		case signal.TypeRoomFull:
			a.notice("room is full (2 peers max)")

		case signal.TypeYouAreOfferer:
			a.startSession(session.RoleOfferer, ev.PeerID)

		case signal.TypeYouAreAnswerer:
			a.startSession(session.RoleAnswerer, ev.PeerID)

		case signal.TypeOffer:
			if s := a.session(); s != nil {
				if err := s.HandleOffer(ev.SDP); err != nil {
					a.notice("negotiation failed: " + err.Error())
				}
			}

		case signal.TypeAnswer:
			if s := a.session(); s != nil {
				if err := s.HandleAnswer(ev.SDP); err != nil {
					a.notice("negotiation failed: " + err.Error())
				}
			}

		case signal.TypeICECandidate:
			if s := a.session(); s != nil {
				s.HandleCandidate(ev.Candidate)
			}

		case signal.TypePeerLeft:
			a.notice("peer left the room")

		case signal.TypeError:
			a.notice("relay: " + ev.Err)
		}
	}
}

// startSession discards any previous negotiation and begins a fresh one in
// the assigned role.
func (a *app) startSession(role session.Role, peerID string) {
	a.mu.Lock()
	if a.sess != nil {
		a.sess.Close()
	}
	client := a.client
	sess := session.New(a.roomID, a.cfg, client, session.Callbacks{
		OnChannelOpen:  a.onChannelOpen,
		OnChannelClose: func() { a.notice("data channel closed") },
		OnMessage:      a.onChannelMessage,
		OnNotice:       a.notice,
	})
	a.sess = sess
	a.mu.Unlock()

	var err error
	if role == session.RoleOfferer {
		err = sess.StartOfferer(peerID)
	} else {
		err = sess.StartAnswerer(peerID)
	}
	if err != nil {
		a.notice("negotiation failed: " + err.Error())
	}
}

func (a *app) onChannelOpen(dc *pion.DataChannel) {
	a.notice("data channel open")

	a.mu.Lock()
	if a.engine != nil {
		a.engine.Close()
	}
	eng := syncplay.NewEngine(a.player, dcChannel{dc: dc}, a.name)
	a.engine = eng
	a.mu.Unlock()

	go a.pumpEvents(eng)
	eng.Start()

	if a.startVideo != "" {
		eng.LoadVideo(a.startVideo)
	}
}

func (a *app) onChannelMessage(data []byte) {
	if eng := a.eng(); eng != nil {
		eng.HandleRaw(data)
	}
}

// pumpEvents copies one engine's events onto the stable UI stream.
func (a *app) pumpEvents(eng *syncplay.Engine) {
	for ev := range eng.Events() {
		a.emit(ev)
	}
}

func (a *app) playerLine() string {
	videoID := a.player.VideoID()
	if videoID == "" {
		return "no video loaded"
	}
	state, _ := a.player.State()
	t, _ := a.player.CurrentTime()
	return fmt.Sprintf("video %s • %s @ %.1fs", videoID, state, t)
}

func (a *app) shutdown() {
	a.mu.Lock()
	eng, sess, client := a.engine, a.sess, a.client
	a.engine, a.sess, a.client = nil, nil, nil
	a.mu.Unlock()

	if eng != nil {
		eng.Close()
	}
	if sess != nil {
		sess.Close()
	}
	if client != nil {
		client.Send(&signal.Message{Type: signal.TypeLeave})
		client.Close()
	}
}

func (a *app) session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess
}

func (a *app) eng() *syncplay.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine
}

func (a *app) notice(text string) {
	a.emit(syncplay.Event{Kind: syncplay.EventNotice, Text: text, At: time.Now()})
}

func (a *app) emit(ev syncplay.Event) {
	select {
	case a.uiEvents <- ev:
	default:
	}
}

// ---- ui.Actions ----

func (a *app) Chat(text string) {
	if eng := a.eng(); eng != nil {
		eng.SendChat(text)
	} else {
		a.notice("not connected yet")
	}
}

func (a *app) Typing() {
	if eng := a.eng(); eng != nil {
		eng.InputActivity()
	}
}

func (a *app) Play() {
	if eng := a.eng(); eng != nil {
		eng.Play()
	}
}

func (a *app) Pause() {
	if eng := a.eng(); eng != nil {
		eng.Pause()
	}
}

func (a *app) Seek(seconds float64) {
	if eng := a.eng(); eng != nil {
		eng.SeekTo(seconds)
	}
}

func (a *app) Load(videoID string) {
	if eng := a.eng(); eng != nil {
		eng.LoadVideo(videoID)
	}
}

// Reconnect discards the whole negotiation and redoes the join from scratch
// over a fresh relay connection. No partial state is reused.
func (a *app) Reconnect() {
	a.mu.Lock()
	eng, sess, client := a.engine, a.sess, a.client
	a.engine, a.sess, a.client = nil, nil, nil
	a.mu.Unlock()

	if eng != nil {
		eng.Close()
	}
	if sess != nil {
		sess.Close()
	}
	if client != nil {
		client.Close()
	}

	a.notice("reconnecting...")
	if err := a.connect(); err != nil {
		a.notice("reconnect failed: " + err.Error())
		return
	}
	a.join()
}

// dcChannel adapts a pion data channel to the engine's Channel interface.
type dcChannel struct {
	dc *pion.DataChannel
}

func (c dcChannel) Send(data []byte) error {
	return c.dc.Send(data)
}

func (c dcChannel) Open() bool {
	return c.dc.ReadyState() == pion.DataChannelStateOpen
}
