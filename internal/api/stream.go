package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"flighttrack/pkg/logging"
	"flighttrack/pkg/mapview"
	"flighttrack/pkg/playback"
	"flighttrack/pkg/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Stream message types.
const (
	msgPath  = "path"
	msgFrame = "frame"
	msgState = "state"
	msgError = "error"
)

// streamMessage is sent to websocket clients. A path message carries the full
// track whenever a new flight is opened; frame messages carry only the cursor.
type streamMessage struct {
	Type  string          `json:"type"`
	Path  orb.LineString  `json:"path,omitempty"`
	Frame *frameMessage   `json:"frame,omitempty"`
	State *playback.State `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

type frameMessage struct {
	Marker        mapview.Marker `json:"marker"`
	Index         int            `json:"index"`
	Progress      float64        `json:"progress"`
	ProgressLabel string         `json:"progressLabel"`
	IsPlaying     bool           `json:"isPlaying"`
}

// controlMessage is sent by clients, e.g. {"action":"seek","value":40}.
type controlMessage struct {
	Action string   `json:"action"`
	Value  *float64 `json:"value,omitempty"`
}

// StreamHandler pushes playback frames over websockets.
type StreamHandler struct {
	session  *session.Session
	rate     float64
	upgrader websocket.Upgrader
	clients  atomic.Int64
	logger   *slog.Logger
}

// NewStreamHandler creates a stream handler sending at most ratePerSec
// playing frames per second to each client. Zero means unthrottled.
func NewStreamHandler(sess *session.Session, ratePerSec float64) *StreamHandler {
	return &StreamHandler{
		session: sess,
		rate:    ratePerSec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The viewer is served from the same origin or a local webview.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: slog.With("component", "stream"),
	}
}

// Clients returns the number of connected clients.
func (h *StreamHandler) Clients() int {
	return int(h.clients.Load())
}

// streamClient is one websocket connection. offer runs on the frame loop
// goroutine; lastPath and lastLen are only touched there.
type streamClient struct {
	send     chan []byte
	limiter  *rate.Limiter
	lastPath *playback.Sample
	lastLen  int
}

func newStreamClient(ratePerSec float64) *streamClient {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &streamClient{
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// messagesFor converts an update into the messages this client needs.
// Playing frames are throttled; stopped frames (end of track, seek, reset,
// pause) always go out.
func (c *streamClient) messagesFor(u playback.Update) (msgs []streamMessage, must bool) {
	must = !u.IsPlaying

	if len(u.Path) > 0 && (&u.Path[0] != c.lastPath || len(u.Path) != c.lastLen) {
		c.lastPath, c.lastLen = &u.Path[0], len(u.Path)
		msgs = append(msgs, streamMessage{Type: msgPath, Path: pathOf(u.Path)})
		must = true
	}

	if !must && !c.limiter.Allow() {
		return msgs, false
	}

	f := mapview.Compose(u)
	msgs = append(msgs, streamMessage{Type: msgFrame, Frame: &frameMessage{
		Marker:        f.Marker,
		Index:         f.Index,
		Progress:      f.Progress,
		ProgressLabel: f.ProgressLabel,
		IsPlaying:     f.IsPlaying,
	}})
	return msgs, must
}

func (c *streamClient) offer(u playback.Update) {
	msgs, must := c.messagesFor(u)
	for _, m := range msgs {
		c.enqueue(encode(m), must)
	}
}

// enqueue never blocks. A full buffer drops throttleable frames; for frames
// that must arrive the oldest queued message is dropped instead.
func (c *streamClient) enqueue(data []byte, must bool) {
	if data == nil {
		return
	}
	select {
	case c.send <- data:
		return
	default:
	}
	if !must {
		return
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- data:
	default:
	}
}

// ServeHTTP upgrades the connection and streams frames until the client
// disconnects.
// GET /ws
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	n := h.clients.Add(1)
	defer h.clients.Add(-1)
	h.logger.Info("Stream client connected", "remote", r.RemoteAddr, "clients", n)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newStreamClient(h.rate)
	unsubscribe, err := h.session.Attach(ctx, c.offer)
	if err != nil {
		h.logger.Warn("Stream attach failed", "error", err)
		return
	}
	defer unsubscribe()

	go h.writePump(ctx, cancel, conn, c)
	h.readPump(ctx, conn, c)
	h.logger.Info("Stream client disconnected", "remote", r.RemoteAddr)
}

func (h *StreamHandler) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close() // unblocks readPump
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Trace(h.logger, "Stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump applies client control messages and answers each with the
// resulting state. It returns when the connection closes.
func (h *StreamHandler) readPump(ctx context.Context, conn *websocket.Conn, c *streamClient) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Stream read failed", "error", err)
			}
			return
		}

		st, err := h.control(ctx, msg)
		if err != nil {
			c.enqueue(encode(streamMessage{Type: msgError, Error: err.Error()}), true)
			continue
		}
		c.enqueue(encode(streamMessage{Type: msgState, State: &st}), true)
	}
}

type controlError string

func (e controlError) Error() string { return string(e) }

func (h *StreamHandler) control(ctx context.Context, msg controlMessage) (playback.State, error) {
	switch msg.Action {
	case "play":
		return h.session.Play(ctx)
	case "pause":
		return h.session.Pause(ctx)
	case "toggle":
		return h.session.Toggle(ctx)
	case "reset":
		return h.session.Reset(ctx)
	case "state":
		return h.session.State(ctx)
	case "seek":
		if msg.Value == nil {
			return playback.State{}, controlError("seek needs a value")
		}
		return h.session.Seek(ctx, *msg.Value)
	case "speed":
		if msg.Value == nil {
			return playback.State{}, controlError("speed needs a value")
		}
		return h.session.SetSpeed(ctx, *msg.Value)
	default:
		return playback.State{}, controlError("unknown action: " + msg.Action)
	}
}

func encode(m streamMessage) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("Failed to encode stream message", "type", m.Type, "error", err)
		return nil
	}
	return data
}

func pathOf(seq []playback.Sample) orb.LineString {
	line := make(orb.LineString, len(seq))
	for i, smp := range seq {
		line[i] = orb.Point{smp.Lon, smp.Lat}
	}
	return line
}
