package api

import (
	"context"
	"log/slog"
	"net/http"

	"flighttrack/pkg/geo"
	"flighttrack/pkg/mapview"
	"flighttrack/pkg/playback"
	"flighttrack/pkg/session"
)

// PlaybackHandler exposes the session's playback controls.
type PlaybackHandler struct {
	session *session.Session
}

// NewPlaybackHandler creates a new PlaybackHandler.
func NewPlaybackHandler(sess *session.Session) *PlaybackHandler {
	return &PlaybackHandler{session: sess}
}

type seekRequest struct {
	Progress *float64 `json:"progress"`
}

type speedRequest struct {
	Speed *float64 `json:"speed"`
}

// HandleState returns the playback snapshot.
// GET /api/playback/state
func (h *PlaybackHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.session.State)
}

// HandleAction runs play, pause, toggle or reset. With no flight open the
// call is a no-op and returns the idle state.
// POST /api/playback/{action}
func (h *PlaybackHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	var op func(context.Context) (playback.State, error)
	switch action := r.PathValue("action"); action {
	case "play":
		op = h.session.Play
	case "pause":
		op = h.session.Pause
	case "toggle":
		op = h.session.Toggle
	case "reset":
		op = h.session.Reset
	default:
		writeError(w, http.StatusNotFound, "unknown action: "+action)
		return
	}
	h.respond(w, r, op)
}

// HandleSeek moves to a progress percentage.
// POST /api/playback/seek {"progress": p}
func (h *PlaybackHandler) HandleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeJSON(r, &req); err != nil || req.Progress == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"progress\": number}")
		return
	}
	h.respond(w, r, func(ctx context.Context) (playback.State, error) {
		return h.session.Seek(ctx, *req.Progress)
	})
}

// HandleSpeed sets the speed multiplier.
// POST /api/playback/speed {"speed": s}
func (h *PlaybackHandler) HandleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := decodeJSON(r, &req); err != nil || req.Speed == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"speed\": number}")
		return
	}
	h.respond(w, r, func(ctx context.Context) (playback.State, error) {
		return h.session.SetSpeed(ctx, *req.Speed)
	})
}

// HandleFrame returns the current frame as GeoJSON.
// GET /api/map/frame
func (h *PlaybackHandler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	u, ok, err := h.session.Current(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no flight loaded")
		return
	}
	writeJSON(w, http.StatusOK, mapview.FeatureCollection(mapview.Compose(u)))
}

// infoResponse is the flight information panel plus the initial map extent.
type infoResponse struct {
	mapview.Info
	Name       string     `json:"name"`
	ViewBounds geo.Bounds `json:"viewBounds"`
}

// HandleInfo returns the formatted statistics of the open flight.
// GET /api/map/info
func (h *PlaybackHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	f := h.session.Flight()
	if f == nil {
		writeError(w, http.StatusNotFound, "no flight loaded")
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{
		Info:       mapview.InfoOf(f.Statistics),
		Name:       f.Name,
		ViewBounds: f.Statistics.ViewBounds,
	})
}

func (h *PlaybackHandler) respond(w http.ResponseWriter, r *http.Request, op func(context.Context) (playback.State, error)) {
	st, err := op(r.Context())
	if err != nil {
		slog.Error("Playback control failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
