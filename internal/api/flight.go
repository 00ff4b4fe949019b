package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"flighttrack/pkg/flight"
	"flighttrack/pkg/geo"
	"flighttrack/pkg/logging"
	"flighttrack/pkg/session"
	"flighttrack/pkg/store"
)

// maxUploadSize caps uploaded flight exports.
const maxUploadSize = 64 << 20

// FlightHandler handles flight upload and library requests.
type FlightHandler struct {
	store   store.Store
	session *session.Session
	opts    flight.Options
	logger  *slog.Logger
}

// NewFlightHandler creates a new FlightHandler.
func NewFlightHandler(st store.Store, sess *session.Session, opts flight.Options) *FlightHandler {
	return &FlightHandler{
		store:   st,
		session: sess,
		opts:    opts,
		logger:  slog.With("component", "flight_api"),
	}
}

// analyzeResponse is the body of a successful upload or open.
type analyzeResponse struct {
	Success bool           `json:"success"`
	Data    *flight.Flight `json:"data"`
}

// HandleAnalyze processes an uploaded CSV, saves it to the library and opens
// it in the session.
// POST /api/analyze-flight (multipart field "file", optional ?callsign= and
// ?ref=lat,lon for the max radius center)
func (h *FlightHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file: "+err.Error())
		return
	}
	defer file.Close()

	opts := h.opts
	if cs := r.URL.Query().Get("callsign"); cs != "" {
		opts.Callsign = cs
	}
	if ref := r.URL.Query().Get("ref"); ref != "" {
		lat, lon, ok := flight.ParsePosition(ref)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid ref: want lat,lon")
			return
		}
		opts.Reference = &geo.Point{Lat: lat, Lon: lon}
	}

	f, err := flight.NewProcessor(opts).Process(file, header.Filename)
	if err != nil {
		if errors.Is(err, flight.ErrInvalidCSV) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to process upload", "file", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "error processing file: "+err.Error())
		return
	}

	ctx := r.Context()
	if err := h.store.SaveFlight(ctx, f, header.Filename); err != nil {
		h.logger.Error("Failed to save flight", "id", f.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "error saving flight: "+err.Error())
		return
	}
	h.session.AddEvent(logging.Event{
		Type:    logging.EventImport,
		Title:   f.Name,
		Summary: header.Filename,
	})

	if err := h.open(ctx, f); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Data: f})
}

// HandleList returns library summaries, newest first.
// GET /api/flights?limit=N
func (h *FlightHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := h.store.ListFlights(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list flights", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []store.FlightSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleOpen loads a library flight into the session.
// POST /api/flights/{id}/open
func (h *FlightHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := h.store.GetFlight(ctx, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.open(ctx, f); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Data: f})
}

// HandleDelete removes a flight from the library, closing it first if open.
// DELETE /api/flights/{id}
func (h *FlightHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	err := h.store.DeleteFlight(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.session.AddEvent(logging.Event{Type: logging.EventDelete, Title: id})

	if cur := h.session.Flight(); cur != nil && cur.ID == id {
		if err := h.session.Close(ctx); err != nil {
			h.logger.Warn("Failed to close deleted flight", "id", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCurrent returns the open flight.
// GET /api/flights/current
func (h *FlightHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	f := h.session.Flight()
	if f == nil {
		writeError(w, http.StatusNotFound, "no flight loaded")
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Data: f})
}

// HandlePlot returns one chart series of the open flight.
// GET /api/flights/current/plots/{chart}
func (h *FlightHandler) HandlePlot(w http.ResponseWriter, r *http.Request) {
	f := h.session.Flight()
	if f == nil {
		writeError(w, http.StatusNotFound, "no flight loaded")
		return
	}
	s, ok := f.Plots.Get(r.PathValue("chart"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown chart")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// defaultFrameStep is the frame spacing in seconds when ?step is absent.
const defaultFrameStep = 60

type framesResponse struct {
	Step    float64 `json:"step"`
	Indices []int   `json:"indices"`
}

// HandleFrames returns point indices spaced by flight time, for stepping
// through the open flight at a fixed interval.
// GET /api/flights/current/frames?step=seconds
func (h *FlightHandler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	f := h.session.Flight()
	if f == nil {
		writeError(w, http.StatusNotFound, "no flight loaded")
		return
	}
	step := float64(defaultFrameStep)
	if v := r.URL.Query().Get("step"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 || math.IsInf(n, 0) {
			writeError(w, http.StatusBadRequest, "invalid step")
			return
		}
		step = n
	}
	writeJSON(w, http.StatusOK, framesResponse{Step: step, Indices: f.FrameIndex(step)})
}

func (h *FlightHandler) open(ctx context.Context, f *flight.Flight) error {
	if err := h.session.Open(ctx, f); err != nil {
		h.logger.Error("Failed to open flight", "id", f.ID, "error", err)
		return err
	}
	if err := session.Remember(ctx, h.store, f.ID); err != nil {
		h.logger.Warn("Failed to remember last flight", "id", f.ID, "error", err)
	}
	return nil
}
