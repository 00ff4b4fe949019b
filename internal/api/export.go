package api

import (
	"errors"
	"log/slog"
	"net/http"

	"flighttrack/pkg/config"
	"flighttrack/pkg/export"
	"flighttrack/pkg/logging"
	"flighttrack/pkg/session"
)

// ExportHandler writes artifacts of the open flight.
type ExportHandler struct {
	session *session.Session
	cfgProv config.Provider
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(sess *session.Session, cfg config.Provider) *ExportHandler {
	return &ExportHandler{session: sess, cfgProv: cfg}
}

type exportResponse struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// HandleExport writes one artifact to the export directory.
// GET /api/export/{kind}
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	f := h.session.Flight()
	if f == nil {
		writeError(w, http.StatusNotFound, "no flight loaded")
		return
	}

	kind := r.PathValue("kind")
	exp := export.NewExporter(h.cfgProv.ExportDir(r.Context()))
	path, err := exp.Export(kind, f)
	if errors.Is(err, export.ErrUnknownKind) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Export failed", "kind", kind, "flight", f.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.session.AddEvent(logging.Event{Type: logging.EventExport, Title: f.Name, Summary: path})
	writeJSON(w, http.StatusOK, exportResponse{Kind: kind, Path: path})
}
