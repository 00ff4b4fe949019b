package api

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"flighttrack/internal/ui"
	"flighttrack/pkg/session"
	"flighttrack/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, sess *session.Session, flights *FlightHandler, pb *PlaybackHandler, stream *StreamHandler, exp *ExportHandler, cfg *ConfigHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health & Version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Flights
	mux.HandleFunc("POST /api/analyze-flight", flights.HandleAnalyze)
	mux.HandleFunc("GET /api/flights", flights.HandleList)
	mux.HandleFunc("GET /api/flights/current", flights.HandleCurrent)
	mux.HandleFunc("GET /api/flights/current/plots/{chart}", flights.HandlePlot)
	mux.HandleFunc("GET /api/flights/current/frames", flights.HandleFrames)
	mux.HandleFunc("POST /api/flights/{id}/open", flights.HandleOpen)
	mux.HandleFunc("DELETE /api/flights/{id}", flights.HandleDelete)

	// 3. Playback
	mux.HandleFunc("GET /api/playback/state", pb.HandleState)
	mux.HandleFunc("POST /api/playback/seek", pb.HandleSeek)
	mux.HandleFunc("POST /api/playback/speed", pb.HandleSpeed)
	mux.HandleFunc("POST /api/playback/{action}", pb.HandleAction)
	mux.HandleFunc("GET /api/map/frame", pb.HandleFrame)
	mux.HandleFunc("GET /api/map/info", pb.HandleInfo)
	mux.Handle("GET /ws", stream)

	// 4. Export
	mux.HandleFunc("GET /api/export/{kind}", exp.HandleExport)

	// 5. Config, Logs, Events
	mux.HandleFunc("/api/config", cfg.HandleConfig)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/recent", handleRecentLogs)
	mux.HandleFunc("GET /api/events", newEventsHandler(sess))

	// 6. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 7. Static Frontend Serving (SPA)
	// We need to serve from the "dist" subdirectory of the embedded FS
	distFS, err := fs.Sub(ui.DistFS, "dist")
	if err != nil {
		panic(fmt.Sprintf("Failed to subtree dist from embedded assets: %v", err))
	}

	spaFS := &spaFileSystem{root: http.FS(distFS)}
	mux.Handle("/", http.FileServer(spaFS))

	return &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 60 * time.Second, // uploads
		IdleTimeout: 60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
