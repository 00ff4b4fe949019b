package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"flighttrack/pkg/config"
	"flighttrack/pkg/flight"
	"flighttrack/pkg/store"
)

// ConfigHandler handles viewer preference requests.
type ConfigHandler struct {
	store   store.StateStore
	cfgProv config.Provider
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(st store.StateStore, cfg config.Provider) *ConfigHandler {
	return &ConfigHandler{
		store:   st,
		cfgProv: cfg,
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	PlaybackSpeed  float64   `json:"playback_speed"`
	SpeedOptions   []float64 `json:"speed_options"`
	SeekStep       float64   `json:"seek_step"`
	ExportDir      string    `json:"export_dir"`
	Retention      string    `json:"library_retention"`
	MapStyle       string    `json:"map_style"`
	FollowAircraft bool      `json:"follow_aircraft"`
	ActiveChart    string    `json:"active_chart"`
	FPS            int       `json:"fps"`
}

// ConfigRequest represents the config API request for updates.
type ConfigRequest struct {
	PlaybackSpeed  *float64  `json:"playback_speed,omitempty"`
	SpeedOptions   []float64 `json:"speed_options,omitempty"`
	ExportDir      string    `json:"export_dir,omitempty"`
	Retention      string    `json:"library_retention,omitempty"`
	MapStyle       string    `json:"map_style,omitempty"`
	FollowAircraft *bool     `json:"follow_aircraft,omitempty"` // Pointer to detect false vs missing
	ActiveChart    string    `json:"active_chart,omitempty"`
}

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the current preferences.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.getConfigResponse(r.Context()))
}

func (h *ConfigHandler) getConfigResponse(ctx context.Context) ConfigResponse {
	return ConfigResponse{
		PlaybackSpeed:  h.cfgProv.PlaybackSpeed(ctx),
		SpeedOptions:   h.cfgProv.SpeedOptions(ctx),
		SeekStep:       h.cfgProv.SeekStep(ctx),
		ExportDir:      h.cfgProv.ExportDir(ctx),
		Retention:      h.cfgProv.Retention(ctx).String(),
		MapStyle:       h.cfgProv.MapStyle(ctx),
		FollowAircraft: h.cfgProv.FollowAircraft(ctx),
		ActiveChart:    h.cfgProv.ActiveChart(ctx),
		FPS:            h.cfgProv.AppConfig().Playback.FPS,
	}
}

// HandleSetConfig validates and stores preference updates, then returns the
// resulting preferences. Nothing is stored when any field is invalid.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	updates, err := validateConfigRequest(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for key, val := range updates {
		if err := h.store.SetState(ctx, key, val); err != nil {
			slog.Error("Failed to save state", "key", key, "error", err)
			http.Error(w, "Failed to save preferences", http.StatusInternalServerError)
			return
		}
		slog.Debug("Config updated", key, val)
	}

	h.HandleGetConfig(w, r)
}

var errInvalidPreference = errors.New("invalid preference")

// validateConfigRequest maps the request to state keys and string values.
func validateConfigRequest(req *ConfigRequest) (map[string]string, error) {
	updates := make(map[string]string)

	if req.PlaybackSpeed != nil {
		s := *req.PlaybackSpeed
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: playback_speed must be finite", errInvalidPreference)
		}
		updates[config.KeyPlaybackSpeed] = strconv.FormatFloat(s, 'f', -1, 64)
	}

	if len(req.SpeedOptions) > 0 {
		data, err := json.Marshal(req.SpeedOptions)
		if err != nil {
			return nil, fmt.Errorf("%w: speed_options: %v", errInvalidPreference, err)
		}
		updates[config.KeySpeedOptions] = string(data)
	}

	if req.ExportDir != "" {
		updates[config.KeyExportDir] = req.ExportDir
	}

	if req.Retention != "" {
		if _, err := config.ParseDuration(req.Retention); err != nil {
			return nil, fmt.Errorf("%w: library_retention: %v", errInvalidPreference, err)
		}
		updates[config.KeyRetention] = req.Retention
	}

	if req.MapStyle != "" {
		switch req.MapStyle {
		case config.MapStyleStreets, config.MapStyleSatellite, config.MapStyleTerrain:
			updates[config.KeyMapStyle] = req.MapStyle
		default:
			return nil, fmt.Errorf("%w: unknown map_style %q", errInvalidPreference, req.MapStyle)
		}
	}

	if req.FollowAircraft != nil {
		updates[config.KeyFollowAircraft] = strconv.FormatBool(*req.FollowAircraft)
	}

	if req.ActiveChart != "" {
		var p flight.Plots
		if _, ok := p.Get(req.ActiveChart); !ok {
			return nil, fmt.Errorf("%w: unknown active_chart %q", errInvalidPreference, req.ActiveChart)
		}
		updates[config.KeyActiveChart] = req.ActiveChart
	}

	return updates, nil
}
