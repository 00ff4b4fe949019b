package config

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"flighttrack/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// Playback
	PlaybackSpeed(ctx context.Context) float64
	SpeedOptions(ctx context.Context) []float64
	SeekStep(ctx context.Context) float64

	// Library / Export
	ExportDir(ctx context.Context) string
	Retention(ctx context.Context) time.Duration
	LastFlight(ctx context.Context) string

	// UI
	MapStyle(ctx context.Context) string
	FollowAircraft(ctx context.Context) bool
	ActiveChart(ctx context.Context) string

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// --- Implementations ---

func (p *UnifiedProvider) PlaybackSpeed(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyPlaybackSpeed, p.base.Playback.DefaultSpeed)
}

func (p *UnifiedProvider) SpeedOptions(ctx context.Context) []float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, KeySpeedOptions); ok && val != "" {
			var opts []float64
			if err := json.Unmarshal([]byte(val), &opts); err == nil && len(opts) > 0 {
				return opts
			}
		}
	}
	return p.base.Playback.SpeedOptions
}

func (p *UnifiedProvider) SeekStep(ctx context.Context) float64 {
	return p.base.Playback.SeekStep
}

func (p *UnifiedProvider) ExportDir(ctx context.Context) string {
	return p.getString(ctx, KeyExportDir, p.base.Export.Dir)
}

func (p *UnifiedProvider) Retention(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyRetention, time.Duration(p.base.Library.Retention))
}

func (p *UnifiedProvider) LastFlight(ctx context.Context) string {
	return p.getString(ctx, KeyLastFlight, "")
}

func (p *UnifiedProvider) MapStyle(ctx context.Context) string {
	switch s := p.getString(ctx, KeyMapStyle, MapStyleStreets); s {
	case MapStyleStreets, MapStyleSatellite, MapStyleTerrain:
		return s
	default:
		return MapStyleStreets
	}
}

func (p *UnifiedProvider) FollowAircraft(ctx context.Context) bool {
	return p.getBool(ctx, KeyFollowAircraft, true)
}

func (p *UnifiedProvider) ActiveChart(ctx context.Context) string {
	return p.getString(ctx, KeyActiveChart, "altitude")
}

// --- Helpers ---

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil {
				return dur
			}
		}
	}
	return fallback
}
