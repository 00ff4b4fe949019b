package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, also read from a .env file next to the config.
const (
	EnvAddress   = "FLIGHTTRACK_ADDR"
	EnvExportDir = "FLIGHTTRACK_EXPORT_DIR"
	EnvDBPath    = "FLIGHTTRACK_DB"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Playback PlaybackConfig `yaml:"playback"`
	Export   ExportConfig   `yaml:"export"`
	Coverage CoverageConfig `yaml:"coverage"`
	Library  LibraryConfig  `yaml:"library"`
	GUI      GUIConfig      `yaml:"gui"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// PlaybackConfig holds animation settings.
type PlaybackConfig struct {
	FPS           int       `yaml:"fps"`            // Display refresh rate of the frame loop
	DefaultSpeed  float64   `yaml:"default_speed"`  // Samples advanced per frame
	SpeedOptions  []float64 `yaml:"speed_options"`  // Choices offered by the UI
	BroadcastRate float64   `yaml:"broadcast_rate"` // Max frames/s pushed to each stream client
	SeekStep      float64   `yaml:"seek_step"`      // Percent moved by keyboard seek
}

// ExportConfig holds artifact export settings.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// CoverageConfig holds H3 coverage settings.
type CoverageConfig struct {
	Resolution int `yaml:"resolution"`
}

// LibraryConfig holds flight library maintenance settings.
type LibraryConfig struct {
	ImportDir    string   `yaml:"import_dir"`
	ScanInterval Duration `yaml:"scan_interval"` // Inbox polling; 0 disables the watcher
	Retention    Duration `yaml:"retention"`
	MaxFlights   int      `yaml:"max_flights"`
}

// GUIConfig holds desktop shell settings.
type GUIConfig struct {
	ServerBinary string `yaml:"server_binary"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/flighttrack.db",
		},
		Server: ServerConfig{
			Address: "localhost:8000",
		},
		Playback: PlaybackConfig{
			FPS:           60,
			DefaultSpeed:  1,
			SpeedOptions:  []float64{0.5, 1, 2, 5, 10},
			BroadcastRate: 30,
			SeekStep:      5,
		},
		Export: ExportConfig{
			Dir: "./exports",
		},
		Coverage: CoverageConfig{
			Resolution: 7,
		},
		Library: LibraryConfig{
			ImportDir:    "./data/inbox",
			ScanInterval: Duration(30 * time.Second),
			Retention:    Duration(90 * Day),
			MaxFlights:   200,
		},
		GUI: GUIConfig{
			Width:  1280,
			Height: 860,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
// Environment variables (and a .env file in the config directory) override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := loadEnv(filepath.Join(dir, ".env"), cfg); err != nil {
		return nil, err
	}
	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnv applies environment overrides. Values already present in the
// process environment win over the .env file.
func loadEnv(envPath string, cfg *Config) error {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envPath, err)
	}

	if v := os.Getenv(EnvAddress); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv(EnvExportDir); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DB.Path = v
	}
	return nil
}

var windowsVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// expandPath resolves $VAR, ${VAR} and %VAR% references.
func expandPath(p string) string {
	p = windowsVar.ReplaceAllStringFunc(p, func(m string) string {
		return os.Getenv(m[1 : len(m)-1])
	})
	return os.ExpandEnv(p)
}

// expandPaths resolves environment references in path settings. Only the
// in-memory config changes; the file keeps the raw values.
func expandPaths(cfg *Config) {
	for _, p := range []*string{
		&cfg.Log.Server.Path,
		&cfg.Log.Requests.Path,
		&cfg.Log.Events.Path,
		&cfg.DB.Path,
		&cfg.Export.Dir,
		&cfg.Library.ImportDir,
		&cfg.GUI.ServerBinary,
	} {
		*p = expandPath(*p)
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Playback.FPS <= 0 || c.Playback.FPS > 240 {
		return fmt.Errorf("invalid playback.fps %d: must be in 1..240", c.Playback.FPS)
	}
	if math.IsNaN(c.Playback.DefaultSpeed) || math.IsInf(c.Playback.DefaultSpeed, 0) {
		return fmt.Errorf("invalid playback.default_speed %v", c.Playback.DefaultSpeed)
	}
	if c.Playback.BroadcastRate < 0 {
		return fmt.Errorf("invalid playback.broadcast_rate %v: must not be negative", c.Playback.BroadcastRate)
	}
	if c.Coverage.Resolution < -1 || c.Coverage.Resolution > 15 {
		return fmt.Errorf("invalid coverage.resolution %d: must be -1 (off) or 0..15", c.Coverage.Resolution)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# FlightTrack Configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Environment overrides: ` + EnvAddress + `, ` + EnvExportDir + `, ` + EnvDBPath + `

`)
	data = append(header, data...)

	// Inject comments for selected keys, matching indentation.
	reSpeed := regexp.MustCompile(`(?m)^(\s+)default_speed:`)
	data = reSpeed.ReplaceAll(data, []byte("${1}# Samples advanced per frame; negative plays backward\n${1}default_speed:"))

	reRate := regexp.MustCompile(`(?m)^(\s+)broadcast_rate:`)
	data = reRate.ReplaceAll(data, []byte("${1}# Frames per second sent to each stream client; 0 = unthrottled\n${1}broadcast_rate:"))

	reRes := regexp.MustCompile(`(?m)^(\s+)resolution:`)
	data = reRes.ReplaceAll(data, []byte("${1}# H3 resolution 0..15 (7 = ~5 km² cells), -1 disables\n${1}resolution:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
