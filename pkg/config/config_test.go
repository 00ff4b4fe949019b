package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "flighttrack.yaml")
	envPath := filepath.Join(tempDir, ".env")

	tests := []struct {
		name          string
		setup         func(*testing.T)
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func(t *testing.T) {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Playback.FPS != 60 {
					t.Errorf("expected default fps 60, got %d", cfg.Playback.FPS)
				}
				if cfg.Playback.DefaultSpeed != 1 {
					t.Errorf("expected default speed 1, got %v", cfg.Playback.DefaultSpeed)
				}
				if time.Duration(cfg.Library.Retention) != 90*Day {
					t.Errorf("expected retention 90d, got %v", time.Duration(cfg.Library.Retention))
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				for _, want := range []string{"fps: 60", "retention: 90d", "# Samples advanced per frame", "resolution: 7"} {
					if !strings.Contains(string(content), want) {
						t.Errorf("config file missing %q", want)
					}
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func(t *testing.T) {
				err := os.WriteFile(configPath, []byte("playback:\n  fps: 30\n  speed_options: [1, 4]\nexport:\n  dir: /tmp/out\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Playback.FPS != 30 {
					t.Errorf("expected fps 30, got %d", cfg.Playback.FPS)
				}
				if len(cfg.Playback.SpeedOptions) != 2 || cfg.Playback.SpeedOptions[1] != 4 {
					t.Errorf("unexpected speed options %v", cfg.Playback.SpeedOptions)
				}
				if cfg.Playback.DefaultSpeed != 1 {
					t.Errorf("missing keys should keep defaults, got speed %v", cfg.Playback.DefaultSpeed)
				}
				if cfg.Export.Dir != "/tmp/out" {
					t.Errorf("expected export dir /tmp/out, got %s", cfg.Export.Dir)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "default_speed") {
					t.Error("existing config file must not be rewritten")
				}
			},
		},
		{
			name: "Env_Override",
			setup: func(t *testing.T) {
				t.Setenv(EnvAddress, "127.0.0.1:9999")
				err := os.WriteFile(configPath, []byte("server:\n  address: localhost:8000\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != "127.0.0.1:9999" {
					t.Errorf("expected env address, got %s", cfg.Server.Address)
				}
			},
			checkFile: func(t *testing.T) {
				content, _ := os.ReadFile(configPath)
				if strings.Contains(string(content), "9999") {
					t.Error("environment override should NOT be persisted to config file")
				}
			},
		},
		{
			name: "DotEnv_File",
			setup: func(t *testing.T) {
				if err := os.WriteFile(envPath, []byte(EnvExportDir+"=/data/exports\n"), 0o644); err != nil {
					t.Fatalf("failed to write .env: %v", err)
				}
				t.Cleanup(func() {
					os.Remove(envPath)
					os.Unsetenv(EnvExportDir)
				})
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Export.Dir != "/data/exports" {
					t.Errorf("expected export dir from .env, got %s", cfg.Export.Dir)
				}
			},
			checkFile: func(t *testing.T) {},
		},
		{
			name: "Path_Env_Expansion",
			setup: func(t *testing.T) {
				t.Setenv("FT_HOME", "/home/ft")
				t.Setenv("APP_DATA", "/app/data")
				err := os.WriteFile(configPath, []byte("db:\n  path: \"$FT_HOME/db.sqlite\"\nexport:\n  dir: \"%APP_DATA%/exports\"\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.DB.Path != "/home/ft/db.sqlite" {
					t.Errorf("expected expanded DB path, got '%s'", cfg.DB.Path)
				}
				if cfg.Export.Dir != "/app/data/exports" {
					t.Errorf("expected expanded export dir, got '%s'", cfg.Export.Dir)
				}
			},
			checkFile: func(t *testing.T) {
				content, _ := os.ReadFile(configPath)
				if !strings.Contains(string(content), "$FT_HOME") || !strings.Contains(string(content), "%APP_DATA%") {
					t.Error("config file should persist raw variable paths")
				}
			},
		},
		{
			name: "Invalid_YAML",
			setup: func(t *testing.T) {
				err := os.WriteFile(configPath, []byte("playback: [not a map]"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_FPS",
			setup: func(t *testing.T) {
				err := os.WriteFile(configPath, []byte("playback:\n  fps: 0\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_Resolution",
			setup: func(t *testing.T) {
				err := os.WriteFile(configPath, []byte("coverage:\n  resolution: 16\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup(t)

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if err == nil {
				tt.validate(t, cfg)
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "default_config.yaml")

	err := GenerateDefault(configPath)
	if err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}

	// Running again should not fail
	err = GenerateDefault(configPath)
	if err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}
}
