package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m", 1 * time.Minute, false},
		{"1.5h", 90 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 168 * time.Hour, false},
		{"2d2h", 50 * time.Hour, false},
		{"100ms", 100 * time.Millisecond, false},
		{"", 0, false},
		{"invalid", 0, true},
		{"3dx", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestDurationYAML(t *testing.T) {
	type testConfig struct {
		Retention Duration `yaml:"retention"`
	}

	var cfg testConfig
	if err := yaml.Unmarshal([]byte("retention: 2d\n"), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if time.Duration(cfg.Retention) != 48*time.Hour {
		t.Errorf("Expected 48h, got %v", time.Duration(cfg.Retention))
	}

	tests := []struct {
		in   Duration
		want string
	}{
		{Duration(2 * Day), "retention: 2d"},
		{Duration(3 * Week), "retention: 3w"},
		{Duration(90 * time.Second), "retention: 1m30s"},
		{Duration(0), "retention: 0s"},
	}
	for _, tt := range tests {
		out, err := yaml.Marshal(testConfig{Retention: tt.in})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if got := strings.TrimSpace(string(out)); got != tt.want {
			t.Errorf("Marshal(%v) = %q, want %q", time.Duration(tt.in), got, tt.want)
		}
	}
}
