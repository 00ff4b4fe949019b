// Command flighttrack-tui plays a flight back in the terminal.
//
//	flighttrack-tui path/to/export.csv
//	flighttrack-tui -id <library flight id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"flighttrack/pkg/config"
	"flighttrack/pkg/db"
	"flighttrack/pkg/flight"
	"flighttrack/pkg/store"
)

var (
	configPath = flag.String("config", "configs/flighttrack.yaml", "Path to the config file")
	flightID   = flag.String("id", "", "Library flight to play instead of a file")
	callsign   = flag.String("callsign", "", "Aircraft to keep when the export mixes several")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	f, err := loadFlight(context.Background(), cfg, flag.Arg(0), *flightID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m, err := newModel(f, cfg.Playback)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadFlight(ctx context.Context, cfg *config.Config, path, id string) (*flight.Flight, error) {
	switch {
	case id != "":
		d, err := db.Init(cfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open library: %w", err)
		}
		defer d.Close()
		return store.NewSQLiteStore(d).GetFlight(ctx, id)
	case path != "":
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		opts := flight.DefaultOptions()
		opts.CoverageResolution = cfg.Coverage.Resolution
		opts.Callsign = *callsign
		return flight.NewProcessor(opts).Process(file, filepath.Base(path))
	default:
		return nil, errors.New("usage: flighttrack-tui <export.csv> | -id <flight id>")
	}
}
