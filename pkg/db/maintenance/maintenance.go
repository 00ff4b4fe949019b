package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"flighttrack/pkg/db"
	"flighttrack/pkg/flight"
	"flighttrack/pkg/store"
)

const importStatePrefix = "import_mtime:"

// Options controls the maintenance run.
type Options struct {
	// ImportDir is scanned for *.csv / *.tsv flight exports. Empty disables import.
	ImportDir string
	// Retention drops library entries older than this. Zero keeps everything.
	Retention time.Duration
	// MaxFlights caps the library size. Zero means unlimited.
	MaxFlights int
}

// Run executes all maintenance tasks: Import and Pruning.
// It blocks until completion. Failures are logged, not returned, so they
// never stop startup.
func Run(ctx context.Context, s store.Store, d *db.DB, p *flight.Processor, opts Options) error {
	slog.Info("Starting database maintenance...")

	if opts.ImportDir != "" {
		n, err := importDir(ctx, s, p, opts.ImportDir)
		if err != nil {
			slog.Error("Flight import failed", "error", err)
		} else {
			slog.Info("Flight import check completed", "imported", n)
		}
	}

	if err := prune(d, opts); err != nil {
		slog.Error("Library pruning failed", "error", err)
	} else {
		slog.Info("Library pruning completed")
	}

	return nil
}

// importDir processes exports whose modification time changed since the
// last run. A file that fails to parse is skipped and retried next time.
func importDir(ctx context.Context, s store.Store, p *flight.Processor, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil // Nothing to import
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read import dir: %w", err)
	}

	count := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".csv" && ext != ".tsv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		key := importStatePrefix + e.Name()
		mtime := info.ModTime().UTC().Format(time.RFC3339)
		if stored, found := s.GetState(ctx, key); found && stored == mtime {
			continue // Up to date
		}

		if err := importFile(ctx, s, p, filepath.Join(dir, e.Name())); err != nil {
			slog.Warn("Skipping flight export", "file", e.Name(), "error", err)
			continue
		}
		if err := s.SetState(ctx, key, mtime); err != nil {
			return count, fmt.Errorf("failed to update state: %w", err)
		}
		count++
	}
	return count, nil
}

func importFile(ctx context.Context, s store.Store, p *flight.Processor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	fl, err := p.Process(f, filepath.Base(path))
	if err != nil {
		return err
	}
	slog.Info("Imported flight", "file", filepath.Base(path), "id", fl.ID, "points", len(fl.Points))
	return s.SaveFlight(ctx, fl, filepath.Base(path))
}

func prune(d *db.DB, opts Options) error {
	if opts.Retention > 0 {
		n, err := d.PruneFlights(opts.Retention)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("Pruned expired flights", "count", n)
		}
	}
	if opts.MaxFlights > 0 {
		n, err := d.TrimFlights(opts.MaxFlights)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("Trimmed flight library", "count", n, "keep", opts.MaxFlights)
		}
	}
	return nil
}
