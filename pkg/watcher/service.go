// Package watcher polls library inbox directories for new flight exports.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Extensions are the file types treated as flight exports.
var Extensions = []string{".csv", ".tsv"}

// Service monitors directories for flight exports written since the last check.
type Service struct {
	paths       []string
	mu          sync.Mutex
	lastChecked time.Time
	seen        map[string]time.Time
}

// NewService creates a monitor for paths. Missing directories are tolerated;
// they are picked up once they appear.
func NewService(paths []string) *Service {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			slog.Warn("Watcher: Inbox directory does not exist yet", "path", path)
		}
	}
	return &Service{
		paths:       paths,
		lastChecked: time.Now(),
		seen:        make(map[string]time.Time),
	}
}

// CheckNew returns the exports created or modified since the previous call,
// oldest first. A file rewritten in place is reported again.
func (s *Service) CheckNew() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	type found struct {
		path string
		mod  time.Time
	}
	var fresh []found
	newest := s.lastChecked

	for _, dir := range s.paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !isExport(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			mod := info.ModTime()
			path := filepath.Join(dir, entry.Name())
			if !mod.After(s.lastChecked) {
				continue
			}
			if prev, ok := s.seen[path]; ok && !mod.After(prev) {
				continue
			}
			s.seen[path] = mod
			fresh = append(fresh, found{path, mod})
			if mod.After(newest) {
				newest = mod
			}
		}
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i].mod.Before(fresh[j].mod) })
	out := make([]string, len(fresh))
	for i, f := range fresh {
		out[i] = f.path
	}
	if len(out) > 0 {
		slog.Info("Watcher: New flight exports detected", "count", len(out))
	}
	return out
}

// Run polls every interval and calls onNew with each non-empty batch until
// ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration, onNew func(ctx context.Context, files []string)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if files := s.CheckNew(); len(files) > 0 {
				onNew(ctx, files)
			}
		}
	}
}

func isExport(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
