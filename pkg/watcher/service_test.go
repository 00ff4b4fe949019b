package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestService_CheckNew(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	// Present before the service started: ignored.
	writeFile(t, filepath.Join(dir1, "old.csv"), "x", time.Now().Add(-time.Hour))

	s := NewService([]string{dir1, dir2, filepath.Join(dir1, "missing")})

	// 1. Initial check - should be empty
	if got := s.CheckNew(); len(got) != 0 {
		t.Errorf("Initial CheckNew() = %v, want none", got)
	}

	// 2. New exports in both dirs, reported oldest first
	now := time.Now()
	second := filepath.Join(dir1, "b.tsv")
	first := filepath.Join(dir2, "a.CSV")
	writeFile(t, second, "b", now.Add(2*time.Second))
	writeFile(t, first, "a", now.Add(time.Second))
	writeFile(t, filepath.Join(dir2, "notes.txt"), "ignored", now.Add(time.Second))

	got := s.CheckNew()
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Errorf("CheckNew() = %v, want [%s %s]", got, first, second)
	}

	// 3. Repeated check - should be empty
	if got := s.CheckNew(); len(got) != 0 {
		t.Errorf("Repeat CheckNew() = %v, want none", got)
	}

	// 4. Rewritten in place - reported again
	writeFile(t, first, "a2", now.Add(5*time.Second))
	got = s.CheckNew()
	if len(got) != 1 || got[0] != first {
		t.Errorf("CheckNew() after rewrite = %v, want [%s]", got, first)
	}
}

func TestService_Run(t *testing.T) {
	dir := t.TempDir()
	s := NewService([]string{dir})

	var mu sync.Mutex
	var batches [][]string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, 5*time.Millisecond, func(_ context.Context, files []string) {
			mu.Lock()
			batches = append(batches, files)
			mu.Unlock()
		})
	}()

	writeFile(t, filepath.Join(dir, "flight.csv"), "x", time.Now().Add(time.Second))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(batches)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches = %v, want one batch with one file", batches)
	}
}

func TestService_RunDisabled(t *testing.T) {
	s := NewService(nil)
	// Returns immediately without an interval.
	s.Run(context.Background(), 0, func(context.Context, []string) { t.Error("unexpected call") })
}
