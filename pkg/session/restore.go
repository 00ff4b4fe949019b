package session

import (
	"context"
	"errors"
	"log/slog"

	"flighttrack/pkg/config"
	"flighttrack/pkg/store"
)

// Remember records id as the flight to reopen on the next start.
func Remember(ctx context.Context, st store.StateStore, id string) error {
	return st.SetState(ctx, config.KeyLastFlight, id)
}

// TryRestore reopens the last viewed flight if it is still in the library.
// Only the flight is restored; playback always starts stopped at index 0.
func TryRestore(ctx context.Context, st store.Store, s *Session) bool {
	id, found := st.GetState(ctx, config.KeyLastFlight)
	if !found || id == "" {
		return false
	}

	f, err := st.GetFlight(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("Session: Last flight no longer in library", "id", id)
		_ = st.DeleteState(ctx, config.KeyLastFlight)
		return false
	}
	if err != nil {
		slog.Error("Session: Failed to load last flight", "id", id, "error", err)
		return false
	}

	if err := s.Open(ctx, f); err != nil {
		slog.Error("Session: Failed to reopen last flight", "id", id, "error", err)
		return false
	}
	slog.Info("Session: Restored last flight", "id", id, "name", f.Name)
	return true
}
