package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"flighttrack/pkg/db"
	"flighttrack/pkg/flight"
)

// Store composes all sub-interfaces.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	FlightStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Same layout as SQLite CURRENT_TIMESTAMP, so db pruning can compare strings.
const timeLayout = "2006-01-02 15:04:05"

// --- Flights ---

func (s *SQLiteStore) SaveFlight(ctx context.Context, f *flight.Flight, sourceFile string) error {
	if f.ID == "" {
		return errors.New("flight has no id")
	}

	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode flight: %w", err)
	}
	data, err := compress(raw)
	if err != nil {
		return fmt.Errorf("failed to compress flight: %w", err)
	}

	query := `INSERT OR REPLACE INTO flights (id, name, callsign, total_points, source_file, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		f.ID, f.Name, f.Statistics.Callsign, f.Statistics.TotalPoints, sourceFile,
		time.Now().UTC().Format(timeLayout), data,
	)
	return err
}

func (s *SQLiteStore) GetFlight(ctx context.Context, id string) (*flight.Flight, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM flights WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flight %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress flight %s: %w", id, err)
	}
	var f flight.Flight
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode flight %s: %w", id, err)
	}
	return &f, nil
}

// ListFlights returns the newest flights first. limit <= 0 means no limit.
func (s *SQLiteStore) ListFlights(ctx context.Context, limit int) ([]FlightSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, callsign, total_points, source_file, CAST(created_at AS TEXT)
		 FROM flights ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FlightSummary
	for rows.Next() {
		var fs FlightSummary
		var created string
		if err := rows.Scan(&fs.ID, &fs.Name, &fs.Callsign, &fs.TotalPoints, &fs.SourceFile, &created); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, created); err == nil {
			fs.CreatedAt = t
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteFlight(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM flights WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("flight %s: %w", id, ErrNotFound)
	}
	return nil
}

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() any {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
