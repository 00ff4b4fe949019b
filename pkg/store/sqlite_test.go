package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"flighttrack/pkg/db"
	"flighttrack/pkg/flight"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewSQLiteStore(d)
}

func testFlight(id, name string, points int) *flight.Flight {
	f := &flight.Flight{ID: id, Name: name}
	for i := 0; i < points; i++ {
		f.Points = append(f.Points, flight.Point{
			Timestamp: int64(i),
			Callsign:  "TST1",
			Latitude:  50 + float64(i)*0.01,
			Longitude: 8,
			Altitude:  1000 * i,
		})
	}
	f.Statistics = flight.Statistics{TotalPoints: points, Callsign: "TST1", MaxAltitude: 1000 * (points - 1)}
	f.Plots.Altitude = flight.Series{X: []float64{0, 1}, Y: []float64{0, 1000}, Label: "Altitude (ft)"}
	return f
}

func TestFlightStore_SaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	in := testFlight("f1", "morning", 3)
	if err := s.SaveFlight(ctx, in, "morning.csv"); err != nil {
		t.Fatalf("SaveFlight failed: %v", err)
	}

	out, err := s.GetFlight(ctx, "f1")
	if err != nil {
		t.Fatalf("GetFlight failed: %v", err)
	}
	if out.Name != "morning" {
		t.Errorf("Name mismatch: %q", out.Name)
	}
	if len(out.Points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(out.Points))
	}
	if out.Points[2].Latitude != in.Points[2].Latitude {
		t.Errorf("Latitude mismatch: %v", out.Points[2].Latitude)
	}
	if out.Statistics.MaxAltitude != 2000 {
		t.Errorf("MaxAltitude mismatch: %v", out.Statistics.MaxAltitude)
	}
	if out.Plots.Altitude.Label != "Altitude (ft)" {
		t.Errorf("Plot label mismatch: %q", out.Plots.Altitude.Label)
	}

	// Saving again replaces the record.
	in.Name = "renamed"
	if err := s.SaveFlight(ctx, in, "morning.csv"); err != nil {
		t.Fatalf("second SaveFlight failed: %v", err)
	}
	list, err := s.ListFlights(ctx, 0)
	if err != nil {
		t.Fatalf("ListFlights failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "renamed" {
		t.Errorf("Expected one renamed flight, got %+v", list)
	}
}

func TestFlightStore_SaveWithoutID(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SaveFlight(context.Background(), &flight.Flight{}, ""); err == nil {
		t.Error("Expected error for flight without id")
	}
}

func TestFlightStore_NotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.GetFlight(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFlight: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteFlight(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteFlight: expected ErrNotFound, got %v", err)
	}
}

func TestFlightStore_ListFlights(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		saved   []string
		limit   int
		wantIDs []string
	}{
		{
			name:    "empty library",
			limit:   10,
			wantIDs: nil,
		},
		{
			name:    "newest first",
			saved:   []string{"a", "b", "c"},
			limit:   0,
			wantIDs: []string{"c", "b", "a"},
		},
		{
			name:    "limit applies",
			saved:   []string{"a", "b", "c"},
			limit:   2,
			wantIDs: []string{"c", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			for _, id := range tt.saved {
				if err := s.SaveFlight(ctx, testFlight(id, "flight "+id, 2), id+".csv"); err != nil {
					t.Fatalf("SaveFlight(%s) failed: %v", id, err)
				}
			}

			list, err := s.ListFlights(ctx, tt.limit)
			if err != nil {
				t.Fatalf("ListFlights failed: %v", err)
			}
			if len(list) != len(tt.wantIDs) {
				t.Fatalf("Expected %d flights, got %d", len(tt.wantIDs), len(list))
			}
			for i, want := range tt.wantIDs {
				if list[i].ID != want {
					t.Errorf("list[%d] = %s, want %s", i, list[i].ID, want)
				}
				if list[i].SourceFile != want+".csv" {
					t.Errorf("list[%d].SourceFile = %s", i, list[i].SourceFile)
				}
				if list[i].Callsign != "TST1" || list[i].TotalPoints != 2 {
					t.Errorf("list[%d] summary mismatch: %+v", i, list[i])
				}
				if list[i].CreatedAt.IsZero() {
					t.Errorf("list[%d] has no creation time", i)
				}
			}
		})
	}
}

func TestFlightStore_Delete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_ = s.SaveFlight(ctx, testFlight("gone", "gone", 2), "")
	if err := s.DeleteFlight(ctx, "gone"); err != nil {
		t.Fatalf("DeleteFlight failed: %v", err)
	}
	if _, err := s.GetFlight(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestStateStore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, hit := s.GetState(ctx, "my_key"); hit {
		t.Error("Expected state miss")
	}
	if err := s.SetState(ctx, "my_key", "my_val"); err != nil {
		t.Errorf("SetState failed: %v", err)
	}
	sVal, sHit := s.GetState(ctx, "my_key")
	if !sHit {
		t.Error("Expected state hit")
	}
	if sVal != "my_val" {
		t.Errorf("Expected 'my_val', got '%s'", sVal)
	}
	if err := s.DeleteState(ctx, "my_key"); err != nil {
		t.Errorf("DeleteState failed: %v", err)
	}
	if _, hit := s.GetState(ctx, "my_key"); hit {
		t.Error("Expected state miss after delete")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	in := []byte(`{"id":"x","flightPoints":[]}`)
	c, err := compress(in)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	out, err := decompress(c)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if string(out) != string(in) {
		t.Errorf("round trip mismatch: %s", out)
	}
}
