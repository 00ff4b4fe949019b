package store

import (
	"context"
	"errors"
	"time"

	"flighttrack/pkg/flight"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// FlightSummary is a library listing entry; the full record is loaded on demand.
type FlightSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Callsign    string    `json:"callsign"`
	TotalPoints int       `json:"totalPoints"`
	SourceFile  string    `json:"sourceFile"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FlightStore handles the library of processed flights.
type FlightStore interface {
	SaveFlight(ctx context.Context, f *flight.Flight, sourceFile string) error
	GetFlight(ctx context.Context, id string) (*flight.Flight, error)
	ListFlights(ctx context.Context, limit int) ([]FlightSummary, error)
	DeleteFlight(ctx context.Context, id string) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
