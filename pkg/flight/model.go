// Package flight holds the processed flight record consumed by the viewer.
package flight

import (
	"github.com/paulmach/orb"

	"flighttrack/pkg/geo"
	"flighttrack/pkg/playback"
)

// Point is one processed row of a recorded flight.
type Point struct {
	Timestamp         int64   `json:"timestamp"`
	UTC               string  `json:"utc"`
	Callsign          string  `json:"callsign"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Altitude          int     `json:"altitude"` // Feet
	Speed             int     `json:"speed"`    // Knots
	Heading           float64 `json:"heading"`  // Degrees true
	DistanceFromStart float64 `json:"distanceFromStart"`
	RelativeTime      float64 `json:"relativeTime"` // Seconds since first point
}

// Statistics summarizes a flight.
type Statistics struct {
	TotalPoints   int        `json:"totalPoints"`
	Callsign      string     `json:"callsign"`
	MaxAltitude   int        `json:"maxAltitude"`
	MaxSpeed      int        `json:"maxSpeed"`
	TotalDistance float64    `json:"totalDistance"` // Meters, furthest from start
	Duration      float64    `json:"duration"`      // Seconds
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
	Bounds        geo.Bounds `json:"bounds"`
	CoverageCells int        `json:"coverageCells"`

	// ViewBounds is the padded initial map extent, ignoring outliers.
	ViewBounds geo.Bounds `json:"viewBounds"`
	// LiftoffIndex and TouchdownIndex bracket the airborne part of the
	// track; both are -1 when every altitude is zero.
	LiftoffIndex   int `json:"liftoffIndex"`
	TouchdownIndex int `json:"touchdownIndex"`

	// MaxRadiusNM is the furthest the aircraft got from the reference point
	// (the first fix unless Options.Reference is set), reached at
	// MaxRadiusIndex.
	Reference      geo.Point `json:"reference"`
	MaxRadiusNM    float64   `json:"maxRadiusNm"`
	MaxRadiusIndex int       `json:"maxRadiusIndex"`
}

// Series is one chart's data.
type Series struct {
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
	Label string    `json:"label"`
}

// Plots holds the time series charts of a flight.
type Plots struct {
	Altitude Series `json:"altitude"`
	Speed    Series `json:"speed"`
	Distance Series `json:"distance"`
}

// Chart names accepted by Plots.Get.
const (
	ChartAltitude = "altitude"
	ChartSpeed    = "speed"
	ChartDistance = "distance"
)

// Get returns the named series.
func (p *Plots) Get(name string) (Series, bool) {
	switch name {
	case ChartAltitude:
		return p.Altitude, true
	case ChartSpeed:
		return p.Speed, true
	case ChartDistance:
		return p.Distance, true
	}
	return Series{}, false
}

// Flight is a fully processed flight record.
type Flight struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Points     []Point    `json:"flightPoints"`
	Statistics Statistics `json:"statistics"`
	Plots      Plots      `json:"plots"`
}

// Samples returns the playback sequence for the flight.
func (f *Flight) Samples() []playback.Sample {
	seq := make([]playback.Sample, len(f.Points))
	for i, p := range f.Points {
		seq[i] = playback.Sample{Lat: p.Latitude, Lon: p.Longitude, Heading: p.Heading}
	}
	return seq
}

// Path returns the track as an orb line in (lon, lat) order.
func (f *Flight) Path() orb.LineString {
	return geo.LineString(f.positions())
}

// FrameIndex returns point indices spaced at least step seconds of flight
// time apart, starting with 0. Each pick advances the next target by one
// step, so a gap in the recording yields one index, not several. A
// non-positive step returns every index.
func (f *Flight) FrameIndex(step float64) []int {
	if len(f.Points) < 2 {
		return []int{0}
	}
	idx := []int{0}
	if step <= 0 {
		for i := 1; i < len(f.Points); i++ {
			idx = append(idx, i)
		}
		return idx
	}
	next := step
	for i := 1; i < len(f.Points); i++ {
		if f.Points[i].RelativeTime >= next {
			idx = append(idx, i)
			next += step
		}
	}
	return idx
}

func (f *Flight) positions() []geo.Point {
	pts := make([]geo.Point, len(f.Points))
	for i, p := range f.Points {
		pts[i] = geo.Point{Lat: p.Latitude, Lon: p.Longitude}
	}
	return pts
}
