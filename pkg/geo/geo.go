package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadius is the mean Earth radius in meters used for track distances.
const EarthRadius = 6371000

// MetersPerNM is one international nautical mile.
const MetersPerNM = 1852

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Orb returns the point in orb's (lon, lat) order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// DistanceNM is Distance in nautical miles.
func DistanceNM(p1, p2 Point) float64 {
	return Distance(p1, p2) / MetersPerNM
}

// Bearing calculates the initial bearing from p1 to p2 in degrees [0,360).
func Bearing(p1, p2 Point) float64 {
	return NormalizeHeading(orbgeo.Bearing(p1.Orb(), p2.Orb()))
}

// NormalizeHeading maps any angle to [0,360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	// -0.0 and float rounding up to 360.
	if h >= 360 || h == 0 {
		return 0
	}
	return h
}

// NormalizeAngle normalizes an angle difference to the range [-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg < -180 {
		angleDeg += 360
	}
	return angleDeg
}

// Bounds is the north/south/east/west extent of a set of points.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// BoundsOf returns the extent of points. Zero value for no points.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := LineString(points).Bound()
	return Bounds{
		North: b.Top(),
		South: b.Bottom(),
		East:  b.Right(),
		West:  b.Left(),
	}
}

// LineString converts points to an orb line in (lon, lat) order.
func LineString(points []Point) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = p.Orb()
	}
	return ls
}

// ViewOptions tune SmartBounds.
type ViewOptions struct {
	LowQuantile  float64 // e.g. 0.01
	HighQuantile float64 // e.g. 0.99
	PadFraction  float64 // padding as a fraction of the span
	MinPadDeg    float64 // lower bound on padding, degrees
}

// DefaultViewOptions frames the central 98% of a track with 5% padding.
func DefaultViewOptions() ViewOptions {
	return ViewOptions{LowQuantile: 0.01, HighQuantile: 0.99, PadFraction: 0.05, MinPadDeg: 0.01}
}

// SmartBounds returns a padded map extent built from coordinate quantiles
// so isolated outliers do not blow up the initial view. It needs at least
// two points; with a degenerate quantile range it falls back to min/max.
func SmartBounds(points []Point, opts ViewOptions) (Bounds, error) {
	if len(points) < 2 {
		return Bounds{}, fmt.Errorf("need at least 2 points for view bounds, got %d", len(points))
	}
	if !(opts.LowQuantile >= 0 && opts.LowQuantile < opts.HighQuantile && opts.HighQuantile <= 1) {
		return Bounds{}, fmt.Errorf("invalid quantiles [%v, %v]", opts.LowQuantile, opts.HighQuantile)
	}

	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i], lons[i] = p.Lat, p.Lon
	}
	sort.Float64s(lats)
	sort.Float64s(lons)

	latLo, latHi := quantile(lats, opts.LowQuantile), quantile(lats, opts.HighQuantile)
	lonLo, lonHi := quantile(lons, opts.LowQuantile), quantile(lons, opts.HighQuantile)
	if !(latHi > latLo) {
		latLo, latHi = lats[0], lats[len(lats)-1]
	}
	if !(lonHi > lonLo) {
		lonLo, lonHi = lons[0], lons[len(lons)-1]
	}

	latPad := math.Max((latHi-latLo)*opts.PadFraction, opts.MinPadDeg)
	lonPad := math.Max((lonHi-lonLo)*opts.PadFraction, opts.MinPadDeg)

	return Bounds{
		North: latHi + latPad,
		South: latLo - latPad,
		East:  lonHi + lonPad,
		West:  lonLo - lonPad,
	}, nil
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
