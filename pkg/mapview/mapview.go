// Package mapview turns playback updates into renderable map frames.
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"flighttrack/pkg/playback"
)

// Marker is the aircraft icon position and rotation.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Heading float64 `json:"heading"`
}

// Frame is everything a renderer needs to draw one playback update.
type Frame struct {
	Marker        Marker         `json:"marker"`
	Index         int            `json:"index"`
	Progress      float64        `json:"progress"`
	ProgressLabel string         `json:"progressLabel"`
	IsPlaying     bool           `json:"isPlaying"`
	Traveled      orb.LineString `json:"traveled"`
	Remaining     orb.LineString `json:"remaining"`
}

// Compose builds a frame from u. The traveled line covers path[0..Index]
// and the remaining line path[Index..]; a line with fewer than two points
// is left empty since it cannot be drawn.
func Compose(u playback.Update) Frame {
	f := Frame{
		Marker:        Marker{Lat: u.Sample.Lat, Lon: u.Sample.Lon, Heading: u.Sample.Heading},
		Index:         u.Index,
		Progress:      u.Progress,
		ProgressLabel: FormatPercent(u.Progress),
		IsPlaying:     u.IsPlaying,
	}

	if len(u.Path) == 0 {
		return f
	}
	i := min(max(u.Index, 0), len(u.Path)-1)
	f.Traveled = lineOf(u.Path[:i+1])
	f.Remaining = lineOf(u.Path[i:])
	return f
}

func lineOf(samples []playback.Sample) orb.LineString {
	if len(samples) < 2 {
		return nil
	}
	ls := make(orb.LineString, len(samples))
	for i, s := range samples {
		ls[i] = orb.Point{s.Lon, s.Lat}
	}
	return ls
}

// Feature kinds used in FeatureCollection output.
const (
	KindTraveled  = "traveled"
	KindRemaining = "remaining"
	KindAircraft  = "aircraft"
)

// FeatureCollection renders f as GeoJSON: the traveled and remaining lines
// (when drawable) followed by the aircraft point.
func FeatureCollection(f Frame) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(f.Traveled) > 0 {
		feat := geojson.NewFeature(f.Traveled)
		feat.Properties["kind"] = KindTraveled
		fc.Append(feat)
	}
	if len(f.Remaining) > 0 {
		feat := geojson.NewFeature(f.Remaining)
		feat.Properties["kind"] = KindRemaining
		fc.Append(feat)
	}

	ac := geojson.NewFeature(orb.Point{f.Marker.Lon, f.Marker.Lat})
	ac.Properties["kind"] = KindAircraft
	ac.Properties["heading"] = f.Marker.Heading
	ac.Properties["index"] = f.Index
	ac.Properties["progress"] = f.Progress
	ac.Properties["isPlaying"] = f.IsPlaying
	fc.Append(ac)

	return fc
}
