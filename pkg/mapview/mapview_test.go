package mapview

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttrack/pkg/flight"
	"flighttrack/pkg/playback"
)

func path(n int) []playback.Sample {
	p := make([]playback.Sample, n)
	for i := range p {
		p[i] = playback.Sample{Lat: float64(i), Lon: float64(10 + i), Heading: 90}
	}
	return p
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name          string
		update        playback.Update
		wantTraveled  int
		wantRemaining int
	}{
		{
			name:          "start of track",
			update:        playback.Update{Index: 0, Path: path(5)},
			wantTraveled:  0,
			wantRemaining: 5,
		},
		{
			name:          "middle",
			update:        playback.Update{Index: 2, Progress: 50, Path: path(5)},
			wantTraveled:  3,
			wantRemaining: 3,
		},
		{
			name:          "end of track",
			update:        playback.Update{Index: 4, Progress: 100, Path: path(5)},
			wantTraveled:  5,
			wantRemaining: 0,
		},
		{
			name:          "single sample",
			update:        playback.Update{Index: 0, Path: path(1)},
			wantTraveled:  0,
			wantRemaining: 0,
		},
		{
			name:          "no path",
			update:        playback.Update{Index: 0},
			wantTraveled:  0,
			wantRemaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.update.Path) > 0 {
				tt.update.Sample = tt.update.Path[tt.update.Index]
			}
			f := Compose(tt.update)
			assert.Len(t, f.Traveled, tt.wantTraveled)
			assert.Len(t, f.Remaining, tt.wantRemaining)
			assert.Equal(t, tt.update.Index, f.Index)
			assert.Equal(t, tt.update.Sample.Lat, f.Marker.Lat)
			assert.Equal(t, tt.update.Sample.Lon, f.Marker.Lon)
		})
	}
}

func TestCompose_SplitsAtIndex(t *testing.T) {
	u := playback.Update{Index: 2, Progress: 50, IsPlaying: true, Path: path(5)}
	u.Sample = u.Path[2]
	f := Compose(u)

	require.Len(t, f.Traveled, 3)
	assert.Equal(t, orb.Point{10, 0}, f.Traveled[0])
	assert.Equal(t, orb.Point{12, 2}, f.Traveled[2], "traveled ends at the marker")
	assert.Equal(t, f.Traveled[2], f.Remaining[0], "remaining starts at the marker")
	assert.Equal(t, 90.0, f.Marker.Heading)
	assert.Equal(t, "50%", f.ProgressLabel)
	assert.True(t, f.IsPlaying)
}

func TestFeatureCollection(t *testing.T) {
	u := playback.Update{Index: 1, Progress: 25, Path: path(5)}
	u.Sample = u.Path[1]
	fc := FeatureCollection(Compose(u))

	require.Len(t, fc.Features, 3)
	assert.Equal(t, KindTraveled, fc.Features[0].Properties["kind"])
	assert.Equal(t, KindRemaining, fc.Features[1].Properties["kind"])
	ac := fc.Features[2]
	assert.Equal(t, KindAircraft, ac.Properties["kind"])
	assert.Equal(t, orb.Point{11, 1}, ac.Geometry)
	assert.Equal(t, 25.0, ac.Properties["progress"])

	raw, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"FeatureCollection"`)
}

func TestFeatureCollection_AircraftOnly(t *testing.T) {
	u := playback.Update{Path: path(1)}
	u.Sample = u.Path[0]
	fc := FeatureCollection(Compose(u))
	require.Len(t, fc.Features, 1)
	assert.Equal(t, KindAircraft, fc.Features[0].Properties["kind"])
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0%"},
		{49.4, "49%"},
		{49.5, "50%"},
		{100, "100%"},
		{math.NaN(), "0%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPercent(tt.in))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0m 0s"},
		{59.9, "0m 59s"},
		{725, "12m 5s"},
		{3600, "60m 0s"},
		{-3, "0m 0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestInfoOf(t *testing.T) {
	info := InfoOf(flight.Statistics{
		TotalPoints:   120,
		Callsign:      "DLH4AB",
		MaxAltitude:   36000,
		MaxSpeed:      480,
		TotalDistance: 123456,
		Duration:      725,
	})
	assert.Equal(t, Info{
		Callsign:    "DLH4AB",
		MaxAltitude: "36000 ft",
		MaxSpeed:    "480 kts",
		Distance:    "123.46 km",
		Duration:    "12m 5s",
		Points:      "120",
	}, info)
}
