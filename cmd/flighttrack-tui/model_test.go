package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttrack/pkg/config"
	"flighttrack/pkg/flight"
	"flighttrack/pkg/geo"
	"flighttrack/pkg/mapview"
	"flighttrack/pkg/playback"
)

const testCSV = `Timestamp,UTC,Callsign,Position,Altitude,Speed,Direction
1700000000,2023-11-14T22:13:20Z,DLH4AB,"50.0,8.00",0,0,90
1700000010,2023-11-14T22:13:30Z,DLH4AB,"50.0,8.01",500,120,90
1700000020,2023-11-14T22:13:40Z,DLH4AB,"50.0,8.02",1500,160,90
1700000030,2023-11-14T22:13:50Z,DLH4AB,"50.0,8.03",2500,180,90
1700000040,2023-11-14T22:14:00Z,DLH4AB,"50.0,8.04",3000,200,90
`

func testModel(t *testing.T) *model {
	t.Helper()
	f, err := flight.Parse(strings.NewReader(testCSV), "DLH4AB.csv")
	require.NoError(t, err)
	m, err := newModel(f, config.PlaybackConfig{
		FPS:          60,
		DefaultSpeed: 1,
		SpeedOptions: []float64{0.5, 1, 2, 5},
		SeekStep:     25,
	})
	require.NoError(t, err)
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_Open(t *testing.T) {
	m := testModel(t)
	require.NotNil(t, m.last, "attach frame")
	assert.Equal(t, 0, m.last.Index)
	assert.Equal(t, time.Second/60, m.interval)
	assert.NotNil(t, m.Init())

	st := m.state()
	assert.Equal(t, playback.StatusStopped, st.Status)
	assert.Equal(t, 5, st.Length)
}

func TestModel_PlayToEnd(t *testing.T) {
	m := testModel(t)

	_, cmd := m.Update(key(" "))
	assert.Nil(t, cmd)
	assert.True(t, m.state().IsPlaying)

	// One sample per frame at speed 1.
	for i := 0; i < 10; i++ {
		_, cmd = m.Update(frameMsg(time.Now()))
		assert.NotNil(t, cmd, "next frame scheduled")
	}

	st := m.state()
	assert.False(t, st.IsPlaying)
	assert.Equal(t, 4, st.Index)
	assert.Equal(t, 100.0, m.last.Progress)
}

func TestModel_Keys(t *testing.T) {
	m := testModel(t)

	m.Update(key("right"))
	assert.Equal(t, 1, m.state().Index)
	m.Update(key("right"))
	assert.Equal(t, 2, m.state().Index)
	m.Update(key("left"))
	assert.Equal(t, 1, m.state().Index)

	m.Update(key("r"))
	assert.Equal(t, 0, m.state().Index)

	m.Update(key("+"))
	assert.Equal(t, 2.0, m.state().Speed)
	m.Update(key("+"))
	m.Update(key("+"))
	assert.Equal(t, 5.0, m.state().Speed, "clamped at the fastest option")
	m.Update(key("-"))
	assert.Equal(t, 2.0, m.state().Speed)

	m.Update(key("b"))
	assert.Equal(t, -2.0, m.state().Speed)
	m.Update(key("+"))
	assert.Equal(t, -5.0, m.state().Speed, "direction kept")

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, playback.StatusIdle, m.state().Status)
}

func TestModel_View(t *testing.T) {
	m := testModel(t)
	m.Update(key("right"))
	m.Update(key("right"))

	v := m.View()
	assert.Contains(t, v, "DLH4AB")
	assert.Contains(t, v, "50%")
	assert.Contains(t, v, "3 / 5")
	assert.Contains(t, v, "1500 ft")
}

func TestStepSpeed(t *testing.T) {
	speeds := []float64{0.5, 1, 2, 5}
	tests := []struct {
		cur  float64
		dir  int
		want float64
	}{
		{1, 1, 2},
		{1, -1, 0.5},
		{0.5, -1, 0.5},
		{3, 1, 5},
		{3, -1, 2},
		{0, 1, 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextSpeed(speeds, tt.cur, tt.dir), "cur=%v dir=%d", tt.cur, tt.dir)
	}
}

func TestHeadingGlyph(t *testing.T) {
	assert.Equal(t, '↑', headingGlyph(0))
	assert.Equal(t, '↑', headingGlyph(359))
	assert.Equal(t, '→', headingGlyph(90))
	assert.Equal(t, '↙', headingGlyph(225))
	assert.Equal(t, '←', headingGlyph(-90))
}

func TestRenderTrack(t *testing.T) {
	path := []playback.Sample{{Lat: 0, Lon: 0, Heading: 90}, {Lat: 0, Lon: 5}, {Lat: 0, Lon: 10}}
	f := mapview.Compose(playback.Update{Index: 1, Sample: path[1], Path: path})
	out := renderTrack(f, geo.Bounds{North: 1, South: -1, East: 10, West: 0}, 10, 3)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5, "border plus rows")
	assert.Contains(t, out, "•")
	assert.Contains(t, out, "·")
	assert.Contains(t, out, "↑")
}

func TestProgressBar(t *testing.T) {
	assert.True(t, strings.HasSuffix(progressBar(50, 10), " 50%"))
	assert.Equal(t, 10, strings.Count(progressBar(150, 10), "█"))
	assert.Equal(t, 10, strings.Count(progressBar(-5, 10), "░"))
}
