package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"flighttrack/pkg/config"
	"flighttrack/pkg/flight"
	"flighttrack/pkg/mapview"
	"flighttrack/pkg/playback"
	"flighttrack/pkg/playback/frame"
	"flighttrack/pkg/session"
)

// Track viewport dimensions
const (
	trackWidth  = 72
	trackHeight = 22
)

type frameMsg time.Time

// model drives the session from Bubble Tea's update goroutine. Each frameMsg
// steps the manual scheduler once, so the engine never runs concurrently.
type model struct {
	flight   *flight.Flight
	sched    *frame.Manual
	sess     *session.Session
	last     *playback.Update
	interval time.Duration
	speeds   []float64
	seekStep float64
	err      error
}

func newModel(f *flight.Flight, cfg config.PlaybackConfig) (*model, error) {
	fps := cfg.FPS
	if fps <= 0 {
		fps = frame.DefaultFPS
	}
	m := &model{
		flight:   f,
		sched:    frame.NewManual(),
		interval: time.Second / time.Duration(fps),
		speeds:   cfg.SpeedOptions,
		seekStep: cfg.SeekStep,
	}
	if len(m.speeds) == 0 {
		m.speeds = []float64{1}
	}
	if m.seekStep <= 0 {
		m.seekStep = 5
	}

	m.sess = session.New(m.sched, session.WithSpeed(cfg.DefaultSpeed))
	m.sess.Subscribe(func(u playback.Update) { m.last = &u })
	if err := m.sess.Open(context.Background(), f); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *model) nextFrame() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *model) Init() tea.Cmd {
	return m.nextFrame()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.err = nil
		switch msg.String() {
		case "ctrl+c", "q":
			_ = m.sess.Close(ctx)
			return m, tea.Quit
		case " ", "p":
			_, m.err = m.sess.Toggle(ctx)
		case "r", "home":
			_, m.err = m.sess.Reset(ctx)
		case "end":
			_, m.err = m.sess.Seek(ctx, 100)
		case "right", "l":
			_, m.err = m.sess.Seek(ctx, m.progress()+m.seekStep)
		case "left", "h":
			_, m.err = m.sess.Seek(ctx, m.progress()-m.seekStep)
		case "+", "=":
			_, m.err = m.sess.SetSpeed(ctx, m.stepSpeed(1))
		case "-", "_":
			_, m.err = m.sess.SetSpeed(ctx, m.stepSpeed(-1))
		case "b":
			_, m.err = m.sess.SetSpeed(ctx, -m.speed())
		}

	case frameMsg:
		m.sched.Step()
		return m, m.nextFrame()
	}
	return m, nil
}

func (m *model) state() playback.State {
	st, err := m.sess.State(context.Background())
	if err != nil {
		return playback.State{}
	}
	return st
}

func (m *model) progress() float64 { return m.state().Progress }

func (m *model) speed() float64 { return m.state().Speed }

func (m *model) stepSpeed(dir int) float64 {
	return nextSpeed(m.speeds, m.speed(), dir)
}

// nextSpeed moves to the next or previous option in speeds, keeping the
// sign of cur. speeds must be sorted ascending and non-empty.
func nextSpeed(speeds []float64, cur float64, dir int) float64 {
	sign := 1.0
	if cur < 0 {
		sign, cur = -1, -cur
	}
	i := 0
	for i < len(speeds)-1 && speeds[i] < cur {
		i++
	}
	if speeds[i] == cur || dir < 0 {
		i += dir
	}
	i = max(0, min(i, len(speeds)-1))
	return sign * speeds[i]
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	borderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	traveledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	remainingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	aircraftStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m *model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("FLIGHTTRACK  " + m.flight.Name))
	s.WriteString("\n\n")

	if m.last == nil {
		s.WriteString(helpStyle.Render("No frame yet"))
		return s.String()
	}

	grid := renderTrack(mapview.Compose(*m.last), m.flight.Statistics.ViewBounds, trackWidth, trackHeight)
	panel := m.infoPanel()
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, grid, "  ", panel))
	s.WriteString("\n\n")
	s.WriteString(progressBar(m.last.Progress, trackWidth))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("SPACE play/pause  ←/→ seek  +/- speed  b reverse  r reset  q quit"))
	return s.String()
}

func (m *model) infoPanel() string {
	info := mapview.InfoOf(m.flight.Statistics)
	st := m.state()
	sample := st.Sample
	row := func(k, v string) string {
		return labelStyle.Render(fmt.Sprintf("%-13s", k)) + v + "\n"
	}

	var b strings.Builder
	b.WriteString(row("Callsign", info.Callsign))
	b.WriteString(row("Max Altitude", info.MaxAltitude))
	b.WriteString(row("Max Speed", info.MaxSpeed))
	b.WriteString(row("Distance", info.Distance))
	b.WriteString(row("Duration", info.Duration))
	b.WriteString(row("Points", info.Points))
	b.WriteString("\n")
	b.WriteString(row("Status", string(st.Status)))
	b.WriteString(row("Speed", fmt.Sprintf("%gx", st.Speed)))
	b.WriteString(row("Sample", fmt.Sprintf("%d / %d", st.Index+1, st.Length)))
	b.WriteString(row("Position", fmt.Sprintf("%.4f, %.4f", sample.Lat, sample.Lon)))
	b.WriteString(row("Heading", fmt.Sprintf("%.0f°", sample.Heading)))
	if st.Index < len(m.flight.Points) {
		pt := m.flight.Points[st.Index]
		b.WriteString(row("Altitude", fmt.Sprintf("%d ft", pt.Altitude)))
		b.WriteString(row("Ground Speed", fmt.Sprintf("%d kts", pt.Speed)))
		b.WriteString(row("UTC", pt.UTC))
	}
	return b.String()
}
