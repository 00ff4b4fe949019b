package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttrack/pkg/flight"
	"flighttrack/pkg/logging"
	"flighttrack/pkg/playback"
	"flighttrack/pkg/playback/frame"
)

func testFlight(id string, n int) *flight.Flight {
	f := &flight.Flight{ID: id, Name: "flight " + id}
	for i := 0; i < n; i++ {
		f.Points = append(f.Points, flight.Point{
			Latitude:  50 + float64(i)*0.01,
			Longitude: 8,
			Heading:   float64(i),
		})
	}
	f.Statistics.TotalPoints = n
	f.Statistics.Callsign = "TST" + id
	return f
}

type recorder struct {
	mu      sync.Mutex
	updates []playback.Update
}

func (r *recorder) add(u playback.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []playback.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]playback.Update(nil), r.updates...)
}

func newSession(t *testing.T, opts ...Option) (*Session, *frame.Manual, *recorder) {
	t.Helper()
	m := frame.NewManual()
	s := New(m, opts...)
	rec := &recorder{}
	s.Subscribe(rec.add)
	return s, m, rec
}

func TestSession_OpenEmitsInitialFrame(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newSession(t)

	require.NoError(t, s.Open(ctx, testFlight("a", 5)))

	ups := rec.all()
	require.Len(t, ups, 1)
	assert.Equal(t, 0, ups[0].Index)
	assert.Equal(t, 0.0, ups[0].Progress)
	assert.False(t, ups[0].IsPlaying)
	assert.Len(t, ups[0].Path, 5)
	assert.Equal(t, "a", s.Flight().ID)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, logging.EventLoad, events[0].Type)
	assert.Equal(t, "flight a", events[0].Title)
}

func TestSession_OpenErrors(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newSession(t)

	assert.ErrorIs(t, s.Open(ctx, nil), ErrNoFlight)

	require.NoError(t, s.Open(ctx, testFlight("a", 3)))
	_, err := s.Seek(ctx, 50)
	require.NoError(t, err)

	err = s.Open(ctx, testFlight("empty", 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, playback.ErrInvalidSequence))

	// Previous flight and position survive.
	assert.Equal(t, "a", s.Flight().ID)
	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Index)
	assert.Len(t, rec.all(), 2)
}

func TestSession_ControlWithoutFlight(t *testing.T) {
	ctx := context.Background()
	s, m, rec := newSession(t, WithSpeed(2))

	tests := []struct {
		name string
		op   func() (playback.State, error)
	}{
		{"play", func() (playback.State, error) { return s.Play(ctx) }},
		{"pause", func() (playback.State, error) { return s.Pause(ctx) }},
		{"toggle", func() (playback.State, error) { return s.Toggle(ctx) }},
		{"reset", func() (playback.State, error) { return s.Reset(ctx) }},
		{"seek", func() (playback.State, error) { return s.Seek(ctx, 40) }},
		{"state", func() (playback.State, error) { return s.State(ctx) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := tt.op()
			require.NoError(t, err)
			assert.Equal(t, playback.StatusIdle, st.Status)
			assert.Equal(t, 2.0, st.Speed)
		})
	}

	assert.Equal(t, 0, m.Pending())
	assert.Empty(t, rec.all())
	_, ok, err := s.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s.Flight())
}

func TestSession_PlayToEnd(t *testing.T) {
	ctx := context.Background()
	s, m, rec := newSession(t)
	require.NoError(t, s.Open(ctx, testFlight("a", 3)))

	st, err := s.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsPlaying)

	m.Drain(10)

	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StatusStopped, st.Status)
	assert.Equal(t, 2, st.Index)
	assert.Equal(t, 100.0, st.Progress)

	ups := rec.all()
	last := ups[len(ups)-1]
	assert.Equal(t, 100.0, last.Progress)
	assert.False(t, last.IsPlaying)
}

func TestSession_TogglePauses(t *testing.T) {
	ctx := context.Background()
	s, m, _ := newSession(t)
	require.NoError(t, s.Open(ctx, testFlight("a", 10)))

	_, _ = s.Play(ctx)
	m.Step()
	st, err := s.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, 0, m.Pending())
}

func TestSession_OpenReplacesEngine(t *testing.T) {
	ctx := context.Background()
	s, m, rec := newSession(t)
	require.NoError(t, s.Open(ctx, testFlight("a", 10)))
	_, _ = s.Play(ctx)
	require.Equal(t, 1, m.Pending())

	require.NoError(t, s.Open(ctx, testFlight("b", 4)))
	assert.Equal(t, 0, m.Pending(), "old engine's frame is cancelled")

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StatusStopped, st.Status)
	assert.Equal(t, 4, st.Length)

	ups := rec.all()
	assert.Len(t, ups[len(ups)-1].Path, 4)
}

func TestSession_SpeedCarriesOver(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSession(t)

	st, err := s.SetSpeed(ctx, -2)
	require.NoError(t, err)
	assert.Equal(t, playback.StatusIdle, st.Status)
	assert.Equal(t, -2.0, st.Speed)

	require.NoError(t, s.Open(ctx, testFlight("a", 5)))
	st, _ = s.State(ctx)
	assert.Equal(t, -2.0, st.Speed)

	st, _ = s.SetSpeed(ctx, math.NaN())
	assert.Equal(t, -2.0, st.Speed, "non-finite speed is ignored")

	st, _ = s.SetSpeed(ctx, 5)
	assert.Equal(t, 5.0, st.Speed)
}

func TestSession_Close(t *testing.T) {
	ctx := context.Background()
	s, m, _ := newSession(t)
	require.NoError(t, s.Open(ctx, testFlight("a", 5)))
	_, _ = s.Play(ctx)

	require.NoError(t, s.Close(ctx))
	assert.Nil(t, s.Flight())
	assert.Equal(t, 0, m.Pending())

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StatusIdle, st.Status)

	// Closing twice is harmless.
	require.NoError(t, s.Close(ctx))
}

func TestSession_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	s := New(frame.NewManual())
	rec := &recorder{}
	cancel := s.Subscribe(rec.add)
	require.NoError(t, s.Open(ctx, testFlight("a", 3)))
	cancel()
	_, _ = s.Seek(ctx, 100)
	assert.Len(t, rec.all(), 1)
}

func TestSession_CancelledContext(t *testing.T) {
	s, _, _ := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Play(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_EventHistoryCapped(t *testing.T) {
	s, _, _ := newSession(t)
	for i := 0; i < maxEvents+5; i++ {
		s.AddEvent(logging.Event{Type: logging.EventExport, Title: "x"})
	}
	events := s.Events()
	assert.Len(t, events, maxEvents)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestSession_FrameLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := frame.NewLoop(240)
	go loop.Run(ctx)

	s := New(loop, WithSpeed(2))
	done := make(chan playback.Update, 1)
	s.Subscribe(func(u playback.Update) {
		if u.Progress == 100 && !u.IsPlaying {
			select {
			case done <- u:
			default:
			}
		}
	})

	require.NoError(t, s.Open(ctx, testFlight("a", 20)))
	_, err := s.Play(ctx)
	require.NoError(t, err)

	select {
	case u := <-done:
		assert.Equal(t, 19, u.Index)
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestSession_AttachCancelledWhileLoopBusy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := frame.NewLoop(240)
	go loop.Run(ctx)
	s := New(loop)

	release := make(chan struct{})
	loop.Do(func() { <-release })

	attachCtx, attachCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer attachCancel()
	rec := &recorder{}
	unsub, err := s.Attach(attachCtx, rec.add)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, unsub)

	close(release)
	require.NoError(t, s.Open(ctx, testFlight("a", 3)))
	_, err = s.Seek(ctx, 50)
	require.NoError(t, err)

	assert.Empty(t, rec.all(), "failed attach left a sink subscribed")
	s.sinkMu.RLock()
	assert.Empty(t, s.sinks)
	s.sinkMu.RUnlock()
}

func TestSession_AttachDeliversCurrentFrame(t *testing.T) {
	s, _, _ := newSession(t)
	require.NoError(t, s.Open(context.Background(), testFlight("a", 5)))
	_, err := s.Seek(context.Background(), 50)
	require.NoError(t, err)

	rec := &recorder{}
	unsub, err := s.Attach(context.Background(), rec.add)
	require.NoError(t, err)
	require.Len(t, rec.all(), 1)
	assert.Equal(t, 2, rec.all()[0].Index)

	unsub()
	_, err = s.Reset(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.all(), 1)
}
