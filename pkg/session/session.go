// Package session binds one loaded flight to a playback engine running on
// the frame loop and fans its updates out to renderers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"flighttrack/pkg/flight"
	"flighttrack/pkg/logging"
	"flighttrack/pkg/playback"
)

// ErrNoFlight is returned by Open when given a nil flight.
var ErrNoFlight = errors.New("no flight")

// maxEvents caps the in-memory event history.
const maxEvents = 100

// Loop runs functions and frame callbacks on a single goroutine.
// *frame.Loop and *frame.Manual implement it.
type Loop interface {
	playback.Scheduler
	Call(ctx context.Context, fn func()) error
}

// Sink receives every playback update. Sinks run on the loop goroutine and
// must not block.
type Sink func(playback.Update)

// Session owns the viewer's current flight and its playback engine.
type Session struct {
	loop   Loop
	logger *slog.Logger

	// Loop goroutine only.
	engine *playback.Engine
	speed  float64

	mu     sync.RWMutex
	flight *flight.Flight
	events []logging.Event

	sinkMu   sync.RWMutex
	sinks    map[int]Sink
	nextSink int
}

// Option configures a Session.
type Option func(*Session)

// WithSpeed sets the speed new engines start with.
func WithSpeed(speed float64) Option {
	return func(s *Session) {
		if !math.IsNaN(speed) && !math.IsInf(speed, 0) {
			s.speed = speed
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty session driven by loop.
func New(loop Loop, opts ...Option) *Session {
	s := &Session{
		loop:   loop,
		logger: slog.With("component", "session"),
		speed:  1,
		sinks:  make(map[int]Sink),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a sink. The returned func removes it.
func (s *Session) Subscribe(fn Sink) (cancel func()) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.nextSink++
	id := s.nextSink
	s.sinks[id] = fn
	return func() {
		s.sinkMu.Lock()
		defer s.sinkMu.Unlock()
		delete(s.sinks, id)
	}
}

// Attach subscribes fn and, when a flight is open, first hands it the
// current frame. Both happen on the loop goroutine, so fn sees no gap.
func (s *Session) Attach(ctx context.Context, fn Sink) (cancel func(), err error) {
	err = s.loop.Call(ctx, func() {
		cancel = s.Subscribe(fn)
		if s.engine != nil {
			if u, ok := s.engine.Current(); ok {
				fn(u)
			}
		}
	})
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	return cancel, nil
}

func (s *Session) broadcast(u playback.Update) {
	s.sinkMu.RLock()
	sinks := make([]Sink, 0, len(s.sinks))
	for _, fn := range s.sinks {
		sinks = append(sinks, fn)
	}
	s.sinkMu.RUnlock()

	logging.Trace(s.logger, "Broadcast frame", "index", u.Index, "progress", u.Progress)
	for _, fn := range sinks {
		fn(u)
	}
}

// Open replaces the current flight. The previous engine is destroyed and a
// new one created; sinks then receive the initial frame at index 0.
// On error the previous flight stays open.
func (s *Session) Open(ctx context.Context, f *flight.Flight) error {
	if f == nil {
		return ErrNoFlight
	}
	seq := f.Samples()

	var loadErr error
	err := s.loop.Call(ctx, func() {
		eng := playback.New(s.loop,
			playback.WithOnUpdate(s.broadcast),
			playback.WithSpeed(s.speed),
			playback.WithLogger(s.logger),
		)
		if loadErr = eng.Load(seq); loadErr != nil {
			return
		}
		if s.engine != nil {
			s.engine.Destroy()
		}
		s.engine = eng

		s.mu.Lock()
		s.flight = f
		s.mu.Unlock()

		if u, ok := eng.Current(); ok {
			s.broadcast(u)
		}
	})
	if err != nil {
		return err
	}
	if loadErr != nil {
		return fmt.Errorf("failed to open flight %q: %w", f.Name, loadErr)
	}

	s.logger.Info("Flight opened", "id", f.ID, "name", f.Name, "points", len(seq))
	s.AddEvent(logging.Event{
		Type:    logging.EventLoad,
		Title:   f.Name,
		Summary: fmt.Sprintf("%d points, %s", len(seq), f.Statistics.Callsign),
	})
	return nil
}

// Close destroys the engine and forgets the flight.
func (s *Session) Close(ctx context.Context) error {
	err := s.loop.Call(ctx, func() {
		if s.engine != nil {
			s.engine.Destroy()
			s.engine = nil
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.flight = nil
	s.mu.Unlock()
	return nil
}

// Flight returns the open flight, or nil.
func (s *Session) Flight() *flight.Flight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flight
}

// Play starts playback.
func (s *Session) Play(ctx context.Context) (playback.State, error) {
	return s.control(ctx, (*playback.Engine).Play)
}

// Pause stops playback at the current position.
func (s *Session) Pause(ctx context.Context) (playback.State, error) {
	return s.control(ctx, (*playback.Engine).Pause)
}

// Toggle pauses when playing and plays otherwise.
func (s *Session) Toggle(ctx context.Context) (playback.State, error) {
	return s.control(ctx, func(e *playback.Engine) {
		if e.State().IsPlaying {
			e.Pause()
		} else {
			e.Play()
		}
	})
}

// Reset stops and rewinds to the first sample.
func (s *Session) Reset(ctx context.Context) (playback.State, error) {
	return s.control(ctx, (*playback.Engine).Reset)
}

// Seek moves to percent of the flight.
func (s *Session) Seek(ctx context.Context, percent float64) (playback.State, error) {
	return s.control(ctx, func(e *playback.Engine) { e.Seek(percent) })
}

// SetSpeed changes the speed of the open flight and of flights opened later.
func (s *Session) SetSpeed(ctx context.Context, multiplier float64) (playback.State, error) {
	var st playback.State
	err := s.loop.Call(ctx, func() {
		if !math.IsNaN(multiplier) && !math.IsInf(multiplier, 0) {
			s.speed = multiplier
		}
		st = s.loopState()
		if s.engine != nil {
			s.engine.SetSpeed(multiplier)
			st = s.engine.State()
		}
	})
	return st, err
}

// State returns the playback snapshot.
func (s *Session) State(ctx context.Context) (playback.State, error) {
	return s.control(ctx, nil)
}

// Current returns the frame at the present position. ok is false when no
// flight is open.
func (s *Session) Current(ctx context.Context) (u playback.Update, ok bool, err error) {
	err = s.loop.Call(ctx, func() {
		if s.engine != nil {
			u, ok = s.engine.Current()
		}
	})
	return u, ok, err
}

// control runs fn against the engine on the loop goroutine. With no flight
// open it does nothing and reports an idle state.
func (s *Session) control(ctx context.Context, fn func(*playback.Engine)) (playback.State, error) {
	var st playback.State
	err := s.loop.Call(ctx, func() {
		if s.engine != nil && fn != nil {
			fn(s.engine)
		}
		st = s.loopState()
	})
	return st, err
}

func (s *Session) loopState() playback.State {
	if s.engine == nil {
		return playback.State{Status: playback.StatusIdle, Speed: s.speed}
	}
	return s.engine.State()
}

// AddEvent records an event in the session history and the event log.
func (s *Session) AddEvent(event logging.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	if len(s.events) > maxEvents {
		s.events = append([]logging.Event(nil), s.events[len(s.events)-maxEvents:]...)
	}
	s.mu.Unlock()

	logging.LogEvent(event)
}

// Events returns the recorded events, oldest first.
func (s *Session) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]logging.Event(nil), s.events...)
}
