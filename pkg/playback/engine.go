package playback

import (
	"fmt"
	"log/slog"
	"math"
)

// Engine owns one loaded flight's sample sequence and its playback cursor.
//
// Engine is not safe for concurrent use. All methods, and the frame
// callbacks it hands to its Scheduler, must run on one goroutine (see
// frame.Loop). Re-entrant calls from inside an update consumer are allowed.
type Engine struct {
	sched  Scheduler
	logger *slog.Logger

	seq     []Sample
	cursor  float64
	speed   float64
	playing bool

	// gen is bumped on every cancellation so a frame that the scheduler
	// already queued observes it and does nothing.
	gen      uint64
	frame    FrameID
	hasFrame bool

	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Update)
}

// Option configures an Engine.
type Option func(*Engine)

// WithOnUpdate registers fn as the first update subscriber.
func WithOnUpdate(fn func(Update)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.Subscribe(fn)
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSpeed sets the initial speed multiplier.
func WithSpeed(s float64) Option {
	return func(e *Engine) {
		e.SetSpeed(s)
	}
}

// New creates an idle engine driven by sched.
func New(sched Scheduler, opts ...Option) *Engine {
	e := &Engine{
		sched:  sched,
		logger: slog.Default(),
		speed:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe adds an update consumer. The returned func removes it.
func (e *Engine) Subscribe(fn func(Update)) (cancel func()) {
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Load replaces the sequence and resets the cursor to the start, stopped.
// No update is emitted; the caller renders the initial frame itself.
// On error the engine state is left untouched.
func (e *Engine) Load(seq []Sample) error {
	if len(seq) == 0 {
		return fmt.Errorf("%w: sequence has no samples", ErrInvalidSequence)
	}

	e.Pause()
	e.seq = append([]Sample(nil), seq...)
	e.cursor = 0
	e.logger.Debug("Playback: sequence loaded", "samples", len(e.seq))
	return nil
}

// Play subscribes to the scheduler. The cursor first advances on the next
// frame. No-op when already playing or when nothing is loaded.
func (e *Engine) Play() {
	if e.playing || e.seq == nil {
		return
	}
	e.playing = true
	e.schedule()
	e.logger.Debug("Playback: play", "cursor", e.cursor, "speed", e.speed)
}

// Pause cancels the pending frame. No-op when already stopped.
func (e *Engine) Pause() {
	if !e.playing {
		return
	}
	e.stop()
	e.logger.Debug("Playback: pause", "cursor", e.cursor)
}

// Reset stops playback, rewinds to the first sample and emits one update.
func (e *Engine) Reset() {
	if e.seq == nil {
		return
	}
	e.Pause()
	e.cursor = 0
	e.emit()
}

// Seek moves the cursor to percent of the sequence and emits an update.
// percent is clamped to [0,100]; NaN is treated as 0.
func (e *Engine) Seek(percent float64) {
	if e.seq == nil {
		return
	}
	e.cursor = clamp(clampPercent(percent)/100*e.last(), 0, e.last())
	e.emit()
}

// SetSpeed sets the cursor advance per frame. Zero holds position while
// playing; negative values play backward. Non-finite values are ignored.
func (e *Engine) SetSpeed(multiplier float64) {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		e.logger.Debug("Playback: ignoring non-finite speed", "speed", multiplier)
		return
	}
	e.speed = multiplier
}

// State returns a snapshot without side effects.
func (e *Engine) State() State {
	st := State{
		Status:    e.status(),
		Cursor:    e.cursor,
		IsPlaying: e.playing,
		Speed:     e.speed,
		Length:    len(e.seq),
	}
	if e.seq != nil {
		st.Index = e.index()
		st.Progress = e.progress()
		st.Sample = e.seq[st.Index]
	}
	return st
}

// Current returns the update for the present cursor position. ok is false
// when nothing is loaded.
func (e *Engine) Current() (u Update, ok bool) {
	if e.seq == nil {
		return Update{}, false
	}
	return e.update(), true
}

// Destroy pauses and releases the sequence. Safe to call repeatedly.
func (e *Engine) Destroy() {
	e.Pause()
	e.seq = nil
	e.cursor = 0
}

func (e *Engine) tick(gen uint64) {
	if gen != e.gen || !e.playing || e.seq == nil {
		return
	}
	e.hasFrame = false

	last := e.last()
	e.cursor += e.speed

	if e.speed < 0 && e.cursor <= 0 {
		e.cursor = 0
		e.finish()
		return
	}
	if e.speed >= 0 && e.cursor >= last {
		e.cursor = last
		e.finish()
		return
	}

	// Request the next frame before emitting so a consumer calling Pause
	// cancels it.
	e.schedule()
	e.emit()
}

func (e *Engine) finish() {
	e.stop()
	e.logger.Debug("Playback: reached end of sequence", "index", e.index(), "speed", e.speed)
	e.emit()
}

func (e *Engine) schedule() {
	gen := e.gen
	e.frame = e.sched.RequestFrame(func() { e.tick(gen) })
	e.hasFrame = true
}

func (e *Engine) stop() {
	e.playing = false
	e.gen++
	if e.hasFrame {
		e.sched.CancelFrame(e.frame)
		e.hasFrame = false
	}
}

func (e *Engine) emit() {
	if len(e.subs) == 0 {
		return
	}
	u := e.update()
	subs := append([]subscriber(nil), e.subs...)
	for _, s := range subs {
		s.fn(u)
	}
}

func (e *Engine) update() Update {
	i := e.index()
	return Update{
		Index:     i,
		Progress:  e.progress(),
		IsPlaying: e.playing,
		Sample:    e.seq[i],
		Path:      e.seq,
	}
}

func (e *Engine) status() Status {
	switch {
	case e.seq == nil:
		return StatusIdle
	case e.playing:
		return StatusPlaying
	default:
		return StatusStopped
	}
}

func (e *Engine) last() float64 {
	return float64(len(e.seq) - 1)
}

// index truncates the cursor; clamped against floating point drift.
func (e *Engine) index() int {
	i := int(e.cursor)
	if i > len(e.seq)-1 {
		i = len(e.seq) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (e *Engine) progress() float64 {
	if len(e.seq) <= 1 {
		return 0
	}
	return e.cursor / e.last() * 100
}

func clampPercent(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return clamp(p, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
