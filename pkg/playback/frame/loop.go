// Package frame provides display-refresh schedulers for the playback engine.
package frame

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"flighttrack/pkg/playback"
)

// ErrStopped is returned by Call once the loop has exited.
var ErrStopped = errors.New("frame loop stopped")

// DefaultFPS is used when the configured rate is not positive.
const DefaultFPS = 60

// Loop is a single-goroutine refresh loop. Frame callbacks and functions
// posted with Do/Call all run on the goroutine executing Run, which gives the
// engine the single-threaded context it expects.
type Loop struct {
	interval time.Duration

	mu     sync.Mutex
	nextID playback.FrameID
	frames map[playback.FrameID]func()
	order  []playback.FrameID

	calls   chan func()
	stopped chan struct{}
	once    sync.Once
}

// NewLoop creates a loop ticking fps times per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		frames:   make(map[playback.FrameID]func()),
		calls:    make(chan func(), 64),
		stopped:  make(chan struct{}),
	}
}

// Interval returns the time between frames.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// RequestFrame implements playback.Scheduler. The callback runs on the
// next frame, never on the frame currently being processed.
func (l *Loop) RequestFrame(cb func()) playback.FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.frames[id] = cb
	l.order = append(l.order, id)
	return id
}

// CancelFrame implements playback.Scheduler.
func (l *Loop) CancelFrame(id playback.FrameID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.frames, id)
}

// Do queues fn to run on the loop goroutine without waiting.
func (l *Loop) Do(fn func()) {
	select {
	case l.calls <- fn:
	case <-l.stopped:
	}
}

// Call states shared between a caller and its queued function.
const (
	callPending int32 = iota
	callRunning
	callAbandoned
)

// Call runs fn on the loop goroutine and waits for it to return. When ctx is
// cancelled before fn starts, fn is skipped and ctx.Err() is returned; once
// fn has started Call always waits for it, so results written by fn are safe
// to read after a nil error.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	var state atomic.Int32
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		if !state.CompareAndSwap(callPending, callRunning) {
			return
		}
		fn()
	}

	select {
	case l.calls <- wrapped:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		if state.CompareAndSwap(callPending, callAbandoned) {
			return ErrStopped
		}
	case <-ctx.Done():
		if state.CompareAndSwap(callPending, callAbandoned) {
			return ctx.Err()
		}
	}
	<-done
	return nil
}

// Run processes frames and calls until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer l.once.Do(func() { close(l.stopped) })

	slog.Info("Frame loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Frame loop stopped")
			return
		case fn := <-l.calls:
			fn()
		case <-ticker.C:
			l.runFrame()
		}
	}
}

func (l *Loop) runFrame() {
	l.mu.Lock()
	batch := l.order
	l.order = nil
	l.mu.Unlock()

	for _, id := range batch {
		l.mu.Lock()
		cb, ok := l.frames[id]
		delete(l.frames, id)
		l.mu.Unlock()

		// Cancelled by an earlier callback in this batch.
		if !ok {
			continue
		}
		cb()
	}
}
