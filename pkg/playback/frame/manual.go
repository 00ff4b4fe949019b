package frame

import (
	"context"

	"flighttrack/pkg/playback"
)

// Manual is a scheduler stepped explicitly by the caller. It is used for
// headless rendering and tests.
type Manual struct {
	nextID playback.FrameID
	frames map[playback.FrameID]func()
	order  []playback.FrameID
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{frames: make(map[playback.FrameID]func())}
}

// RequestFrame implements playback.Scheduler.
func (m *Manual) RequestFrame(cb func()) playback.FrameID {
	m.nextID++
	m.frames[m.nextID] = cb
	m.order = append(m.order, m.nextID)
	return m.nextID
}

// CancelFrame implements playback.Scheduler.
func (m *Manual) CancelFrame(id playback.FrameID) {
	delete(m.frames, id)
}

// Pending returns the number of live frame requests.
func (m *Manual) Pending() int {
	return len(m.frames)
}

// Step fires every frame requested before the call and returns how many ran.
// Frames requested while stepping run on the next Step.
func (m *Manual) Step() int {
	batch := m.order
	m.order = nil

	ran := 0
	for _, id := range batch {
		cb, ok := m.frames[id]
		if !ok {
			continue
		}
		delete(m.frames, id)
		cb()
		ran++
	}
	return ran
}

// Drain steps until no frames are pending or max steps have run, and
// returns the number of steps taken.
func (m *Manual) Drain(max int) int {
	steps := 0
	for steps < max && m.Pending() > 0 {
		m.Step()
		steps++
	}
	return steps
}

// Do runs fn immediately on the caller's goroutine.
func (m *Manual) Do(fn func()) {
	fn()
}

// Call runs fn immediately on the caller's goroutine.
func (m *Manual) Call(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}
