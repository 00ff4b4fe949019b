// Package playback turns an ordered sequence of flight samples into a
// controllable virtual-time cursor driven by a display-refresh scheduler.
package playback

import "errors"

// ErrInvalidSequence is returned by Load when the sequence is empty.
var ErrInvalidSequence = errors.New("invalid sequence")

// Sample is one recorded position of the aircraft.
type Sample struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Heading float64 `json:"heading"` // Degrees true, [0,360)
}

// Status is the engine's lifecycle state.
type Status string

const (
	// StatusIdle means no sequence is loaded.
	StatusIdle Status = "idle"
	// StatusStopped means a sequence is loaded and the cursor is fixed.
	StatusStopped Status = "stopped"
	// StatusPlaying means a frame subscription is active.
	StatusPlaying Status = "playing"
)

// Update is emitted after every state-affecting operation.
// Consumers must treat it as the only source of truth for rendering.
type Update struct {
	Index     int     `json:"index"`
	Progress  float64 `json:"progress"`
	IsPlaying bool    `json:"isPlaying"`
	Sample    Sample  `json:"sample"`

	// Path is the full loaded sequence, shared read-only. Renderers split it
	// at Index into traveled and remaining segments.
	Path []Sample `json:"-"`
}

// State is a side-effect free snapshot of the engine.
type State struct {
	Status    Status  `json:"status"`
	Index     int     `json:"index"`
	Cursor    float64 `json:"cursor"`
	Progress  float64 `json:"progress"`
	IsPlaying bool    `json:"isPlaying"`
	Speed     float64 `json:"speed"`
	Length    int     `json:"length"`
	Sample    Sample  `json:"sample"`
}

// FrameID identifies a pending frame request.
type FrameID uint64

// Scheduler delivers at most one callback per display refresh.
// Callbacks run on the same goroutine that calls the engine.
type Scheduler interface {
	RequestFrame(cb func()) FrameID
	CancelFrame(id FrameID)
}
