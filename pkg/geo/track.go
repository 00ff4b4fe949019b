package geo

// HeadingWindow derives a ground track from a rolling window of recorded
// positions. A window of 2 yields the bearing from the previous fix.
type HeadingWindow struct {
	fixes []Point
	size  int
}

// NewHeadingWindow creates a window holding size fixes (minimum 2).
func NewHeadingWindow(size int) *HeadingWindow {
	if size < 2 {
		size = 2
	}
	return &HeadingWindow{size: size}
}

// Next records p and returns the track from the oldest to the newest fix.
// Until two fixes are known, fallback is returned normalized to [0,360).
func (w *HeadingWindow) Next(p Point, fallback float64) float64 {
	w.fixes = append(w.fixes, p)
	if len(w.fixes) > w.size {
		w.fixes = w.fixes[1:]
	}

	if len(w.fixes) < 2 {
		return NormalizeHeading(fallback)
	}
	return Bearing(w.fixes[0], w.fixes[len(w.fixes)-1])
}

// Reset forgets all fixes.
func (w *HeadingWindow) Reset() {
	w.fixes = nil
}
