package geo

import (
	"math"
	"testing"
)

func TestHeadingWindow(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		points []Point
		want   []float64 // Expected heading after each fix
	}{
		{
			name: "PreviousFix",
			size: 2,
			points: []Point{
				{Lat: 10, Lon: 20},
				{Lat: 11, Lon: 20},
				{Lat: 11, Lon: 21},
				{Lat: 10, Lon: 21},
			},
			want: []float64{99, 0, 90, 180},
		},
		{
			name: "ThreeFixWindow",
			size: 3,
			points: []Point{
				{Lat: 10, Lon: 20},
				{Lat: 11, Lon: 20},
				{Lat: 11, Lon: 21}, // 10,20 -> 11,21
				{Lat: 10, Lon: 21}, // 11,20 -> 10,21
			},
			want: []float64{99, 0, 45, 135},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewHeadingWindow(tt.size)
			for i, p := range tt.points {
				got := w.Next(p, 99)
				if math.Abs(got-tt.want[i]) > 1.0 {
					t.Errorf("fix %d: Next() = %v, want approx %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestHeadingWindow_FallbackNormalized(t *testing.T) {
	w := NewHeadingWindow(0)
	if got := w.Next(Point{}, 370); got != 10 {
		t.Errorf("Next() = %v, want 10", got)
	}
}

func TestHeadingWindow_Reset(t *testing.T) {
	w := NewHeadingWindow(5)
	w.Next(Point{10, 20}, 0)
	w.Next(Point{11, 20}, 0)

	if len(w.fixes) != 2 {
		t.Errorf("Expected 2 fixes, got %d", len(w.fixes))
	}

	w.Reset()
	if got := w.Next(Point{12, 20}, 42); got != 42 {
		t.Errorf("Expected fallback after reset, got %v", got)
	}
}
