package mapview

import (
	"fmt"
	"math"

	"flighttrack/pkg/flight"
)

// FormatPercent renders a progress value as a rounded percentage label.
func FormatPercent(p float64) string {
	if math.IsNaN(p) {
		p = 0
	}
	return fmt.Sprintf("%d%%", int(math.Floor(p+0.5)))
}

// FormatDuration renders seconds as "Xm Ys".
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	m := math.Floor(seconds / 60)
	s := math.Floor(math.Mod(seconds, 60))
	return fmt.Sprintf("%dm %ds", int64(m), int64(s))
}

// FormatDistance renders meters as kilometers with two decimals.
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}

// Info is the flight information panel.
type Info struct {
	Callsign    string `json:"callsign"`
	MaxAltitude string `json:"maxAltitude"`
	MaxSpeed    string `json:"maxSpeed"`
	Distance    string `json:"distance"`
	Duration    string `json:"duration"`
	Points      string `json:"points"`
}

// InfoOf formats a flight's statistics for display.
func InfoOf(st flight.Statistics) Info {
	return Info{
		Callsign:    st.Callsign,
		MaxAltitude: fmt.Sprintf("%d ft", st.MaxAltitude),
		MaxSpeed:    fmt.Sprintf("%d kts", st.MaxSpeed),
		Distance:    FormatDistance(st.TotalDistance),
		Duration:    FormatDuration(st.Duration),
		Points:      fmt.Sprintf("%d", st.TotalPoints),
	}
}
