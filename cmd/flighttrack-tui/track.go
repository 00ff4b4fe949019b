package main

import (
	"math"
	"strings"

	"github.com/paulmach/orb"

	"flighttrack/pkg/geo"
	"flighttrack/pkg/mapview"
)

const (
	cellEmpty = iota
	cellRemaining
	cellTraveled
	cellAircraft
)

// headingGlyphs are indexed by heading in 45° sectors starting north.
var headingGlyphs = []rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

func headingGlyph(heading float64) rune {
	h := math.Mod(heading, 360)
	if h < 0 {
		h += 360
	}
	return headingGlyphs[int(math.Round(h/45))%8]
}

// projector maps coordinates onto a width×height character grid.
type projector struct {
	b             geo.Bounds
	width, height int
}

func (p projector) cell(pt orb.Point) (x, y int, ok bool) {
	lonSpan := p.b.East - p.b.West
	latSpan := p.b.North - p.b.South
	if lonSpan <= 0 || latSpan <= 0 {
		return p.width / 2, p.height / 2, true
	}
	fx := (pt.Lon() - p.b.West) / lonSpan
	fy := (p.b.North - pt.Lat()) / latSpan
	if fx < 0 || fx > 1 || fy < 0 || fy > 1 {
		return 0, 0, false
	}
	x = min(int(fx*float64(p.width)), p.width-1)
	y = min(int(fy*float64(p.height)), p.height-1)
	return x, y, true
}

// renderTrack draws the frame's remaining and traveled segments and the
// aircraft marker inside a box.
func renderTrack(f mapview.Frame, bounds geo.Bounds, width, height int) string {
	grid := make([][]int, height)
	for i := range grid {
		grid[i] = make([]int, width)
	}
	p := projector{b: bounds, width: width, height: height}

	plot := func(line orb.LineString, kind int) {
		for i := range line {
			if i > 0 {
				plotSegment(grid, p, line[i-1], line[i], kind)
			}
			if x, y, ok := p.cell(line[i]); ok {
				grid[y][x] = max(grid[y][x], kind)
			}
		}
	}
	plot(f.Remaining, cellRemaining)
	plot(f.Traveled, cellTraveled)

	var s strings.Builder
	s.WriteString(borderStyle.Render("┌" + strings.Repeat("─", width) + "┐"))
	s.WriteString("\n")

	ax, ay, aok := p.cell(orb.Point{f.Marker.Lon, f.Marker.Lat})
	for y, row := range grid {
		s.WriteString(borderStyle.Render("│"))
		for x, c := range row {
			if aok && x == ax && y == ay {
				s.WriteString(aircraftStyle.Render(string(headingGlyph(f.Marker.Heading))))
				continue
			}
			switch c {
			case cellTraveled:
				s.WriteString(traveledStyle.Render("•"))
			case cellRemaining:
				s.WriteString(remainingStyle.Render("·"))
			default:
				s.WriteString(" ")
			}
		}
		s.WriteString(borderStyle.Render("│"))
		s.WriteString("\n")
	}
	s.WriteString(borderStyle.Render("└" + strings.Repeat("─", width) + "┘"))
	return s.String()
}

// plotSegment fills the cells between a and b so sparse tracks stay connected.
func plotSegment(grid [][]int, p projector, a, b orb.Point, kind int) {
	x0, y0, ok0 := p.cell(a)
	x1, y1, ok1 := p.cell(b)
	if !ok0 || !ok1 {
		return
	}
	steps := max(abs(x1-x0), abs(y1-y0))
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		grid[y][x] = max(grid[y][x], kind)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// progressBar renders progress (0-100) with its percentage label.
func progressBar(progress float64, width int) string {
	filled := int(math.Round(progress / 100 * float64(width)))
	filled = max(0, min(filled, width))
	bar := traveledStyle.Render(strings.Repeat("█", filled)) +
		remainingStyle.Render(strings.Repeat("░", width-filled))
	return bar + " " + mapview.FormatPercent(progress)
}
