package flight

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"flighttrack/pkg/geo"
)

// Parse errors. All of them match ErrInvalidCSV with errors.Is.
var (
	ErrInvalidCSV     = errors.New("invalid flight csv")
	ErrMissingColumns = fmt.Errorf("%w: missing required columns", ErrInvalidCSV)
	ErrNoPositions    = fmt.Errorf("%w: no valid position data found", ErrInvalidCSV)
	ErrInvalidValue   = fmt.Errorf("%w: invalid value", ErrInvalidCSV)
	ErrNoCallsign     = fmt.Errorf("%w: callsign not found", ErrInvalidCSV)
)

// RequiredColumns are the columns of a flight export the processor needs.
var RequiredColumns = []string{"Timestamp", "UTC", "Callsign", "Position", "Altitude", "Speed", "Direction"}

// Options tune flight processing.
type Options struct {
	// HeadingWindow is the number of fixes used to derive headings (min 2).
	HeadingWindow int
	// CoverageResolution is the H3 resolution for the coverage statistic.
	// Negative disables it.
	CoverageResolution int
	// Callsign keeps only rows of this aircraft when the export mixes several.
	Callsign string
	// View frames the initial map extent.
	View geo.ViewOptions
	// Reference is the center for the max radius statistic. Nil uses the
	// first fix.
	Reference *geo.Point
}

// DefaultOptions returns the processing defaults.
func DefaultOptions() Options {
	return Options{
		HeadingWindow:      2,
		CoverageResolution: geo.DefaultCoverageResolution,
		View:               geo.DefaultViewOptions(),
	}
}

// Processor turns a raw flight CSV export into a Flight.
type Processor struct {
	opts   Options
	logger *slog.Logger
}

// NewProcessor creates a processor.
func NewProcessor(opts Options) *Processor {
	return &Processor{
		opts:   opts,
		logger: slog.With("component", "flight_processor"),
	}
}

// Parse processes r with DefaultOptions.
func Parse(r io.Reader, name string) (*Flight, error) {
	return NewProcessor(DefaultOptions()).Process(r, name)
}

// Process reads a CSV export (tab or comma separated) and computes headings,
// distances, relative times, statistics and chart series. name is usually
// the source file name; its extension is dropped.
func (p *Processor) Process(r io.Reader, name string) (*Flight, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	rows, cols, err := readRows(raw)
	if err != nil {
		return nil, err
	}

	points, err := p.parsePoints(rows, cols)
	if err != nil {
		return nil, err
	}

	p.deriveTrack(points)

	f := &Flight{
		ID:     uuid.New().String(),
		Name:   strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		Points: points,
		Plots:  buildPlots(points),
	}
	f.Statistics = p.buildStatistics(f)

	p.logger.Info("Flight processed", "name", f.Name, "points", len(points), "callsign", f.Statistics.Callsign)
	return f, nil
}

// DetectDelimiter returns tab when the first line contains one, else comma.
func DetectDelimiter(raw []byte) rune {
	first, _, _ := bytes.Cut(raw, []byte("\n"))
	if bytes.ContainsRune(first, '\t') {
		return '\t'
	}
	return ','
}

func readRows(raw []byte) (rows [][]string, cols map[string]int, err error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = DetectDelimiter(raw)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
	}

	cols = make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return records[1:], cols, nil
}

// parsePoints keeps rows with a parsable position; the heading field holds
// the recorded Direction until deriveTrack replaces it.
func (p *Processor) parsePoints(rows [][]string, cols map[string]int) ([]Point, error) {
	field := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	points := make([]Point, 0, len(rows))
	dropped := 0
	for n, row := range rows {
		line := n + 2 // header is line 1

		lat, lon, ok := ParsePosition(field(row, "Position"))
		if !ok {
			dropped++
			continue
		}

		ts, err := parseNumber(field(row, "Timestamp"))
		if err != nil {
			return nil, fmt.Errorf("%w: Timestamp on line %d: %v", ErrInvalidValue, line, err)
		}
		alt, err := parseNumber(field(row, "Altitude"))
		if err != nil {
			return nil, fmt.Errorf("%w: Altitude on line %d: %v", ErrInvalidValue, line, err)
		}
		spd, err := parseNumber(field(row, "Speed"))
		if err != nil {
			return nil, fmt.Errorf("%w: Speed on line %d: %v", ErrInvalidValue, line, err)
		}
		dir, err := parseNumber(field(row, "Direction"))
		if err != nil {
			return nil, fmt.Errorf("%w: Direction on line %d: %v", ErrInvalidValue, line, err)
		}

		points = append(points, Point{
			Timestamp: int64(ts),
			UTC:       field(row, "UTC"),
			Callsign:  field(row, "Callsign"),
			Latitude:  lat,
			Longitude: lon,
			Altitude:  int(alt),
			Speed:     int(spd),
			Heading:   dir,
		})
	}

	if dropped > 0 {
		p.logger.Debug("Dropped rows without a valid position", "count", dropped)
	}
	if len(points) == 0 {
		return nil, ErrNoPositions
	}

	points, err := filterCallsign(points, p.opts.Callsign)
	if err != nil {
		return nil, err
	}

	// Exports are usually ordered already; keep the file order for ties.
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}

func filterCallsign(points []Point, callsign string) ([]Point, error) {
	callsign = strings.TrimSpace(strings.ReplaceAll(callsign, `"`, ""))
	if callsign == "" {
		return points, nil
	}

	var kept []Point
	seen := make(map[string]struct{})
	for _, pt := range points {
		cs := strings.TrimSpace(strings.ReplaceAll(pt.Callsign, `"`, ""))
		seen[cs] = struct{}{}
		if cs == callsign {
			kept = append(kept, pt)
		}
	}
	if len(kept) == 0 {
		found := make([]string, 0, len(seen))
		for cs := range seen {
			found = append(found, cs)
		}
		sort.Strings(found)
		return nil, fmt.Errorf("%w: %q (file has %s)", ErrNoCallsign, callsign, strings.Join(found, ", "))
	}
	return kept, nil
}

// deriveTrack fills heading, distance from start and relative time.
func (p *Processor) deriveTrack(points []Point) {
	start := geo.Point{Lat: points[0].Latitude, Lon: points[0].Longitude}
	t0 := points[0].Timestamp
	window := geo.NewHeadingWindow(p.opts.HeadingWindow)

	for i := range points {
		pos := geo.Point{Lat: points[i].Latitude, Lon: points[i].Longitude}
		points[i].Heading = window.Next(pos, points[i].Heading)
		points[i].DistanceFromStart = geo.Distance(start, pos)
		points[i].RelativeTime = float64(points[i].Timestamp - t0)
	}
}

func (p *Processor) buildStatistics(f *Flight) Statistics {
	pts := f.Points
	st := Statistics{
		TotalPoints: len(pts),
		Callsign:    pts[0].Callsign,
		MaxAltitude: math.MinInt,
		MaxSpeed:    math.MinInt,
		StartTime:   pts[0].UTC,
		EndTime:     pts[len(pts)-1].UTC,
		Bounds:      geo.BoundsOf(f.positions()),
	}
	st.ViewBounds = st.Bounds
	if vb, err := geo.SmartBounds(f.positions(), p.opts.View); err == nil {
		st.ViewBounds = vb
	}
	st.LiftoffIndex, st.TouchdownIndex = airborneRange(pts)
	st.Reference = geo.Point{Lat: pts[0].Latitude, Lon: pts[0].Longitude}
	if p.opts.Reference != nil {
		st.Reference = *p.opts.Reference
	}
	st.MaxRadiusNM, st.MaxRadiusIndex = maxRadius(pts, st.Reference)
	st.TotalDistance = math.Inf(-1)
	st.Duration = math.Inf(-1)
	for _, pt := range pts {
		st.MaxAltitude = max(st.MaxAltitude, pt.Altitude)
		st.MaxSpeed = max(st.MaxSpeed, pt.Speed)
		st.TotalDistance = math.Max(st.TotalDistance, pt.DistanceFromStart)
		st.Duration = math.Max(st.Duration, pt.RelativeTime)
	}

	if p.opts.CoverageResolution >= 0 {
		cells, err := geo.CoverageCells(f.positions(), p.opts.CoverageResolution)
		if err != nil {
			p.logger.Warn("Coverage calculation failed", "error", err)
		} else {
			st.CoverageCells = len(cells)
		}
	}
	return st
}

// maxRadius returns the largest distance from ref in nautical miles and the
// first index where it occurs.
func maxRadius(points []Point, ref geo.Point) (nm float64, index int) {
	nm = -1
	for i, pt := range points {
		if d := geo.DistanceNM(ref, geo.Point{Lat: pt.Latitude, Lon: pt.Longitude}); d > nm {
			nm, index = d, i
		}
	}
	return nm, index
}

// airborneRange returns the first and last index with positive altitude,
// or -1, -1 when the aircraft never left the ground.
func airborneRange(points []Point) (first, last int) {
	first, last = -1, -1
	for i, pt := range points {
		if pt.Altitude > 0 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

func buildPlots(points []Point) Plots {
	n := len(points)
	x := make([]float64, n)
	alt := make([]float64, n)
	spd := make([]float64, n)
	dist := make([]float64, n)
	for i, p := range points {
		x[i] = p.RelativeTime
		alt[i] = float64(p.Altitude)
		spd[i] = float64(p.Speed)
		dist[i] = p.DistanceFromStart
	}
	return Plots{
		Altitude: Series{X: x, Y: alt, Label: "Altitude (ft)"},
		Speed:    Series{X: x, Y: spd, Label: "Speed (kts)"},
		Distance: Series{X: x, Y: dist, Label: "Distance from Start (m)"},
	}
}

// ParsePosition parses a "lat,lon" string, tolerating surrounding quotes.
func ParsePosition(s string) (lat, lon float64, ok bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	latStr, lonStr, found := strings.Cut(s, ",")
	if !found || strings.Contains(lonStr, ",") {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
