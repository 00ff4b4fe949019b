// Package export writes flight artifacts (track GeoJSON, shapefile and
// chart series) to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"flighttrack/pkg/flight"
)

// Artifact kinds accepted by Exporter.Export.
const (
	KindGeoJSON   = "geojson"
	KindShapefile = "shapefile"
	KindAltitude  = flight.ChartAltitude
	KindSpeed     = flight.ChartSpeed
	KindDistance  = flight.ChartDistance
)

// ErrUnknownKind is returned for an unsupported artifact kind.
var ErrUnknownKind = errors.New("unknown export kind")

// WriteGeoJSON writes the flight track as a FeatureCollection: the track
// line carrying the statistics, then start and end points.
func WriteGeoJSON(w io.Writer, f *flight.Flight) error {
	if len(f.Points) == 0 {
		return errors.New("flight has no points")
	}

	fc := geojson.NewFeatureCollection()

	path := f.Path()
	var geom orb.Geometry = path
	if len(path) == 1 {
		geom = path[0]
	}
	track := geojson.NewFeature(geom)
	track.Properties["kind"] = "track"
	track.Properties["name"] = f.Name
	track.Properties["callsign"] = f.Statistics.Callsign
	track.Properties["totalPoints"] = f.Statistics.TotalPoints
	track.Properties["maxAltitude"] = f.Statistics.MaxAltitude
	track.Properties["maxSpeed"] = f.Statistics.MaxSpeed
	track.Properties["totalDistance"] = f.Statistics.TotalDistance
	track.Properties["duration"] = f.Statistics.Duration
	track.Properties["startTime"] = f.Statistics.StartTime
	track.Properties["endTime"] = f.Statistics.EndTime
	fc.Append(track)

	first, last := f.Points[0], f.Points[len(f.Points)-1]
	start := geojson.NewFeature(orb.Point{first.Longitude, first.Latitude})
	start.Properties["kind"] = "start"
	start.Properties["utc"] = first.UTC
	fc.Append(start)

	end := geojson.NewFeature(orb.Point{last.Longitude, last.Latitude})
	end.Properties["kind"] = "end"
	end.Properties["utc"] = last.UTC
	fc.Append(end)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// WriteShapefile writes the track as a PolyLine shapefile (.shp, .shx, .dbf)
// at basePath with callsign, name, point count and max altitude attributes.
func WriteShapefile(basePath string, f *flight.Flight) error {
	if len(f.Points) == 0 {
		return errors.New("flight has no points")
	}
	base := strings.TrimSuffix(basePath, filepath.Ext(basePath))

	pts := make([]shp.Point, len(f.Points))
	for i, p := range f.Points {
		pts[i] = shp.Point{X: p.Longitude, Y: p.Latitude}
	}

	w, err := shp.Create(base+".shp", shp.POLYLINE)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	werr := writeTrackShape(w, f, pts)
	w.Close()
	if werr != nil {
		return werr
	}

	// go-shp v0.1.1 names the table "<base>dbf"; readers expect "<base>.dbf".
	if _, err := os.Stat(base + "dbf"); err == nil {
		if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
			return fmt.Errorf("failed to rename dbf: %w", err)
		}
	}
	return nil
}

func writeTrackShape(w *shp.Writer, f *flight.Flight, pts []shp.Point) error {
	if err := w.SetFields([]shp.Field{
		shp.StringField("CALLSIGN", 16),
		shp.StringField("NAME", 64),
		shp.NumberField("POINTS", 10),
		shp.NumberField("MAXALT", 10),
	}); err != nil {
		return fmt.Errorf("failed to set shapefile fields: %w", err)
	}

	row := int(w.Write(shp.NewPolyLine([][]shp.Point{pts})))
	attrs := []any{
		truncate(f.Statistics.Callsign, 16),
		truncate(f.Name, 64),
		f.Statistics.TotalPoints,
		f.Statistics.MaxAltitude,
	}
	for i, v := range attrs {
		if err := w.WriteAttribute(row, i, v); err != nil {
			return fmt.Errorf("failed to write attribute %d: %w", i, err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// WriteSeriesCSV writes one chart series as x,y rows under a header naming
// the series label.
func WriteSeriesCSV(w io.Writer, s flight.Series) error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("series length mismatch: %d x values, %d y values", len(s.X), len(s.Y))
	}
	label := s.Label
	if label == "" {
		label = "y"
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Time (s)", label}); err != nil {
		return err
	}
	for i := range s.X {
		rec := []string{
			strconv.FormatFloat(s.X[i], 'f', -1, 64),
			strconv.FormatFloat(s.Y[i], 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter writes artifacts into a directory.
type Exporter struct {
	dir string
}

// NewExporter creates an exporter rooted at dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Dir returns the export directory.
func (e *Exporter) Dir() string {
	return e.dir
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns "<flight-name>_<artifact>.<ext>" for kind.
func FileName(flightName, kind string) (string, error) {
	base := unsafeName.ReplaceAllString(flightName, "_")
	if base == "" || base == "_" {
		base = "flight"
	}
	switch kind {
	case KindGeoJSON:
		return base + "_track.geojson", nil
	case KindShapefile:
		return base + "_track.shp", nil
	case KindAltitude, KindSpeed, KindDistance:
		return base + "_" + kind + ".csv", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Export writes the kind artifact for f and returns the written path.
func (e *Exporter) Export(kind string, f *flight.Flight) (string, error) {
	name, err := FileName(f.Name, kind)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(e.dir, name)

	switch kind {
	case KindShapefile:
		err = WriteShapefile(path, f)
	case KindGeoJSON:
		err = writeFile(path, func(w io.Writer) error { return WriteGeoJSON(w, f) })
	default:
		s, _ := f.Plots.Get(kind)
		err = writeFile(path, func(w io.Writer) error { return WriteSeriesCSV(w, s) })
	}
	if err != nil {
		return "", err
	}

	slog.Info("Export written", "kind", kind, "path", path)
	return path, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(out); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return out.Close()
}
