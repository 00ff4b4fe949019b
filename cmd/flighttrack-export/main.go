// Command flighttrack-export writes flight artifacts without starting the
// server, and dumps exported shapefiles back as GeoJSON.
//
//	flighttrack-export -kind shapefile -out exports a.csv b.csv
//	flighttrack-export -kind altitude -id <library flight id>
//	flighttrack-export -inspect exports/a_track.shp
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"flighttrack/pkg/config"
	"flighttrack/pkg/db"
	"flighttrack/pkg/export"
	"flighttrack/pkg/flight"
	"flighttrack/pkg/store"
)

func main() {
	configPath := flag.String("config", "configs/flighttrack.yaml", "Path to the config file")
	kind := flag.String("kind", export.KindGeoJSON, "Artifact: geojson, shapefile, altitude, speed or distance")
	outDir := flag.String("out", "", "Output directory (defaults to export.dir)")
	id := flag.String("id", "", "Library flight to export")
	inspect := flag.String("inspect", "", "Shapefile to print as GeoJSON")
	flag.Parse()

	if *inspect != "" {
		if err := inspectShapefile(*inspect, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	dir := *outDir
	if dir == "" {
		dir = cfg.Export.Dir
	}

	paths, err := run(context.Background(), cfg, export.NewExporter(dir), *kind, *id, flag.Args())
	for _, p := range paths {
		fmt.Println(p)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// run exports the library flight id, or else each file in files, and returns
// the written paths. Failures do not stop the remaining files.
func run(ctx context.Context, cfg *config.Config, ex *export.Exporter, kind, id string, files []string) ([]string, error) {
	if _, err := export.FileName("check", kind); err != nil {
		return nil, err
	}

	if id != "" {
		d, err := db.Init(cfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open library: %w", err)
		}
		defer d.Close()
		f, err := store.NewSQLiteStore(d).GetFlight(ctx, id)
		if err != nil {
			return nil, err
		}
		p, err := ex.Export(kind, f)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	}

	if len(files) == 0 {
		return nil, errors.New("nothing to export: pass CSV files or -id")
	}

	opts := flight.DefaultOptions()
	opts.CoverageResolution = -1
	proc := flight.NewProcessor(opts)

	var out []string
	var errs []error
	for _, path := range files {
		p, err := exportFile(proc, ex, kind, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

func exportFile(proc *flight.Processor, ex *export.Exporter, kind, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	f, err := proc.Process(file, filepath.Base(path))
	if err != nil {
		return "", err
	}
	return ex.Export(kind, f)
}

// inspectShapefile converts every shape in path to a GeoJSON feature with
// its dBase attributes as properties.
func inspectShapefile(path string, w io.Writer) error {
	shape, err := shp.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shape.Close()

	fields := shape.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}

	fc := geojson.NewFeatureCollection()
	for shape.Next() {
		n, p := shape.Shape()

		var geometry orb.Geometry
		switch s := p.(type) {
		case *shp.Null:
			continue
		case *shp.PolyLine:
			geometry = convertPolyLine(s)
		case *shp.Point:
			geometry = orb.Point{s.X, s.Y}
		default:
			log.Printf("Skipping unsupported shape type: %T", p)
			continue
		}

		f := geojson.NewFeature(geometry)
		for i, name := range names {
			f.Properties[name] = shape.ReadAttribute(n, i)
		}
		fc.Append(f)
	}
	if err := shape.Err(); err != nil {
		return fmt.Errorf("error iterating shapes: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// convertPolyLine returns a LineString for single-part tracks.
func convertPolyLine(s *shp.PolyLine) orb.Geometry {
	var multi orb.MultiLineString
	for i := 0; i < int(s.NumParts); i++ {
		start := s.Parts[i]
		end := s.NumPoints
		if i < int(s.NumParts)-1 {
			end = s.Parts[i+1]
		}
		var line orb.LineString
		for j := start; j < end; j++ {
			line = append(line, orb.Point{s.Points[j].X, s.Points[j].Y})
		}
		multi = append(multi, line)
	}
	if len(multi) == 1 {
		return multi[0]
	}
	return multi
}
