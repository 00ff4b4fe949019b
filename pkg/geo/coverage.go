package geo

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// DefaultCoverageResolution is the H3 resolution used for track coverage
// (cells of roughly 5 km²).
const DefaultCoverageResolution = 7

// CoverageCells returns the distinct H3 cells the points fall into, in
// first-visited order.
func CoverageCells(points []Point, resolution int) ([]h3.Cell, error) {
	if resolution < 0 || resolution > 15 {
		return nil, fmt.Errorf("invalid h3 resolution %d", resolution)
	}

	seen := make(map[h3.Cell]struct{})
	var cells []h3.Cell
	for _, p := range points {
		c, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), resolution)
		if err != nil {
			return nil, fmt.Errorf("failed to index point (%f,%f): %w", p.Lat, p.Lon, err)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cells = append(cells, c)
	}
	return cells, nil
}
