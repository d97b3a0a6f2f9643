// Package grid generates the lattice of search points covering a bounding
// region. Generation is pure and deterministic: the same bounds and spacing
// always produce the same ordered point set, which keeps cache keys and work
// distribution stable across runs.
package grid

import (
	"math"

	"github.com/rotisserie/eris"
)

// Degrees of latitude/longitude per mile of spacing. Fixed approximations for
// mid-latitude US; not geodesically exact.
const (
	MilesPerDegreeLat = 69.0
	MilesPerDegreeLng = 54.6
)

// Point is one (latitude, longitude) sample location, rounded to 4 decimal
// places. Value equality.
type Point struct {
	Lat float64
	Lng float64
}

// Bounds is an axis-aligned bounding box in degrees.
type Bounds struct {
	LatMin float64
	LatMax float64
	LngMin float64
	LngMax float64
}

// ContiguousUS covers the lower 48 states.
var ContiguousUS = Bounds{LatMin: 24.5, LatMax: 49.4, LngMin: -125.0, LngMax: -66.9}

// Generate produces every point on the lattice starting at (LatMin, LngMin),
// stepping by spacingMiles/69.0 degrees latitude and spacingMiles/54.6 degrees
// longitude, inclusive of the final point at or below the max bound on each
// axis. Output order is row-major: latitude ascending, longitude ascending
// within each row.
//
// spacingMiles must be positive and bounds must be non-inverted; both are
// configuration errors.
func Generate(b Bounds, spacingMiles float64) ([]Point, error) {
	if spacingMiles <= 0 {
		return nil, eris.Errorf("grid: spacing must be positive, got %v", spacingMiles)
	}
	if b.LatMin > b.LatMax || b.LngMin > b.LngMax {
		return nil, eris.Errorf("grid: inverted bounds lat[%v,%v] lng[%v,%v]",
			b.LatMin, b.LatMax, b.LngMin, b.LngMax)
	}

	latStep := spacingMiles / MilesPerDegreeLat
	lngStep := spacingMiles / MilesPerDegreeLng

	var points []Point
	for lat := b.LatMin; lat <= b.LatMax; lat += latStep {
		for lng := b.LngMin; lng <= b.LngMax; lng += lngStep {
			points = append(points, Point{Lat: round4(lat), Lng: round4(lng)})
		}
	}
	return points, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
