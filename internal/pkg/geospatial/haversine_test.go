package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/placesweep/internal/pkg/geospatial"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao Abando to Moyua is roughly 500 m.
	d := geospatial.Haversine(43.2607, -2.9334, 43.2632, -2.9385)
	if d < 400 || d > 600 {
		t.Errorf("expected ~500m, got %f", d)
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	d := geospatial.Haversine(43.26, -2.93, 43.26, -2.93)
	if d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	lat, lon := 32.7157, -117.1611
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(lat, lon, 5000)

	if minLat >= lat || maxLat <= lat || minLon >= lon || maxLon <= lon {
		t.Fatalf("box does not surround the center: %f %f %f %f", minLat, minLon, maxLat, maxLon)
	}

	// Edge midpoints sit one radius from the center.
	dNorth := geospatial.Haversine(lat, lon, maxLat, lon)
	if math.Abs(dNorth-5000) > 100 {
		t.Errorf("north edge at %f m, expected ~5000", dNorth)
	}
	dEast := geospatial.Haversine(lat, lon, lat, maxLon)
	if math.Abs(dEast-5000) > 100 {
		t.Errorf("east edge at %f m, expected ~5000", dEast)
	}
}

func TestCoveringRadius_ReachesCorners(t *testing.T) {
	north, south, west, east := 43.30, 43.22, -2.99, -2.89

	r := geospatial.CoveringRadius(north, south, west, east, 50)

	// The circle is centered on the box midpoint; every corner must be inside.
	centerLat := (north + south) / 2
	centerLon := (west + east) / 2
	corners := [][2]float64{
		{north, west}, {north, east}, {south, west}, {south, east},
	}
	for _, c := range corners {
		d := geospatial.Haversine(centerLat, centerLon, c[0], c[1])
		// Allow a small slack for the equirectangular approximation.
		if d > r*1.01 {
			t.Errorf("corner (%f, %f) at %f m outside covering radius %f", c[0], c[1], d, r)
		}
	}
}

func TestCoveringRadius_Floor(t *testing.T) {
	// A degenerate box still yields a usable query circle.
	r := geospatial.CoveringRadius(43.26, 43.26, -2.93, -2.93, 50)
	if r != 50 {
		t.Errorf("expected floor of 50, got %f", r)
	}
}

func TestCoveringRadius_ShrinksWithSplits(t *testing.T) {
	parent := geospatial.CoveringRadius(43.30, 43.22, -2.99, -2.89, 50)
	child := geospatial.CoveringRadius(43.30, 43.26, -2.99, -2.94, 50)
	if child >= parent {
		t.Errorf("quadrant radius %f should be below parent radius %f", child, parent)
	}
}
