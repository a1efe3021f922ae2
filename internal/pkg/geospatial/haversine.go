package geospatial

import "math"

const (
	earthRadiusKm = 6371.0

	// metersPerDegLat is the equirectangular scale used for bounding-box and
	// covering-circle math. Longitude is additionally scaled by cos(lat).
	metersPerDegLat = 111320.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / metersPerDegLat
	lonDelta := radiusMeters / (metersPerDegLat * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// CoveringRadius returns the radius in meters of a circle centered on the
// box's midpoint that contains the whole box under the equirectangular
// approximation: the half-diagonal, with longitude scaled by cos(center lat).
// The result is floored at minRadius so degenerate boxes still produce a
// usable query shape.
func CoveringRadius(north, south, west, east, minRadius float64) float64 {
	latDelta := (north - south) / 2
	lonDelta := (east - west) / 2
	centerLat := (north + south) / 2

	dy := latDelta * metersPerDegLat
	dx := lonDelta * metersPerDegLat * math.Cos(toRad(centerLat))

	return math.Max(math.Hypot(dx, dy), minRadius)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
