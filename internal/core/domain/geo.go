package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LatLng is the coordinate shape used by the upstream places APIs.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Region is a rectangular geographic area in degrees.
// Invariant: North >= South and East >= West. Regions crossing the
// antimeridian are not supported.
type Region struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// Valid reports whether the bounds are ordered.
func (r Region) Valid() bool {
	return r.North >= r.South && r.East >= r.West
}

// Center returns the midpoint of the region.
func (r Region) Center() GeoPoint {
	return GeoPoint{Lat: (r.North + r.South) / 2, Lon: (r.West + r.East) / 2}
}

// Quadrants splits the region at its latitude and longitude midpoints into
// four children that exactly partition it, in NW, NE, SW, SE order.
func (r Region) Quadrants() [4]Region {
	midLat := (r.North + r.South) / 2
	midLon := (r.West + r.East) / 2
	return [4]Region{
		{North: r.North, South: midLat, West: r.West, East: midLon},
		{North: r.North, South: midLat, West: midLon, East: r.East},
		{North: midLat, South: r.South, West: r.West, East: midLon},
		{North: midLat, South: r.South, West: midLon, East: r.East},
	}
}

// Circle is the query shape sent to the aggregation service: a center point
// plus a radius in meters.
type Circle struct {
	Center GeoPoint `json:"center"`
	Radius float64  `json:"radius_m"`
}
