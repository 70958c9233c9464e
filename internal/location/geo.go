package location

import (
	"math"

	"github.com/twpayne/go-geom"
)

// earthRadiusMeters is the WGS84 mean radius used for the spherical
// approximation. Good to a few meters at the radii this service allows.
const earthRadiusMeters = 6371000

// Coord builds a go-geom coordinate pair in (longitude, latitude)
// axis order.
func Coord(lat, lon float64) geom.Coord {
	return geom.Coord{lon, lat}
}

// Haversine returns the great-circle distance in meters between two
// (longitude, latitude) coordinate pairs.
func Haversine(from, to geom.Coord) float64 {
	lat1 := toRadians(from.Y())
	lat2 := toRadians(to.Y())
	dLat := toRadians(to.Y() - from.Y())
	dLon := toRadians(to.X() - from.X())

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// toRadians converts an angle from degrees to radians.
func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
