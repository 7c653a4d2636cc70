// Package distance computes great-circle distances in statute miles.
package distance

import (
	"math"

	"github.com/sells-group/nearby/internal/model"
)

// EarthRadiusMiles is the mean Earth radius used by Miles.
const EarthRadiusMiles = 3959.0

// Miles returns the haversine distance between two points given in degrees.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Between returns the distance from a to b.
func Between(a, b model.Coordinate) float64 {
	return Miles(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
