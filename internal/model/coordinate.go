// Package model defines the shared types passed between the resolution
// cascade, the ranking engine and the presentation adapters.
package model

import (
	"fmt"
	"math"
)

// Coordinate is a WGS84 point. Values are never mutated once produced.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Valid reports whether the coordinate is within the WGS84 ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// String renders the coordinate as "lat,lon" with six decimals.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// SuggestionItem is one interactive disambiguation choice returned by a
// multi-result lookup. It is discarded once the origin is chosen.
type SuggestionItem struct {
	Label      string     `json:"label"`
	Coordinate Coordinate `json:"coordinate"`
}
