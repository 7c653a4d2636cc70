// Package export renders ranked candidates as GeoJSON or as a text table.
package export

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/nearby/internal/model"
)

// FeatureCollection builds a collection with the origin (when known) and
// every resolved candidate as points. Candidates in top carry their 1-based
// rank.
func FeatureCollection(origin *model.Coordinate, candidates, top []model.Candidate) *geojson.FeatureCollection {
	rank := make(map[int]int, len(top))
	for i, c := range top {
		rank[c.ID] = i + 1
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(candidates)+1)}
	if origin != nil {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "origin",
			Geometry:   point(*origin),
			Properties: map[string]interface{}{"role": "origin"},
		})
	}

	for _, c := range candidates {
		if c.Resolved == nil {
			continue
		}
		props := map[string]interface{}{
			"role":  "candidate",
			"name":  c.Name,
			"label": c.Label,
		}
		if d, ok := c.Distance(); ok {
			props["distance_miles"] = d
		}
		if r, ok := rank[c.ID]; ok {
			props["rank"] = r
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(c.ID),
			Geometry:   point(*c.Resolved),
			Properties: props,
		})
	}
	return fc
}

// WriteGeoJSON encodes the collection built by FeatureCollection to w.
func WriteGeoJSON(w io.Writer, origin *model.Coordinate, candidates, top []model.Candidate) error {
	data, err := json.MarshalIndent(FeatureCollection(origin, candidates, top), "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

// point converts to GeoJSON axis order, longitude first.
func point(c model.Coordinate) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude})
}
