package emit

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/n50osm/n50osm/internal/model"
)

// WriteGeoJSON serialises features as a GeoJSON FeatureCollection for
// --geojson mode (spec.md §6 "skip topology; write raw features as
// GeoJSON"), grounded on MeKo-Christian-WaterColorMap's
// internal/geojson/converter.go ToGeoJSON/ToGeoJSONBytes shape: build an
// orb geometry per feature, carry its tags as GeoJSON properties, then
// json.MarshalIndent the collection.
func WriteGeoJSON(features []*model.Feature, w io.Writer) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		geom := featureGeometry(f)
		if geom == nil {
			continue
		}
		gf := geojson.NewFeature(geom)
		if gf.Properties == nil {
			gf.Properties = map[string]interface{}{}
		}
		for k, v := range f.Tags {
			gf.Properties[k] = v
		}
		for k, v := range f.Extras {
			gf.Properties[k] = v
		}
		gf.Properties["n50_class"] = string(f.Class)
		if f.ID != "" {
			gf.Properties["n50_id"] = f.ID
		}
		fc.Append(gf)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("emit: marshalling GeoJSON: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// featureGeometry converts a Feature's geometry to the matching orb type.
// Rings are carried exactly as ingested (outer first, then inner), which
// is what makes --geojson output bit-identical to the pre-decomposition
// state per spec.md §8.
func featureGeometry(f *model.Feature) orb.Geometry {
	switch f.Kind {
	case model.FeaturePoint:
		if len(f.Points) == 0 {
			return nil
		}
		return orb.Point{f.Points[0].Lon, f.Points[0].Lat}
	case model.FeatureLine:
		if len(f.Points) < 2 {
			return nil
		}
		ls := make(orb.LineString, len(f.Points))
		for i, n := range f.Points {
			ls[i] = orb.Point{n.Lon, n.Lat}
		}
		return ls
	default: // FeaturePolygon
		if len(f.Rings) == 0 {
			return nil
		}
		poly := make(orb.Polygon, len(f.Rings))
		for i, ring := range f.Rings {
			r := make(orb.Ring, len(ring.Nodes))
			for j, n := range ring.Nodes {
				r[j] = orb.Point{n.Lon, n.Lat}
			}
			poly[i] = r
		}
		return poly
	}
}
