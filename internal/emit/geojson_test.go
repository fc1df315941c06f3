package emit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n50osm/n50osm/internal/model"
)

func TestWriteGeoJSONEncodesPointLineAndPolygonFeatures(t *testing.T) {
	point := model.NewFeature("Stedsnavn", model.FeaturePoint)
	point.Points = []model.Node{model.NewNode(10, 60)}
	point.Tags["place"] = "islet"

	line := model.NewFeature("ElvBekk", model.FeatureLine)
	line.Points = []model.Node{model.NewNode(0, 0), model.NewNode(1, 1)}

	poly := model.NewFeature("Innsjø", model.FeaturePolygon)
	poly.Rings = []model.Ring{{Nodes: []model.Node{
		model.NewNode(0, 0), model.NewNode(1, 0), model.NewNode(1, 1), model.NewNode(0, 0),
	}}}
	poly.Tags["natural"] = "water"

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON([]*model.Feature{point, line, poly}, &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])

	features := decoded["features"].([]interface{})
	require.Len(t, features, 3)

	types := make([]string, len(features))
	for i, f := range features {
		geom := f.(map[string]interface{})["geometry"].(map[string]interface{})
		types[i] = geom["type"].(string)
	}
	assert.ElementsMatch(t, []string{"Point", "LineString", "Polygon"}, types)
}

func TestWriteGeoJSONCopiesTagsAndExtrasAsProperties(t *testing.T) {
	f := model.NewFeature("Stedsnavn", model.FeaturePoint)
	f.ID = "123"
	f.Points = []model.Node{model.NewNode(10, 60)}
	f.Tags["name"] = "Testnes"
	f.Extras["navn"] = "Testnes"

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON([]*model.Feature{f}, &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	props := decoded["features"].([]interface{})[0].(map[string]interface{})["properties"].(map[string]interface{})

	assert.Equal(t, "Testnes", props["name"])
	assert.Equal(t, "Testnes", props["navn"])
	assert.Equal(t, "123", props["n50_id"])
	assert.Equal(t, "Stedsnavn", props["n50_class"])
}

func TestWriteGeoJSONSkipsFeatureWithoutGeometry(t *testing.T) {
	empty := model.NewFeature("Innsjø", model.FeaturePolygon)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON([]*model.Feature{empty}, &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, decoded["features"])
}
