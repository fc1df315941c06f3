package pipeline

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleGML = `<?xml version="1.0"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:gml="http://www.opengis.net/gml/3.2" xmlns:app="http://n50osm.test">
  <gml:featureMember>
    <app:Innsjøkant gml:id="seg.1">
      <app:grense>
        <gml:Curve>
          <gml:segments>
            <gml:LineStringSegment>
              <gml:posList>270000 7040000 270100 7040000 270100 7040100 270000 7040100 270000 7040000</gml:posList>
            </gml:LineStringSegment>
          </gml:segments>
        </gml:Curve>
      </app:grense>
    </app:Innsjøkant>
  </gml:featureMember>
  <gml:featureMember>
    <app:Innsjø gml:id="lake.1">
      <app:område>
        <gml:Surface>
          <gml:patches>
            <gml:PolygonPatch>
              <gml:exterior>
                <gml:LinearRing>
                  <gml:posList>270000 7040000 270100 7040000 270100 7040100 270000 7040100 270000 7040000</gml:posList>
                </gml:LinearRing>
              </gml:exterior>
            </gml:PolygonPatch>
          </gml:patches>
        </gml:Surface>
      </app:område>
    </app:Innsjø>
  </gml:featureMember>
  <gml:featureMember>
    <app:Stedsnavn gml:id="name.1">
      <app:posisjon>
        <gml:Point>
          <gml:pos>270050 7040050</gml:pos>
        </gml:Point>
      </app:posisjon>
      <app:navn>Testvatnet</app:navn>
    </app:Stedsnavn>
  </gml:featureMember>
</wfs:FeatureCollection>`

func TestRunDefaultModeDecomposesAndEmitsMultipolygonOrWay(t *testing.T) {
	p := New(nil, nil, "Arealdekke", discardLogger())
	result, err := p.Run(context.Background(), strings.NewReader(sampleGML), "5001", Options{})
	require.NoError(t, err)

	var lakeFeature, nameFeature bool
	for _, f := range result.Features {
		if f.Class == "Innsjø" {
			lakeFeature = true
			require.NotEmpty(t, f.Rings)
			require.NotEmpty(t, f.Rings[0].Members, "decompose must have matched the boundary segment to the ring")
		}
		if f.Class == "Stedsnavn" {
			nameFeature = true
		}
	}
	assert.True(t, lakeFeature)
	assert.True(t, nameFeature)

	var buf bytes.Buffer
	require.NoError(t, Emit(result, false, &buf))
	assert.Contains(t, buf.String(), `action="modify"`)
}

func TestRunRawGeoJSONModeSkipsDecomposition(t *testing.T) {
	p := New(nil, nil, "Arealdekke", discardLogger())
	result, err := p.Run(context.Background(), strings.NewReader(sampleGML), "5001", Options{RawGeoJSON: true})
	require.NoError(t, err)

	for _, f := range result.Features {
		if f.Class == "Innsjø" {
			assert.Empty(t, f.Rings[0].Members, "decomposition must not run in raw GeoJSON mode")
			assert.NotEqual(t, 270000.0, f.Rings[0].Nodes[0].Lon, "--geojson must still reproject from UTM33N, not pass raw easting/northing through")
			assert.InDelta(t, 10.0, f.Rings[0].Nodes[0].Lon, 1.0, "reprojected longitude must land near the source UTM zone")
		}
	}
	assert.Empty(t, result.Shared, "node coalescing must not run in raw GeoJSON mode")

	var buf bytes.Buffer
	require.NoError(t, EmitGeoJSON(result, &buf))
	out := buf.String()
	assert.Contains(t, out, `"FeatureCollection"`)
	assert.Contains(t, out, `"Polygon"`)
	assert.NotContains(t, out, `action="modify"`, "geojson mode must not write OSM XML")
}

func TestRunTagModePreservesRawAttributesAsTags(t *testing.T) {
	p := New(nil, nil, "Arealdekke", discardLogger())
	result, err := p.Run(context.Background(), strings.NewReader(sampleGML), "5001", Options{TagMode: true})
	require.NoError(t, err)

	for _, f := range result.Features {
		if f.Class == "Stedsnavn" {
			assert.Equal(t, "Testvatnet", f.Tags["N50_NAVN"])
		}
	}
}
