package geomutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/n50osm/n50osm/internal/model"
)

func square(cx, cy, half float64) []model.Node {
	return []model.Node{
		model.NewNode(cx-half, cy-half),
		model.NewNode(cx+half, cy-half),
		model.NewNode(cx+half, cy+half),
		model.NewNode(cx-half, cy+half),
		model.NewNode(cx-half, cy-half),
	}
}

func TestSignedAreaOrientation(t *testing.T) {
	ccw := square(10, 60, 0.01)
	assert.False(t, IsClockwise(ccw), "counter-clockwise ring must have positive signed area")

	cw := make([]model.Node, len(ccw))
	for i, n := range ccw {
		cw[len(ccw)-1-i] = n
	}
	assert.True(t, IsClockwise(cw), "reversing ring order must flip the winding sense")
}

func TestMultipolygonAreaSubtractsHoles(t *testing.T) {
	outer := square(10, 60, 0.1)
	inner := square(10, 60, 0.02)

	area, ok := MultipolygonArea([][]model.Node{outer, inner})
	assert.True(t, ok)

	outerOnly, _ := MultipolygonArea([][]model.Node{outer})
	assert.Less(t, area, outerOnly, "a hole must reduce multipolygon area")
}

func TestMultipolygonAreaRejectsOpenInnerRing(t *testing.T) {
	outer := square(10, 60, 0.1)
	openInner := []model.Node{model.NewNode(10, 60), model.NewNode(10.01, 60.01)}

	_, ok := MultipolygonArea([][]model.Node{outer, openInner})
	assert.False(t, ok)
}

func TestPointInRing(t *testing.T) {
	ring := square(10, 60, 0.1)
	assert.True(t, PointInRing(model.NewNode(10, 60), ring))
	assert.False(t, PointInRing(model.NewNode(20, 60), ring))
}

func TestPointInMultipolygonExcludesHoles(t *testing.T) {
	outer := square(10, 60, 0.1)
	hole := square(10, 60, 0.02)
	rings := [][]model.Node{outer, hole}

	assert.True(t, PointInMultipolygon(model.NewNode(10.05, 60), rings), "point between hole and outer edge must be inside")
	assert.False(t, PointInMultipolygon(model.NewNode(10, 60), rings), "point inside the hole must be excluded")
	assert.False(t, PointInMultipolygon(model.NewNode(20, 60), rings), "point outside the outer ring must be excluded")
}

func TestOffsetMetresRoundTrip(t *testing.T) {
	start := model.NewNode(10, 60)
	moved := OffsetMetres(start, 100, 0)
	assert.Greater(t, moved.Lat, start.Lat)

	back := OffsetMetres(moved, -100, 0)
	assert.InDelta(t, start.Lat, back.Lat, 1e-6)
}

func TestCentroidOfSquareIsCenter(t *testing.T) {
	ring := square(10, 60, 0.1)
	c := Centroid(ring)
	assert.InDelta(t, 10.0, c.Lon, 1e-6)
	assert.InDelta(t, 60.0, c.Lat, 1e-6)
}
