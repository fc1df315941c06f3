package coalesce

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n50osm/n50osm/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSeedsSharedFromSegmentAndStreamEndpoints(t *testing.T) {
	var arena model.SegmentArena
	arena.Add(model.NewSegment(model.ClassCoastline, []model.Node{
		model.NewNode(0, 0), model.NewNode(1, 1), model.NewNode(2, 2),
	}))
	stream := model.NewFeature("ElvBekk", model.FeatureLine)
	stream.Points = []model.Node{model.NewNode(10, 10), model.NewNode(11, 11), model.NewNode(12, 12)}

	c := New(&arena, []*model.Feature{stream}, Options{}, discardLogger())

	assert.True(t, c.Shared[model.NewNode(0, 0)])
	assert.True(t, c.Shared[model.NewNode(2, 2)])
	assert.False(t, c.Shared[model.NewNode(1, 1)], "interior segment nodes are not seeded as shared")
	assert.True(t, c.Shared[model.NewNode(10, 10)])
	assert.True(t, c.Shared[model.NewNode(12, 12)])
}

func TestRunSimplifiesAuxiliaryCutToEndpoints(t *testing.T) {
	var arena model.SegmentArena
	ref := arena.Add(model.NewSegment(model.ClassAuxiliaryCut, []model.Node{
		model.NewNode(0, 0), model.NewNode(0.5, 0.5), model.NewNode(1, 1),
	}))

	c := New(&arena, nil, Options{}, discardLogger())
	c.Run()

	seg := arena.Get(ref)
	assert.Equal(t, []model.Node{model.NewNode(0, 0), model.NewNode(1, 1)}, seg.Nodes)
}

func TestRunSkipsIntersectionResolutionWhenDisabled(t *testing.T) {
	var arena model.SegmentArena
	crossing := model.NewNode(1, 0)
	segRef := arena.Add(model.NewSegment("Innsjøkant", []model.Node{
		model.NewNode(0, 0), crossing, model.NewNode(2, 0),
	}))
	stream := model.NewFeature("ElvBekk", model.FeatureLine)
	stream.Points = []model.Node{model.NewNode(1, -1), crossing, model.NewNode(1, 1)}

	c := New(&arena, []*model.Feature{stream}, Options{CheckIntersections: false}, discardLogger())
	c.Run()

	assert.Equal(t, 3, len(arena.Get(segRef).Nodes), "--nonode must leave boundary segments untouched")
	assert.Equal(t, 3, len(stream.Points))
}

func TestResolveStreamIntersectionsRemovesArtefactCrossing(t *testing.T) {
	var arena model.SegmentArena
	crossing := model.NewNode(1, 0)
	segRef := arena.Add(model.NewSegment("Innsjøkant", []model.Node{
		model.NewNode(0, 0), crossing, model.NewNode(2, 0),
	}))
	stream := model.NewFeature("ElvBekk", model.FeatureLine)
	stream.Points = []model.Node{model.NewNode(1, -1), crossing, model.NewNode(1, 1)}

	c := New(&arena, []*model.Feature{stream}, Options{CheckIntersections: true}, discardLogger())
	c.Run()

	assert.NotContains(t, stream.Points, crossing, "unshared interior crossing must be dropped from the stream")
	assert.NotContains(t, arena.Get(segRef).Nodes, crossing, "and from the boundary segment")
}

func TestResolveStreamIntersectionsNudgesGenuineConfluence(t *testing.T) {
	var arena model.SegmentArena
	crossing := model.NewNode(1, 0)
	segRef := arena.Add(model.NewSegment("Innsjøkant", []model.Node{
		model.NewNode(0, 0), crossing, model.NewNode(2, 0),
	}))
	stream := model.NewFeature("ElvBekk", model.FeatureLine)
	// Adjacent stream point is also a common node, so neighbourInIntersection
	// holds and the interior node is nudged rather than dropped.
	stream.Points = []model.Node{model.NewNode(1, -1), crossing, model.NewNode(2, 0)}

	c := New(&arena, []*model.Feature{stream}, Options{CheckIntersections: true}, discardLogger())
	c.Run()

	require.Len(t, stream.Points, 3)
	nudged := stream.Points[1]
	assert.NotEqual(t, crossing, nudged)
	assert.InDelta(t, crossing.Lon+4*nudgeEpsilon, nudged.Lon, 1e-12)
	assert.InDelta(t, crossing.Lat+2*nudgeEpsilon, nudged.Lat, 1e-12)
}

func TestResolveStreamIntersectionsAddsWaterEdgeEndpointToShared(t *testing.T) {
	var arena model.SegmentArena
	endpoint := model.NewNode(0, 0)
	arena.Add(model.NewSegment(model.ClassCoastline, []model.Node{
		endpoint, model.NewNode(1, 1),
	}))
	stream := model.NewFeature("ElvBekk", model.FeatureLine)
	stream.Points = []model.Node{endpoint, model.NewNode(5, 5)}

	c := New(&arena, []*model.Feature{stream}, Options{CheckIntersections: true}, discardLogger())
	c.Run()

	assert.True(t, c.Shared[endpoint])
}
