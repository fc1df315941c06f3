package spatialindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/n50osm/n50osm/internal/model"
)

func TestCandidatesForReturnsOnlyIntersectingSegments(t *testing.T) {
	var arena model.SegmentArena
	near := arena.Add(model.NewSegment("Kystkontur", []model.Node{
		model.NewNode(10.0, 60.0), model.NewNode(10.01, 60.01),
	}))
	far := arena.Add(model.NewSegment("Kystkontur", []model.Node{
		model.NewNode(50.0, 20.0), model.NewNode(50.01, 20.01),
	}))

	idx := Build(&arena)
	got := idx.CandidatesFor(model.Bounds{MinLon: 9.9, MaxLon: 10.2, MinLat: 59.9, MaxLat: 60.2})

	assert.Contains(t, got, near)
	assert.NotContains(t, got, far)
}

func TestCandidatesForDegenerateBounds(t *testing.T) {
	var arena model.SegmentArena
	ref := arena.Add(model.NewSegment("Innsjøkant", []model.Node{
		model.NewNode(5.0, 50.0), model.NewNode(5.0, 50.0),
	}))

	idx := Build(&arena)
	got := idx.CandidatesFor(model.Bounds{MinLon: 5.0, MaxLon: 5.0, MinLat: 50.0, MaxLat: 50.0})

	assert.Contains(t, got, ref)
}
