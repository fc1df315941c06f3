package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNodeRounding(t *testing.T) {
	n := NewNode(10.123456789, 59.987654321)
	assert.Equal(t, RoundCoord(10.123456789), n.Lon)
	assert.Equal(t, RoundCoord(59.987654321), n.Lat)
}

func TestNodeEquality(t *testing.T) {
	a := NewNode(10.0000001, 59.0)
	b := NewNode(10.0000001, 59.0)
	assert.Equal(t, a, b, "two nodes built from the same rounded coordinates must compare equal")
}

func TestBoundsOfAndIntersects(t *testing.T) {
	nodes := []Node{
		NewNode(10.0, 59.0),
		NewNode(10.5, 59.5),
		NewNode(10.2, 58.8),
	}
	b := BoundsOf(nodes)
	assert.Equal(t, 10.0, b.MinLon)
	assert.Equal(t, 10.5, b.MaxLon)
	assert.Equal(t, 58.8, b.MinLat)
	assert.Equal(t, 59.5, b.MaxLat)

	other := Bounds{MinLon: 10.4, MaxLon: 11.0, MinLat: 59.0, MaxLat: 60.0}
	assert.True(t, b.Intersects(other))

	disjoint := Bounds{MinLon: 20.0, MaxLon: 21.0, MinLat: 59.0, MaxLat: 60.0}
	assert.False(t, b.Intersects(disjoint))
}

func TestSegmentReverseTogglesFlagAndOrder(t *testing.T) {
	s := NewSegment("Kystkontur", []Node{NewNode(0, 0), NewNode(1, 1), NewNode(2, 2)})
	first, last := s.First(), s.Last()

	s.Reverse()

	assert.True(t, s.Reversed)
	assert.Equal(t, last, s.First())
	assert.Equal(t, first, s.Last())
}

func TestSegmentClosed(t *testing.T) {
	open := NewSegment("Kystkontur", []Node{NewNode(0, 0), NewNode(1, 1)})
	assert.False(t, open.Closed())

	closed := NewSegment("Kystkontur", []Node{NewNode(0, 0), NewNode(1, 1), NewNode(0, 0)})
	assert.True(t, closed.Closed())
}

func TestSegmentArenaAddGetAll(t *testing.T) {
	var arena SegmentArena
	ref1 := arena.Add(NewSegment("Kystkontur", []Node{NewNode(0, 0), NewNode(1, 0)}))
	ref2 := arena.Add(NewSegment("Innsjøkant", []Node{NewNode(1, 0), NewNode(1, 1)}))

	assert.Equal(t, 2, arena.Len())
	assert.Equal(t, ObjectClass("Kystkontur"), arena.Get(ref1).Class)
	assert.Equal(t, ObjectClass("Innsjøkant"), arena.Get(ref2).Class)

	seen := map[SegmentRef]bool{}
	arena.All(func(ref SegmentRef, s *Segment) {
		seen[ref] = true
	})
	assert.Len(t, seen, 2)
}

func TestFeatureIsSeaAndIsWaterBody(t *testing.T) {
	sea := NewFeature("Havflate", FeaturePolygon)
	assert.True(t, sea.IsSea())
	assert.True(t, sea.IsWaterBody())

	lake := NewFeature("Innsjø", FeaturePolygon)
	assert.False(t, lake.IsSea())
	assert.True(t, lake.IsWaterBody())

	building := NewFeature("Bygning", FeaturePolygon)
	assert.False(t, building.IsWaterBody())
}
