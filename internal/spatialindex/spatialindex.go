// Package spatialindex provides a bounding-box index over boundary
// segments, used by the polygon decomposer to narrow candidate segments to
// those whose bounding box intersects a ring's (spec.md §4.3).
//
// Grounded on the teacher's chart-level R-tree (beetlebugorg/s57
// pkg/s57/s57.go spatialIndex, pkg/s57/index.go ChartIndex): an rtreego
// tree keyed by bounding box, wrapping opaque payloads for O(log n)
// intersection queries instead of the O(n) linear scan a flat slice would
// need once a municipality's segment pool reaches tens of thousands of
// entries.
package spatialindex

import (
	"github.com/dhconnelly/rtreego"

	"github.com/n50osm/n50osm/internal/model"
)

// minBoxSize keeps degenerate (point-like) bounding boxes non-zero, which
// rtreego requires; mirrors the teacher's indexedFeature.Bounds epsilon.
const minBoxSize = 1e-9

// entry wraps a SegmentRef for storage in the R-tree.
type entry struct {
	ref    model.SegmentRef
	bounds model.Bounds
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return toRect(e.bounds)
}

func toRect(b model.Bounds) rtreego.Rect {
	lonLen := b.MaxLon - b.MinLon
	latLen := b.MaxLat - b.MinLat
	if lonLen < minBoxSize {
		lonLen = minBoxSize
	}
	if latLen < minBoxSize {
		latLen = minBoxSize
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.MinLon, b.MinLat}, []float64{lonLen, latLen})
	if err != nil {
		// A degenerate point can still fail NewRect on exactly-zero input;
		// minBoxSize above makes this unreachable in practice.
		rect, _ = rtreego.NewRect(rtreego.Point{b.MinLon, b.MinLat}, []float64{minBoxSize, minBoxSize})
	}
	return rect
}

// SegmentIndex answers bounding-box queries over a segment arena.
type SegmentIndex struct {
	arena *model.SegmentArena
	rtree *rtreego.Rtree
}

// Build constructs a SegmentIndex over every segment in arena.
func Build(arena *model.SegmentArena) *SegmentIndex {
	tree := rtreego.NewTree(2, 25, 50)
	idx := &SegmentIndex{arena: arena, rtree: tree}
	arena.All(func(ref model.SegmentRef, seg *model.Segment) {
		tree.Insert(&entry{ref: ref, bounds: seg.Bounds()})
	})
	return idx
}

// CandidatesFor returns every segment ref whose bounding box intersects b.
func (idx *SegmentIndex) CandidatesFor(b model.Bounds) []model.SegmentRef {
	results := idx.rtree.SearchIntersect(toRect(b))
	refs := make([]model.SegmentRef, 0, len(results))
	for _, r := range results {
		refs = append(refs, r.(*entry).ref)
	}
	return refs
}
