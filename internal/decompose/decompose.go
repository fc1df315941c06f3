// Package decompose implements spec.md §4.3: for each polygon ring, find
// its constituent boundary segments, orient them so water lies on the
// segment's left, and fabricate any missing border segments.
//
// Grounded on the teacher's VRPT topology resolver
// (beetlebugorg/s57 internal/parser/topology.go): where the teacher follows
// an explicit edge graph to assemble a ring from S-57 edge records, this
// package runs the inverse problem — given a ring of raw coordinates and a
// pool of candidate segments, decide which segments cover it — but borrows
// the same "arena + stable ref, never a pointer" discipline
// (spatialKey/edgeCache there, SegmentRef here).
package decompose

import (
	"log/slog"

	"github.com/n50osm/n50osm/internal/model"
	"github.com/n50osm/n50osm/internal/spatialindex"
)

// Decomposer runs the polygon decomposition stage.
type Decomposer struct {
	Arena *model.SegmentArena
	Index *spatialindex.SegmentIndex
	Log   *slog.Logger
}

// New returns a Decomposer over the given segment arena, building a fresh
// spatial index for it.
func New(arena *model.SegmentArena, log *slog.Logger) *Decomposer {
	if log == nil {
		log = slog.Default()
	}
	return &Decomposer{Arena: arena, Index: spatialindex.Build(arena), Log: log}
}

// DecomposeFeature decomposes every ring of a polygon feature, mutating
// Ring.Members in place and possibly appending fabricated border segments
// to the arena.
func (d *Decomposer) DecomposeFeature(f *model.Feature) {
	if f.Kind != model.FeaturePolygon {
		return
	}
	for i := range f.Rings {
		d.decomposeRing(f, i)
	}
}

// decomposeRing runs the per-ring algorithm of §4.3 steps 1-7.
func (d *Decomposer) decomposeRing(f *model.Feature, ringIdx int) {
	ring := &f.Rings[ringIdx]
	nodes := ring.Nodes
	if len(nodes) < 2 {
		return
	}

	ringBounds := model.BoundsOf(nodes)
	ringSet := make(map[model.Node]bool, len(nodes))
	for _, n := range nodes {
		ringSet[n] = true
	}
	pos := ringPositions(nodes)

	type accepted struct {
		ref       model.SegmentRef
		secondIdx int
	}
	var matches []accepted
	matchedNodes := 0

	for _, ref := range d.Index.CandidatesFor(ringBounds) {
		seg := d.Arena.Get(ref)
		if !seg.Bounds().Intersects(ringBounds) {
			continue
		}
		if !subsetOf(seg.NodeSet(), ringSet) {
			continue
		}
		if len(seg.Nodes) == 2 && !areRingNeighbours(pos, len(nodes)-1, seg.Nodes[0], seg.Nodes[1]) {
			continue
		}

		d.orient(f, seg, pos, len(nodes)-1)
		seg.Used++
		matchedNodes += len(seg.Nodes) - 1

		secondIdx, ok := pos[secondNodeOf(seg)]
		if !ok {
			secondIdx = 0
		} else if secondIdx == 0 {
			secondIdx = len(nodes) - 1 // the closing node ends the ring
		}
		matches = append(matches, accepted{ref: ref, secondIdx: secondIdx})
	}

	if matchedNodes < len(nodes)-1 && !f.IsSea() {
		acceptedRefs := make([]model.SegmentRef, len(matches))
		for i, m := range matches {
			acceptedRefs[i] = m.ref
		}
		covered := d.coverage(nodes, acceptedRefs, pos)
		d.fabricateBorders(f, ring, nodes, covered)
		for _, ref := range ring.Members {
			seg := d.Arena.Get(ref)
			secondIdx, ok := pos[secondNodeOf(seg)]
			if !ok {
				secondIdx = 0
			} else if secondIdx == 0 {
				secondIdx = len(nodes) - 1 // the closing node ends the ring
			}
			matches = append(matches, accepted{ref: ref, secondIdx: secondIdx})
		}
	}

	// Sort by second coordinate's ring index (§4.3 step 7).
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].secondIdx > matches[j].secondIdx; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}

	ring.Members = ring.Members[:0]
	for _, m := range matches {
		ring.Members = append(ring.Members, m.ref)
	}
}

// ringPositions maps each node to the index of its first occurrence.
func ringPositions(nodes []model.Node) map[model.Node]int {
	pos := make(map[model.Node]int, len(nodes))
	for i, n := range nodes {
		if _, ok := pos[n]; !ok {
			pos[n] = i
		}
	}
	return pos
}

func secondNodeOf(seg *model.Segment) model.Node {
	if len(seg.Nodes) < 2 {
		return seg.Nodes[0]
	}
	return seg.Nodes[1]
}

func subsetOf(small, big map[model.Node]bool) bool {
	for n := range small {
		if !big[n] {
			return false
		}
	}
	return true
}

// areRingNeighbours reports whether a and b are adjacent in the ring,
// treating it as cyclic when ring[0]==ring[-1] (ringLen is the number of
// real edges, i.e. len(ring)-1).
func areRingNeighbours(pos map[model.Node]int, ringLen int, a, b model.Node) bool {
	pa, oka := pos[a]
	pb, okb := pos[b]
	if !oka || !okb {
		return false
	}
	diff := pa - pb
	if diff < 0 {
		diff = -diff
	}
	return diff == 1 || diff == ringLen-1
}

// orient applies the §4.3 step-5 orientation rule: water bodies and sea
// faces get their boundary segments flipped, unless the segment's first two
// nodes already appear in ring order, and the decision is made at most
// once per segment.
func (d *Decomposer) orient(f *model.Feature, seg *model.Segment, pos map[model.Node]int, ringLen int) {
	if seg.OrientationSet {
		return
	}
	needsOrientation := (f.IsSea() && isSeaBoundaryClass(seg.Class)) ||
		(isWaterFeatureClass(f.Class) && model.WaterEdgeClasses[seg.Class])
	if !needsOrientation {
		return
	}
	if !inRingOrder(pos, ringLen, seg.Nodes[0], seg.Nodes[1]) {
		seg.Reverse()
	}
	seg.OrientationSet = true
}

func isSeaBoundaryClass(c model.ObjectClass) bool {
	return c == model.ClassCoastline || c == model.ClassSeaLakeBorder || c == model.ClassSeaRiverBorder
}

func isWaterFeatureClass(c model.ObjectClass) bool {
	return c == "Innsjø" || c == "InnsjøRegulert" || c == "ElvBekk" || c == "FerskvannTørrfall"
}

// inRingOrder reports whether moving forward (increasing index, cyclic)
// from first's ring position reaches last's position before wrapping
// around past it — i.e. the segment already points the way the ring winds.
func inRingOrder(pos map[model.Node]int, ringLen int, first, last model.Node) bool {
	pf, okf := pos[first]
	pl, okl := pos[last]
	if !okf || !okl {
		return true // nothing to compare against; leave as-is
	}
	forward := (pl - pf + ringLen) % ringLen
	backward := (pf - pl + ringLen) % ringLen
	return forward <= backward
}

// coverage builds the boolean "covered" vector of length len(ring)-1 for
// the accepted segment refs (§4.3 "Border fabrication").
func (d *Decomposer) coverage(ring []model.Node, refs []model.SegmentRef, pos map[model.Node]int) []bool {
	ringLen := len(ring) - 1
	covered := make([]bool, ringLen)
	for _, ref := range refs {
		seg := d.Arena.Get(ref)
		if len(seg.Nodes) < 2 {
			continue
		}
		startIdx, okA := pos[seg.Nodes[0]]
		endIdx, okB := pos[seg.Nodes[len(seg.Nodes)-1]]
		if !okA || !okB {
			continue
		}
		markRunCovered(covered, startIdx, endIdx, ringLen)
	}
	return covered
}

// markRunCovered marks ring edges between consecutive segment nodes as
// covered, handling the cyclic wrap.
func markRunCovered(covered []bool, start, end, ringLen int) {
	if start <= end {
		for i := start; i < end; i++ {
			covered[i] = true
		}
		return
	}
	for i := start; i < ringLen; i++ {
		covered[i] = true
	}
	for i := 0; i < end; i++ {
		covered[i] = true
	}
}

// fabricateBorders materialises a KantUtsnitt segment for every maximal
// uncovered run of ring edges (§4.3 "Border fabrication").
func (d *Decomposer) fabricateBorders(f *model.Feature, ring *model.Ring, nodes []model.Node, covered []bool) {
	ringLen := len(covered)
	if ringLen == 0 {
		return
	}

	visited := make([]bool, ringLen)
	for i := 0; i < ringLen; i++ {
		if covered[i] || visited[i] {
			continue
		}
		// Walk forward from i collecting the maximal uncovered run.
		j := i
		for !covered[(j+1)%ringLen] && (j+1)%ringLen != i {
			j = (j + 1) % ringLen
			visited[j] = true
		}
		visited[i] = true

		segNodes := ringSlice(nodes, i, j)
		if len(segNodes) < 2 {
			d.Log.Warn("decompose: skipped degenerate border fabrication run", "feature", f.ID)
			continue
		}

		seg := model.NewSegment(model.ClassBorderCut, segNodes)
		seg.Used = 1
		ref := d.Arena.Add(seg)
		ring.Members = append(ring.Members, ref)

		if j < i {
			// Anomaly: the run wraps non-adjacently relative to start; still
			// materialised, but logged per §4.3 "Missing non-adjacent
			// coverage is an anomaly".
			d.Log.Warn("decompose: non-adjacent uncovered run fabricated", "feature", f.ID)
		}
	}
}

// ringSlice returns nodes[s..e+1] inclusive, i.e. R[s..e+1] from the spec's
// notation; wrap is handled by the caller choosing s<=e in the common case.
func ringSlice(nodes []model.Node, s, e int) []model.Node {
	if s <= e {
		out := make([]model.Node, e-s+2)
		copy(out, nodes[s:e+2])
		return out
	}
	// Wrapped run: s..end, then 0..e+1.
	out := make([]model.Node, 0, (len(nodes)-1-s)+(e+2))
	out = append(out, nodes[s:]...)
	out = append(out, nodes[1:e+2]...)
	return out
}
