// Package coalesce implements spec.md §4.5: deciding which coordinates
// must become distinct shared OSM nodes, and resolving spurious stream/
// boundary crossings introduced by independently-digitised geometry.
package coalesce

import (
	"log/slog"

	"github.com/n50osm/n50osm/internal/model"
)

// nudgeEpsilon is the ε used by the (+4ε, +2ε) nudge rule.
const nudgeEpsilon = 1e-6

// Coalescer resolves the shared-node set across streams and boundary
// segments.
type Coalescer struct {
	Arena   *model.SegmentArena
	Streams []*model.Feature // LineString features, e.g. ElvBekk centrelines
	Shared  map[model.Node]bool
	Log     *slog.Logger

	checkIntersections bool
}

// Options controls which parts of the coalescing pass run.
type Options struct {
	// CheckIntersections enables the stream/boundary-segment interior-node
	// resolution; disabled by --nonode (spec.md §6).
	CheckIntersections bool
}

// New returns a Coalescer seeded from every segment and stream endpoint
// (spec.md §4.5 "Seed the shared-node set...").
func New(arena *model.SegmentArena, streams []*model.Feature, opts Options, log *slog.Logger) *Coalescer {
	if log == nil {
		log = slog.Default()
	}
	c := &Coalescer{
		Arena:              arena,
		Streams:            streams,
		Shared:             map[model.Node]bool{},
		Log:                log,
		checkIntersections: opts.CheckIntersections,
	}
	c.seed()
	return c
}

func (c *Coalescer) seed() {
	c.Arena.All(func(_ model.SegmentRef, seg *model.Segment) {
		if len(seg.Nodes) == 0 {
			return
		}
		c.Shared[seg.First()] = true
		c.Shared[seg.Last()] = true
	})
	for _, s := range c.Streams {
		if len(s.Points) == 0 {
			continue
		}
		c.Shared[s.Points[0]] = true
		c.Shared[s.Points[len(s.Points)-1]] = true
	}
}

// Run simplifies auxiliary cut lines, then resolves stream/boundary
// intersections if enabled.
func (c *Coalescer) Run() {
	c.simplifyAuxiliaryCuts()
	if c.checkIntersections {
		c.resolveStreamIntersections()
	}
}

// simplifyAuxiliaryCuts implements "auxiliary cut lines (FiktivDelelinje)
// are simplified to their two endpoints regardless of interior shape"
// (spec.md §4.5).
func (c *Coalescer) simplifyAuxiliaryCuts() {
	c.Arena.All(func(_ model.SegmentRef, seg *model.Segment) {
		if seg.Class != model.ClassAuxiliaryCut || len(seg.Nodes) <= 2 {
			return
		}
		seg.Nodes = []model.Node{seg.First(), seg.Last()}
	})
}

// resolveStreamIntersections implements the per-stream, per-boundary-
// segment interior-node resolution described in spec.md §4.5.
func (c *Coalescer) resolveStreamIntersections() {
	for _, stream := range c.Streams {
		streamBounds := model.BoundsOf(stream.Points)
		c.Arena.All(func(ref model.SegmentRef, seg *model.Segment) {
			if !seg.Bounds().Intersects(streamBounds) {
				return
			}
			c.resolvePair(stream, seg)
		})
	}
}

// resolvePair runs the per-common-node rule of §4.5 for one (stream,
// segment) pair whose bounding boxes overlap.
func (c *Coalescer) resolvePair(stream *model.Feature, seg *model.Segment) {
	common := intersectCoords(stream.Points, seg.Nodes)
	for n := range common {
		streamIdx := indexOf(stream.Points, n)
		interior := streamIdx > 0 && streamIdx < len(stream.Points)-1

		if interior && !c.Shared[n] && !neighbourInIntersection(stream.Points, streamIdx, common) {
			c.removeFromStream(stream, streamIdx)
			c.removeFromSegment(seg, n)
			continue
		}

		if interior {
			nudged := model.NewNode(n.Lon+4*nudgeEpsilon, n.Lat+2*nudgeEpsilon)
			stream.Points[streamIdx] = nudged
			c.removeFromSegment(seg, n)
			continue
		}

		// Stream endpoint or boundary node: add to shared set if the
		// segment is a water edge.
		if model.WaterEdgeClasses[seg.Class] {
			c.Shared[n] = true
		}
	}
}

func (c *Coalescer) removeFromStream(stream *model.Feature, idx int) {
	stream.Points = append(stream.Points[:idx], stream.Points[idx+1:]...)
}

// removeFromSegment attempts the same interior-node removal on the
// boundary segment, per "in both cases attempt the same removal on the
// segment" (spec.md §4.5).
func (c *Coalescer) removeFromSegment(seg *model.Segment, n model.Node) {
	idx := indexOf(seg.Nodes, n)
	if idx <= 0 || idx >= len(seg.Nodes)-1 {
		return // not interior to the segment; nothing to remove
	}
	if c.Shared[n] {
		return
	}
	seg.Nodes = append(seg.Nodes[:idx], seg.Nodes[idx+1:]...)
}

func intersectCoords(a []model.Node, b []model.Node) map[model.Node]bool {
	bSet := make(map[model.Node]bool, len(b))
	for _, n := range b {
		bSet[n] = true
	}
	out := map[model.Node]bool{}
	for _, n := range a {
		if bSet[n] {
			out[n] = true
		}
	}
	return out
}

func indexOf(nodes []model.Node, n model.Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}

// neighbourInIntersection reports whether either of idx's stream
// neighbours is itself a common node.
func neighbourInIntersection(points []model.Node, idx int, common map[model.Node]bool) bool {
	if idx > 0 && common[points[idx-1]] {
		return true
	}
	if idx < len(points)-1 && common[points[idx+1]] {
		return true
	}
	return false
}
