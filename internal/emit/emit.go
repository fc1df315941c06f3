// Package emit implements spec.md §4.9: assigning provisional negative
// identifiers, flattening the feature pool into nodes/ways/relations, and
// writing OSM XML.
//
// Identifiers and tag collections are the paulmach/osm types
// (osm.NodeID, osm.WayID, osm.RelationID, osm.Tags); the document itself
// is serialised through a local XML mirror of osm.OSM because the N50OSM
// output format carries an action="modify" attribute on every element —
// an OSM-API diff convention paulmach/osm's own marshaller does not
// produce for a plain export document.
package emit

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/osm"

	"github.com/n50osm/n50osm/internal/model"
)

// Generator is the OSM XML document's generator attribute.
const Generator = "n50osm"

// firstProvisionalID is the starting point for the descending negative
// identifier sequence (spec.md §6 "Output file": "descending from ~
// -1000").
const firstProvisionalID = -1000

// Debug enables echoing a feature's Extras as uppercase tags and writing
// out segments no feature ever referenced (spec.md §6 "--debug emits
// unused segments and extras as uppercase OSM tags").
type Emitter struct {
	Arena *model.SegmentArena
	Debug bool

	nextID    int64
	nodeID    map[model.Node]osm.NodeID
	segWayID  map[model.SegmentRef]osm.WayID
	doc       xmlOSM
}

// New returns an Emitter over the given segment arena.
func New(arena *model.SegmentArena, debug bool) *Emitter {
	return &Emitter{
		Arena:    arena,
		Debug:    debug,
		nextID:   firstProvisionalID,
		nodeID:   map[model.Node]osm.NodeID{},
		segWayID: map[model.SegmentRef]osm.WayID{},
	}
}

func (e *Emitter) allocateID() int64 {
	id := e.nextID
	e.nextID--
	return id
}

// xmlOSM, xmlNode, xmlWay, xmlRelation, xmlMember, xmlTag mirror the OSM
// 0.6 XML element set with the action="modify" attribute spec.md §6
// requires on every element.
type xmlOSM struct {
	XMLName   xml.Name      `xml:"osm"`
	Version   string        `xml:"version,attr"`
	Generator string        `xml:"generator,attr"`
	Upload    string        `xml:"upload,attr"`
	Nodes     []xmlNode     `xml:"node"`
	Ways      []xmlWay      `xml:"way"`
	Relations []xmlRelation `xml:"relation"`
}

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type xmlNode struct {
	ID     int64    `xml:"id,attr"`
	Action string   `xml:"action,attr"`
	Lat    float64  `xml:"lat,attr"`
	Lon    float64  `xml:"lon,attr"`
	Tags   []xmlTag `xml:"tag,omitempty"`
}

type xmlWayNode struct {
	Ref int64 `xml:"ref,attr"`
}

type xmlWay struct {
	ID     int64        `xml:"id,attr"`
	Action string       `xml:"action,attr"`
	Nodes  []xmlWayNode `xml:"nd"`
	Tags   []xmlTag     `xml:"tag,omitempty"`
}

type xmlMember struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

type xmlRelation struct {
	ID      int64       `xml:"id,attr"`
	Action  string      `xml:"action,attr"`
	Members []xmlMember `xml:"member"`
	Tags    []xmlTag    `xml:"tag,omitempty"`
}

func tagsOf(m map[string]string) []xmlTag {
	if len(m) == 0 {
		return nil
	}
	out := make([]xmlTag, 0, len(m))
	for k, v := range m {
		out = append(out, xmlTag{K: k, V: v})
	}
	return out
}

func debugTags(extras map[string]string) []xmlTag {
	out := make([]xmlTag, 0, len(extras))
	for k, v := range extras {
		out = append(out, xmlTag{K: "EXTRA_" + strings.ToUpper(k), V: v})
	}
	return out
}

// sharedNode returns (and lazily assigns) the provisional node ID for a
// coordinate that participates in more than one way, per §4.9 "Emit
// order: shared nodes, then segments...".
func (e *Emitter) sharedNode(n model.Node) osm.NodeID {
	if id, ok := e.nodeID[n]; ok {
		return id
	}
	id := osm.NodeID(e.allocateID())
	e.nodeID[n] = id
	e.doc.Nodes = append(e.doc.Nodes, xmlNode{ID: int64(id), Action: "modify", Lat: n.Lat, Lon: n.Lon})
	return id
}

// EmitSharedNodes must be called once, before EmitSegment, with the
// coalescer's shared-node set.
func (e *Emitter) EmitSharedNodes(shared map[model.Node]bool) {
	for n := range shared {
		e.sharedNode(n)
	}
}

// EmitSegment materialises a segment as a way, inlining non-shared nodes
// and referencing shared ones, and records its way ID for feature-level
// reuse.
func (e *Emitter) EmitSegment(ref model.SegmentRef, shared map[model.Node]bool) osm.WayID {
	if id, ok := e.segWayID[ref]; ok {
		return id
	}
	seg := e.Arena.Get(ref)

	wayID := osm.WayID(e.allocateID())
	e.segWayID[ref] = wayID

	wayNodes := make([]xmlWayNode, len(seg.Nodes))
	for i, n := range seg.Nodes {
		var id osm.NodeID
		if shared[n] {
			id = e.sharedNode(n)
		} else {
			id = osm.NodeID(e.allocateID())
			e.doc.Nodes = append(e.doc.Nodes, xmlNode{ID: int64(id), Action: "modify", Lat: n.Lat, Lon: n.Lon})
		}
		wayNodes[i] = xmlWayNode{Ref: int64(id)}
	}

	e.doc.Ways = append(e.doc.Ways, xmlWay{
		ID:     int64(wayID),
		Action: "modify",
		Nodes:  wayNodes,
		Tags:   tagsOf(seg.Tags),
	})
	return wayID
}

// EmitFeature materialises a feature as a node, way, or relation,
// following the reuse rule of §4.9: a polygon with exactly one ring of
// exactly one segment and no natural-tag collision reuses that segment's
// way; otherwise it becomes a multipolygon relation.
func (e *Emitter) EmitFeature(f *model.Feature, shared map[model.Node]bool) {
	if f.Deleted {
		return
	}
	switch f.Kind {
	case model.FeaturePoint:
		e.emitPointFeature(f)
	case model.FeatureLine:
		e.emitLineFeature(f)
	default:
		e.emitPolygonFeature(f, shared)
	}
}

func (e *Emitter) emitPointFeature(f *model.Feature) {
	if len(f.Points) == 0 {
		return
	}
	n := f.Points[0]
	tags := tagsOf(f.Tags)
	if e.Debug {
		tags = append(tags, debugTags(f.Extras)...)
	}
	id := osm.NodeID(e.allocateID())
	e.doc.Nodes = append(e.doc.Nodes, xmlNode{ID: int64(id), Action: "modify", Lat: n.Lat, Lon: n.Lon, Tags: tags})
}

func (e *Emitter) emitLineFeature(f *model.Feature) {
	if len(f.Points) < 2 {
		return
	}
	id := osm.WayID(e.allocateID())
	wayNodes := make([]xmlWayNode, len(f.Points))
	for i, n := range f.Points {
		nid := osm.NodeID(e.allocateID())
		e.doc.Nodes = append(e.doc.Nodes, xmlNode{ID: int64(nid), Action: "modify", Lat: n.Lat, Lon: n.Lon})
		wayNodes[i] = xmlWayNode{Ref: int64(nid)}
	}
	tags := tagsOf(f.Tags)
	if e.Debug {
		tags = append(tags, debugTags(f.Extras)...)
	}
	e.doc.Ways = append(e.doc.Ways, xmlWay{ID: int64(id), Action: "modify", Nodes: wayNodes, Tags: tags})
}

func (e *Emitter) emitPolygonFeature(f *model.Feature, shared map[model.Node]bool) {
	if len(f.Rings) == 0 {
		return
	}
	tags := tagsOf(f.Tags)
	if e.Debug {
		tags = append(tags, debugTags(f.Extras)...)
	}

	if len(f.Rings) == 1 && len(f.Rings[0].Members) == 1 && !e.hasNaturalCollision(f, f.Rings[0].Members[0]) {
		wayID := e.EmitSegment(f.Rings[0].Members[0], shared)
		for i := range e.doc.Ways {
			if e.doc.Ways[i].ID == int64(wayID) {
				e.doc.Ways[i].Tags = mergeTags(e.doc.Ways[i].Tags, tags)
				break
			}
		}
		return
	}

	relID := osm.RelationID(e.allocateID())
	var members []xmlMember
	for ringIdx, ring := range f.Rings {
		role := "outer"
		if ringIdx > 0 {
			role = "inner"
		}
		for _, ref := range ring.Members {
			wayID := e.EmitSegment(ref, shared)
			members = append(members, xmlMember{Type: "way", Ref: int64(wayID), Role: role})
		}
	}
	tags = append(tags, xmlTag{K: "type", V: "multipolygon"})
	e.doc.Relations = append(e.doc.Relations, xmlRelation{ID: int64(relID), Action: "modify", Members: members, Tags: tags})
}

// EmitUnusedSegments writes every segment the decomposition/island stages
// never referenced as a way, once Debug is enabled, flagged with an
// uppercase debug tag (spec.md §6 "--debug emits unused segments and
// extras as uppercase OSM tags").
func (e *Emitter) EmitUnusedSegments(shared map[model.Node]bool) {
	if !e.Debug {
		return
	}
	e.Arena.All(func(ref model.SegmentRef, seg *model.Segment) {
		if seg.Used > 0 {
			return
		}
		wayID := e.EmitSegment(ref, shared)
		for i := range e.doc.Ways {
			if e.doc.Ways[i].ID == int64(wayID) {
				e.doc.Ways[i].Tags = mergeTags(e.doc.Ways[i].Tags, []xmlTag{{K: "DEBUG_UNUSED", V: "yes"}})
				break
			}
		}
	})
}

// hasNaturalCollision reports whether the feature and its sole boundary
// segment disagree on the natural tag, which would make way reuse lossy
// (spec.md §4.9 "no natural tag collision").
func (e *Emitter) hasNaturalCollision(f *model.Feature, ref model.SegmentRef) bool {
	fNatural, fOK := f.Tags["natural"]
	seg := e.Arena.Get(ref)
	sNatural, sOK := seg.Tags["natural"]
	return fOK && sOK && fNatural != sNatural
}

func mergeTags(existing []xmlTag, add []xmlTag) []xmlTag {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t.K] = true
	}
	for _, t := range add {
		if !seen[t.K] {
			existing = append(existing, t)
		}
	}
	return existing
}

// Write pretty-prints the accumulated document as OSM XML with two-space
// indents, per spec.md §6 "Output file".
func (e *Emitter) Write(w io.Writer) error {
	e.doc.Version = "0.6"
	e.doc.Generator = Generator
	e.doc.Upload = "false"

	if _, err := fmt.Fprint(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(e.doc)
}
