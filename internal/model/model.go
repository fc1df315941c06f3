// Package model defines the shared in-memory data model that every pipeline
// stage reads and mutates: nodes, segments, features, and the reference
// records loaded from the names and lakes services.
//
// Reference: spec.md §3 DATA MODEL.
package model

import (
	"fmt"
	"math"
)

// CoordDecimals is the fixed decimal precision nodes are rounded to.
// Two nodes are identical iff their rounded representations are equal.
const CoordDecimals = 7

// Node is a rounded (lon, lat) coordinate pair. Value, not pointer, equality
// is what the pipeline relies on throughout.
type Node struct {
	Lon float64
	Lat float64
}

// RoundCoord rounds a coordinate value to CoordDecimals.
func RoundCoord(v float64) float64 {
	scale := math.Pow(10, CoordDecimals)
	return math.Round(v*scale) / scale
}

// NewNode builds a Node with coordinates rounded to CoordDecimals.
func NewNode(lon, lat float64) Node {
	return Node{Lon: RoundCoord(lon), Lat: RoundCoord(lat)}
}

// Key returns a hashable representation suitable for map keys and sets.
func (n Node) Key() [2]float64 {
	return [2]float64{n.Lon, n.Lat}
}

func (n Node) String() string {
	return fmt.Sprintf("(%.7f,%.7f)", n.Lon, n.Lat)
}

// Bounds is an axis-aligned bounding box in lon/lat.
type Bounds struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// EmptyBounds returns a bounds value that any real point will expand.
func EmptyBounds() Bounds {
	return Bounds{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// ExpandPoint grows the bounds to include a node.
func (b *Bounds) ExpandPoint(n Node) {
	if n.Lon < b.MinLon {
		b.MinLon = n.Lon
	}
	if n.Lon > b.MaxLon {
		b.MaxLon = n.Lon
	}
	if n.Lat < b.MinLat {
		b.MinLat = n.Lat
	}
	if n.Lat > b.MaxLat {
		b.MaxLat = n.Lat
	}
}

// BoundsOf computes the bounding box of a node sequence.
func BoundsOf(nodes []Node) Bounds {
	b := EmptyBounds()
	for _, n := range nodes {
		b.ExpandPoint(n)
	}
	return b
}

// Intersects reports whether two bounding boxes overlap (touching counts).
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon &&
		b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat
}

// Expanded returns a copy of b grown by d metres in every direction.
func (b Bounds) Expanded(d float64) Bounds {
	dLat := d / earthRadius * 180 / math.Pi
	midLat := (b.MinLat + b.MaxLat) / 2
	dLon := d / (earthRadius * math.Cos(midLat*math.Pi/180)) * 180 / math.Pi
	return Bounds{
		MinLon: b.MinLon - dLon,
		MaxLon: b.MaxLon + dLon,
		MinLat: b.MinLat - dLat,
		MaxLat: b.MaxLat + dLat,
	}
}

const earthRadius = 6371009.0 // metres, §4.8

// ObjectClass is an N50 feature/segment class name (e.g. "Kystkontur").
type ObjectClass string

// Segment boundary classes that are referenceable by construction at ingest
// time (§4.1): coastline, sea-lake separators, sea-river separators.
const (
	ClassCoastline       ObjectClass = "Kystkontur"
	ClassSeaLakeBorder   ObjectClass = "HavInnsjøSperre"
	ClassSeaRiverBorder  ObjectClass = "HavElvSperre"
	ClassIntermittentEdg ObjectClass = "FerskvannTørrfallkant"
	ClassBorderCut       ObjectClass = "KantUtsnitt"
	ClassAuxiliaryCut    ObjectClass = "FiktivDelelinje"
)

// AlwaysUsedSegmentClasses are initialised with Used = 1 at ingest.
var AlwaysUsedSegmentClasses = map[ObjectClass]bool{
	ClassCoastline:      true,
	ClassSeaLakeBorder:  true,
	ClassSeaRiverBorder: true,
}

// WaterBodyClasses identifies feature classes treated as water bodies for
// orientation (§4.3) and island detection (§4.4) purposes.
var WaterBodyClasses = map[ObjectClass]bool{
	"Innsjø":             true,
	"InnsjøRegulert":     true,
	"ElvBekk":            true, // riverbank
	"FerskvannTørrfall":  true, // intermittent water
	"Havflate":           true, // sea face (deleted after island detection)
}

// WaterEdgeClasses are segment classes considered "water edge" for
// orientation and node-coalescing purposes (§4.3, §4.5).
var WaterEdgeClasses = map[ObjectClass]bool{
	"Innsjøkant":          true,
	"InnsjøkantRegulert":  true,
	"ElvBekkKant":         true,
	ClassIntermittentEdg:  true,
	ClassSeaLakeBorder:    true,
	ClassSeaRiverBorder:   true,
	ClassCoastline:        true,
}

// GeometryKind is the geometry-bearing GML property recognised by Ingest.
type GeometryKind string

const (
	GeomPosisjon     GeometryKind = "posisjon"     // point
	GeomGrense       GeometryKind = "grense"       // boundary line -> segment pool
	GeomOmraade      GeometryKind = "område"       // polygon
	GeomSenterlinje  GeometryKind = "senterlinje"  // centreline, e.g. stream
	GeomGeometri     GeometryKind = "geometri"     // generic fallback
)

// FeatureKind distinguishes the three geometry shapes a Feature can carry.
type FeatureKind int

const (
	FeaturePoint FeatureKind = iota
	FeatureLine
	FeaturePolygon
)

// Ring is one closed node sequence of a polygon (outer first, then holes).
type Ring struct {
	Nodes   []Node
	Members []SegmentRef // segment references in ring order, after decomposition
}

// SegmentRef indexes into the segment arena (never a pointer, per the
// cyclic-graph note in spec.md §9).
type SegmentRef int

// Feature is a Point, LineString, or Polygon decoded from GML.
type Feature struct {
	ID          string // originating GML identifier, for diagnostics
	Class       ObjectClass
	Kind        FeatureKind
	Points      []Node   // Point / LineString geometry
	Rings       []Ring   // Polygon geometry: outer ring first
	Tags        map[string]string
	Extras      map[string]string // debug/origin metadata
	Missing     bool              // true if classification found no mapping
	Deleted     bool              // sea-face features marked deleted post island-detection
	OSMID       int64             // not set by Emit, which keeps its own ID maps
}

// NewFeature returns a Feature with initialised maps.
func NewFeature(class ObjectClass, kind FeatureKind) *Feature {
	return &Feature{
		Class:  class,
		Kind:   kind,
		Tags:   map[string]string{},
		Extras: map[string]string{},
	}
}

// IsSea reports whether the feature is the sea face, used for orientation
// (§4.3) and deleted by Island Detection Phase B (§4.4).
func (f *Feature) IsSea() bool {
	return f.Class == "Havflate"
}

// IsWaterBody reports whether the feature is treated as a water body for
// orientation and island-detection purposes.
func (f *Feature) IsWaterBody() bool {
	return WaterBodyClasses[f.Class] || f.IsSea()
}

// Segment is an ordered boundary line shared by zero or more polygon rings.
type Segment struct {
	ID        string // originating GML identifier
	Class     ObjectClass
	Nodes     []Node
	Used      int
	Tags      map[string]string
	Reversed  bool
	OrientationSet bool // true once decomposition has fixed this segment's direction
	OSMID     int64
	boundsSet bool
	bounds    Bounds
}

// NewSegment returns a Segment with an initialised tag map.
func NewSegment(class ObjectClass, nodes []Node) *Segment {
	return &Segment{Class: class, Nodes: nodes, Tags: map[string]string{}}
}

// Bounds returns (and caches) the segment's bounding box.
func (s *Segment) Bounds() Bounds {
	if !s.boundsSet {
		s.bounds = BoundsOf(s.Nodes)
		s.boundsSet = true
	}
	return s.bounds
}

// invalidateBounds must be called after Nodes is mutated in place.
func (s *Segment) invalidateBounds() { s.boundsSet = false }

// First returns the segment's first node.
func (s *Segment) First() Node { return s.Nodes[0] }

// Last returns the segment's last node.
func (s *Segment) Last() Node { return s.Nodes[len(s.Nodes)-1] }

// Closed reports whether the segment's first and last node coincide.
func (s *Segment) Closed() bool { return s.First() == s.Last() }

// Reverse flips node order in place and flags the reversal.
func (s *Segment) Reverse() {
	for i, j := 0, len(s.Nodes)-1; i < j; i, j = i+1, j-1 {
		s.Nodes[i], s.Nodes[j] = s.Nodes[j], s.Nodes[i]
	}
	s.Reversed = !s.Reversed
	s.invalidateBounds()
}

// NodeSet returns the segment's coordinates as a set, for subset tests.
func (s *Segment) NodeSet() map[Node]bool {
	set := make(map[Node]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		set[n] = true
	}
	return set
}

// SegmentArena owns all Segments by stable index; Features reference
// segments only through SegmentRef, never by pointer (spec.md §9).
type SegmentArena struct {
	segments []*Segment
}

// Add appends a segment and returns its stable reference.
func (a *SegmentArena) Add(s *Segment) SegmentRef {
	a.segments = append(a.segments, s)
	return SegmentRef(len(a.segments) - 1)
}

// Get dereferences a SegmentRef.
func (a *SegmentArena) Get(ref SegmentRef) *Segment {
	return a.segments[ref]
}

// Len returns the number of segments in the arena.
func (a *SegmentArena) Len() int { return len(a.segments) }

// All iterates every segment with its ref, in arena order.
func (a *SegmentArena) All(fn func(SegmentRef, *Segment)) {
	for i, s := range a.segments {
		fn(SegmentRef(i), s)
	}
}

// PlaceRecord is a named point loaded from the SSR names service (§3).
type PlaceRecord struct {
	Coord  Node
	Name   string
	SSRType string
	SSRID  string
}

// LakeRecord is a lake's metadata loaded from the NVE lakes service (§3).
type LakeRecord struct {
	NVERef    string
	Name      string
	Ele       *int
	AreaKM2   float64
	MagazineID string
}
