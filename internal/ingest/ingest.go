// Package ingest decodes a stream of raw GML feature records into the
// typed Feature/Segment pools that the rest of the pipeline operates on
// (spec.md §4.1). The GML lexical layer — turning XML bytes into
// RawFeature values — is GMLSource in gml.go; Run itself consumes any
// FeatureSource.
package ingest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/n50osm/n50osm/internal/model"
)

// RawCoord is a coordinate as decoded off the wire, in UTM zone 33N
// easting/northing. This holds regardless of output mode: --geojson
// (spec.md §6) only changes how the *result* is written, not the source
// SRS, so reprojection to WGS84 always runs.
type RawCoord struct{ X, Y float64 }

// RawFeature is what the GML lexical layer hands to Ingest for one
// <gml:featureMember>.
type RawFeature struct {
	ID           string
	Class        string
	GeometryKind model.GeometryKind
	// Outer/Inner carry ring coordinates for "område" (Surface) geometry.
	Outer []RawCoord
	Inner [][]RawCoord
	// Patches carries one slice per curve patch for "posisjon"/"senterlinje"
	// (Point is Patches[0][0]; LineString/curve is Patches concatenated).
	Patches [][]RawCoord
	// Attrs is every attribute leaf collected by recursively walking the
	// feature namespace subtree, flattened to a single key->value map.
	Attrs map[string]string
}

// FeatureSource yields RawFeature values until io.EOF.
type FeatureSource interface {
	Next() (*RawFeature, error)
}

// Options controls Ingest behaviour.
type Options struct {
	// RawGeoJSON disables avoid-class filtering for --geojson mode
	// (spec.md §4.1 "dropped unless raw-geojson mode is active"). It does
	// not affect coordinate reprojection: UTM33N->WGS84 always runs, since
	// --geojson only changes the output format, not the source SRS.
	RawGeoJSON bool
}

// AvoidClasses are object classes dropped at ingest unless RawGeoJSON mode
// is active (spec.md §4.1 "a configured set"). Enumerated from the
// original implementation's avoid_objects list (SPEC_FULL.md Supplemented
// Features).
var AvoidClasses = map[string]bool{
	"ÅpentOmråde":         true,
	"Tregruppe":           true,
	"GangSykkelveg":       true,
	"VegSenterlinje":      true,
	"Vegsperring":         true,
	"Forsenkningskurve":   true,
	"Hjelpekurve":         true,
	"Høydekurve":          true,
	"PresentasjonTekst":   true,
}

// Pool is the output of Ingest: the feature pool and the segment arena.
type Pool struct {
	Features []*model.Feature
	Segments model.SegmentArena
}

// Ingester runs the Ingest stage, emitting diagnostics via slog.
type Ingester struct {
	Log *slog.Logger
}

// New returns an Ingester; a nil logger falls back to slog.Default().
func New(log *slog.Logger) *Ingester {
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{Log: log}
}

// Run consumes source to completion, building the feature and segment
// pools per spec.md §4.1.
func (ig *Ingester) Run(source FeatureSource, opts Options) (*Pool, error) {
	pool := &Pool{}
	for {
		raw, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading feature stream: %w", err)
		}

		if !opts.RawGeoJSON && AvoidClasses[raw.Class] {
			continue
		}

		var nodes []model.Node
		if raw.GeometryKind != model.GeomOmraade {
			var ok bool
			nodes, ok = ig.decodeNodes(raw)
			if !ok {
				continue
			}
		}

		switch raw.GeometryKind {
		case model.GeomGrense:
			seg, ok := ig.buildSegment(raw, nodes)
			if !ok {
				continue
			}
			pool.Segments.Add(seg)

		case model.GeomOmraade:
			feat, ok := ig.buildPolygon(raw)
			if !ok {
				continue
			}
			pool.Features = append(pool.Features, feat)

		default: // posisjon, senterlinje, geometri -> point or line feature
			feat := ig.buildPointOrLine(raw, nodes)
			pool.Features = append(pool.Features, feat)
		}
	}
	return pool, nil
}

// decodeNodes flattens a RawFeature's Patches (concatenating curve patches,
// first patch kept whole and later ones joined without duplicating their
// first node, per §4.1 and the Open Question in §9 resolved as
// concatenation), reprojects from UTM zone 33N to WGS84, and applies
// inline cleanup.
func (ig *Ingester) decodeNodes(raw *RawFeature) ([]model.Node, bool) {
	var flat []RawCoord
	for i, patch := range raw.Patches {
		if i == 0 {
			flat = append(flat, patch...)
		} else if len(patch) > 1 {
			flat = append(flat, patch[1:]...)
		}
	}
	if len(flat) == 0 {
		return nil, false
	}

	nodes := make([]model.Node, len(flat))
	for i, c := range flat {
		lon, lat := UTM33NToWGS84(c.X, c.Y)
		nodes[i] = model.NewNode(lon, lat)
	}

	nodes = dedupConsecutive(nodes, ig.Log, raw.ID)
	nodes = removeSpikes(nodes)
	nodes = trimWrappedEnds(nodes)
	return nodes, true
}

// dedupConsecutive removes consecutive duplicate nodes, emitting a debug
// point per removal (§4.1).
func dedupConsecutive(nodes []model.Node, log *slog.Logger, id string) []model.Node {
	if len(nodes) == 0 {
		return nodes
	}
	out := nodes[:1]
	for _, n := range nodes[1:] {
		if n == out[len(out)-1] {
			log.Debug("ingest: removed consecutive duplicate node", "feature", id, "node", n.String())
			continue
		}
		out = append(out, n)
	}
	return out
}

// removeSpikes implements the artefact-spike rule: pattern A,B,A where the
// middle node is a one-off detour is removed by deleting positions i and
// i-1 whenever coords[i] == coords[i-2] (§4.1).
func removeSpikes(nodes []model.Node) []model.Node {
	out := make([]model.Node, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		if i >= 2 && nodes[i] == nodes[i-2] {
			// Positions i and i-1 are the detour; drop them both. The node
			// already appended for i-1 must be popped back out.
			out = out[:len(out)-1]
			continue
		}
		out = append(out, nodes[i])
	}
	return out
}

// trimWrappedEnds trims both endpoints when the first and last pair wrap
// identically: coords[0]==coords[-1] and coords[1]==coords[-2] (§4.1, §8
// boundary behaviour).
func trimWrappedEnds(nodes []model.Node) []model.Node {
	n := len(nodes)
	if n < 4 {
		return nodes
	}
	if nodes[0] == nodes[n-1] && nodes[1] == nodes[n-2] {
		return nodes[1 : n-1]
	}
	return nodes
}

// buildSegment validates and constructs a boundary Segment.
func (ig *Ingester) buildSegment(raw *RawFeature, nodes []model.Node) (*model.Segment, bool) {
	if len(nodes) < 2 {
		ig.Log.Warn("ingest: dropped malformed segment (too few points)", "feature", raw.ID)
		return nil, false
	}
	class := model.ObjectClass(raw.Class)
	seg := model.NewSegment(class, nodes)
	seg.ID = raw.ID
	if model.AlwaysUsedSegmentClasses[class] {
		seg.Used = 1
	}
	return seg, true
}

// buildPolygon validates and constructs a polygon Feature from Outer/Inner
// rings, dropping malformed rings (<3 distinct points, or unclosed) per
// §4.1/§7 error policy.
func (ig *Ingester) buildPolygon(raw *RawFeature) (*model.Feature, bool) {
	outer, ok := ig.decodeRing(raw.ID, raw.Outer)
	if !ok {
		ig.Log.Warn("ingest: dropped polygon with malformed outer ring", "feature", raw.ID)
		return nil, false
	}
	feat := model.NewFeature(model.ObjectClass(raw.Class), model.FeaturePolygon)
	feat.ID = raw.ID
	feat.Rings = append(feat.Rings, model.Ring{Nodes: outer})
	for _, inner := range raw.Inner {
		ring, ok := ig.decodeRing(raw.ID, inner)
		if !ok {
			ig.Log.Warn("ingest: dropped malformed inner ring", "feature", raw.ID)
			continue
		}
		feat.Rings = append(feat.Rings, model.Ring{Nodes: ring})
	}
	for k, v := range raw.Attrs {
		feat.Extras[k] = v
	}
	return feat, true
}

func (ig *Ingester) decodeRing(id string, coords []RawCoord) ([]model.Node, bool) {
	nodes := make([]model.Node, len(coords))
	for i, c := range coords {
		lon, lat := UTM33NToWGS84(c.X, c.Y)
		nodes[i] = model.NewNode(lon, lat)
	}
	nodes = dedupConsecutive(nodes, ig.Log, id)
	nodes = removeSpikes(nodes)
	nodes = trimWrappedEnds(nodes)

	distinct := map[model.Node]bool{}
	for _, n := range nodes {
		distinct[n] = true
	}
	if len(distinct) < 3 {
		return nil, false
	}
	if len(nodes) < 2 || nodes[0] != nodes[len(nodes)-1] {
		return nil, false
	}
	return nodes, true
}

// buildPointOrLine constructs a Point or LineString feature.
func (ig *Ingester) buildPointOrLine(raw *RawFeature, nodes []model.Node) *model.Feature {
	kind := model.FeaturePoint
	if len(nodes) > 1 {
		kind = model.FeatureLine
	}
	feat := model.NewFeature(model.ObjectClass(raw.Class), kind)
	feat.ID = raw.ID
	feat.Points = nodes
	for k, v := range raw.Attrs {
		feat.Extras[k] = v
	}
	return feat
}
