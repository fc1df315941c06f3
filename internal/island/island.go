// Package island implements spec.md §4.4: identifying islands from inner
// rings of water bodies (Phase A) and from closed chains of coastline
// segments (Phase B), then deleting sea-face features.
package island

import (
	"log/slog"

	"github.com/n50osm/n50osm/internal/geomutil"
	"github.com/n50osm/n50osm/internal/model"
)

// IslandAreaThreshold is the minimum square-metre area for place=island
// rather than place=islet (spec.md §4.4, §8 boundary: >= not >).
const IslandAreaThreshold = 100000.0

// Detector runs island detection over a feature pool and segment arena.
type Detector struct {
	Arena    *model.SegmentArena
	Features []*model.Feature
	Log      *slog.Logger
}

// New returns a Detector.
func New(arena *model.SegmentArena, features []*model.Feature, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{Arena: arena, Features: features, Log: log}
}

// Run executes Phase A, then Phase B, then deletes sea-face features,
// returning any newly synthesised island features to append to the pool.
func (d *Detector) Run() []*model.Feature {
	var synthesised []*model.Feature
	synthesised = append(synthesised, d.phaseA()...)
	synthesised = append(synthesised, d.phaseB()...)
	d.deleteSeaFaces()
	return synthesised
}

func classify(area float64) string {
	if area >= IslandAreaThreshold {
		return "island"
	}
	return "islet"
}

// phaseA classifies islands from inner rings of water-body features.
func (d *Detector) phaseA() []*model.Feature {
	var synthesised []*model.Feature

	// Index of "lookalike" features: single-ring features whose outer ring
	// is composed entirely of water-edge segments, keyed by member-set
	// fingerprint, for the "tag an existing feature instead of synthesising
	// a new one" branch.
	lookalikes := d.buildLookalikeIndex()

	for _, f := range d.Features {
		if f.Kind != model.FeaturePolygon || !f.IsWaterBody() {
			continue
		}
		for i := 1; i < len(f.Rings); i++ {
			ring := f.Rings[i]
			if d.hasIntermittentEdge(ring) {
				continue
			}
			area := geomutil.SignedArea(ring.Nodes)
			placeTag := classify(absf(area))

			if len(ring.Members) == 1 {
				seg := d.Arena.Get(ring.Members[0])
				seg.Tags["place"] = placeTag
				continue
			}

			key := memberSetKey(ring.Members)
			if match, ok := lookalikes[key]; ok {
				match.Tags["place"] = placeTag
				continue
			}

			island := model.NewFeature("Øy", model.FeaturePolygon)
			island.Tags["place"] = placeTag
			island.Rings = []model.Ring{{Nodes: append([]model.Node(nil), ring.Nodes...), Members: append([]model.SegmentRef(nil), ring.Members...)}}
			synthesised = append(synthesised, island)
		}
	}
	return synthesised
}

func (d *Detector) hasIntermittentEdge(ring model.Ring) bool {
	for _, ref := range ring.Members {
		if d.Arena.Get(ref).Class == model.ClassIntermittentEdg {
			return true
		}
	}
	return false
}

// buildLookalikeIndex indexes single-ring features whose outer ring
// consists entirely of water-edge segments, by their member-set
// fingerprint.
func (d *Detector) buildLookalikeIndex() map[string]*model.Feature {
	idx := map[string]*model.Feature{}
	for _, f := range d.Features {
		if f.Kind != model.FeaturePolygon || len(f.Rings) != 1 {
			continue
		}
		outer := f.Rings[0]
		allWaterEdge := len(outer.Members) > 0
		for _, ref := range outer.Members {
			if !model.WaterEdgeClasses[d.Arena.Get(ref).Class] {
				allWaterEdge = false
				break
			}
		}
		if allWaterEdge {
			idx[memberSetKey(outer.Members)] = f
		}
	}
	return idx
}

func memberSetKey(refs []model.SegmentRef) string {
	sorted := append([]model.SegmentRef(nil), refs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	key := make([]byte, 0, len(sorted)*4)
	for _, r := range sorted {
		key = append(key, byte(r), byte(r>>8), byte(r>>16), byte(r>>24))
	}
	return string(key)
}

// phaseB classifies islands from closed chains of coastline/water-edge
// segments that sit on the outer ring of a water body containing at least
// one separator segment (the sea-vs-land interface filter of §4.4).
func (d *Detector) phaseB() []*model.Feature {
	pool := d.collectCoastlineChainCandidates()
	var synthesised []*model.Feature

	existingByMembers := d.buildLookalikeIndex()
	used := make(map[model.SegmentRef]bool)

	for len(pool) > 0 {
		start := pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		if used[start] {
			continue
		}
		chain := []model.SegmentRef{start}
		used[start] = true
		last := d.Arena.Get(start).Last()

		extended := true
		for extended {
			extended = false
			for i, ref := range pool {
				if used[ref] {
					continue
				}
				seg := d.Arena.Get(ref)
				if seg.First() == last {
					chain = append(chain, ref)
					used[ref] = true
					last = seg.Last()
					pool = append(pool[:i], pool[i+1:]...)
					extended = true
					break
				}
			}
		}

		first := d.Arena.Get(chain[0]).First()
		if last != first {
			continue // did not close; not an island chain
		}

		var nodes []model.Node
		for i, ref := range chain {
			seg := d.Arena.Get(ref)
			if i == 0 {
				nodes = append(nodes, seg.Nodes...)
			} else {
				nodes = append(nodes, seg.Nodes[1:]...)
			}
		}

		area := geomutil.SignedArea(nodes)
		if area <= 0 {
			continue // outer orientation is positive in this phase's convention
		}
		placeTag := classify(area)

		key := memberSetKey(chain)
		if match, ok := existingByMembers[key]; ok {
			match.Tags["place"] = placeTag
			continue
		}

		island := model.NewFeature("Øy", model.FeaturePolygon)
		delete(island.Tags, "natural")
		island.Tags["place"] = placeTag
		island.Rings = []model.Ring{{Nodes: nodes, Members: chain}}
		synthesised = append(synthesised, island)
	}
	return synthesised
}

// collectCoastlineChainCandidates gathers coastline/lake-edge/reservoir-edge
// /river-edge segments appearing on the outer ring of a water body that also
// contains a separator segment.
func (d *Detector) collectCoastlineChainCandidates() []model.SegmentRef {
	var candidates []model.SegmentRef
	seen := map[model.SegmentRef]bool{}
	for _, f := range d.Features {
		if f.Kind != model.FeaturePolygon || len(f.Rings) == 0 {
			continue
		}
		outer := f.Rings[0]
		hasSeparator := false
		for _, ref := range outer.Members {
			c := d.Arena.Get(ref).Class
			if c == model.ClassSeaLakeBorder || c == model.ClassSeaRiverBorder {
				hasSeparator = true
				break
			}
		}
		if !hasSeparator {
			continue
		}
		for _, ref := range outer.Members {
			c := d.Arena.Get(ref).Class
			if isCoastChainClass(c) && !seen[ref] {
				seen[ref] = true
				candidates = append(candidates, ref)
			}
		}
	}
	return candidates
}

func isCoastChainClass(c model.ObjectClass) bool {
	switch c {
	case model.ClassCoastline, "Innsjøkant", "InnsjøkantRegulert", "ElvBekkKant":
		return true
	}
	return false
}

// deleteSeaFaces marks every sea-face feature as deleted; they have no OSM
// representation of their own (spec.md §3, §4.4).
func (d *Detector) deleteSeaFaces() {
	for _, f := range d.Features {
		if f.IsSea() {
			f.Deleted = true
		}
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
