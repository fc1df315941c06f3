// Package enrich implements spec.md §4.7: attaching SSR place names and
// NVE lake attributes, with rank-based disambiguation between competing
// name candidates.
package enrich

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n50osm/n50osm/internal/geomutil"
	"github.com/n50osm/n50osm/internal/model"
)

// pointPerimeterMetres is the bounding-box padding applied to Point
// features before intersecting against place records (spec.md §4.7).
const pointPerimeterMetres = 500.0

// largeLakeAreaKM2 is the NVE-overlay threshold above which water=lake is
// added (spec.md §4.7 "NVE lakes").
const largeLakeAreaKM2 = 1.0

// categorySSRTypes orders the ssr:type values accepted for a feature
// class, most to least specific; earlier entries outrank later ones in
// disambiguation rule 2 (spec.md §4.7).
var categorySSRTypes = map[model.ObjectClass][]string{
	"Øy": {"øyISjø", "øygruppeISjø", "holmeISjø", "skjærISjø", "øy", "øygruppe", "holme", "skjær"},
	"Innsjø":         {"innsjø", "tjern", "vatn"},
	"InnsjøRegulert": {"innsjø", "tjern", "vatn"},
	"ElvBekk":        {"elv", "bekk"},
}

// Enricher attaches place names and lake attributes to a feature pool.
type Enricher struct {
	Places []model.PlaceRecord
	Lakes  map[string]model.LakeRecord // keyed by NVERef
}

// New returns an Enricher over the given reference records.
func New(places []model.PlaceRecord, lakes []model.LakeRecord) *Enricher {
	byRef := make(map[string]model.LakeRecord, len(lakes))
	for _, l := range lakes {
		byRef[l.NVERef] = l
	}
	return &Enricher{Places: places, Lakes: byRef}
}

// EnrichNames applies the §4.7 "Place names" algorithm to a feature.
func (e *Enricher) EnrichNames(f *model.Feature) {
	order, ok := categorySSRTypes[f.Class]
	if !ok {
		return
	}
	rank := make(map[string]int, len(order))
	for i, t := range order {
		rank[t] = i
	}

	bbox := featureBounds(f)
	candidates := e.candidatesFor(f, bbox, rank)
	if len(candidates) == 0 {
		return
	}

	existingName, hasName := f.Tags["name"]
	if hasName {
		if match, alts := matchByExistingName(existingName, candidates); match != nil {
			f.Tags["ssr:stedsnr"] = match.SSRID
			f.Tags["ssr:type"] = match.SSRType
			if len(alts) > 0 {
				f.Tags["fixme"] = "Velg navn: " + strings.Join(alts, "; ")
			}
			return
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return rank[candidates[i].SSRType] < rank[candidates[j].SSRType]
	})

	if len(candidates) == 1 || strictlyPreferred(candidates, rank) {
		best := candidates[0]
		f.Tags["name"] = best.Name
		f.Tags["ssr:stedsnr"] = best.SSRID
		f.Tags["ssr:type"] = best.SSRType
		if hasName && existingName != best.Name {
			f.Tags["alt_name"] = existingName
		}
		return
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	f.Tags["fixme"] = "Velg navn: " + strings.Join(names, "; ")
}

func (e *Enricher) candidatesFor(f *model.Feature, bbox model.Bounds, rank map[string]int) []model.PlaceRecord {
	var out []model.PlaceRecord
	for _, p := range e.Places {
		if _, ok := rank[p.SSRType]; !ok {
			continue
		}
		if !bbox.Intersects(model.Bounds{MinLon: p.Coord.Lon, MaxLon: p.Coord.Lon, MinLat: p.Coord.Lat, MaxLat: p.Coord.Lat}) {
			continue
		}
		if f.Kind != model.FeaturePoint && len(f.Rings) > 0 {
			if !geomutil.PointInMultipolygon(p.Coord, ringSlices(f.Rings)) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func featureBounds(f *model.Feature) model.Bounds {
	switch f.Kind {
	case model.FeaturePoint:
		if len(f.Points) == 0 {
			return model.EmptyBounds()
		}
		return model.BoundsOf(f.Points).Expanded(pointPerimeterMetres)
	case model.FeatureLine:
		return model.BoundsOf(f.Points)
	default:
		if len(f.Rings) == 0 {
			return model.EmptyBounds()
		}
		return model.BoundsOf(f.Rings[0].Nodes)
	}
}

func ringSlices(rings []model.Ring) [][]model.Node {
	out := make([][]model.Node, len(rings))
	for i, r := range rings {
		out[i] = r.Nodes
	}
	return out
}

// matchByExistingName implements disambiguation rule 1: does the
// feature's current name (split on ';' and " - ") appear among the
// candidates' names?
func matchByExistingName(existing string, candidates []model.PlaceRecord) (*model.PlaceRecord, []string) {
	parts := splitName(existing)
	var matches []model.PlaceRecord
	for _, c := range candidates {
		for _, p := range parts {
			if strings.EqualFold(p, c.Name) {
				matches = append(matches, c)
				break
			}
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	alts := make([]string, 0, len(matches)-1)
	for _, m := range matches[1:] {
		alts = append(alts, m.Name)
	}
	return &matches[0], alts
}

func splitName(name string) []string {
	name = strings.ReplaceAll(name, " - ", ";")
	parts := strings.Split(name, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// strictlyPreferred reports whether, after sorting by rank, the top
// candidate strictly outranks the runner-up (disambiguation rule 2).
func strictlyPreferred(sorted []model.PlaceRecord, rank map[string]int) bool {
	if len(sorted) < 2 {
		return true
	}
	return rank[sorted[0].SSRType] < rank[sorted[1].SSRType]
}

// EnrichLake overlays NVE lake attributes onto a feature carrying a
// ref:nve:vann tag, per spec.md §4.7 "NVE lakes".
func (e *Enricher) EnrichLake(f *model.Feature) {
	ref, ok := f.Tags["ref:nve:vann"]
	if !ok {
		return
	}
	lake, ok := e.Lakes[ref]
	if !ok {
		return
	}
	if lake.Name != "" {
		f.Tags["name"] = lake.Name
	}
	if _, hasEle := f.Tags["ele"]; !hasEle && lake.Ele != nil {
		f.Tags["ele"] = fmt.Sprintf("%d", *lake.Ele)
	}
	if lake.AreaKM2 > largeLakeAreaKM2 {
		f.Tags["water"] = "lake"
	}
	if lake.MagazineID != "" {
		f.Tags["ref:nve:magasin"] = lake.MagazineID
	}
}
