// Package classify implements spec.md §4.2: mapping an N50 feature or
// segment's class, geometry kind, and attributes to an OSM tag set.
package classify

import (
	"strconv"
	"strings"

	"github.com/n50osm/n50osm/internal/model"
)

// Classifier produces (tags, missing) for each feature/segment per the
// §4.2 precedence order: class-specific overrides, then the static
// dictionary, then a property-lift pass.
type Classifier struct {
	BuildingTypes BuildingTypeTable
	DataCategory  string // e.g. "Restriksjonsomrader", for the Skytefelt exception

	// Missing accumulates unknown classes across a run (§4.2, §7.5).
	Missing map[model.ObjectClass]bool
}

// New returns a Classifier. buildingTypes may be nil, in which case
// FallbackBuildingTypes() is used.
func New(buildingTypes BuildingTypeTable, dataCategory string) *Classifier {
	if buildingTypes == nil {
		buildingTypes = FallbackBuildingTypes()
	}
	return &Classifier{
		BuildingTypes: buildingTypes,
		DataCategory:  dataCategory,
		Missing:       map[model.ObjectClass]bool{},
	}
}

// geometryKindOf maps a Feature's shape back to the "posisjon"/"område"
// vocabulary the classification overrides key off.
func geometryKindOf(f *model.Feature) string {
	switch f.Kind {
	case model.FeaturePoint:
		return "posisjon"
	case model.FeatureLine:
		return "senterlinje"
	default:
		return "område"
	}
}

// ClassifyFeature applies the §4.2 precedence chain to a Feature and
// stores the resulting tags on it.
func (c *Classifier) ClassifyFeature(f *model.Feature) {
	tags, matched := c.overrideTags(f)
	if !matched {
		if base, ok := staticTags[f.Class]; ok {
			matched = true
			for k, v := range base {
				tags[k] = v
			}
		}
	}
	if !matched && !auxiliaryClasses[f.Class] {
		c.Missing[f.Class] = true
		f.Missing = true
	}

	c.liftProperties(tags, f.Extras, f.Class)

	for k, v := range tags {
		f.Tags[k] = v
	}
}

// ClassifySegment applies the static dictionary and property lift to a
// boundary Segment (segments never hit the feature-only override cases).
func (c *Classifier) ClassifySegment(s *model.Segment, extras map[string]string) {
	tags := map[string]string{}
	if base, ok := staticTags[s.Class]; ok {
		for k, v := range base {
			tags[k] = v
		}
	} else if !auxiliaryClasses[s.Class] {
		c.Missing[s.Class] = true
	}
	c.liftProperties(tags, extras, s.Class)
	for k, v := range tags {
		s.Tags[k] = v
	}
}

// overrideTags implements the §4.2 precedence-1 class-specific overrides.
// Returns (tags, true) if an override matched.
func (c *Classifier) overrideTags(f *model.Feature) (map[string]string, bool) {
	tags := map[string]string{}
	props := f.Extras
	geomKind := geometryKindOf(f)

	switch {
	case f.Class == "ElvBekk":
		switch {
		case geomKind == "område":
			tags["waterway"] = "riverbank"
		case widthOver3m(props):
			tags["waterway"] = "river"
		default:
			tags["waterway"] = "stream"
		}
		return tags, true

	case f.Class == "Skytefelt" && c.DataCategory == "Restriksjonsomrader":
		tags["landuse"] = "military"
		return tags, true

	case f.Class == "Bygning":
		c.classifyBuilding(tags, props, geomKind)
		return tags, true

	case f.Class == "Lufthavn":
		c.classifyAirport(tags, props)
		return tags, true

	case geomKind == "område" && f.Class == "SportIdrettPlass":
		if len(f.Rings) > 1 {
			tags["leisure"] = "track"
			tags["area"] = "yes"
		} else {
			tags["leisure"] = "pitch"
		}
		return tags, true
	}

	return tags, false
}

// widthOver3m reports whether the vannBredde code, parsed as an integer,
// is greater than 2.
func widthOver3m(props map[string]string) bool {
	v, ok := props["vannBredde"]
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	return n > 2
}

func (c *Classifier) classifyBuilding(tags, props map[string]string, geomKind string) {
	if code, ok := props["bygningstype"]; ok {
		if code == "956" { // Turisthytte
			switch props["betjeningsgrad"] {
			case "B":
				tags["tourism"] = "alpine_hut"
			case "S":
				tags["tourism"] = "wilderness_hut"
			case "U", "D", "R":
				tags["amenity"] = "shelter"
				tags["shelter_type"] = "basic_hut"
			default:
				tags["amenity"] = "shelter"
				tags["shelter_type"] = "lean_to"
			}
			switch props["hytteeier"] {
			case "1":
				tags["operator"] = "DNT"
			case "3":
				tags["operator"] = "Fjellstyre"
			case "4":
				tags["operator"] = "Statskog"
			}
		} else if built, ok := c.BuildingTypes[code]; ok {
			for k, v := range built {
				if geomKind == "område" || k != "building" {
					tags[k] = v
				}
			}
		}
	}
	if geomKind != "posisjon" {
		if _, ok := tags["building"]; !ok {
			tags["building"] = "yes"
		}
	}
}

func (c *Classifier) classifyAirport(tags, props map[string]string) {
	if props["lufthavntype"] == "H" {
		tags["aeroway"] = "heliport"
	} else {
		tags["aeroway"] = "aerodrome"
		switch props["trafikktype"] {
		case "I":
			tags["aeroway:type"] = "international"
		case "N":
			tags["aeroway:type"] = "regional"
		case "A":
			tags["aeroway:type"] = "airfield"
		}
	}
	if v, ok := props["iataKode"]; ok && v != "XXX" {
		tags["iata"] = v
	}
	if v, ok := props["icaoKode"]; ok && v != "XXXX" {
		tags["icao"] = v
	}
}

// liftProperties implements the §4.2 precedence-3 property-lift pass,
// adding elevation, NVE lake reference, name, SSR id, trailblazed flag,
// protection class, and ski-jump K-point.
func (c *Classifier) liftProperties(tags, props map[string]string, class model.ObjectClass) {
	if v, ok := props["høyde"]; ok {
		tags["ele"] = v
	}
	if v, ok := props["lavesteRegulerteVannstand"]; ok {
		tags["ele:min"] = v
	}
	if v, ok := props["vatnLøpenummer"]; ok {
		tags["ref:nve:vann"] = v
	}
	if v, ok := props["navn"]; ok {
		tags["name"] = v
	}
	if v, ok := props["fulltekst"]; ok {
		tags["name"] = v
	}
	if v, ok := props["stedsnummer"]; ok {
		tags["ssr:stedsnr"] = v
	}
	if v, ok := props["merking"]; ok && v == "JA" {
		tags["trailblazed"] = "yes"
	}
	if v, ok := props["verneform"]; ok {
		switch v {
		case "NP", "NPS":
			tags["boundary"] = "national_park"
		case "LVO", "NM":
			tags["boundary"] = "protected_area"
		default:
			tags["leisure"] = "nature_reserve"
		}
	}
	if v, ok := props["lengde"]; ok && class == "Hoppbakke" {
		tags["ref"] = "K" + v
	}
}

// TagsFromN50Attrs builds the N50_* passthrough tags for --tag mode
// (spec.md §6), excluding AvoidTags.
func TagsFromN50Attrs(attrs map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range attrs {
		if AvoidTags[k] {
			continue
		}
		out["N50_"+strings.ToUpper(k)] = v
	}
	return out
}
