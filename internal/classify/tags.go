package classify

import "github.com/n50osm/n50osm/internal/model"

// staticTags is the §4.2 precedence-2 static dictionary: object class to a
// fixed OSM tag set, grounded on the original implementation's osm_tags
// table (SPEC_FULL.md's original_source grounding).
var staticTags = map[model.ObjectClass]map[string]string{
	"Alpinbakke":           {"landuse": "winter_sports", "piste:type": "downhill", "area": "yes"},
	"BymessigBebyggelse":   {"landuse": "retail"},
	"DyrketMark":           {"landuse": "farmland"},
	"FerskvannTørrfall":    {"waterway": "riverbank", "intermittent": "yes"},
	"Foss":                 {"waterway": "waterfall"},
	"Golfbane":             {"leisure": "golf_course"},
	"Gravplass":            {"landuse": "cemetery"},
	"HavElvSperre":         {"natural": "coastline"},
	"HavInnsjøSperre":      {"natural": "coastline"},
	"Hyttefelt":            {"landuse": "residential", "residential": "cabin"},
	"Industriområde":       {"landuse": "industrial"},
	"Innsjø":               {"natural": "water"},
	"InnsjøRegulert":       {"natural": "water", "water": "reservoir"},
	"Kystkontur":           {"natural": "coastline"},
	"Myr":                  {"natural": "wetland", "wetland": "bog"},
	"Park":                 {"leisure": "park"},
	"Rullebane":            {"aeroway": "runway"},
	"Skjær":                {"seamark:type": "rock"},
	"Skog":                 {"natural": "wood"},
	"Skytefelt":            {"leisure": "pitch", "sport": "shooting"},
	"SnøIsbre":             {"natural": "glacier"},
	"SportIdrettPlass":     {"leisure": "pitch"},
	"Steinbrudd":           {"landuse": "quarry"},
	"Steintipp":            {"landuse": "landfill"},
	"Tettbebyggelse":       {"landuse": "residential"},
	"Barmarksløype":        {"highway": "track"},
	"Traktorveg":           {"highway": "track"},
	"Sti":                  {"highway": "path"},
	"Terrengpunkt":         {"natural": "hill"},
	"TrigonometriskPunkt":  {"natural": "hill"},
	"Naturvernområde":      {"boundary": "protected_area"},
	"Allmenning":           {"boundary": "protected_area", "protect_class": "27"},
	"Bygning":              {"building": "yes"},
	"Campingplass":         {"tourism": "camp_site"},
	"Dam":                  {"waterway": "dam"},
	"Flytebrygge":          {"man_made": "pier", "floating": "yes"},
	"Gruve":                {"man_made": "adit"},
	"Hoppbakke":            {"piste:type": "ski_jump"},
	"KaiBrygge":            {"man_made": "quay"},
	"Ledning":              {"power": "line"},
	"LuftledningLH":        {"power": "line"},
	"Lysløype":             {"highway": "track", "lit": "yes", "trailblazed": "yes"},
	"MastTele":             {"man_made": "mast", "tower:type": "communication"},
	"Molo":                 {"man_made": "breakwater"},
	"Navigasjonsinstallasjon": {"man_made": "lighthouse"},
	"Parkeringsområde":     {"amenity": "parking"},
	"Pir":                  {"man_made": "pier"},
	"Reingjerde":           {"barrier": "fence"},
	"Rørgate":              {"man_made": "pipeline"},
	"Skitrekk":             {"aerialway": "drag_lift"},
	"Skytebaneinnretning":  {"leisure": "pitch", "sport": "shooting"},
	"Tank":                 {"man_made": "tank"},
	"Taubane":              {"aerialway": "cable_car"},
	"Tårn":                 {"man_made": "tower"},
	"Vindkraftverk":        {"power": "generator", "generator:source": "wind", "generator:type": "horizontal_axis"},
}

// auxiliaryClasses never get a missing-tags report: they're structural
// helpers with no direct OSM representation of their own (spec.md §4.1's
// configured "avoid" set is for drop-entirely; this set is for "route to
// segment pool / fabricate borders, but don't warn if untagged").
var auxiliaryClasses = map[model.ObjectClass]bool{
	"Arealbrukgrense":          true,
	"Dataavgrensning":          true,
	model.ClassAuxiliaryCut:    true,
	"InnsjøElvSperre":          true,
	"InnsjøInnsjøSperre":       true,
	"ElvBekkKant":              true,
	"Havflate":                 true,
	"Innsjøkant":               true,
	"InnsjøkantRegulert":       true,
	"FerskvannTørrfallkant":    true,
}

// AvoidTags are N50 attribute keys excluded from --tag passthrough
// (spec.md §6, §4.2).
var AvoidTags = map[string]bool{
	"oppdateringsdato": true,
	"datafangstdato":   true,
	"målemetode":       true,
	"nøyaktighet":      true,
}
