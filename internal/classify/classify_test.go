package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/n50osm/n50osm/internal/model"
)

func newFeature(class model.ObjectClass, kind model.FeatureKind, extras map[string]string) *model.Feature {
	f := model.NewFeature(class, kind)
	for k, v := range extras {
		f.Extras[k] = v
	}
	return f
}

func TestClassifyFeatureStreamWidthOverride(t *testing.T) {
	c := New(nil, "Samferdsel")

	narrow := newFeature("ElvBekk", model.FeatureLine, map[string]string{"vannBredde": "1"})
	c.ClassifyFeature(narrow)
	assert.Equal(t, "stream", narrow.Tags["waterway"])

	wide := newFeature("ElvBekk", model.FeatureLine, map[string]string{"vannBredde": "4"})
	c.ClassifyFeature(wide)
	assert.Equal(t, "river", wide.Tags["waterway"])

	riverbank := newFeature("ElvBekk", model.FeaturePolygon, nil)
	c.ClassifyFeature(riverbank)
	assert.Equal(t, "riverbank", riverbank.Tags["waterway"])
}

func TestClassifyFeatureSkytefeltDependsOnCategory(t *testing.T) {
	military := New(nil, "Restriksjonsomrader")
	f := newFeature("Skytefelt", model.FeaturePolygon, nil)
	military.ClassifyFeature(f)
	assert.Equal(t, "military", f.Tags["landuse"])

	recreational := New(nil, "Arealdekke")
	f2 := newFeature("Skytefelt", model.FeaturePolygon, nil)
	recreational.ClassifyFeature(f2)
	assert.Equal(t, "pitch", f2.Tags["leisure"])
}

func TestClassifyFeatureStaticDictionary(t *testing.T) {
	c := New(nil, "Arealdekke")
	f := newFeature("Innsjø", model.FeaturePolygon, nil)
	c.ClassifyFeature(f)
	assert.Equal(t, "water", f.Tags["natural"])
}

func TestClassifyFeatureTracksMissingClasses(t *testing.T) {
	c := New(nil, "Arealdekke")
	f := newFeature("NoSuchClass", model.FeaturePolygon, nil)
	c.ClassifyFeature(f)
	assert.True(t, f.Missing)
	assert.True(t, c.Missing["NoSuchClass"])
}

func TestClassifyFeatureAuxiliaryClassesNotReportedMissing(t *testing.T) {
	c := New(nil, "Arealdekke")
	f := newFeature("Havflate", model.FeaturePolygon, nil)
	c.ClassifyFeature(f)
	assert.False(t, f.Missing)
	assert.False(t, c.Missing["Havflate"])
}

func TestClassifyFeatureLiftsElevationAndName(t *testing.T) {
	c := New(nil, "Arealdekke")
	f := newFeature("Innsjø", model.FeaturePolygon, map[string]string{
		"høyde": "42",
		"navn":  "Storvatnet",
	})
	c.ClassifyFeature(f)
	assert.Equal(t, "42", f.Tags["ele"])
	assert.Equal(t, "Storvatnet", f.Tags["name"])
}

func TestClassifySegmentAppliesStaticDictionary(t *testing.T) {
	c := New(nil, "Arealdekke")
	s := model.NewSegment("Kystkontur", []model.Node{model.NewNode(0, 0), model.NewNode(1, 1)})
	c.ClassifySegment(s, nil)
	assert.Equal(t, "coastline", s.Tags["natural"])
}

func TestTagsFromN50AttrsExcludesAvoidTagsAndUppercasesKeys(t *testing.T) {
	out := TagsFromN50Attrs(map[string]string{
		"navn":             "Test",
		"oppdateringsdato": "2020-01-01",
	})
	assert.Equal(t, "Test", out["N50_NAVN"])
	_, hasAvoided := out["N50_OPPDATERINGSDATO"]
	assert.False(t, hasAvoided)
}

func TestClassifyBuildingTouristhytteBetjeningsgrad(t *testing.T) {
	c := New(nil, "BygningerOgAnlegg")
	f := newFeature("Bygning", model.FeaturePolygon, map[string]string{
		"bygningstype":   "956",
		"betjeningsgrad": "B",
	})
	c.ClassifyFeature(f)
	assert.Equal(t, "alpine_hut", f.Tags["tourism"])
}
