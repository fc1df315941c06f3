package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/n50osm/n50osm/internal/model"
)

// geometryPropertyNames maps the recognised GML property local names to the
// GeometryKind vocabulary of spec.md §4.1.
var geometryPropertyNames = map[string]model.GeometryKind{
	"posisjon":    model.GeomPosisjon,
	"grense":      model.GeomGrense,
	"område":      model.GeomOmraade,
	"senterlinje": model.GeomSenterlinje,
	"geometri":    model.GeomGeometri,
}

// GMLSource implements FeatureSource by streaming gml:featureMember
// elements out of a byte stream with encoding/xml, rather than
// unmarshalling the whole document: a municipality's N50 export can run to
// hundreds of megabytes, and spec.md §5 rules out buffering more than one
// feature at a time during Ingest.
//
// No GML-aware ecosystem library appears anywhere in the retrieval pack;
// encoding/xml's streaming decoder is the standard idiom the pack itself
// uses for large OSM XML documents (other_examples' gpkg2osm reads an
// analogous document with encoding/xml token-by-token).
type GMLSource struct {
	dec *xml.Decoder
}

// NewGMLSource returns a GMLSource reading from r.
func NewGMLSource(r io.Reader) *GMLSource {
	return &GMLSource{dec: xml.NewDecoder(r)}
}

// Next implements FeatureSource.
func (s *GMLSource) Next() (*RawFeature, error) {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || localName(start.Name) != "featureMember" {
			continue
		}
		// The single child element of featureMember is the feature itself,
		// whose local name is the object class.
		for {
			inner, err := s.dec.Token()
			if err != nil {
				return nil, err
			}
			featStart, ok := inner.(xml.StartElement)
			if !ok {
				continue
			}
			return s.decodeFeature(featStart)
		}
	}
}

func localName(n xml.Name) string {
	return n.Local
}

// decodeFeature walks one feature element's subtree, routing recognised
// geometry properties into RawFeature and flattening everything else into
// Attrs, per spec.md §4.1 "collect all attribute leaves... by recursively
// walking the feature namespace subtree".
func (s *GMLSource) decodeFeature(featStart xml.StartElement) (*RawFeature, error) {
	raw := &RawFeature{
		Class: localName(featStart.Name),
		Attrs: map[string]string{},
	}
	for _, a := range featStart.Attr {
		if localName(a.Name) == "id" {
			raw.ID = a.Value
		}
	}

	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("ingest: decoding feature %s: %w", raw.ID, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			if kind, ok := geometryPropertyNames[name]; ok {
				if err := s.decodeGeometry(name, kind, raw); err != nil {
					return nil, err
				}
				continue
			}
			if err := s.decodeAttrLeaf(name, raw); err != nil {
				return nil, err
			}
		case xml.EndElement:
			return raw, nil
		}
	}
}

// decodeAttrLeaf recurses into a non-geometry property element, recording
// a flattened key for each leaf text node it finds.
func (s *GMLSource) decodeAttrLeaf(name string, raw *RawFeature) error {
	var text strings.Builder
	hasChildElement := false
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasChildElement = true
			if err := s.decodeAttrLeaf(localName(t.Name), raw); err != nil {
				return err
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if !hasChildElement {
				if v := strings.TrimSpace(text.String()); v != "" {
					raw.Attrs[name] = v
				}
			}
			return nil
		}
	}
}

// decodeGeometry dispatches a recognised geometry property element by its
// innermost GML geometry type.
func (s *GMLSource) decodeGeometry(propName string, kind model.GeometryKind, raw *RawFeature) error {
	raw.GeometryKind = kind
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			if _, isEnd := tok.(xml.EndElement); isEnd {
				return nil // empty geometry property
			}
			continue
		}
		switch localName(start.Name) {
		case "Point":
			patch, err := s.readPosOrPosList()
			if err != nil {
				return err
			}
			raw.Patches = [][]RawCoord{patch}
			return s.skipToEnd(propName)
		case "LineString", "Curve":
			patches, err := s.readCurvePatches(localName(start.Name))
			if err != nil {
				return err
			}
			raw.Patches = patches
			return s.skipToEnd(propName)
		case "Surface", "Polygon":
			outer, inner, err := s.readSurface()
			if err != nil {
				return err
			}
			raw.Outer = outer
			raw.Inner = inner
			return s.skipToEnd(propName)
		default:
			// Unknown geometry tag under the GML namespace: logged by the
			// caller, not here, since GMLSource has no logger; skip it.
			if err := s.skipElement(); err != nil {
				return err
			}
			return s.skipToEnd(propName)
		}
	}
}

// readCurvePatches reads a LineString's direct posList, or a Curve's
// segments, returning one coordinate slice per patch (spec.md §4.1 "curves
// with multiple patches").
func (s *GMLSource) readCurvePatches(rootName string) ([][]RawCoord, error) {
	var patches [][]RawCoord
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			switch name {
			case "posList", "pos":
				coords, err := s.readCoordText(name)
				if err != nil {
					return nil, err
				}
				patches = append(patches, coords)
			case "LineStringSegment", "segments":
				// recurse into nested segment container
				inner, err := s.readCurvePatches(name)
				if err != nil {
					return nil, err
				}
				patches = append(patches, inner...)
			default:
				if err := s.skipElement(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if localName(t.Name) == rootName {
				return patches, nil
			}
		}
	}
}

// readSurface reads a Surface/Polygon's exterior and interior rings.
func (s *GMLSource) readSurface() ([]RawCoord, [][]RawCoord, error) {
	var outer []RawCoord
	var inner [][]RawCoord
	depth := 0
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			switch name {
			case "exterior":
				ring, err := s.readRing(name)
				if err != nil {
					return nil, nil, err
				}
				outer = ring
			case "interior":
				ring, err := s.readRing(name)
				if err != nil {
					return nil, nil, err
				}
				inner = append(inner, ring)
			default:
				depth++
			}
		case xml.EndElement:
			if depth == 0 && (localName(t.Name) == "Surface" || localName(t.Name) == "Polygon") {
				return outer, inner, nil
			}
			if depth > 0 {
				depth--
			}
		}
	}
}

// readRing reads a LinearRing's posList nested inside exterior/interior,
// then consumes tokens up to the wrapper element's own end tag.
func (s *GMLSource) readRing(wrapperName string) ([]RawCoord, error) {
	var coords []RawCoord
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if localName(t.Name) == "posList" {
				coords, err = s.readCoordText("posList")
				if err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if localName(t.Name) == wrapperName {
				return coords, nil
			}
		}
	}
}

// readPosOrPosList reads the already-open pos/posList element's character
// data.
func (s *GMLSource) readPosOrPosList() ([]RawCoord, error) {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			name := localName(start.Name)
			if name == "pos" || name == "posList" {
				return s.readCoordText(name)
			}
		}
	}
}

// readCoordText reads the character data of an already-open pos/posList
// element up to its matching end tag, splitting on whitespace into
// easting/northing pairs.
func (s *GMLSource) readCoordText(endName string) ([]RawCoord, error) {
	var text strings.Builder
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if localName(t.Name) == endName {
				return parseCoordPairs(text.String())
			}
		}
	}
}

func parseCoordPairs(s string) ([]RawCoord, error) {
	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("ingest: odd coordinate field count in posList")
	}
	coords := make([]RawCoord, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, err
		}
		coords = append(coords, RawCoord{X: x, Y: y})
	}
	return coords, nil
}

// skipElement consumes tokens until the current element (already opened)
// closes.
func (s *GMLSource) skipElement() error {
	depth := 1
	for depth > 0 {
		tok, err := s.dec.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// skipToEnd consumes tokens until the named element closes; used after a
// geometry's inner element has already been fully consumed, to close out
// the wrapping property element.
func (s *GMLSource) skipToEnd(name string) error {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return err
		}
		if end, ok := tok.(xml.EndElement); ok && localName(end.Name) == name {
			return nil
		}
	}
}
