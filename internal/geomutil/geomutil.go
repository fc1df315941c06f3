// Package geomutil implements the local-projection geometric primitives of
// spec.md §4.8: signed area, centroid, point-in-polygon, and metre offsets.
//
// All polygon arithmetic happens in a local equirectangular projection about
// the ring being measured, never in raw lon/lat degrees, so that area and
// orientation come out with metre-scale meaning.
package geomutil

import (
	"math"

	"github.com/n50osm/n50osm/internal/model"
)

// EarthRadius is the sphere radius used throughout §4.8, in metres.
const EarthRadius = 6371009.0

// projected is a node expressed in the local equirectangular plane.
type projected struct{ x, y float64 }

// project converts nodes to the local equirectangular plane described in
// §4.8: y = lat*(pi*R/180), x = lon*(pi*R/180)*cos(lat).
func project(nodes []model.Node) []projected {
	out := make([]projected, len(nodes))
	k := math.Pi * EarthRadius / 180
	for i, n := range nodes {
		out[i] = projected{
			x: n.Lon * k * math.Cos(n.Lat*math.Pi/180),
			y: n.Lat * k,
		}
	}
	return out
}

// SignedArea computes the shoelace signed area of a ring in square metres.
// Negative means clockwise (an OSM outer ring); positive means
// counter-clockwise (an inner ring, or an island).
func SignedArea(nodes []model.Node) float64 {
	pts := project(nodes)
	if len(pts) < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(pts); i++ {
		j := (i + 1) % len(pts)
		sum += (pts[j].y - pts[i].y) * (pts[j].x + pts[i].x)
	}
	return sum / 2
}

// IsClockwise reports whether the ring winds clockwise (outer-ring sense).
func IsClockwise(nodes []model.Node) bool {
	return SignedArea(nodes) < 0
}

// MultipolygonArea computes outer area minus each inner ring's area.
// Returns (area, ok); ok is false if any inner ring is open (not closed),
// per §4.8 "returns undefined if any inner is open".
func MultipolygonArea(rings [][]model.Node) (float64, bool) {
	if len(rings) == 0 {
		return 0, true
	}
	area := math.Abs(SignedArea(rings[0]))
	for _, inner := range rings[1:] {
		if len(inner) < 2 || inner[0] != inner[len(inner)-1] {
			return 0, false
		}
		area -= math.Abs(SignedArea(inner))
	}
	return area, true
}

// Centroid returns the shoelace centroid of a ring. The ring is projected
// with a single longitude scale, the cosine of its first node's latitude,
// so the centroid converts back to lon/lat exactly.
func Centroid(nodes []model.Node) model.Node {
	if len(nodes) == 0 {
		return model.Node{}
	}
	k := math.Pi * EarthRadius / 180
	kx := k * math.Cos(nodes[0].Lat*math.Pi/180)
	pts := make([]projected, len(nodes))
	for i, n := range nodes {
		pts[i] = projected{x: n.Lon * kx, y: n.Lat * k}
	}
	var cx, cy, a float64
	for i := 0; i < len(pts); i++ {
		j := (i + 1) % len(pts)
		cross := pts[i].x*pts[j].y - pts[j].x*pts[i].y
		a += cross
		cx += (pts[i].x + pts[j].x) * cross
		cy += (pts[i].y + pts[j].y) * cross
	}
	a /= 2
	if a == 0 {
		// Degenerate ring: fall back to arithmetic mean.
		var lon, lat float64
		for _, n := range nodes {
			lon += n.Lon
			lat += n.Lat
		}
		return model.NewNode(lon/float64(len(nodes)), lat/float64(len(nodes)))
	}
	cx /= 6 * a
	cy /= 6 * a

	return model.NewNode(cx/kx, cy/k)
}

// PointInRing performs a horizontal ray-cast point-in-polygon test.
func PointInRing(p model.Node, ring []model.Node) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Lat > p.Lat) != (pj.Lat > p.Lat) {
			x := pj.Lon + (p.Lat-pj.Lat)/(pi.Lat-pj.Lat)*(pi.Lon-pj.Lon)
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PointInMultipolygon reports whether p lies inside the outer ring and
// outside every inner ring.
func PointInMultipolygon(p model.Node, rings [][]model.Node) bool {
	if len(rings) == 0 || !PointInRing(p, rings[0]) {
		return false
	}
	for _, inner := range rings[1:] {
		if PointInRing(p, inner) {
			return false
		}
	}
	return true
}

// OffsetMetres returns a coordinate offset by d metres, per §4.8:
// dLat = d/R, dLon = d/(R*cos(lat)), both converted to degrees.
func OffsetMetres(n model.Node, dLat, dLon float64) model.Node {
	deltaLat := dLat / EarthRadius * 180 / math.Pi
	deltaLon := dLon / (EarthRadius * math.Cos(n.Lat*math.Pi/180)) * 180 / math.Pi
	return model.NewNode(n.Lon+deltaLon, n.Lat+deltaLat)
}
