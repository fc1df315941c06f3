// Package elevation implements spec.md §4.6: the optional pass that
// reverses uphill-pointing streams and tags lake elevations, using a
// memoised point-elevation lookup.
package elevation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/n50osm/n50osm/internal/geomutil"
	"github.com/n50osm/n50osm/internal/model"
)

// reversalThreshold is the minimum uphill delta (end - start) that
// triggers a stream reversal, in metres.
const reversalThreshold = 1.0

// ambiguousThreshold flags streams whose |Δele| is small enough that the
// reversal decision is worth a reviewer's attention.
const ambiguousThreshold = 2.0

// minLakeArea is the area, in square metres, above which an unnamed lake
// still qualifies for elevation sampling (spec.md §4.6: "area >= 2000 m2
// or a known name position").
const minLakeArea = 2000.0

// Source samples ground elevation at a coordinate (spec.md §6 "Elevation").
type Source interface {
	ElevationAt(ctx context.Context, n model.Node) (float64, error)
}

// Pass runs the elevation stage over streams and lakes.
type Pass struct {
	Source Source
	Log    *slog.Logger

	cache map[model.Node]float64
}

// New returns a Pass backed by the given elevation source.
func New(source Source, log *slog.Logger) *Pass {
	if log == nil {
		log = slog.Default()
	}
	return &Pass{Source: source, Log: log, cache: map[model.Node]float64{}}
}

func (p *Pass) elevation(ctx context.Context, n model.Node) (float64, error) {
	if v, ok := p.cache[n]; ok {
		return v, nil
	}
	v, err := p.Source.ElevationAt(ctx, n)
	if err != nil {
		return 0, err
	}
	p.cache[n] = v
	return v, nil
}

// ReverseStream samples the first and last node of a stream LineString and
// reverses it if it points uphill, per §4.6.
func (p *Pass) ReverseStream(ctx context.Context, f *model.Feature) error {
	if f.Kind != model.FeatureLine || len(f.Points) < 2 {
		return nil
	}
	start := f.Points[0]
	end := f.Points[len(f.Points)-1]

	eleStart, err := p.elevation(ctx, start)
	if err != nil {
		return err
	}
	eleEnd, err := p.elevation(ctx, end)
	if err != nil {
		return err
	}

	delta := eleEnd - eleStart
	if delta >= reversalThreshold {
		reverseNodes(f.Points)
		f.Extras["reversert"] = fmt.Sprintf("%.2f", delta)
	}
	if absf(delta) < ambiguousThreshold {
		f.Extras["ele_usikker"] = "yes"
	}
	return nil
}

func reverseNodes(nodes []model.Node) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}

// TagLake samples and attaches an integer elevation to a lake feature with
// no existing ele tag, choosing a representative node per §4.6: the
// place-name anchor if inside the multipolygon, else the outer-ring
// centroid if inside, else outer[0].
func (p *Pass) TagLake(ctx context.Context, f *model.Feature, nameAnchor *model.Node) error {
	if _, hasEle := f.Tags["ele"]; hasEle {
		return nil
	}
	if len(f.Rings) == 0 {
		return nil
	}
	outer := f.Rings[0].Nodes
	area, ok := geomutil.MultipolygonArea(ringNodeSlices(f.Rings))
	_, hasName := f.Tags["name"]
	if !ok || (area < minLakeArea && !hasName) {
		return nil
	}

	rep := p.representativeNode(f, nameAnchor, outer)
	ele, err := p.elevation(ctx, rep)
	if err != nil {
		return err
	}
	f.Tags["ele"] = fmt.Sprintf("%d", roundToInt(ele))
	return nil
}

func (p *Pass) representativeNode(f *model.Feature, nameAnchor *model.Node, outer []model.Node) model.Node {
	rings := ringNodeSlices(f.Rings)
	if nameAnchor != nil && geomutil.PointInMultipolygon(*nameAnchor, rings) {
		return *nameAnchor
	}
	centroid := geomutil.Centroid(outer)
	if geomutil.PointInMultipolygon(centroid, rings) {
		return centroid
	}
	return outer[0]
}

func ringNodeSlices(rings []model.Ring) [][]model.Node {
	out := make([][]model.Node, len(rings))
	for i, r := range rings {
		out[i] = r.Nodes
	}
	return out
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func roundToInt(v float64) int64 {
	if v < 0 {
		return int64(v - 0.5)
	}
	return int64(v + 0.5)
}
