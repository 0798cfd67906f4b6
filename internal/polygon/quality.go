package polygon

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/metric"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// QualityMetrics summarizes one polygonization attempt's geometric health
// (§4.7 "quality metrics"), independent of whether the attempt succeeded.
type QualityMetrics struct {
	PolygonCount        int
	TotalAreaSteradians float64
	AreaDeficit         float64 // |TotalAreaSteradians - TotalSphereArea|
	MinEdgeLength       float64 // shortest great-circle edge across all rings, radians
	SliverCount         int     // edges shorter than the sliver threshold
	OpenBoundaryCount   int
	NonManifoldCount    int
}

// sliverThresholdRadians below which an edge is counted as a sliver for
// quality reporting, independent of the tolerance policy in effect.
const sliverThresholdRadians = 1e-8

func ComputeQualityMetrics(polygons []Polygon, diags []topology.Diagnostic) QualityMetrics {
	qm := QualityMetrics{PolygonCount: len(polygons), MinEdgeLength: math.Inf(1)}
	for _, p := range polygons {
		qm.TotalAreaSteradians += sphericalExcessArea(p.Outer)
		for _, h := range p.Holes {
			qm.TotalAreaSteradians -= sphericalExcessArea(h)
		}
		rings := append([]Ring{p.Outer}, p.Holes...)
		for _, ring := range rings {
			for i := 1; i < len(ring); i++ {
				d := topology.GreatCircleDistance(ring[i-1], ring[i])
				if d < qm.MinEdgeLength {
					qm.MinEdgeLength = d
				}
				if d < sliverThresholdRadians {
					qm.SliverCount++
				}
			}
		}
	}
	qm.AreaDeficit = math.Abs(qm.TotalAreaSteradians - TotalSphereArea)
	for _, d := range diags {
		switch d.Kind {
		case topology.DiagOpenBoundary:
			qm.OpenBoundaryCount++
		case topology.DiagNonManifoldJunction:
			qm.NonManifoldCount++
		}
	}
	if math.IsInf(qm.MinEdgeLength, 1) {
		qm.MinEdgeLength = 0
	}
	return qm
}

// QualityRecorder records QualityMetrics against an otel meter. Instruments
// are created once and reused across Polygonize calls.
type QualityRecorder struct {
	areaDeficit   metric.Float64Histogram
	minEdgeLength metric.Float64Histogram
	sliverCount   metric.Int64Counter
	openBoundary  metric.Int64Counter
	nonManifold   metric.Int64Counter
}

// NewQualityRecorder creates the otel instruments on meter. meter is
// typically otel.Meter("fantasim-world-sub000/polygon") wired by the
// caller's telemetry setup.
func NewQualityRecorder(meter metric.Meter) (*QualityRecorder, error) {
	areaDeficit, err := meter.Float64Histogram("polygon.area_deficit_steradians",
		metric.WithDescription("absolute difference between summed plate polygon area and 4*pi"))
	if err != nil {
		return nil, fmt.Errorf("polygon: create area_deficit histogram: %w", err)
	}
	minEdge, err := meter.Float64Histogram("polygon.min_edge_length_radians",
		metric.WithDescription("shortest great-circle edge observed across a polygonization"))
	if err != nil {
		return nil, fmt.Errorf("polygon: create min_edge_length histogram: %w", err)
	}
	sliver, err := meter.Int64Counter("polygon.sliver_edges_total",
		metric.WithDescription("edges shorter than the sliver threshold"))
	if err != nil {
		return nil, fmt.Errorf("polygon: create sliver_edges counter: %w", err)
	}
	open, err := meter.Int64Counter("polygon.open_boundaries_total",
		metric.WithDescription("boundary endpoints unmatched to any junction within tolerance"))
	if err != nil {
		return nil, fmt.Errorf("polygon: create open_boundaries counter: %w", err)
	}
	nonManifold, err := meter.Int64Counter("polygon.non_manifold_junctions_total",
		metric.WithDescription("junctions with fewer than two incident boundary endpoints"))
	if err != nil {
		return nil, fmt.Errorf("polygon: create non_manifold_junctions counter: %w", err)
	}
	return &QualityRecorder{
		areaDeficit: areaDeficit, minEdgeLength: minEdge,
		sliverCount: sliver, openBoundary: open, nonManifold: nonManifold,
	}, nil
}

// Record emits qm as a single batch of instrument observations. Safe to
// call on a nil receiver when no recorder was configured.
func (r *QualityRecorder) Record(ctx context.Context, qm QualityMetrics) {
	if r == nil {
		return
	}
	r.areaDeficit.Record(ctx, qm.AreaDeficit)
	r.minEdgeLength.Record(ctx, qm.MinEdgeLength)
	if qm.SliverCount > 0 {
		r.sliverCount.Add(ctx, int64(qm.SliverCount))
	}
	if qm.OpenBoundaryCount > 0 {
		r.openBoundary.Add(ctx, int64(qm.OpenBoundaryCount))
	}
	if qm.NonManifoldCount > 0 {
		r.nonManifold.Add(ctx, int64(qm.NonManifoldCount))
	}
}
