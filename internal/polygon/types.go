// Package polygon implements C7: turning a validated topology state into
// a sphere-covering set of plate polygons via a combinatorial map (CMap)
// construction (spec.md §4.7).
//
// Grounded on a production repo's internal/formula package's graph-traversal
// style (deterministic orbit walks over typed nodes) for the CMap
// mechanics, and on the pack's lvlath-style graph conventions (neighbor
// ordering by node id) for determinism.
package polygon

import (
	"time"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// Ring is a closed loop of vertices: the first and last point are equal
// (§8 testable property 7).
type Ring []topology.SurfacePoint

// Polygon is one plate's polygon: an outer ring plus holes ordered by
// the lexicographically least vertex of each hole (§4.7).
type Polygon struct {
	Plate ids.PlateId
	Outer Ring
	Holes []Ring
}

// Provenance records how a PlatePolygonSet was produced (§4.8, GLOSSARY).
type Provenance struct {
	TopologySource    string
	PolygonizerVersion string
	ComputedAt        time.Time
	AlgorithmHash     []byte
	ChosenEpsilon     float64
}

// PlatePolygonSet is the C7 output: one polygon per non-retired plate,
// ordered by PlateId, plus provenance.
type PlatePolygonSet struct {
	Tick       topology.CanonicalTick
	Polygons   []Polygon
	Provenance Provenance
	// BoundaryAdjacency maps each boundary to the two plates whose faces
	// it separates, as resolved by the CMap construction itself (rather
	// than re-derived from topology.State), so a caller can cross-check
	// index.AdjacencyGraph against what polygonization actually saw.
	BoundaryAdjacency BoundaryFaceAdjacencyMap
}

// Options configures one polygonization request (§4.7, §6 "Configuration").
type Options struct {
	Policy     TolerancePolicy
	EpsilonMin float64
	EpsilonMax float64
	Tick       topology.CanonicalTick
}

// BoundaryFaceAdjacencyMap maps each boundary to the two plates whose
// faces it separates, available on demand after polygonization (§4.7).
type BoundaryFaceAdjacencyMap map[ids.BoundaryId][2]ids.PlateId
