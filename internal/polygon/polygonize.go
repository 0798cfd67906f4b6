package polygon

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// PolygonizerVersion is embedded in every Provenance and feeds
// AlgorithmHash (§4.8: "a content hash over {polygonizer_version,
// tolerance_policy_class, canonical_encoding(options)}"). Bump it whenever
// the CMap construction or escalation behavior changes observably.
const PolygonizerVersion = "cmap-v1"

// defaultEpsilonSeed is the first candidate Default tries before
// escalating, chosen well below any plausible sliver length.
const defaultEpsilonSeed = 1e-12

// defaultEscalationFactor multiplies the candidate epsilon each retry.
const defaultEscalationFactor = 10

// Polygonize turns a materialized topology.State into one polygon per
// non-retired plate (§4.7). Under every policy, Lenient included, any
// diagnostic found at the applied epsilon fails that attempt; diagnostics
// are not collected as warnings, so on success the returned diagnostics
// are always empty. On failure the returned error wraps a
// *topology.PolygonizationException carrying the unresolved diagnostics.
func Polygonize(ctx context.Context, state topology.State, opts Options) (PlatePolygonSet, []topology.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return PlatePolygonSet{}, nil, err
	}

	switch opts.Policy.Class {
	case PolicyStrict:
		return attemptPolygonize(state, opts, 0)
	case PolicyLenient:
		return attemptPolygonize(state, opts, opts.Policy.Epsilon)
	default:
		return polygonizeWithEscalation(state, opts)
	}
}

// polygonizeWithEscalation implements the Default policy: retry with a
// growing epsilon, starting at EpsilonMin (or defaultEpsilonSeed when
// unset) and stopping at EpsilonMax, returning the first attempt with no
// diagnostics.
func polygonizeWithEscalation(state topology.State, opts Options) (PlatePolygonSet, []topology.Diagnostic, error) {
	candidate := opts.EpsilonMin
	if candidate <= 0 {
		candidate = defaultEpsilonSeed
	}
	max := opts.EpsilonMax
	if max <= 0 {
		max = 1.0 // a full radian is a generous ceiling; anything beyond is not "lenient"
	}

	var last PlatePolygonSet
	var lastDiags []topology.Diagnostic
	for {
		set, diags, err := attemptPolygonize(state, opts, candidate)
		if err == nil {
			return set, diags, nil
		}
		last, lastDiags = set, diags
		if candidate >= max {
			return last, lastDiags, fmt.Errorf("polygon: default policy exhausted escalation: %w", err)
		}
		candidate *= defaultEscalationFactor
		if candidate > max {
			candidate = max
		}
	}
}

func attemptPolygonize(state topology.State, opts Options, epsilon float64) (PlatePolygonSet, []topology.Diagnostic, error) {
	cm, diags := buildCMap(state, epsilon)
	if len(diags) > 0 {
		return PlatePolygonSet{}, diags, &topology.PolygonizationException{Diagnostics: diags}
	}

	faces := extractFaces(cm)
	polygons, err := assemblePolygons(cm, faces)
	if err != nil {
		return PlatePolygonSet{}, nil, err
	}

	hash, err := algorithmHash(opts, epsilon)
	if err != nil {
		return PlatePolygonSet{}, nil, err
	}

	set := PlatePolygonSet{
		Tick:     opts.Tick,
		Polygons: polygons,
		Provenance: Provenance{
			TopologySource:     state.Identity.String(),
			PolygonizerVersion: PolygonizerVersion,
			AlgorithmHash:      hash,
			ChosenEpsilon:      epsilon,
		},
		BoundaryAdjacency: BuildFaceAdjacency(cm),
	}
	return set, nil, nil
}

// BuildFaceAdjacency reads each boundary's two plates directly off its
// dart pair: d and alpha(d) carry the same boundary but opposite sides, so
// their plate tags are the two faces the boundary separates.
func BuildFaceAdjacency(cm *cmap) BoundaryFaceAdjacencyMap {
	out := make(BoundaryFaceAdjacencyMap, len(cm.darts)/2)
	for d := range cm.darts {
		if !cm.darts[d].forward {
			continue
		}
		left := cm.darts[d]
		right := cm.darts[alpha(dartID(d))]
		out[left.boundary] = [2]ids.PlateId{left.plate, right.plate}
	}
	return out
}

// face is one phi-orbit: a closed walk of darts bounding a single region,
// tagged with the plate on the orbit's interior side.
type face struct {
	plate ids.PlateId
	darts []dartID
}

// extractFaces walks every phi = sigma-of-alpha orbit exactly once.
func extractFaces(cm *cmap) []face {
	visited := make([]bool, len(cm.darts))
	var faces []face
	for start := range cm.darts {
		if visited[start] {
			continue
		}
		var orbit []dartID
		d := dartID(start)
		for !visited[d] {
			visited[d] = true
			orbit = append(orbit, d)
			d = cm.sigma[alpha(d)]
		}
		faces = append(faces, face{plate: plurality(cm, orbit), darts: orbit})
	}
	return faces
}

// plurality returns the plate referenced by the most darts in orbit,
// ties broken by PlateId. By construction every dart in a correctly
// formed face orbit shares one plate; the vote is a defensive fallback
// for vertex stars the tolerance policy had to snap together.
func plurality(cm *cmap, orbit []dartID) ids.PlateId {
	counts := make(map[ids.PlateId]int, len(orbit))
	for _, d := range orbit {
		counts[cm.darts[d].plate]++
	}
	var best ids.PlateId
	bestCount := -1
	first := true
	for p, c := range counts {
		if c > bestCount || (c == bestCount && !first && p.Less(best)) {
			best, bestCount = p, c
		}
		first = false
	}
	return best
}

// assemblePolygons groups faces by plate, picks the largest-area orbit as
// each plate's outer ring, and keeps the rest as holes ordered by their
// lexicographically least vertex (§4.7).
func assemblePolygons(cm *cmap, faces []face) ([]Polygon, error) {
	byPlate := make(map[ids.PlateId][]Ring)
	for _, f := range faces {
		if len(f.darts) < 3 {
			continue // a degenerate one- or two-dart orbit carries no area
		}
		ring := ringFromOrbit(cm, f.darts)
		byPlate[f.plate] = append(byPlate[f.plate], ring)
	}

	var plates []ids.PlateId
	for p := range byPlate {
		plates = append(plates, p)
	}
	plates = ids.SortPlateIds(plates)

	polygons := make([]Polygon, 0, len(plates))
	for _, p := range plates {
		rings := byPlate[p]
		sort.Slice(rings, func(i, j int) bool {
			return sphericalExcessArea(rings[i]) > sphericalExcessArea(rings[j])
		})
		outer := rings[0]
		holes := rings[1:]
		sort.Slice(holes, func(i, j int) bool {
			return leastVertex(holes[i]).LessLexicographic(leastVertex(holes[j]))
		})
		polygons = append(polygons, Polygon{Plate: p, Outer: outer, Holes: holes})
	}
	return polygons, nil
}

// ringFromOrbit turns a phi-orbit of darts into a closed ring: one vertex
// per dart origin, plus a repeat of the first vertex to close the loop.
func ringFromOrbit(cm *cmap, darts []dartID) Ring {
	ring := make(Ring, 0, len(darts)+1)
	for _, d := range darts {
		ring = append(ring, cm.darts[d].origin)
	}
	ring = append(ring, ring[0])
	return ring
}

func leastVertex(r Ring) topology.SurfacePoint {
	least := r[0]
	for _, p := range r[1:] {
		if p.LessLexicographic(least) {
			least = p
		}
	}
	return least
}

// algorithmHash is the content hash described in §4.8: a deterministic
// digest over the polygonizer version, the tolerance policy class, and
// the canonical encoding of the chosen epsilon, so two requests that would
// produce byte-identical output share a cache slot and two that would not
// never collide.
func algorithmHash(opts Options, epsilon float64) ([]byte, error) {
	var buf []byte
	buf = append(buf, []byte(PolygonizerVersion)...)
	buf = append(buf, byte(opts.Policy.Class))
	var epsBits [8]byte
	binary.BigEndian.PutUint64(epsBits[:], math.Float64bits(epsilon))
	buf = append(buf, epsBits[:]...)
	sum := sha256.Sum256(buf)
	return sum[:], nil
}
