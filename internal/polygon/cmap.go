package polygon

import (
	"math"
	"sort"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// dartID indexes into CMap.darts; dartID^1 is always its alpha partner,
// since darts are allocated in (left, right) pairs per boundary.
type dartID int

// dart is one directed half-edge: it starts at Origin, belongs to
// Boundary, travels in the direction that keeps Plate on its left.
type dart struct {
	boundary ids.BoundaryId
	plate    ids.PlateId
	forward  bool // true: geometry[0] -> geometry[last]; false: reversed
	origin   topology.SurfacePoint
	tangent  topology.SurfacePoint // unit-ish direction away from origin, for cyclic ordering
}

// cmap is the combinatorial map built from a topology.State: darts plus
// the alpha (opposite) and sigma (next-around-origin) permutations.
type cmap struct {
	darts []dart
	sigma []dartID // sigma[d] = next dart around darts[d].origin's vertex
}

func alpha(d dartID) dartID {
	if d%2 == 0 {
		return d + 1
	}
	return d - 1
}

// buildCMap constructs the CMap for every non-retired boundary/junction
// in state. epsilon (great-circle radians) controls endpoint snapping
// for junction-vertex matching; epsilon == 0 requires exact match
// (Strict). Returns diagnostics for boundaries/junctions that could not
// be matched to a vertex star; any diagnostic makes the caller's attempt
// fail, whatever the tolerance policy.
func buildCMap(state topology.State, epsilon float64) (*cmap, []topology.Diagnostic) {
	cm := &cmap{}
	var diags []topology.Diagnostic

	// One (left, right) dart pair per non-retired boundary with >=2 points.
	boundaryDarts := make(map[ids.BoundaryId][2]dartID)
	for _, bid := range state.SortedBoundaryIds() {
		b := state.Boundaries[bid]
		if b.Retired || len(b.Geometry) < 2 {
			continue
		}
		start := b.Geometry[0]
		end := b.Geometry[len(b.Geometry)-1]

		leftID := dartID(len(cm.darts))
		cm.darts = append(cm.darts, dart{
			boundary: bid, plate: b.Left, forward: true,
			origin: start, tangent: tangentAt(start, b.Geometry[1]),
		})
		rightID := dartID(len(cm.darts))
		cm.darts = append(cm.darts, dart{
			boundary: bid, plate: b.Right, forward: false,
			origin: end, tangent: tangentAt(end, b.Geometry[len(b.Geometry)-2]),
		})
		boundaryDarts[bid] = [2]dartID{leftID, rightID}
	}

	cm.sigma = make([]dartID, len(cm.darts))
	for i := range cm.sigma {
		cm.sigma[i] = dartID(i) // default: isolated, fixed by itself
	}

	// Group darts by junction, order cyclically by tangent angle (ties by
	// BoundaryId), and link sigma within each vertex star.
	for _, jid := range sortedJunctionIDs(state) {
		j := state.Junctions[jid]
		if j.Retired {
			continue
		}
		var star []dartID
		for _, bid := range j.BoundaryIDs {
			pair, ok := boundaryDarts[bid]
			if !ok {
				diags = append(diags, topology.Diagnostic{
					Kind: topology.DiagOpenBoundary, EntityID: bid.String(),
					Detail: "junction references a boundary absent from the CMap",
				})
				continue
			}
			matched := false
			for _, d := range pair {
				if topology.GreatCircleDistance(cm.darts[d].origin, j.Location) <= epsilon {
					star = append(star, d)
					matched = true
				}
			}
			if !matched {
				diags = append(diags, topology.Diagnostic{
					Kind: topology.DiagOpenBoundary, EntityID: bid.String(),
					Detail: "boundary endpoint does not meet its junction within tolerance",
				})
			}
		}
		if len(star) < 2 {
			diags = append(diags, topology.Diagnostic{
				Kind: topology.DiagNonManifoldJunction, EntityID: jid.String(),
				Detail: "junction has fewer than two incident boundary endpoints",
			})
			continue
		}
		sortDartsCyclically(cm, star)
		for i, d := range star {
			cm.sigma[d] = star[(i+1)%len(star)]
		}
	}

	return cm, diags
}

// tangentAt approximates the dart's outgoing direction at a vertex as
// the chord from origin to the next polyline sample, which is exact for
// straight segments and a stable approximation for densely sampled arcs.
func tangentAt(origin, next topology.SurfacePoint) topology.SurfacePoint {
	return topology.SurfacePoint{X: next.X - origin.X, Y: next.Y - origin.Y, Z: next.Z - origin.Z}
}

// sortDartsCyclically orders a vertex star by the tangent's azimuth in
// the local tangent plane at the shared origin (east/north basis derived
// from the origin vector), tie-broken by BoundaryId (§4.7).
func sortDartsCyclically(cm *cmap, star []dartID) {
	origin := cm.darts[star[0]].origin
	east, north := tangentBasis(origin)

	angle := func(d dartID) float64 {
		t := cm.darts[d].tangent
		e := t.X*east.X + t.Y*east.Y + t.Z*east.Z
		n := t.X*north.X + t.Y*north.Y + t.Z*north.Z
		return math.Atan2(n, e)
	}

	sort.Slice(star, func(i, j int) bool {
		ai, aj := angle(star[i]), angle(star[j])
		if ai != aj {
			return ai < aj
		}
		return cm.darts[star[i]].boundary.Less(cm.darts[star[j]].boundary)
	})
}

// tangentBasis returns an orthonormal (east, north) basis for the plane
// tangent to the unit sphere at p, used only to turn 3D tangent vectors
// into a 2D angle for cyclic ordering.
func tangentBasis(p topology.SurfacePoint) (east, north topology.SurfacePoint) {
	n := p.Normalize()
	up := topology.SurfacePoint{X: 0, Y: 0, Z: 1}
	if math.Abs(n.Z) > 0.999 {
		up = topology.SurfacePoint{X: 0, Y: 1, Z: 0}
	}
	east = cross(up, n)
	east = normalizeVec(east)
	north = cross(n, east)
	return east, north
}

func cross(a, b topology.SurfacePoint) topology.SurfacePoint {
	return topology.SurfacePoint{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func normalizeVec(v topology.SurfacePoint) topology.SurfacePoint {
	n := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if n == 0 {
		return v
	}
	return topology.SurfacePoint{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// sortedJunctionIDs returns junction keys in ascending raw-bit order,
// sorting them directly rather than through State.SortedJunctionIds.
func sortedJunctionIDs(state topology.State) []ids.JunctionId {
	out := make([]ids.JunctionId, 0, len(state.Junctions))
	for id := range state.Junctions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
