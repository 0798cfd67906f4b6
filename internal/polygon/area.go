package polygon

import (
	"math"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// sphericalExcessArea returns the area (in steradians) of the region to
// the left of a closed ring of unit-sphere points via Girard's theorem:
// for a spherical polygon with interior angles a_1..a_n, area = sum(a_i) -
// (n-2)*pi (§4.7 "area via Girard's theorem"). Ring must be closed
// (first == last). Winding picks the side rather than the sign: a ring
// counter-clockwise seen from outside the sphere yields its enclosed area
// A, and the same loop traversed the other way yields 4*pi - A.
func sphericalExcessArea(ring Ring) float64 {
	n := len(ring)
	if n < 4 { // closed ring needs >=3 distinct vertices plus the repeat
		return 0
	}
	pts := ring[:n-1]
	m := len(pts)

	var angleSum float64
	for i := 0; i < m; i++ {
		prev := pts[(i-1+m)%m]
		cur := pts[i]
		next := pts[(i+1)%m]
		angleSum += interiorAngle(prev, cur, next)
	}
	return angleSum - float64(m-2)*math.Pi
}

// interiorAngle returns the signed interior angle at cur for a ring
// traversed prev->cur->next, on the side the ring's winding keeps to its
// left. Unlike a plain arccos of the chord tangents (which is direction-
// insensitive and clamped to [0, pi]), this measures the turn as a signed
// angle in cur's tangent plane so a reflex vertex correctly yields an
// interior angle above pi — required for sphericalExcessArea to return
// the complementary area when a loop is traversed in the opposite order
// (the two faces on either side of the same boundary loop).
func interiorAngle(prev, cur, next topology.SurfacePoint) float64 {
	n := cur.Normalize()
	arrive := projectTangent(negateVec(tangentAt(cur, prev)), n)
	depart := projectTangent(tangentAt(cur, next), n)

	na := norm(arrive)
	nd := norm(depart)
	if na == 0 || nd == 0 {
		return math.Pi
	}
	cosTurn := dot(arrive, depart) / (na * nd)
	if cosTurn > 1 {
		cosTurn = 1
	}
	if cosTurn < -1 {
		cosTurn = -1
	}
	sinTurn := dot(cross(arrive, depart), n) / (na * nd)
	turn := math.Atan2(sinTurn, cosTurn)
	return math.Pi - turn
}

func dot(a, b topology.SurfacePoint) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func norm(a topology.SurfacePoint) float64   { return math.Sqrt(dot(a, a)) }

func negateVec(v topology.SurfacePoint) topology.SurfacePoint {
	return topology.SurfacePoint{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// projectTangent removes v's component along unit normal n, so chord
// vectors between points separated by a large angle still yield a
// meaningful direction within cur's tangent plane.
func projectTangent(v, n topology.SurfacePoint) topology.SurfacePoint {
	d := dot(v, n)
	return topology.SurfacePoint{X: v.X - d*n.X, Y: v.Y - d*n.Y, Z: v.Z - d*n.Z}
}

// TotalSphereArea is 4*pi steradians, the expected sum of every
// non-retired plate's polygon area for a fully covering topology (§8
// testable property: "total signed area ~= 4*pi").
const TotalSphereArea = 4 * math.Pi
