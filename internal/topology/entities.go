package topology

import "github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"

// BoundaryKind enumerates the kinematic classification of a boundary.
type BoundaryKind uint8

const (
	Divergent BoundaryKind = iota
	Convergent
	Transform
)

func (k BoundaryKind) String() string {
	switch k {
	case Divergent:
		return "Divergent"
	case Convergent:
		return "Convergent"
	case Transform:
		return "Transform"
	default:
		return "Unknown"
	}
}

// Plate is the smallest self-contained unit of crust tracked by the engine.
type Plate struct {
	ID               ids.PlateId
	Retired          bool
	RetirementReason string
}

// Clone returns a value copy; Plate has no reference fields so this is
// equivalent to a plain assignment, but kept for symmetry with Boundary
// and Junction, whose Clone methods do real work.
func (p Plate) Clone() Plate { return p }

// Boundary separates exactly two plates (§3.2). Left/Right are never
// equal in a valid Boundary.
type Boundary struct {
	ID               ids.BoundaryId
	Left             ids.PlateId
	Right            ids.PlateId
	Kind             BoundaryKind
	Geometry         Polyline3
	Retired          bool
	RetirementReason string
}

func (b Boundary) Clone() Boundary {
	c := b
	c.Geometry = b.Geometry.Clone()
	return c
}

// Junction is a vertex where two or more boundaries meet.
type Junction struct {
	ID      ids.JunctionId
	// BoundaryIDs preserves insertion order for replay fidelity, but
	// equality between two Junction values is defined on the *set* of
	// ids (see Equal), per §3.2.
	BoundaryIDs []ids.BoundaryId
	Location    SurfacePoint
	Retired     bool
	RetirementReason string
}

func (j Junction) Clone() Junction {
	c := j
	c.BoundaryIDs = append([]ids.BoundaryId(nil), j.BoundaryIDs...)
	return c
}

// HasBoundary reports whether b is among j's boundaries.
func (j Junction) HasBoundary(b ids.BoundaryId) bool {
	for _, id := range j.BoundaryIDs {
		if id == b {
			return true
		}
	}
	return false
}

// Equal compares two junctions by id-set equality on BoundaryIDs (not
// insertion order) plus the remaining scalar fields, per §3.2.
func (j Junction) Equal(o Junction) bool {
	if j.ID != o.ID || j.Location != o.Location || j.Retired != o.Retired || j.RetirementReason != o.RetirementReason {
		return false
	}
	if len(j.BoundaryIDs) != len(o.BoundaryIDs) {
		return false
	}
	sa := ids.SortBoundaryIds(j.BoundaryIDs)
	sb := ids.SortBoundaryIds(o.BoundaryIDs)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
