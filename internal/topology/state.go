package topology

import "github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"

// DiagnosticKind enumerates the codes validate(state) can report (§4.4,
// SPEC_FULL §12 "Diagnostics codes").
type DiagnosticKind string

const (
	DiagRetiredPlateReferenced  DiagnosticKind = "retired_plate_referenced"
	DiagDanglingBoundaryRef     DiagnosticKind = "dangling_boundary_reference"
	DiagDanglingJunctionBoundary DiagnosticKind = "junction_references_retired_boundary"
	DiagSelfLoopBoundary        DiagnosticKind = "boundary_self_loop"
	DiagOpenBoundary            DiagnosticKind = "open_boundary"
	DiagNonManifoldJunction     DiagnosticKind = "non_manifold_junction"
)

// Diagnostic is a single state-level cross-check finding (§4.4).
type Diagnostic struct {
	Kind     DiagnosticKind
	EntityID string
	Detail   string
}

// State is the materialized, immutable read-model for one stream at one
// cutoff (§3.3). Map fields have value semantics: two States are equal iff
// their keysets and corresponding values are equal.
type State struct {
	Identity          TruthStreamIdentity
	Plates            map[ids.PlateId]Plate
	Boundaries        map[ids.BoundaryId]Boundary
	Junctions         map[ids.JunctionId]Junction
	LastEventSequence int64
	Violations        []Diagnostic
}

// NewEmptyState returns the zero-event state for a stream: no entities,
// LastEventSequence -1, per §8 "Empty stream" boundary behavior.
func NewEmptyState(identity TruthStreamIdentity) State {
	return State{
		Identity:          identity,
		Plates:            make(map[ids.PlateId]Plate),
		Boundaries:        make(map[ids.BoundaryId]Boundary),
		Junctions:         make(map[ids.JunctionId]Junction),
		LastEventSequence: -1,
	}
}

// Clone returns a deep copy so callers can mutate the copy (e.g. during
// fold) without aliasing the receiver's maps.
func (s State) Clone() State {
	out := State{
		Identity:          s.Identity,
		Plates:            make(map[ids.PlateId]Plate, len(s.Plates)),
		Boundaries:        make(map[ids.BoundaryId]Boundary, len(s.Boundaries)),
		Junctions:         make(map[ids.JunctionId]Junction, len(s.Junctions)),
		LastEventSequence: s.LastEventSequence,
		Violations:        append([]Diagnostic(nil), s.Violations...),
	}
	for k, v := range s.Plates {
		out.Plates[k] = v.Clone()
	}
	for k, v := range s.Boundaries {
		out.Boundaries[k] = v.Clone()
	}
	for k, v := range s.Junctions {
		out.Junctions[k] = v.Clone()
	}
	return out
}

// Equal implements the value-semantics equality required by §3.3: equal
// keysets and equal corresponding values, ignoring Violations (a diagnostic
// side-channel, not part of the topology's identity).
func (s State) Equal(o State) bool {
	if s.Identity != o.Identity || s.LastEventSequence != o.LastEventSequence {
		return false
	}
	if len(s.Plates) != len(o.Plates) || len(s.Boundaries) != len(o.Boundaries) || len(s.Junctions) != len(o.Junctions) {
		return false
	}
	for k, v := range s.Plates {
		ov, ok := o.Plates[k]
		if !ok || ov != v {
			return false
		}
	}
	for k, v := range s.Boundaries {
		ov, ok := o.Boundaries[k]
		if !ok || !v.Geometry.Equal(ov.Geometry) || v.ID != ov.ID || v.Left != ov.Left || v.Right != ov.Right ||
			v.Kind != ov.Kind || v.Retired != ov.Retired || v.RetirementReason != ov.RetirementReason {
			return false
		}
	}
	for k, v := range s.Junctions {
		ov, ok := o.Junctions[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// SortedPlateIds returns plate keys in ascending id order, the
// determinism rule §4.4 requires whenever map iteration is exposed.
func (s State) SortedPlateIds() []ids.PlateId {
	out := make([]ids.PlateId, 0, len(s.Plates))
	for id := range s.Plates {
		out = append(out, id)
	}
	return ids.SortPlateIds(out)
}

// SortedBoundaryIds returns boundary keys in ascending id order.
func (s State) SortedBoundaryIds() []ids.BoundaryId {
	out := make([]ids.BoundaryId, 0, len(s.Boundaries))
	for id := range s.Boundaries {
		out = append(out, id)
	}
	return ids.SortBoundaryIds(out)
}

// SortedJunctionIds returns junction keys in ascending id order.
func (s State) SortedJunctionIds() []ids.JunctionId {
	out := make([]ids.JunctionId, 0, len(s.Junctions))
	for id := range s.Junctions {
		out = append(out, id)
	}
	return ids.SortJunctionIds(out)
}
