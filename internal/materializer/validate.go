package materializer

import "github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"

// Validate runs the stateless cross-check of spec.md §4.4: consistency
// properties that cannot be decided incrementally during fold, such as a
// boundary whose plates were retired after the boundary was created.
// Unlike apply's invariants, a non-empty diagnostic list does not fail
// materialization; callers decide whether it is fatal.
func Validate(state topology.State) []topology.Diagnostic {
	var diags []topology.Diagnostic

	for _, bid := range state.SortedBoundaryIds() {
		b := state.Boundaries[bid]
		if b.Left == b.Right {
			diags = append(diags, topology.Diagnostic{
				Kind: topology.DiagSelfLoopBoundary, EntityID: bid.String(),
				Detail: "boundary left and right plate are identical",
			})
			continue
		}
		if b.Retired {
			continue
		}
		left, leftOK := state.Plates[b.Left]
		right, rightOK := state.Plates[b.Right]
		if !leftOK || !rightOK {
			diags = append(diags, topology.Diagnostic{
				Kind: topology.DiagDanglingBoundaryRef, EntityID: bid.String(),
				Detail: "boundary references a plate no longer present in state",
			})
			continue
		}
		if left.Retired || right.Retired {
			diags = append(diags, topology.Diagnostic{
				Kind: topology.DiagRetiredPlateReferenced, EntityID: bid.String(),
				Detail: "active boundary references a retired plate",
			})
		}
	}

	for _, jid := range state.SortedJunctionIds() {
		j := state.Junctions[jid]
		if j.Retired {
			continue
		}
		for _, bid := range j.BoundaryIDs {
			b, ok := state.Boundaries[bid]
			if !ok || b.Retired {
				diags = append(diags, topology.Diagnostic{
					Kind: topology.DiagDanglingJunctionBoundary, EntityID: jid.String(),
					Detail: "active junction references a retired or missing boundary: " + bid.String(),
				})
			}
		}
	}

	return diags
}
