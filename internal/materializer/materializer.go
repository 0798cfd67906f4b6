package materializer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// Materializer folds a log into State views, grounded on a production repo's
// internal/query package's "derive a read-model from stored facts" shape,
// generalized from SQL projections to an in-memory event fold.
type Materializer struct {
	log    *eventlog.Log
	logger *slog.Logger
}

// New wraps log as a materializer.
func New(log *eventlog.Log) *Materializer {
	return &Materializer{log: log, logger: slog.Default()}
}

// Materialize folds events from stream up to cutoff into a State,
// enforcing every invariant in spec.md §3.5. It returns
// *topology.InvariantViolation on a structural violation (without
// mutating the returned state past the failing event), or propagates a
// *topology.ChainIntegrityError from the underlying read.
func (m *Materializer) Materialize(ctx context.Context, stream topology.TruthStreamIdentity, cutoff Cutoff) (topology.State, error) {
	state := topology.NewEmptyState(stream)

	it, err := m.log.Read(ctx, stream, 0)
	if err != nil {
		return state, fmt.Errorf("materializer: open read: %w", err)
	}
	defer it.Close()

	prevSequence := int64(-1)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("%w: %v", topology.ErrCancelled, err)
		}
		ev := it.Event()

		if cutoff.Kind == CutoffAtSequence && ev.Sequence > cutoff.Sequence {
			break
		}

		if !ev.Stream.Equal(stream) {
			return state, topology.NewStreamIdentityMismatch(fmt.Sprintf("event %d declares a different stream", ev.Sequence))
		}
		if ev.Sequence != prevSequence+1 {
			return state, topology.NewNonMonotonicSequence(fmt.Sprintf("event sequence %d does not continue from %d", ev.Sequence, prevSequence))
		}
		prevSequence = ev.Sequence

		if cutoff.Kind == CutoffAtTick && ev.Tick > cutoff.Tick {
			continue
		}

		if err := apply(&state, ev); err != nil {
			return state, err
		}
		state.LastEventSequence = ev.Sequence
	}
	if err := it.Err(); err != nil {
		return state, err
	}

	m.logger.Debug("materialized state", "stream", stream.String(), "last_event_sequence", state.LastEventSequence)
	return state, nil
}

func invariantErr(name string, seq int64, entities []string, detail string) error {
	return &topology.InvariantViolation{InvariantName: name, Sequence: seq, EntityIDs: entities, Detail: detail}
}

// apply validates ev against state (invariants §3.5 items 3-7) and, if
// valid, mutates state in place.
func apply(state *topology.State, ev topology.Event) error {
	switch p := ev.Payload.(type) {
	case topology.PlateCreated:
		if _, exists := state.Plates[p.PlateID]; exists {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.PlateID.String()}, "plate already exists")
		}
		state.Plates[p.PlateID] = topology.Plate{ID: p.PlateID}
		return nil

	case topology.PlateRetired:
		plate, ok := state.Plates[p.PlateID]
		if !ok {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.PlateID.String()}, "plate does not exist")
		}
		if plate.Retired {
			return invariantErr("LifecycleOrdering", ev.Sequence, []string{p.PlateID.String()}, "plate already retired")
		}
		plate.Retired = true
		plate.RetirementReason = p.Reason
		state.Plates[p.PlateID] = plate
		return nil

	case topology.BoundaryCreated:
		if _, exists := state.Boundaries[p.BoundaryID]; exists {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.BoundaryID.String()}, "boundary already exists")
		}
		if p.Left == p.Right {
			return invariantErr("BoundarySeparatesTwoPlates", ev.Sequence, []string{p.BoundaryID.String()}, "left and right plate are the same")
		}
		left, leftOK := state.Plates[p.Left]
		right, rightOK := state.Plates[p.Right]
		if !leftOK || !rightOK {
			return invariantErr("BoundarySeparatesTwoPlates", ev.Sequence, []string{p.BoundaryID.String()}, "referenced plate does not exist")
		}
		if left.Retired || right.Retired {
			return invariantErr("BoundarySeparatesTwoPlates", ev.Sequence, []string{p.BoundaryID.String()}, "referenced plate is retired")
		}
		state.Boundaries[p.BoundaryID] = topology.Boundary{
			ID: p.BoundaryID, Left: p.Left, Right: p.Right, Kind: p.Kind_, Geometry: p.Geometry.Clone(),
		}
		return nil

	case topology.BoundaryTypeChanged:
		b, ok := state.Boundaries[p.BoundaryID]
		if !ok {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.BoundaryID.String()}, "boundary does not exist")
		}
		if b.Retired {
			return invariantErr("LifecycleOrdering", ev.Sequence, []string{p.BoundaryID.String()}, "boundary is retired")
		}
		b.Kind = p.NewKind
		state.Boundaries[p.BoundaryID] = b
		return nil

	case topology.BoundaryGeometryUpdated:
		b, ok := state.Boundaries[p.BoundaryID]
		if !ok {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.BoundaryID.String()}, "boundary does not exist")
		}
		if b.Retired {
			return invariantErr("LifecycleOrdering", ev.Sequence, []string{p.BoundaryID.String()}, "boundary is retired")
		}
		b.Geometry = p.NewGeometry.Clone()
		state.Boundaries[p.BoundaryID] = b
		return nil

	case topology.BoundaryRetired:
		b, ok := state.Boundaries[p.BoundaryID]
		if !ok {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.BoundaryID.String()}, "boundary does not exist")
		}
		if b.Retired {
			return invariantErr("LifecycleOrdering", ev.Sequence, []string{p.BoundaryID.String()}, "boundary already retired")
		}
		if ref := referencingNonRetiredJunction(state, p.BoundaryID); ref != "" {
			return invariantErr("FR-016 BoundaryDeletion", ev.Sequence, []string{p.BoundaryID.String(), ref},
				"boundary is still referenced by a non-retired junction")
		}
		b.Retired = true
		b.RetirementReason = p.Reason
		state.Boundaries[p.BoundaryID] = b
		return nil

	case topology.JunctionCreated:
		if _, exists := state.Junctions[p.JunctionID]; exists {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.JunctionID.String()}, "junction already exists")
		}
		if err := checkBoundariesLive(state, ev.Sequence, p.JunctionID, p.BoundaryIDs); err != nil {
			return err
		}
		state.Junctions[p.JunctionID] = topology.Junction{
			ID: p.JunctionID, BoundaryIDs: append([]ids.BoundaryId(nil), p.BoundaryIDs...), Location: p.Location,
		}
		return nil

	case topology.JunctionUpdated:
		j, ok := state.Junctions[p.JunctionID]
		if !ok {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.JunctionID.String()}, "junction does not exist")
		}
		if j.Retired {
			return invariantErr("LifecycleOrdering", ev.Sequence, []string{p.JunctionID.String()}, "junction is retired")
		}
		if err := checkBoundariesLive(state, ev.Sequence, p.JunctionID, p.NewBoundaryIDs); err != nil {
			return err
		}
		j.BoundaryIDs = ids.SortBoundaryIds(p.NewBoundaryIDs)
		if p.NewLocation != nil {
			j.Location = *p.NewLocation
		}
		state.Junctions[p.JunctionID] = j
		return nil

	case topology.JunctionRetired:
		j, ok := state.Junctions[p.JunctionID]
		if !ok {
			return invariantErr("ReferenceValidity", ev.Sequence, []string{p.JunctionID.String()}, "junction does not exist")
		}
		if j.Retired {
			return invariantErr("LifecycleOrdering", ev.Sequence, []string{p.JunctionID.String()}, "junction already retired")
		}
		j.Retired = true
		j.RetirementReason = p.Reason
		state.Junctions[p.JunctionID] = j
		return nil

	default:
		return fmt.Errorf("%w: unhandled payload type %T", topology.ErrInternal, p)
	}
}

// checkBoundariesLive enforces NoOrphanJunctions (§3.5 item 4): every
// referenced boundary must exist and not be retired.
func checkBoundariesLive(state *topology.State, seq int64, junction ids.JunctionId, boundaryIDs []ids.BoundaryId) error {
	for _, bid := range boundaryIDs {
		b, ok := state.Boundaries[bid]
		if !ok {
			return invariantErr("NoOrphanJunctions", seq, []string{junction.String(), bid.String()}, "referenced boundary does not exist")
		}
		if b.Retired {
			return invariantErr("NoOrphanJunctions", seq, []string{junction.String(), bid.String()}, "referenced boundary is retired")
		}
	}
	return nil
}

// referencingNonRetiredJunction returns the string id of a non-retired
// junction still referencing boundaryID, or "" if none. Existence, not
// which one is found first, is all FR-016 needs, so map iteration order
// is fine here.
func referencingNonRetiredJunction(state *topology.State, boundaryID ids.BoundaryId) string {
	for jid, j := range state.Junctions {
		if !j.Retired && j.HasBoundary(boundaryID) {
			return jid.String()
		}
	}
	return ""
}
