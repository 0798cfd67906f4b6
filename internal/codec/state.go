package codec

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// stateMagic and stateVersion identify the snapshot blob layout of
// spec.md §6 "Snapshot file layout": entities listed in deterministic
// order (plates by PlateId, boundaries by BoundaryId, junctions by
// JunctionId).
var stateMagic = [4]byte{'P', 'T', 'S', 'T'}

const stateVersion uint16 = 1

func boolFlag(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// EncodeState serializes state into the deterministic snapshot blob
// format. Violations are not persisted: they are a diagnostic
// side-channel outside the state's value-semantics identity (§3.3).
func EncodeState(state topology.State) ([]byte, error) {
	e := &encoder{}
	e.buf.Write(stateMagic[:])
	e.u16(stateVersion)
	e.str(state.Identity.Variant)
	e.str(state.Identity.Branch)
	e.str(state.Identity.LLevel)
	e.str(state.Identity.Domain)
	e.str(state.Identity.Model)
	e.i64(state.LastEventSequence)

	plateIDs := state.SortedPlateIds()
	e.u64(uint64(len(plateIDs)))
	for _, id := range plateIDs {
		p := state.Plates[id]
		e.id16(id.Bytes())
		e.u16(boolFlag(p.Retired))
		e.str(p.RetirementReason)
	}

	boundaryIDs := state.SortedBoundaryIds()
	e.u64(uint64(len(boundaryIDs)))
	for _, id := range boundaryIDs {
		b := state.Boundaries[id]
		e.id16(id.Bytes())
		e.id16(b.Left.Bytes())
		e.id16(b.Right.Bytes())
		e.u16(uint16(b.Kind))
		e.polyline(b.Geometry)
		e.u16(boolFlag(b.Retired))
		e.str(b.RetirementReason)
	}

	junctionIDs := sortedJunctionIDs(state)
	e.u64(uint64(len(junctionIDs)))
	for _, id := range junctionIDs {
		j := state.Junctions[id]
		e.id16(id.Bytes())
		encodeBoundaryIDSetSorted(e, j.BoundaryIDs)
		e.point(j.Location)
		e.u16(boolFlag(j.Retired))
		e.str(j.RetirementReason)
	}

	return e.buf.Bytes(), nil
}

// DecodeState parses a blob written by EncodeState. An empty (tombstoned,
// e.g. after compaction) value fails with the bad-magic error like any
// other malformed blob, so callers check len(raw)==0 ("no snapshot here")
// before calling.
func DecodeState(raw []byte) (topology.State, error) {
	var st topology.State
	if len(raw) < 4 || [4]byte(raw[:4]) != stateMagic {
		return st, fmt.Errorf("codec: bad state magic")
	}
	d := &decoder{r: bytes.NewReader(raw[4:])}

	version := d.u16()
	if d.err == nil && version != stateVersion {
		return st, fmt.Errorf("codec: unsupported state version %d", version)
	}

	identity := topology.TruthStreamIdentity{
		Variant: d.str(), Branch: d.str(), LLevel: d.str(), Domain: d.str(), Model: d.str(),
	}
	st = topology.NewEmptyState(identity)
	st.LastEventSequence = d.i64()

	plateCount := d.u64()
	for i := uint64(0); i < plateCount && d.err == nil; i++ {
		id := ids.PlateId(d.id16())
		retired := d.u16() == 1
		reason := d.str()
		st.Plates[id] = topology.Plate{ID: id, Retired: retired, RetirementReason: reason}
	}

	boundaryCount := d.u64()
	for i := uint64(0); i < boundaryCount && d.err == nil; i++ {
		id := ids.BoundaryId(d.id16())
		left := ids.PlateId(d.id16())
		right := ids.PlateId(d.id16())
		kind := topology.BoundaryKind(d.u16())
		geom := d.polyline()
		retired := d.u16() == 1
		reason := d.str()
		st.Boundaries[id] = topology.Boundary{
			ID: id, Left: left, Right: right, Kind: kind, Geometry: geom, Retired: retired, RetirementReason: reason,
		}
	}

	junctionCount := d.u64()
	for i := uint64(0); i < junctionCount && d.err == nil; i++ {
		id := ids.JunctionId(d.id16())
		bids := d.boundaryIDSet()
		loc := d.point()
		retired := d.u16() == 1
		reason := d.str()
		st.Junctions[id] = topology.Junction{
			ID: id, BoundaryIDs: bids, Location: loc, Retired: retired, RetirementReason: reason,
		}
	}

	if d.err != nil {
		return st, fmt.Errorf("codec: decode state: %w", d.err)
	}
	return st, nil
}

// sortedJunctionIDs returns junction keys in ascending raw-bit order; the
// snapshot codec sorts them directly here (rather than through
// topology.State.SortedJunctionIds) to keep the blob format deterministic.
func sortedJunctionIDs(state topology.State) []ids.JunctionId {
	out := make([]ids.JunctionId, 0, len(state.Junctions))
	for id := range state.Junctions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
