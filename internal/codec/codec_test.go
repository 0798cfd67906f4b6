package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

func sampleStream() topology.TruthStreamIdentity {
	return topology.TruthStreamIdentity{Variant: "main", Branch: "trunk", LLevel: "0", Domain: "sim.earth", Model: "m1"}
}

func TestHashEvent_Deterministic(t *testing.T) {
	ev := topology.Event{
		EventID:  "e1",
		Sequence: 0,
		Tick:     10,
		Stream:   sampleStream(),
		Payload:  topology.PlateCreated{PlateID: ids.NewPlateId()},
	}
	h1, err := HashEvent(ev, nil)
	require.NoError(t, err)
	h2, err := HashEvent(ev, nil)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, HashSize)
}

func TestHashEvent_DiffersOnPreviousHash(t *testing.T) {
	ev := topology.Event{Sequence: 1, Stream: sampleStream(), Payload: topology.PlateCreated{PlateID: ids.NewPlateId()}}
	a, err := HashEvent(ev, []byte("prev-a"))
	require.NoError(t, err)
	b, err := HashEvent(ev, []byte("prev-b"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestJunctionBoundaryIDs_CanonicalOrderIndependentOfInput(t *testing.T) {
	b1 := ids.NewBoundaryId()
	b2 := ids.NewBoundaryId()
	if b1.Less(b2) {
		b1, b2 = b2, b1 // ensure b1 > b2 so inputs below are out of order
	}
	j := ids.NewJunctionId()
	loc := topology.SurfacePoint{X: 1, Y: 0, Z: 0}

	evA := topology.Event{Stream: sampleStream(), Payload: topology.JunctionCreated{JunctionID: j, BoundaryIDs: []ids.BoundaryId{b1, b2}, Location: loc}}
	evB := topology.Event{Stream: sampleStream(), Payload: topology.JunctionCreated{JunctionID: j, BoundaryIDs: []ids.BoundaryId{b2, b1}, Location: loc}}

	ba, err := CanonicalPayloadBytes(evA)
	require.NoError(t, err)
	bb, err := CanonicalPayloadBytes(evB)
	require.NoError(t, err)
	require.Equal(t, ba, bb, "boundary id set must encode independent of insertion order")
}

func TestRecord_RoundTrip(t *testing.T) {
	geom := topology.Polyline3{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}}
	ev := topology.Event{
		EventID:      "evt-1",
		Sequence:     7,
		Tick:         42,
		Stream:       sampleStream(),
		PreviousHash: []byte("prevhash"),
		Hash:         []byte("hashhash"),
		Payload: topology.BoundaryCreated{
			BoundaryID: ids.NewBoundaryId(),
			Left:       ids.NewPlateId(),
			Right:      ids.NewPlateId(),
			Kind_:      topology.Transform,
			Geometry:   geom,
		},
	}

	raw, err := EncodeRecord(ev)
	require.NoError(t, err)

	decoded, err := DecodeRecord(raw)
	require.NoError(t, err)

	require.Equal(t, ev.EventID, decoded.EventID)
	require.Equal(t, ev.Sequence, decoded.Sequence)
	require.Equal(t, ev.Tick, decoded.Tick)
	require.Equal(t, ev.Stream, decoded.Stream)
	require.Equal(t, ev.PreviousHash, decoded.PreviousHash)
	require.Equal(t, ev.Hash, decoded.Hash)

	bc, ok := decoded.Payload.(topology.BoundaryCreated)
	require.True(t, ok)
	orig := ev.Payload.(topology.BoundaryCreated)
	require.Equal(t, orig.BoundaryID, bc.BoundaryID)
	require.Equal(t, orig.Left, bc.Left)
	require.Equal(t, orig.Right, bc.Right)
	require.Equal(t, orig.Kind_, bc.Kind_)
	require.True(t, orig.Geometry.Equal(bc.Geometry))
}

func TestRecord_TamperChangesCanonicalPayload(t *testing.T) {
	ev := topology.Event{
		Sequence:     0,
		Stream:       sampleStream(),
		PreviousHash: nil,
		Hash:         []byte{1, 2, 3, 4},
		Payload:      topology.PlateCreated{PlateID: ids.NewPlateId()},
	}
	raw, err := EncodeRecord(ev)
	require.NoError(t, err)

	tampered := append([]byte(nil), raw...)
	tampered[len(tampered)-1] ^= 0xFF

	decodedOrig, err := DecodeRecord(raw)
	require.NoError(t, err)
	decodedTampered, err := DecodeRecord(tampered)
	require.NoError(t, err)

	bOrig, _ := CanonicalPayloadBytes(decodedOrig)
	bTampered, _ := CanonicalPayloadBytes(decodedTampered)
	require.NotEqual(t, bOrig, bTampered)
}
