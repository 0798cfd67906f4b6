package eventlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/codec"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

func testStream() topology.TruthStreamIdentity {
	return topology.TruthStreamIdentity{Variant: "main", Branch: "trunk", LLevel: "0", Domain: "sim.earth", Model: "m1"}
}

func plateCreatedEvent(seq int64, tick topology.CanonicalTick) topology.Event {
	return topology.Event{
		EventID:  "", // assigned by caller in real use; empty is fine for this event's own hash
		Sequence: seq,
		Tick:     tick,
		Stream:   testStream(),
		Payload:  topology.PlateCreated{PlateID: ids.NewPlateId()},
	}
}

func TestLog_AppendRead_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	log := New(store)
	stream := testStream()

	events := []topology.Event{
		plateCreatedEvent(0, 1),
		plateCreatedEvent(1, 2),
		plateCreatedEvent(2, 3),
	}
	require.NoError(t, log.Append(ctx, stream, events))

	last, ok, err := log.LastSequence(ctx, stream)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), last)

	got, err := ReadAll(ctx, log, stream, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, ev := range got {
		require.Equal(t, int64(i), ev.Sequence)
		require.NotEmpty(t, ev.Hash)
	}
	require.Empty(t, got[0].PreviousHash)
	require.Equal(t, got[0].Hash, got[1].PreviousHash)
	require.Equal(t, got[1].Hash, got[2].PreviousHash)
}

func TestLog_Append_RejectsNonMonotonicSequence(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	log := New(store)
	stream := testStream()

	require.NoError(t, log.Append(ctx, stream, []topology.Event{plateCreatedEvent(0, 1)}))

	err := log.Append(ctx, stream, []topology.Event{plateCreatedEvent(2, 2)})
	require.ErrorIs(t, err, topology.ErrNonMonotonicSequence)
}

func TestLog_Append_RejectsStreamIdentityMismatch(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	log := New(store)
	stream := testStream()

	other := stream
	other.Branch = "other-branch"
	bad := plateCreatedEvent(0, 1)
	bad.Stream = other

	err := log.Append(ctx, stream, []topology.Event{bad})
	require.ErrorIs(t, err, topology.ErrStreamIdentityMismatch)
}

// TestLog_Read_DetectsTamperedRecord implements spec.md §8 scenario S1:
// append three plate-created events, tamper with the last byte of the
// stored record for sequence 2, and confirm the first two events replay
// successfully while the third read fails with ChainIntegrityError(2).
func TestLog_Read_DetectsTamperedRecord(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	log := New(store)
	stream := testStream()

	events := []topology.Event{
		plateCreatedEvent(0, 1),
		plateCreatedEvent(1, 2),
		plateCreatedEvent(2, 3),
	}
	require.NoError(t, log.Append(ctx, stream, events))

	key := recordKey(stream, 2)
	raw, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	tampered := append([]byte(nil), raw...)
	tampered[len(tampered)-1] ^= 0xFF
	require.NoError(t, store.Put(ctx, key, tampered))

	it, err := log.Read(ctx, stream, 0)
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	require.Equal(t, int64(0), it.Event().Sequence)

	require.True(t, it.Next())
	require.Equal(t, int64(1), it.Event().Sequence)

	require.False(t, it.Next(), "third read must fail, not silently succeed")
	var chainErr *topology.ChainIntegrityError
	require.ErrorAs(t, it.Err(), &chainErr)
	require.Equal(t, int64(2), chainErr.Sequence)
}

func TestLog_Read_FromSequence_SkipsEarlierRecords(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	log := New(store)
	stream := testStream()

	events := []topology.Event{
		plateCreatedEvent(0, 1),
		plateCreatedEvent(1, 2),
		plateCreatedEvent(2, 3),
	}
	require.NoError(t, log.Append(ctx, stream, events))

	got, err := ReadAll(ctx, log, stream, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].Sequence)
	require.Equal(t, int64(2), got[1].Sequence)
}

func TestLog_LastSequence_EmptyStream(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	log := New(store)

	_, ok, err := log.LastSequence(ctx, testStream())
	require.NoError(t, err)
	require.False(t, ok)
}

// sanity check that codec.HashEvent and Log.Append agree on chain shape.
func TestLog_Append_HashMatchesCodec(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	log := New(store)
	stream := testStream()

	ev := plateCreatedEvent(0, 1)
	require.NoError(t, log.Append(ctx, stream, []topology.Event{ev}))

	got, err := ReadAll(ctx, log, stream, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want, err := codec.HashEvent(got[0], nil)
	require.NoError(t, err)
	require.Equal(t, want, got[0].Hash)
}
