package partition

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/cache"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/materializer"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/polygon"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

func testStream() topology.TruthStreamIdentity {
	return topology.TruthStreamIdentity{Variant: "main", Branch: "trunk", LLevel: "0", Domain: "sim.earth", Model: "m1"}
}

func geo(lonRad, latRad float64) topology.SurfacePoint {
	return topology.SurfacePoint{
		X: math.Cos(latRad) * math.Cos(lonRad),
		Y: math.Cos(latRad) * math.Sin(lonRad),
		Z: math.Sin(latRad),
	}
}

// seedSquareLoop appends a two-plate, closed 4-segment square loop to log
// (the same construction polygon's own tests use), returning the plate
// ids so assertions can check against them.
func seedSquareLoop(t *testing.T, log *eventlog.Log) (ids.PlateId, ids.PlateId) {
	t.Helper()
	ctx := context.Background()
	stream := testStream()

	plateIn := ids.NewPlateId()
	plateOut := ids.NewPlateId()
	corners := []topology.SurfacePoint{
		geo(-0.05, -0.05), geo(0.05, -0.05), geo(0.05, 0.05), geo(-0.05, 0.05),
	}
	boundaryIDs := make([]ids.BoundaryId, 4)
	for i := range boundaryIDs {
		boundaryIDs[i] = ids.NewBoundaryId()
	}
	junctionIDs := make([]ids.JunctionId, 4)
	for i := range junctionIDs {
		junctionIDs[i] = ids.NewJunctionId()
	}

	var events []topology.Event
	seq := int64(0)
	push := func(p topology.Payload) {
		events = append(events, topology.Event{Sequence: seq, Tick: 0, Stream: stream, Payload: p})
		seq++
	}

	push(topology.PlateCreated{PlateID: plateIn})
	push(topology.PlateCreated{PlateID: plateOut})
	for i := 0; i < 4; i++ {
		push(topology.BoundaryCreated{
			BoundaryID: boundaryIDs[i], Left: plateIn, Right: plateOut, Kind_: topology.Convergent,
			Geometry: topology.Polyline3{corners[i], corners[(i+1)%4]},
		})
	}
	for i := 0; i < 4; i++ {
		push(topology.JunctionCreated{
			JunctionID:  junctionIDs[i],
			BoundaryIDs: []ids.BoundaryId{boundaryIDs[(i+3)%4], boundaryIDs[i]},
			Location:    corners[i],
		})
	}

	require.NoError(t, log.Append(ctx, stream, events))
	return plateIn, plateOut
}

func newService(t *testing.T) (*Service, *eventlog.Log) {
	t.Helper()
	store := kv.NewMemory()
	log := eventlog.New(store)
	mat := materializer.New(log)
	snapshots := cache.NewSnapshotStore(store)
	c := cache.New(nil)
	return New(mat, snapshots, c), log
}

func TestService_Query_ReturnsPolygonsForSeededTopology(t *testing.T) {
	svc, log := newService(t)
	plateIn, plateOut := seedSquareLoop(t, log)

	result, err := svc.Query(context.Background(), Request{
		Stream: testStream(), Cutoff: materializer.All(), Policy: polygon.Strict(),
	})
	require.NoError(t, err)
	require.False(t, result.CacheHit)
	require.Len(t, result.Polygons.Polygons, 2)
	require.Len(t, result.Adjacency.Plates(), 2)
	seen := map[ids.PlateId]bool{}
	for _, p := range result.Polygons.Polygons {
		seen[p.Plate] = true
	}
	require.True(t, seen[plateIn] && seen[plateOut])
}

// TestService_Query_CacheDeterminism implements spec.md §8 scenario S6:
// identical (stream, cutoff, Strict) requests share a cache slot and the
// second is a hit; a Lenient(1e-9) request differs and is a miss.
func TestService_Query_CacheDeterminism(t *testing.T) {
	svc, log := newService(t)
	seedSquareLoop(t, log)
	ctx := context.Background()
	req := Request{Stream: testStream(), Cutoff: materializer.All(), Policy: polygon.Strict()}

	first, err := svc.Query(ctx, req)
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := svc.Query(ctx, req)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.Polygons.Provenance.AlgorithmHash, second.Polygons.Provenance.AlgorithmHash)

	lenient, err := polygon.Lenient(1e-9)
	require.NoError(t, err)
	third, err := svc.Query(ctx, Request{Stream: testStream(), Cutoff: materializer.All(), Policy: lenient})
	require.NoError(t, err)
	require.False(t, third.CacheHit)
	require.NotEqual(t, first.Polygons.Provenance.AlgorithmHash, third.Polygons.Provenance.AlgorithmHash)
}
