package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

func TestBuild_NeighborsOrderedByPlateId(t *testing.T) {
	stream := topology.TruthStreamIdentity{Variant: "main", Branch: "trunk", LLevel: "0", Domain: "sim.earth", Model: "m1"}
	state := topology.NewEmptyState(stream)

	center := ids.NewPlateId()
	var neighbors []ids.PlateId
	for i := 0; i < 3; i++ {
		neighbors = append(neighbors, ids.NewPlateId())
	}
	state.Plates[center] = topology.Plate{ID: center}
	for _, n := range neighbors {
		state.Plates[n] = topology.Plate{ID: n}
		b := ids.NewBoundaryId()
		state.Boundaries[b] = topology.Boundary{
			ID: b, Left: center, Right: n, Kind: topology.Transform,
			Geometry: topology.Polyline3{{X: 0}, {X: 1}},
		}
	}

	g := Build(state)
	edges := g.Neighbors(center)
	require.Len(t, edges, 3)
	for i := 1; i < len(edges); i++ {
		require.True(t, edges[i-1].Other.Less(edges[i].Other) || edges[i-1].Other == edges[i].Other)
	}
}

func TestBuild_ExcludesRetiredPlatesAndBoundaries(t *testing.T) {
	stream := topology.TruthStreamIdentity{Variant: "main", Branch: "trunk", LLevel: "0", Domain: "sim.earth", Model: "m1"}
	state := topology.NewEmptyState(stream)

	a := ids.NewPlateId()
	b := ids.NewPlateId()
	c := ids.NewPlateId()
	state.Plates[a] = topology.Plate{ID: a}
	state.Plates[b] = topology.Plate{ID: b, Retired: true}
	state.Plates[c] = topology.Plate{ID: c}

	liveBoundary := ids.NewBoundaryId()
	state.Boundaries[liveBoundary] = topology.Boundary{ID: liveBoundary, Left: a, Right: c, Kind: topology.Convergent}

	deadBoundary := ids.NewBoundaryId()
	state.Boundaries[deadBoundary] = topology.Boundary{ID: deadBoundary, Left: a, Right: b, Kind: topology.Divergent}

	g := Build(state)
	require.Len(t, g.Plates(), 2)
	require.Len(t, g.Neighbors(a), 1)
	require.Equal(t, c, g.Neighbors(a)[0].Other)
	require.Empty(t, g.Neighbors(b))
}

func TestBuild_DeterministicAcrossCalls(t *testing.T) {
	stream := topology.TruthStreamIdentity{Variant: "main", Branch: "trunk", LLevel: "0", Domain: "sim.earth", Model: "m1"}
	state := topology.NewEmptyState(stream)
	a, b := ids.NewPlateId(), ids.NewPlateId()
	state.Plates[a] = topology.Plate{ID: a}
	state.Plates[b] = topology.Plate{ID: b}
	bid := ids.NewBoundaryId()
	state.Boundaries[bid] = topology.Boundary{ID: bid, Left: a, Right: b, Kind: topology.Transform}

	g1 := Build(state)
	g2 := Build(state)
	require.Equal(t, g1.Plates(), g2.Plates())
	require.Equal(t, g1.Neighbors(a), g2.Neighbors(a))
}
