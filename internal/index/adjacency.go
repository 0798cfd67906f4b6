// Package index implements C6: deriving a plate-adjacency graph (and the
// plate/boundary bijections downstream consumers need) from a materialized
// topology.State, without ever touching the truth log.
//
// Grounded on a production repo's internal/deps package (building a dependency
// graph from stored issue relationships with deterministic neighbor
// ordering), generalized here from issue-dependency edges to
// boundary-typed plate adjacency.
package index

import (
	"sort"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// Edge is one adjacency between two plates, labeled with the boundary
// that separates them.
type Edge struct {
	Boundary ids.BoundaryId
	Kind     topology.BoundaryKind
	Other    ids.PlateId
}

// AdjacencyGraph is the derived product of §4.6: a node per participating
// non-retired plate, with neighbor lists ordered by neighbor PlateId.
type AdjacencyGraph struct {
	neighbors map[ids.PlateId][]Edge
	order     []ids.PlateId
}

// Neighbors returns plate's adjacency list, ordered by neighbor PlateId.
// The returned slice must not be mutated by the caller.
func (g *AdjacencyGraph) Neighbors(plate ids.PlateId) []Edge {
	return g.neighbors[plate]
}

// Plates returns every node in the graph, in ascending PlateId order.
func (g *AdjacencyGraph) Plates() []ids.PlateId {
	return g.order
}

// Build computes the plate-adjacency graph from state: nodes are
// non-retired plates participating in at least one non-retired boundary;
// edges are non-retired boundaries labeled with kind. Calling Build twice
// on equal states yields structurally and order-equal graphs (§4.6).
func Build(state topology.State) *AdjacencyGraph {
	g := &AdjacencyGraph{neighbors: make(map[ids.PlateId][]Edge)}

	participating := make(map[ids.PlateId]bool)
	for _, bid := range state.SortedBoundaryIds() {
		b := state.Boundaries[bid]
		if b.Retired {
			continue
		}
		left, leftOK := state.Plates[b.Left]
		right, rightOK := state.Plates[b.Right]
		if !leftOK || !rightOK || left.Retired || right.Retired {
			continue
		}
		g.neighbors[b.Left] = append(g.neighbors[b.Left], Edge{Boundary: bid, Kind: b.Kind, Other: b.Right})
		g.neighbors[b.Right] = append(g.neighbors[b.Right], Edge{Boundary: bid, Kind: b.Kind, Other: b.Left})
		participating[b.Left] = true
		participating[b.Right] = true
	}

	for plate := range participating {
		g.order = append(g.order, plate)
	}
	g.order = ids.SortPlateIds(g.order)

	for _, edges := range g.neighbors {
		sort.Slice(edges, func(i, j int) bool { return edges[i].Other.Less(edges[j].Other) })
	}

	return g
}

// BoundaryToPlates is the C6 boundary->edge bijection for downstream
// consumers: the pair of plates a non-retired boundary connects.
func BoundaryToPlates(state topology.State, boundary ids.BoundaryId) (left, right ids.PlateId, ok bool) {
	b, exists := state.Boundaries[boundary]
	if !exists || b.Retired {
		return ids.PlateId{}, ids.PlateId{}, false
	}
	return b.Left, b.Right, true
}
