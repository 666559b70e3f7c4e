package graph

import "github.com/propfolio/ownergraph/internal/model"

// Component is the subgraph reachable from a seed node, direction
// ignored. It preserves the store's node insertion order and edge order.
type Component struct {
	// Nodes holds the reachable nodes in first-insertion order.
	Nodes []*model.Node

	// Edges holds every edge whose endpoints are both reachable.
	Edges []model.Edge
}

// ExtractComponent runs breadth-first search from the seed over an
// undirected view of the store's edges and filters the node/edge set
// down to the reachable subgraph.
//
// Under correct crawler construction every recorded node is reachable
// from the seed, so this is a no-op filter — but that is not assumed.
// Any crawl artifact not actually connected to the subject property is
// dropped here rather than leaking into the portfolio.
//
// A seed absent from the store yields an empty component.
func ExtractComponent(store *Store, seed model.NodeID) *Component {
	if store.Node(seed) == nil {
		return &Component{}
	}

	edges := store.Edges()

	// Undirected adjacency over every recorded edge.
	adjacency := make(map[model.NodeID][]model.NodeID)
	for _, e := range edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
		adjacency[e.To] = append(adjacency[e.To], e.From)
	}

	reachable := map[model.NodeID]bool{seed: true}
	queue := []model.NodeID{seed}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range adjacency[current] {
			if !reachable[neighbor] {
				reachable[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	component := &Component{}
	for _, node := range store.Nodes() {
		if reachable[node.ID] {
			component.Nodes = append(component.Nodes, node)
		}
	}
	for _, e := range edges {
		if reachable[e.From] && reachable[e.To] {
			component.Edges = append(component.Edges, e)
		}
	}
	return component
}
