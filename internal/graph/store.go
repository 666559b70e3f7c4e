package graph

import (
	"fmt"
	"sync"

	"github.com/propfolio/ownergraph/internal/model"
)

// Store is the mutable node/edge set of one crawl.
//
// Design decision: The store carries its own mutex rather than leaving
// locking to the crawler because a round's lookups fan out concurrently
// and all write here; keeping the invariants (idempotent upsert, edges
// only between existing nodes) inside the store means no call site can
// violate them by forgetting a lock.
type Store struct {
	mu sync.Mutex

	// nodes is keyed by the deterministic node id.
	nodes map[model.NodeID]*model.Node

	// order remembers first-insertion order so snapshots are stable.
	order []model.NodeID

	// edges is append-only and never deduplicated.
	edges []model.Edge
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[model.NodeID]*model.Node),
	}
}

// UpsertNode inserts a node or merges it into the existing entry with
// the same id. Re-inserting an existing id never creates a duplicate:
// the label of the first insertion wins and property attributes merge
// field-by-field, filling only what was unknown.
// Returns the stored node.
func (s *Store) UpsertNode(node model.Node) *model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.nodes[node.ID]; ok {
		if existing.Property != nil {
			existing.Property.Merge(node.Property)
		} else if node.Property != nil {
			attrs := *node.Property
			existing.Property = &attrs
		}
		return existing
	}

	stored := node
	if node.Property != nil {
		attrs := *node.Property
		stored.Property = &attrs
	}
	s.nodes[stored.ID] = &stored
	s.order = append(s.order, stored.ID)
	return &stored
}

// AddEdge records a directed, labeled relation. Both endpoints must
// already exist in the node map; an edge to a missing node is a
// programming error surfaced to the caller rather than silently dropped.
func (s *Store) AddEdge(from, to model.NodeID, role, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[from]; !ok {
		return fmt.Errorf("edge source node %q not in store", from)
	}
	if _, ok := s.nodes[to]; !ok {
		return fmt.Errorf("edge target node %q not in store", to)
	}

	s.edges = append(s.edges, model.Edge{From: from, To: to, Role: role, Source: source})
	return nil
}

// Node returns the node with the given id, or nil if absent.
func (s *Store) Node(id model.NodeID) *model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes[id]
}

// Nodes returns the nodes in first-insertion order.
func (s *Store) Nodes() []*model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// Edges returns a copy of the edge list in insertion order.
func (s *Store) Edges() []model.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// NodeCount returns the number of distinct nodes.
func (s *Store) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// EdgeCount returns the number of recorded edges, duplicates included.
func (s *Store) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}
