package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Echelon133/Blobb/internal/store"
)

type edgeKey struct {
	kind string
	from string
	to   string
}

// Store is an in-memory GraphStore. A single RWMutex serializes all edge
// mutations, which trivially satisfies the per-edge-key atomicity contract.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]store.Node
	edges map[edgeKey]struct{}
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nodes: make(map[string]store.Node),
		edges: make(map[edgeKey]struct{}),
	}
}

func (s *Store) CreateNode(_ context.Context, n store.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; ok {
		return fmt.Errorf("node %s already exists", n.ID)
	}
	if n.Name != "" {
		for _, existing := range s.nodes {
			if existing.Kind == n.Kind && existing.Name == n.Name {
				return fmt.Errorf("%s %q: %w", n.Kind, n.Name, store.ErrDuplicateName)
			}
		}
	}
	s.nodes[n.ID] = n
	return nil
}

func (s *Store) GetNode(_ context.Context, id string) (store.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok, nil
}

func (s *Store) GetNodeByName(_ context.Context, kind store.NodeKind, name string) (store.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.Kind == kind && n.Name == name {
			return n, true, nil
		}
	}
	return store.Node{}, false, nil
}

func (s *Store) MarkDeleted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("node %s does not exist", id)
	}
	n.Deleted = true
	s.nodes[id] = n
	return nil
}

func (s *Store) CreateEdge(_ context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{kind: string(kind), from: fromID, to: toID}
	if _, ok := s.edges[k]; ok {
		return false, nil
	}
	s.edges[k] = struct{}{}
	return true, nil
}

func (s *Store) DeleteEdge(_ context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{kind: string(kind), from: fromID, to: toID}
	if _, ok := s.edges[k]; !ok {
		return false, nil
	}
	delete(s.edges, k)
	return true, nil
}

func (s *Store) EdgeExists(_ context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[edgeKey{kind: string(kind), from: fromID, to: toID}]
	return ok, nil
}

func (s *Store) Neighbors(_ context.Context, nodeID string, kind store.EdgeKind, dir store.Direction, f store.Filter, order store.OrderBy, skip, limit int) ([]store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Node
	for k := range s.edges {
		if k.kind != string(kind) {
			continue
		}
		var farID string
		switch dir {
		case store.Outgoing:
			if k.from != nodeID {
				continue
			}
			farID = k.to
		case store.Incoming:
			if k.to != nodeID {
				continue
			}
			farID = k.from
		}
		n, ok := s.nodes[farID]
		if !ok || !f.Matches(n) {
			continue
		}
		out = append(out, n)
	}

	sortNodes(out, order)
	return paginate(out, skip, limit), nil
}

func (s *Store) CountEdges(_ context.Context, nodeID string, kind store.EdgeKind, dir store.Direction, f store.Filter) (int64, error) {
	nodes, err := s.Neighbors(context.Background(), nodeID, kind, dir, f, store.Unordered, 0, store.NoLimit)
	if err != nil {
		return 0, err
	}
	return int64(len(nodes)), nil
}

func (s *Store) Nodes(_ context.Context, kind store.NodeKind, f store.Filter, order store.OrderBy, skip, limit int) ([]store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Node
	for _, n := range s.nodes {
		if n.Kind != kind || !f.Matches(n) {
			continue
		}
		out = append(out, n)
	}

	sortNodes(out, order)
	return paginate(out, skip, limit), nil
}

// sortNodes orders nodes by the requested key, breaking ties by ID so
// repeated calls over an unchanged graph return the same sequence.
func sortNodes(nodes []store.Node, order store.OrderBy) {
	switch order {
	case store.CreatedAsc:
		sort.Slice(nodes, func(i, j int) bool {
			if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
				return nodes[i].ID < nodes[j].ID
			}
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		})
	case store.CreatedDesc:
		sort.Slice(nodes, func(i, j int) bool {
			if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
				return nodes[i].ID < nodes[j].ID
			}
			return nodes[i].CreatedAt.After(nodes[j].CreatedAt)
		})
	default:
		// unordered still has to be stable across calls
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].ID < nodes[j].ID
		})
	}
}

func paginate(nodes []store.Node, skip, limit int) []store.Node {
	if skip >= len(nodes) {
		return nil
	}
	nodes = nodes[skip:]
	if limit != store.NoLimit && limit < len(nodes) {
		nodes = nodes[:limit]
	}
	return nodes
}
