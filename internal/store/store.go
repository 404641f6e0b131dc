package store

import (
	"context"
	"errors"
	"time"
)

// NodeKind identifies the class of a stored node.
type NodeKind string

const (
	NodeUser    NodeKind = "user"
	NodeContent NodeKind = "content"
	NodeTag     NodeKind = "tag"
)

// Content node subkinds. All three variants share the content node class
// and are told apart by this marker.
const (
	SubkindPost     = "post"
	SubkindResponse = "response"
	SubkindReblobb  = "reblobb"
)

// EdgeKind identifies the class of a directed edge.
type EdgeKind string

const (
	EdgeFollows  EdgeKind = "FOLLOWS"
	EdgePosts    EdgeKind = "POSTS"
	EdgeResponds EdgeKind = "RESPONDS"
	EdgeReblobbs EdgeKind = "REBLOBBS"
	EdgeLikes    EdgeKind = "LIKES"
	EdgeTagged   EdgeKind = "TAGGED"
)

// Direction selects which end of an edge a traversal starts from.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// OrderBy selects the ordering a store applies to traversal results.
type OrderBy int

const (
	Unordered OrderBy = iota
	CreatedAsc
	CreatedDesc
)

// NoLimit disables the limit of a traversal call.
const NoLimit = -1

// Node is the stored shape of every vertex. Attributes the engine filters
// or orders on are promoted to fields so every adapter can index them;
// display-only attributes live in Attrs and are never queried.
type Node struct {
	ID        string
	Kind      NodeKind
	Subkind   string
	Name      string
	Body      string
	Deleted   bool
	CreatedAt time.Time
	Attrs     map[string]string
}

// Filter narrows the far-end nodes of a traversal.
type Filter struct {
	Subkinds       []string
	IncludeDeleted bool
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// Matches reports whether n passes the filter. Adapters that push filtering
// into their query language must agree with this reference predicate.
func (f Filter) Matches(n Node) bool {
	if !f.IncludeDeleted && n.Deleted {
		return false
	}
	if len(f.Subkinds) > 0 {
		ok := false
		for _, s := range f.Subkinds {
			if n.Subkind == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.CreatedFrom != nil && n.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && n.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

var (
	// ErrUnavailable wraps transient adapter failures (lost connection,
	// traversal timeout). It is passed through to callers unmodified and
	// never retried by the engine.
	ErrUnavailable = errors.New("graph store unavailable")

	// ErrDuplicateName means a node with the same kind and non-empty name
	// already exists. Adapters enforce this uniqueness themselves, so two
	// racing CreateNode calls settle on exactly one winner.
	ErrDuplicateName = errors.New("duplicate node name")
)

// GraphStore is the traversal and mutation contract the engine issues its
// queries against. Implementations must make every edge mutation atomic per
// (kind, from, to) key: concurrent duplicate CreateEdge calls end with
// exactly one edge.
type GraphStore interface {
	// CreateNode persists a new node. The caller assigns ID and CreatedAt.
	// Nodes with a non-empty Name are unique per (kind, name); a colliding
	// create fails with ErrDuplicateName.
	CreateNode(ctx context.Context, n Node) error

	// GetNode returns the node with the given id, or found=false.
	GetNode(ctx context.Context, id string) (n Node, found bool, err error)

	// GetNodeByName returns the node of the given kind with the given
	// unique name (usernames, normalized tag names), or found=false.
	GetNodeByName(ctx context.Context, kind NodeKind, name string) (n Node, found bool, err error)

	// MarkDeleted sets the node's deleted flag. The flag never reverts.
	MarkDeleted(ctx context.Context, id string) error

	// CreateEdge creates the edge unless it already exists.
	// created=false means the edge was already present.
	CreateEdge(ctx context.Context, kind EdgeKind, fromID, toID string) (created bool, err error)

	// DeleteEdge removes the edge if present. removed=false means there
	// was nothing to remove.
	DeleteEdge(ctx context.Context, kind EdgeKind, fromID, toID string) (removed bool, err error)

	// EdgeExists reports whether the edge is present.
	EdgeExists(ctx context.Context, kind EdgeKind, fromID, toID string) (bool, error)

	// Neighbors returns the far-end nodes of all edges of the given kind
	// touching nodeID in the given direction, filtered, ordered and
	// paginated. limit == NoLimit disables truncation. Ties within an
	// ordering are broken by node ID ascending so results are stable.
	Neighbors(ctx context.Context, nodeID string, kind EdgeKind, dir Direction, f Filter, order OrderBy, skip, limit int) ([]Node, error)

	// CountEdges counts edges of the given kind touching nodeID in the
	// given direction whose far-end node passes the filter.
	CountEdges(ctx context.Context, nodeID string, kind EdgeKind, dir Direction, f Filter) (int64, error)

	// Nodes scans all nodes of one kind, filtered, ordered and paginated.
	// Used by window-bounded aggregations (tag popularity).
	Nodes(ctx context.Context, kind NodeKind, f Filter, order OrderBy, skip, limit int) ([]Node, error)
}
