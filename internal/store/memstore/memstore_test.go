package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Echelon133/Blobb/internal/store"
)

func testNode(id string, created time.Time) store.Node {
	return store.Node{
		ID:        id,
		Kind:      store.NodeContent,
		Subkind:   store.SubkindPost,
		CreatedAt: created,
	}
}

func TestCreateNode_DuplicateRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	n := testNode("n1", time.Now())

	if err := s.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode() error: %v", err)
	}
	if err := s.CreateNode(ctx, n); err == nil {
		t.Error("CreateNode(duplicate) error = nil, want error")
	}
}

func TestCreateNode_DuplicateNameRejected(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateNode(ctx, store.Node{ID: "u1", Kind: store.NodeUser, Name: "alice"}); err != nil {
		t.Fatalf("CreateNode() error: %v", err)
	}

	err := s.CreateNode(ctx, store.Node{ID: "u2", Kind: store.NodeUser, Name: "alice"})
	if !errors.Is(err, store.ErrDuplicateName) {
		t.Errorf("CreateNode(same kind and name) error = %v, want ErrDuplicateName", err)
	}

	// same name under a different kind is a distinct node
	if err := s.CreateNode(ctx, store.Node{ID: "t1", Kind: store.NodeTag, Name: "alice"}); err != nil {
		t.Errorf("CreateNode(other kind) error = %v, want nil", err)
	}

	// unnamed nodes never collide with each other
	if err := s.CreateNode(ctx, store.Node{ID: "c1", Kind: store.NodeContent}); err != nil {
		t.Errorf("CreateNode(unnamed) error = %v, want nil", err)
	}
	if err := s.CreateNode(ctx, store.Node{ID: "c2", Kind: store.NodeContent}); err != nil {
		t.Errorf("CreateNode(second unnamed) error = %v, want nil", err)
	}
}

func TestGetNodeByName(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.CreateNode(ctx, store.Node{ID: "u1", Kind: store.NodeUser, Name: "alice"})
	s.CreateNode(ctx, store.Node{ID: "t1", Kind: store.NodeTag, Name: "alice"})

	n, found, err := s.GetNodeByName(ctx, store.NodeTag, "alice")
	if err != nil {
		t.Fatalf("GetNodeByName() error: %v", err)
	}
	if !found || n.ID != "t1" {
		t.Errorf("GetNodeByName(tag) = %v found=%v, want t1", n.ID, found)
	}

	_, found, err = s.GetNodeByName(ctx, store.NodeUser, "bob")
	if err != nil {
		t.Fatalf("GetNodeByName() error: %v", err)
	}
	if found {
		t.Error("GetNodeByName(missing) found = true, want false")
	}
}

func TestMarkDeleted(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.CreateNode(ctx, testNode("n1", time.Now()))

	if err := s.MarkDeleted(ctx, "n1"); err != nil {
		t.Fatalf("MarkDeleted() error: %v", err)
	}
	n, _, _ := s.GetNode(ctx, "n1")
	if !n.Deleted {
		t.Error("node not marked deleted")
	}

	if err := s.MarkDeleted(ctx, "missing"); err == nil {
		t.Error("MarkDeleted(missing) error = nil, want error")
	}
}

func TestEdgeLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateEdge(ctx, store.EdgeFollows, "a", "b")
	if err != nil {
		t.Fatalf("CreateEdge() error: %v", err)
	}
	if !created {
		t.Error("first CreateEdge() = false, want true")
	}

	created, _ = s.CreateEdge(ctx, store.EdgeFollows, "a", "b")
	if created {
		t.Error("duplicate CreateEdge() = true, want false")
	}

	// direction matters
	exists, _ := s.EdgeExists(ctx, store.EdgeFollows, "b", "a")
	if exists {
		t.Error("EdgeExists(reversed) = true, want false")
	}

	removed, _ := s.DeleteEdge(ctx, store.EdgeFollows, "a", "b")
	if !removed {
		t.Error("DeleteEdge() = false, want true")
	}
	removed, _ = s.DeleteEdge(ctx, store.EdgeFollows, "a", "b")
	if removed {
		t.Error("second DeleteEdge() = true, want false")
	}
}

func TestNeighbors_FilterOrderPaginate(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	s.CreateNode(ctx, store.Node{ID: "author", Kind: store.NodeUser, CreatedAt: base})
	for i, id := range []string{"c1", "c2", "c3", "c4"} {
		s.CreateNode(ctx, testNode(id, base.Add(time.Duration(i)*time.Minute)))
		s.CreateEdge(ctx, store.EdgePosts, "author", id)
	}
	s.MarkDeleted(ctx, "c2")

	t.Run("deleted excluded by default", func(t *testing.T) {
		nodes, err := s.Neighbors(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{}, store.CreatedAsc, 0, store.NoLimit)
		if err != nil {
			t.Fatalf("Neighbors() error: %v", err)
		}
		if len(nodes) != 3 || nodes[0].ID != "c1" || nodes[2].ID != "c4" {
			t.Errorf("Neighbors() = %v, want [c1 c3 c4]", ids(nodes))
		}
	})

	t.Run("deleted included on request", func(t *testing.T) {
		nodes, _ := s.Neighbors(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{IncludeDeleted: true}, store.CreatedAsc, 0, store.NoLimit)
		if len(nodes) != 4 {
			t.Errorf("Neighbors(IncludeDeleted) returned %d nodes, want 4", len(nodes))
		}
	})

	t.Run("descending order", func(t *testing.T) {
		nodes, _ := s.Neighbors(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{}, store.CreatedDesc, 0, store.NoLimit)
		if nodes[0].ID != "c4" {
			t.Errorf("Neighbors(desc)[0] = %s, want c4", nodes[0].ID)
		}
	})

	t.Run("skip and limit", func(t *testing.T) {
		nodes, _ := s.Neighbors(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{}, store.CreatedAsc, 1, 1)
		if len(nodes) != 1 || nodes[0].ID != "c3" {
			t.Errorf("Neighbors(skip=1, limit=1) = %v, want [c3]", ids(nodes))
		}
	})

	t.Run("skip past the end", func(t *testing.T) {
		nodes, _ := s.Neighbors(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{}, store.CreatedAsc, 10, 5)
		if len(nodes) != 0 {
			t.Errorf("Neighbors(skip=10) = %v, want empty", ids(nodes))
		}
	})

	t.Run("incoming direction", func(t *testing.T) {
		nodes, _ := s.Neighbors(ctx, "c1", store.EdgePosts, store.Incoming, store.Filter{}, store.Unordered, 0, store.NoLimit)
		if len(nodes) != 1 || nodes[0].ID != "author" {
			t.Errorf("Neighbors(incoming) = %v, want [author]", ids(nodes))
		}
	})

	t.Run("window filter", func(t *testing.T) {
		from := base.Add(2 * time.Minute)
		nodes, _ := s.Neighbors(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{CreatedFrom: &from}, store.CreatedAsc, 0, store.NoLimit)
		if len(nodes) != 2 || nodes[0].ID != "c3" {
			t.Errorf("Neighbors(window) = %v, want [c3 c4]", ids(nodes))
		}
	})
}

func TestCountEdges_RespectsFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()

	s.CreateNode(ctx, store.Node{ID: "author", Kind: store.NodeUser, CreatedAt: base})
	s.CreateNode(ctx, testNode("c1", base))
	s.CreateNode(ctx, testNode("c2", base))
	s.CreateEdge(ctx, store.EdgePosts, "author", "c1")
	s.CreateEdge(ctx, store.EdgePosts, "author", "c2")
	s.MarkDeleted(ctx, "c2")

	count, err := s.CountEdges(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{})
	if err != nil {
		t.Fatalf("CountEdges() error: %v", err)
	}
	if count != 1 {
		t.Errorf("CountEdges() = %d, want 1", count)
	}

	count, _ = s.CountEdges(ctx, "author", store.EdgePosts, store.Outgoing, store.Filter{IncludeDeleted: true})
	if count != 2 {
		t.Errorf("CountEdges(IncludeDeleted) = %d, want 2", count)
	}
}

func TestNodes_ScansOneKind(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	s.CreateNode(ctx, store.Node{ID: "u1", Kind: store.NodeUser, CreatedAt: base})
	s.CreateNode(ctx, testNode("c1", base))
	s.CreateNode(ctx, testNode("c2", base.Add(time.Minute)))

	nodes, err := s.Nodes(ctx, store.NodeContent, store.Filter{}, store.CreatedDesc, 0, store.NoLimit)
	if err != nil {
		t.Fatalf("Nodes() error: %v", err)
	}
	if len(nodes) != 2 || nodes[0].ID != "c2" {
		t.Errorf("Nodes() = %v, want [c2 c1]", ids(nodes))
	}
}

func ids(nodes []store.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
