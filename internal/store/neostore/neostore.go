package neostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/config"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// Store is a GraphStore backed by neo4j. Edge idempotency comes from
// Cypher MERGE, which settles concurrent duplicate creates on one
// relationship inside the database.
//
// Edge kinds are a closed enum, so interpolating them into relationship
// types is safe; every user-supplied value travels as a query parameter.
type Store struct {
	driver neo4j.DriverWithContext
}

// New opens a neo4j-backed graph store and ensures the id constraint.
func New(ctx context.Context, cfg *config.Neo4jConfig) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	s := &Store{driver: driver}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	logging.GetLogger().Info("Neo4j connection established")
	return s, nil
}

// ensureSchema creates the uniqueness constraint so id lookups are O(1)
func (s *Store) ensureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT blobb_node_id_unique IF NOT EXISTS FOR (n:Node) REQUIRE n.id IS UNIQUE`,
		// unnamed nodes carry no name property and stay outside this one
		`CREATE CONSTRAINT blobb_node_kind_name_unique IF NOT EXISTS FOR (n:Node) REQUIRE (n.kind, n.name) IS UNIQUE`,
	}
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, query := range queries {
			if _, err := tx.Run(ctx, query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Close shuts the driver down
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) CreateNode(ctx context.Context, n store.Node) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	attrs, err := json.Marshal(n.Attrs)
	if err != nil {
		return err
	}

	// empty names are stored as null so the (kind, name) constraint only
	// binds named nodes
	var name any
	if n.Name != "" {
		name = n.Name
	}

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			CREATE (n:Node {id: $id, kind: $kind, subkind: $subkind, name: $name,
			                body: $body, deleted: $deleted, created_at: $createdAt,
			                attrs: $attrs})
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":        n.ID,
			"kind":      string(n.Kind),
			"subkind":   n.Subkind,
			"name":      name,
			"body":      n.Body,
			"deleted":   n.Deleted,
			"createdAt": n.CreatedAt,
			"attrs":     string(attrs),
		})
		return nil, err
	})
	if err != nil {
		var neoErr *neo4j.Neo4jError
		if errors.As(err, &neoErr) && strings.Contains(neoErr.Code, "ConstraintValidationFailed") {
			return fmt.Errorf("%s %q: %w", n.Kind, n.Name, store.ErrDuplicateName)
		}
		return unavailable(err)
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id string) (store.Node, bool, error) {
	return s.findOne(ctx, `MATCH (n:Node {id: $p}) RETURN n`, id)
}

func (s *Store) GetNodeByName(ctx context.Context, kind store.NodeKind, name string) (store.Node, bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n:Node {kind: $kind, name: $name}) RETURN n LIMIT 1`,
			map[string]any{"kind": string(kind), "name": name})
		if err != nil {
			return nil, err
		}
		return collectNodes(ctx, res)
	})
	if err != nil {
		return store.Node{}, false, unavailable(err)
	}
	nodes := result.([]store.Node)
	if len(nodes) == 0 {
		return store.Node{}, false, nil
	}
	return nodes[0], true, nil
}

func (s *Store) findOne(ctx context.Context, query, param string) (store.Node, bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"p": param})
		if err != nil {
			return nil, err
		}
		return collectNodes(ctx, res)
	})
	if err != nil {
		return store.Node{}, false, unavailable(err)
	}
	nodes := result.([]store.Node)
	if len(nodes) == 0 {
		return store.Node{}, false, nil
	}
	return nodes[0], true, nil
}

func (s *Store) MarkDeleted(ctx context.Context, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n:Node {id: $id}) SET n.deleted = true RETURN n.id`,
			map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), res.Err()
	})
	if err != nil {
		return unavailable(err)
	}
	if !result.(bool) {
		return fmt.Errorf("node %s does not exist", id)
	}
	return nil
}

func (s *Store) CreateEdge(ctx context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// MERGE settles concurrent duplicates on a single relationship
		query := fmt.Sprintf(`
			MATCH (a:Node {id: $fromId}), (b:Node {id: $toId})
			MERGE (a)-[r:%s]->(b)
			ON CREATE SET r.created_at = datetime()
		`, kind)
		res, err := tx.Run(ctx, query, map[string]any{"fromId": fromID, "toId": toID})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().RelationshipsCreated() > 0, nil
	})
	if err != nil {
		return false, unavailable(err)
	}
	return result.(bool), nil
}

func (s *Store) DeleteEdge(ctx context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MATCH (a:Node {id: $fromId})-[r:%s]->(b:Node {id: $toId})
			DELETE r
		`, kind)
		res, err := tx.Run(ctx, query, map[string]any{"fromId": fromID, "toId": toID})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().RelationshipsDeleted() > 0, nil
	})
	if err != nil {
		return false, unavailable(err)
	}
	return result.(bool), nil
}

func (s *Store) EdgeExists(ctx context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MATCH (a:Node {id: $fromId}), (b:Node {id: $toId})
			RETURN EXISTS((a)-[:%s]->(b)) AS present
		`, kind)
		res, err := tx.Run(ctx, query, map[string]any{"fromId": fromID, "toId": toID})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			present, _ := res.Record().Get("present")
			return present.(bool), nil
		}
		return false, res.Err()
	})
	if err != nil {
		return false, unavailable(err)
	}
	return result.(bool), nil
}

func (s *Store) Neighbors(ctx context.Context, nodeID string, kind store.EdgeKind, dir store.Direction, f store.Filter, order store.OrderBy, skip, limit int) ([]store.Node, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	match := fmt.Sprintf(`MATCH (n:Node {id: $nodeId})-[:%s]->(m:Node)`, kind)
	if dir == store.Incoming {
		match = fmt.Sprintf(`MATCH (n:Node {id: $nodeId})<-[:%s]-(m:Node)`, kind)
	}

	where, params := filterClause(f)
	params["nodeId"] = nodeID
	params["skip"] = skip

	query := match + where + orderClause(order) + " SKIP $skip"
	if limit != store.NoLimit {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return collectNodes(ctx, res)
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return result.([]store.Node), nil
}

func (s *Store) CountEdges(ctx context.Context, nodeID string, kind store.EdgeKind, dir store.Direction, f store.Filter) (int64, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	match := fmt.Sprintf(`MATCH (n:Node {id: $nodeId})-[:%s]->(m:Node)`, kind)
	if dir == store.Incoming {
		match = fmt.Sprintf(`MATCH (n:Node {id: $nodeId})<-[:%s]-(m:Node)`, kind)
	}

	where, params := filterClause(f)
	params["nodeId"] = nodeID
	query := match + where + " RETURN count(m) AS total"

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			total, _ := res.Record().Get("total")
			return total.(int64), nil
		}
		return int64(0), res.Err()
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return result.(int64), nil
}

func (s *Store) Nodes(ctx context.Context, kind store.NodeKind, f store.Filter, order store.OrderBy, skip, limit int) ([]store.Node, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	where, params := filterClause(f)
	if where == "" {
		where = " WHERE m.kind = $nodeKind"
	} else {
		where += " AND m.kind = $nodeKind"
	}
	params["nodeKind"] = string(kind)
	params["skip"] = skip

	query := `MATCH (m:Node)` + where + orderClause(order) + " SKIP $skip"
	if limit != store.NoLimit {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return collectNodes(ctx, res)
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return result.([]store.Node), nil
}

// filterClause translates a store.Filter into a WHERE clause on the far
// node m, mirroring Filter.Matches.
func filterClause(f store.Filter) (string, map[string]any) {
	params := make(map[string]any)
	clauses := []string{}

	if !f.IncludeDeleted {
		clauses = append(clauses, "m.deleted <> true")
	}
	if len(f.Subkinds) > 0 {
		clauses = append(clauses, "m.subkind IN $subkinds")
		params["subkinds"] = f.Subkinds
	}
	if f.CreatedFrom != nil {
		clauses = append(clauses, "m.created_at >= $createdFrom")
		params["createdFrom"] = *f.CreatedFrom
	}
	if f.CreatedTo != nil {
		clauses = append(clauses, "m.created_at <= $createdTo")
		params["createdTo"] = *f.CreatedTo
	}

	if len(clauses) == 0 {
		return "", params
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, params
}

func orderClause(order store.OrderBy) string {
	switch order {
	case store.CreatedAsc:
		return " RETURN m ORDER BY m.created_at ASC, m.id ASC"
	case store.CreatedDesc:
		return " RETURN m ORDER BY m.created_at DESC, m.id ASC"
	default:
		return " RETURN m ORDER BY m.id ASC"
	}
}

func collectNodes(ctx context.Context, res neo4j.ResultWithContext) ([]store.Node, error) {
	var nodes []store.Node
	for res.Next(ctx) {
		raw, ok := res.Record().Get("m")
		if !ok {
			raw, ok = res.Record().Get("n")
		}
		if !ok {
			continue
		}
		nodes = append(nodes, nodeFromProps(raw.(dbtype.Node).Props))
	}
	return nodes, res.Err()
}

func nodeFromProps(props map[string]any) store.Node {
	n := store.Node{
		ID:      str(props["id"]),
		Kind:    store.NodeKind(str(props["kind"])),
		Subkind: str(props["subkind"]),
		Name:    str(props["name"]),
		Body:    str(props["body"]),
	}
	if deleted, ok := props["deleted"].(bool); ok {
		n.Deleted = deleted
	}
	if created, ok := props["created_at"].(time.Time); ok {
		n.CreatedAt = created
	}
	if raw := str(props["attrs"]); raw != "" {
		_ = json.Unmarshal([]byte(raw), &n.Attrs)
	}
	return n
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// unavailable marks driver-level failures so callers can tell transient
// store faults apart from semantic rejections.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
