package pgstore

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/config"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// zapWriter adapts zap.Logger to logger.Writer interface
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Printf(format string, args ...interface{}) {
	w.logger.Sugar().Infof(format, args...)
}

// attrsMap stores display-only node attributes as jsonb
type attrsMap map[string]string

func (m attrsMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *attrsMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported attrs column type %T", value)
	}
}

// nodeRow is the stored shape of a graph node. The columns the engine
// filters or orders on (kind, name, deleted, created_at) are indexed.
// Named nodes (users, tags) are unique per (kind, name); the partial
// index leaves the empty-named content rows out of the constraint.
type nodeRow struct {
	ID        string    `gorm:"primaryKey;type:uuid;column:id"`
	Kind      string    `gorm:"type:varchar(16);not null;index:blobb_nodes_kind_idx;uniqueIndex:blobb_nodes_kind_name_uq,priority:1;column:kind"`
	Subkind   string    `gorm:"type:varchar(16);not null;default:'';column:subkind"`
	Name      string    `gorm:"type:varchar(64);not null;default:'';uniqueIndex:blobb_nodes_kind_name_uq,priority:2,where:name <> '';column:name"`
	Body      string    `gorm:"type:text;not null;default:'';column:body"`
	Deleted   bool      `gorm:"not null;default:false;column:deleted"`
	CreatedAt time.Time `gorm:"not null;index:blobb_nodes_created_idx;column:created_at"`
	Attrs     attrsMap  `gorm:"type:jsonb;column:attrs"`
}

// TableName specifies the table name for nodeRow
func (nodeRow) TableName() string {
	return "blobb_nodes"
}

// edgeRow is a directed edge. The composite primary key makes duplicate
// edge creation a database-level conflict, which CreateEdge relies on.
type edgeRow struct {
	Kind      string    `gorm:"primaryKey;type:varchar(16);column:kind"`
	FromID    string    `gorm:"primaryKey;type:uuid;column:from_id;index:blobb_edges_from_idx"`
	ToID      string    `gorm:"primaryKey;type:uuid;column:to_id;index:blobb_edges_to_idx"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for edgeRow
func (edgeRow) TableName() string {
	return "blobb_edges"
}

// Store is a GraphStore backed by postgres. Edge idempotency is delegated
// to the primary-key conflict handling of the database, so concurrent
// duplicate CreateEdge calls settle on exactly one row.
type Store struct {
	db *gorm.DB
}

// New opens a postgres-backed graph store
func New(cfg *config.DatabaseConfig, logLevel string) (*Store, error) {
	var gormLogLevel logger.LogLevel
	switch logLevel {
	case "DEBUG", "debug":
		gormLogLevel = logger.Info
	case "INFO", "info":
		gormLogLevel = logger.Warn
	case "WARN", "warn", "WARNING", "warning":
		gormLogLevel = logger.Error
	case "ERROR", "error":
		gormLogLevel = logger.Silent
	default:
		gormLogLevel = logger.Warn
	}

	writer := &zapWriter{logger: logging.GetLogger()}
	gormLogger := logger.New(
		writer,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(&nodeRow{}, &edgeRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate graph schema: %w", err)
	}

	logging.GetLogger().Info("Database connection established")

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database health
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) CreateNode(ctx context.Context, n store.Node) error {
	row := nodeRow{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Subkind:   n.Subkind,
		Name:      n.Name,
		Body:      n.Body,
		Deleted:   n.Deleted,
		CreatedAt: n.CreatedAt,
		Attrs:     n.Attrs,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s %q: %w", n.Kind, n.Name, store.ErrDuplicateName)
		}
		return unavailable(err)
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id string) (store.Node, bool, error) {
	var row nodeRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.Node{}, false, nil
		}
		return store.Node{}, false, unavailable(err)
	}
	return nodeFromRow(row), true, nil
}

func (s *Store) GetNodeByName(ctx context.Context, kind store.NodeKind, name string) (store.Node, bool, error) {
	var row nodeRow
	if err := s.db.WithContext(ctx).Where("kind = ? AND name = ?", string(kind), name).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.Node{}, false, nil
		}
		return store.Node{}, false, unavailable(err)
	}
	return nodeFromRow(row), true, nil
}

func (s *Store) MarkDeleted(ctx context.Context, id string) error {
	tx := s.db.WithContext(ctx).Model(&nodeRow{}).Where("id = ?", id).Update("deleted", true)
	if tx.Error != nil {
		return unavailable(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("node %s does not exist", id)
	}
	return nil
}

func (s *Store) CreateEdge(ctx context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	row := edgeRow{
		Kind:      string(kind),
		FromID:    fromID,
		ToID:      toID,
		CreatedAt: time.Now().UTC(),
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if tx.Error != nil {
		return false, unavailable(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) DeleteEdge(ctx context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Where("kind = ? AND from_id = ? AND to_id = ?", string(kind), fromID, toID).
		Delete(&edgeRow{})
	if tx.Error != nil {
		return false, unavailable(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) EdgeExists(ctx context.Context, kind store.EdgeKind, fromID, toID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&edgeRow{}).
		Where("kind = ? AND from_id = ? AND to_id = ?", string(kind), fromID, toID).
		Count(&count).Error
	if err != nil {
		return false, unavailable(err)
	}
	return count > 0, nil
}

func (s *Store) Neighbors(ctx context.Context, nodeID string, kind store.EdgeKind, dir store.Direction, f store.Filter, order store.OrderBy, skip, limit int) ([]store.Node, error) {
	q := s.neighborQuery(ctx, nodeID, kind, dir, f)

	switch order {
	case store.CreatedAsc:
		q = q.Order("blobb_nodes.created_at ASC, blobb_nodes.id ASC")
	case store.CreatedDesc:
		q = q.Order("blobb_nodes.created_at DESC, blobb_nodes.id ASC")
	default:
		q = q.Order("blobb_nodes.id ASC")
	}

	if skip > 0 {
		q = q.Offset(skip)
	}
	if limit != store.NoLimit {
		q = q.Limit(limit)
	}

	var rows []nodeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable(err)
	}
	return nodesFromRows(rows), nil
}

func (s *Store) CountEdges(ctx context.Context, nodeID string, kind store.EdgeKind, dir store.Direction, f store.Filter) (int64, error) {
	var count int64
	if err := s.neighborQuery(ctx, nodeID, kind, dir, f).Count(&count).Error; err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

func (s *Store) Nodes(ctx context.Context, kind store.NodeKind, f store.Filter, order store.OrderBy, skip, limit int) ([]store.Node, error) {
	q := s.db.WithContext(ctx).Model(&nodeRow{}).Where("blobb_nodes.kind = ?", string(kind))
	q = applyFilter(q, f)

	switch order {
	case store.CreatedAsc:
		q = q.Order("blobb_nodes.created_at ASC, blobb_nodes.id ASC")
	case store.CreatedDesc:
		q = q.Order("blobb_nodes.created_at DESC, blobb_nodes.id ASC")
	default:
		q = q.Order("blobb_nodes.id ASC")
	}

	if skip > 0 {
		q = q.Offset(skip)
	}
	if limit != store.NoLimit {
		q = q.Limit(limit)
	}

	var rows []nodeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable(err)
	}
	return nodesFromRows(rows), nil
}

// neighborQuery joins edges touching nodeID to their far-end nodes and
// applies the far-end filter.
func (s *Store) neighborQuery(ctx context.Context, nodeID string, kind store.EdgeKind, dir store.Direction, f store.Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&nodeRow{})
	switch dir {
	case store.Outgoing:
		q = q.Joins("INNER JOIN blobb_edges ON blobb_edges.to_id = blobb_nodes.id").
			Where("blobb_edges.kind = ? AND blobb_edges.from_id = ?", string(kind), nodeID)
	case store.Incoming:
		q = q.Joins("INNER JOIN blobb_edges ON blobb_edges.from_id = blobb_nodes.id").
			Where("blobb_edges.kind = ? AND blobb_edges.to_id = ?", string(kind), nodeID)
	}
	return applyFilter(q, f)
}

func applyFilter(q *gorm.DB, f store.Filter) *gorm.DB {
	if !f.IncludeDeleted {
		q = q.Where("blobb_nodes.deleted = ?", false)
	}
	if len(f.Subkinds) > 0 {
		q = q.Where("blobb_nodes.subkind IN ?", f.Subkinds)
	}
	if f.CreatedFrom != nil {
		q = q.Where("blobb_nodes.created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("blobb_nodes.created_at <= ?", *f.CreatedTo)
	}
	return q
}

func nodeFromRow(row nodeRow) store.Node {
	return store.Node{
		ID:        row.ID,
		Kind:      store.NodeKind(row.Kind),
		Subkind:   row.Subkind,
		Name:      row.Name,
		Body:      row.Body,
		Deleted:   row.Deleted,
		CreatedAt: row.CreatedAt,
		Attrs:     row.Attrs,
	}
}

func nodesFromRows(rows []nodeRow) []store.Node {
	nodes := make([]store.Node, len(rows))
	for i, row := range rows {
		nodes[i] = nodeFromRow(row)
	}
	return nodes
}

// unavailable marks driver-level failures so callers can tell transient
// store faults apart from semantic rejections.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
