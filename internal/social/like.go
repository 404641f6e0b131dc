package social

import (
	"context"

	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// LikeToggle implements the idempotent like/unlike transitions. At most one
// LIKES edge exists per (user, content) pair; presence is a boolean fact.
type LikeToggle struct {
	store  store.GraphStore
	logger *zap.Logger
}

// NewLikeToggle creates a new like toggle over the given store.
func NewLikeToggle(st store.GraphStore) *LikeToggle {
	return &LikeToggle{
		store:  st,
		logger: logging.GetLogger().With(zap.String("component", "like-toggle")),
	}
}

// Like creates a LIKES edge from user to content. Liking twice leaves one
// edge; the result is true either way.
func (l *LikeToggle) Like(ctx context.Context, userID, contentID string) (bool, error) {
	if err := l.requireVisible(ctx, contentID); err != nil {
		return false, err
	}
	created, err := l.store.CreateEdge(ctx, store.EdgeLikes, userID, contentID)
	if err != nil {
		return false, err
	}
	if created {
		l.logger.Debug("liked", zap.String("user", userID), zap.String("content", contentID))
	}
	return true, nil
}

// Unlike removes the LIKES edge if present. Unliking something never liked
// is a benign no-op; the result is false either way.
func (l *LikeToggle) Unlike(ctx context.Context, userID, contentID string) (bool, error) {
	if err := l.requireVisible(ctx, contentID); err != nil {
		return false, err
	}
	if _, err := l.store.DeleteEdge(ctx, store.EdgeLikes, userID, contentID); err != nil {
		return false, err
	}
	return false, nil
}

// CheckLikes reports whether the user likes the content.
func (l *LikeToggle) CheckLikes(ctx context.Context, userID, contentID string) (bool, error) {
	if err := l.requireVisible(ctx, contentID); err != nil {
		return false, err
	}
	return l.store.EdgeExists(ctx, store.EdgeLikes, userID, contentID)
}

func (l *LikeToggle) requireVisible(ctx context.Context, contentID string) error {
	n, found, err := l.store.GetNode(ctx, contentID)
	if err != nil {
		return err
	}
	if !found || n.Kind != store.NodeContent || n.Deleted {
		return notFound("content", contentID)
	}
	return nil
}
