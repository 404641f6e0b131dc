package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// UserDirectory creates and resolves user nodes.
type UserDirectory struct {
	store   store.GraphStore
	follows *FollowIndex
	logger  *zap.Logger
	now     func() time.Time
}

// NewUserDirectory creates a new user directory over the given store.
func NewUserDirectory(st store.GraphStore, follows *FollowIndex) *UserDirectory {
	return &UserDirectory{
		store:   st,
		follows: follows,
		logger:  logging.GetLogger().With(zap.String("component", "user-directory")),
		now:     time.Now,
	}
}

// Register creates a new user node and its self-follow edge. The self edge
// is what lets feed construction include the user's own content in a single
// follows->posts traversal; every listing filters it back out.
func (d *UserDirectory) Register(ctx context.Context, username, displayedName string) (User, error) {
	if username == "" {
		return User{}, fmt.Errorf("empty username: %w", ErrUsernameTaken)
	}
	if _, found, err := d.store.GetNodeByName(ctx, store.NodeUser, username); err != nil {
		return User{}, err
	} else if found {
		return User{}, fmt.Errorf("username %s: %w", username, ErrUsernameTaken)
	}

	n := store.Node{
		ID:        uuid.NewString(),
		Kind:      store.NodeUser,
		Name:      username,
		CreatedAt: d.now().UTC(),
		Attrs:     map[string]string{"displayedName": displayedName},
	}
	// the store's (kind, name) uniqueness is what actually decides races;
	// the lookup above only gives earlier, cheaper rejections
	if err := d.store.CreateNode(ctx, n); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return User{}, fmt.Errorf("username %s: %w", username, ErrUsernameTaken)
		}
		return User{}, err
	}
	if _, err := d.store.CreateEdge(ctx, store.EdgeFollows, n.ID, n.ID); err != nil {
		return User{}, err
	}

	d.logger.Info("user registered", zap.String("uuid", n.ID), zap.String("username", username))
	return userFromNode(n), nil
}

// FindByID returns the user with the given id.
func (d *UserDirectory) FindByID(ctx context.Context, id string) (User, error) {
	n, found, err := d.store.GetNode(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found || n.Kind != store.NodeUser {
		return User{}, notFound("user", id)
	}
	return userFromNode(n), nil
}

// FindByUsername returns the user with the given unique username.
func (d *UserDirectory) FindByUsername(ctx context.Context, username string) (User, error) {
	n, found, err := d.store.GetNodeByName(ctx, store.NodeUser, username)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, notFound("user", username)
	}
	return userFromNode(n), nil
}

// ProfileInfo returns the follow counters of a user, self edge excluded.
func (d *UserDirectory) ProfileInfo(ctx context.Context, id string) (UserProfile, error) {
	if _, err := d.FindByID(ctx, id); err != nil {
		return UserProfile{}, err
	}
	follows, err := d.follows.CountFollowing(ctx, id)
	if err != nil {
		return UserProfile{}, err
	}
	followers, err := d.follows.CountFollowers(ctx, id)
	if err != nil {
		return UserProfile{}, err
	}
	return UserProfile{ID: id, Follows: follows, Followers: followers}, nil
}

// RecentContent returns the user's own non-deleted content, newest first.
func (d *UserDirectory) RecentContent(ctx context.Context, id string, skip, limit int) ([]FeedItem, error) {
	if err := checkPagination(skip, limit); err != nil {
		return nil, err
	}
	author, err := d.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := d.store.Neighbors(ctx, id, store.EdgePosts, store.Outgoing, store.Filter{}, store.CreatedDesc, skip, limit)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(nodes))
	for _, n := range nodes {
		item, err := hydrateItem(ctx, d.store, n, author)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
