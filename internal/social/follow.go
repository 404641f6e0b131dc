package social

import (
	"context"

	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// FollowIndex maintains and queries the FOLLOWS relationship.
//
// Every user holds a materialized self-follow edge (created at registration)
// so that feed construction can run as a single follows->posts traversal.
// That edge is an implementation detail: it is filtered out of every listing
// and count, and follow/unfollow reject self-targets outright.
type FollowIndex struct {
	store  store.GraphStore
	logger *zap.Logger
}

// NewFollowIndex creates a new follow index over the given store.
func NewFollowIndex(st store.GraphStore) *FollowIndex {
	return &FollowIndex{
		store:  st,
		logger: logging.GetLogger().With(zap.String("component", "follow-index")),
	}
}

// Follow creates a FOLLOWS edge from follower to target. Returns true when
// the edge was newly created, false when the user was already following.
// Edge atomicity is delegated to the store, so concurrent duplicate calls
// end with exactly one edge.
func (f *FollowIndex) Follow(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == targetID {
		return false, ErrSelfFollow
	}
	if err := f.requireUser(ctx, targetID); err != nil {
		return false, err
	}

	created, err := f.store.CreateEdge(ctx, store.EdgeFollows, followerID, targetID)
	if err != nil {
		return false, err
	}
	if created {
		f.logger.Debug("new follow",
			zap.String("follower", followerID),
			zap.String("target", targetID))
	}
	return created, nil
}

// Unfollow removes the FOLLOWS edge if present. Returns whether an edge was
// actually removed; unfollowing someone not followed is a no-op success.
func (f *FollowIndex) Unfollow(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == targetID {
		return false, ErrSelfFollow
	}
	if err := f.requireUser(ctx, targetID); err != nil {
		return false, err
	}
	return f.store.DeleteEdge(ctx, store.EdgeFollows, followerID, targetID)
}

// IsFollowing reports whether a follows b.
func (f *FollowIndex) IsFollowing(ctx context.Context, a, b string) (bool, error) {
	if err := f.requireUser(ctx, b); err != nil {
		return false, err
	}
	return f.store.EdgeExists(ctx, store.EdgeFollows, a, b)
}

// ListFollowing returns the users followed by userID, self excluded.
func (f *FollowIndex) ListFollowing(ctx context.Context, userID string, skip, limit int) ([]User, error) {
	return f.listFollows(ctx, userID, store.Outgoing, skip, limit)
}

// ListFollowers returns the users following userID, self excluded.
func (f *FollowIndex) ListFollowers(ctx context.Context, userID string, skip, limit int) ([]User, error) {
	return f.listFollows(ctx, userID, store.Incoming, skip, limit)
}

func (f *FollowIndex) listFollows(ctx context.Context, userID string, dir store.Direction, skip, limit int) ([]User, error) {
	if err := checkPagination(skip, limit); err != nil {
		return nil, err
	}
	if err := f.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	// The self edge has to be dropped before skip/limit apply or page
	// boundaries shift by one, so pagination happens here, not in the store.
	nodes, err := f.store.Neighbors(ctx, userID, store.EdgeFollows, dir, store.Filter{}, store.CreatedAsc, 0, store.NoLimit)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == userID {
			continue
		}
		users = append(users, userFromNode(n))
	}
	if skip >= len(users) {
		return []User{}, nil
	}
	users = users[skip:]
	if limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

// CountFollowing returns how many users userID follows, self excluded.
func (f *FollowIndex) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return f.countFollows(ctx, userID, store.Outgoing)
}

// CountFollowers returns how many users follow userID, self excluded.
func (f *FollowIndex) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return f.countFollows(ctx, userID, store.Incoming)
}

func (f *FollowIndex) countFollows(ctx context.Context, userID string, dir store.Direction) (int64, error) {
	count, err := f.store.CountEdges(ctx, userID, store.EdgeFollows, dir, store.Filter{})
	if err != nil {
		return 0, err
	}
	self, err := f.store.EdgeExists(ctx, store.EdgeFollows, userID, userID)
	if err != nil {
		return 0, err
	}
	if self {
		count--
	}
	return count, nil
}

func (f *FollowIndex) requireUser(ctx context.Context, id string) error {
	n, found, err := f.store.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !found || n.Kind != store.NodeUser {
		return targetNotFound("user", id)
	}
	return nil
}
