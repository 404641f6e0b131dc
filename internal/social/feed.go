package social

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// FeedBuilder composes the follow graph and the content graph into ordered,
// paginated feeds for a viewer.
//
// Both ranking modes share one candidate set: non-deleted content created
// inside [from, to] by any author the viewer follows. The viewer's own
// content is included through the materialized self-follow edge, so the
// whole gather phase is a single follows->posts traversal. Ranking and
// pagination run in the engine over the gathered set, never in the store.
type FeedBuilder struct {
	store  store.GraphStore
	logger *zap.Logger
}

// NewFeedBuilder creates a new feed builder over the given store.
func NewFeedBuilder(st store.GraphStore) *FeedBuilder {
	return &FeedBuilder{
		store:  st,
		logger: logging.GetLogger().With(zap.String("component", "feed-builder")),
	}
}

type candidate struct {
	node   store.Node
	author User
	likes  int64
}

// Chronological returns the viewer's feed ordered by creation time
// descending. Ties break by content id so a fixed snapshot always pages
// identically.
func (b *FeedBuilder) Chronological(ctx context.Context, viewerID string, from, to time.Time, skip, limit int) ([]FeedItem, error) {
	if err := checkPagination(skip, limit); err != nil {
		return nil, err
	}
	cands, err := b.gather(ctx, viewerID, from, to, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(cands, func(i, j int) bool {
		ci, cj := cands[i].node, cands[j].node
		if !ci.CreatedAt.Equal(cj.CreatedAt) {
			return ci.CreatedAt.After(cj.CreatedAt)
		}
		return ci.ID < cj.ID
	})
	return b.page(ctx, cands, skip, limit)
}

// Popular returns the viewer's feed ordered by like count descending, then
// creation time descending. Like counts are read live from edge state at
// query time, so a racing unlike is reflected on the next read.
func (b *FeedBuilder) Popular(ctx context.Context, viewerID string, from, to time.Time, skip, limit int) ([]FeedItem, error) {
	if err := checkPagination(skip, limit); err != nil {
		return nil, err
	}
	cands, err := b.gather(ctx, viewerID, from, to, true)
	if err != nil {
		return nil, err
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].likes != cands[j].likes {
			return cands[i].likes > cands[j].likes
		}
		ci, cj := cands[i].node, cands[j].node
		if !ci.CreatedAt.Equal(cj.CreatedAt) {
			return ci.CreatedAt.After(cj.CreatedAt)
		}
		return ci.ID < cj.ID
	})
	return b.page(ctx, cands, skip, limit)
}

// gather collects the raw candidate set: every non-deleted content node in
// the window authored by someone the viewer follows (self included through
// the self-follow edge).
func (b *FeedBuilder) gather(ctx context.Context, viewerID string, from, to time.Time, withLikes bool) ([]candidate, error) {
	authors, err := b.store.Neighbors(ctx, viewerID, store.EdgeFollows, store.Outgoing, store.Filter{}, store.Unordered, 0, store.NoLimit)
	if err != nil {
		return nil, err
	}

	window := store.Filter{CreatedFrom: &from, CreatedTo: &to}
	var cands []candidate
	for _, a := range authors {
		nodes, err := b.store.Neighbors(ctx, a.ID, store.EdgePosts, store.Outgoing, window, store.Unordered, 0, store.NoLimit)
		if err != nil {
			return nil, err
		}
		author := userFromNode(a)
		for _, n := range nodes {
			c := candidate{node: n, author: author}
			if withLikes {
				c.likes, err = b.store.CountEdges(ctx, n.ID, store.EdgeLikes, store.Incoming, store.Filter{IncludeDeleted: true})
				if err != nil {
					return nil, err
				}
			}
			cands = append(cands, c)
		}
	}

	b.logger.Debug("feed candidates gathered",
		zap.String("viewer", viewerID),
		zap.Int("authors", len(authors)),
		zap.Int("candidates", len(cands)))
	return cands, nil
}

// page applies skip/limit to the ordered candidates and hydrates the
// surviving rows.
func (b *FeedBuilder) page(ctx context.Context, cands []candidate, skip, limit int) ([]FeedItem, error) {
	if skip >= len(cands) {
		return []FeedItem{}, nil
	}
	cands = cands[skip:]
	if limit < len(cands) {
		cands = cands[:limit]
	}

	items := make([]FeedItem, 0, len(cands))
	for _, c := range cands {
		item, err := hydrateItem(ctx, b.store, c.node, c.author)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
