package social

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/cache"
	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// Popularity windows accepted by PopularSince.
const (
	SinceHour = time.Hour
	SinceDay  = 24 * time.Hour
	SinceWeek = 7 * 24 * time.Hour
)

const popularTagsTTL = 30 * time.Second

// popularTagsKey derives the cache key for one (window, limit) ranking.
// The hashed suffix keeps the key fixed-length whatever the window is.
func popularTagsKey(since time.Duration, limit int) string {
	return "tags:popular:" + cache.HashKey(since.String(), strconv.Itoa(limit))
}

// TagRanker computes time-windowed popularity rankings over tags and lists
// the content carrying a tag.
type TagRanker struct {
	store  store.GraphStore
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewTagRanker creates a new tag ranker. The cache may be nil; rankings are
// then always recomputed.
func NewTagRanker(st store.GraphStore, c *cache.Cache) *TagRanker {
	return &TagRanker{
		store:  st,
		cache:  c,
		logger: logging.GetLogger().With(zap.String("component", "tag-ranker")),
		now:    time.Now,
	}
}

// FindMostPopular ranks tags by the number of non-deleted content nodes
// created within [from, to] that carry them, most used first. Tags with no
// matching content are left out entirely. Equal counts break by tag id so
// a fixed snapshot always ranks identically.
func (r *TagRanker) FindMostPopular(ctx context.Context, from, to time.Time, limit int) ([]Tag, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit=%d: %w", limit, ErrInvalidPagination)
	}

	window := store.Filter{CreatedFrom: &from, CreatedTo: &to}
	contents, err := r.store.Nodes(ctx, store.NodeContent, window, store.Unordered, 0, store.NoLimit)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	tags := make(map[string]Tag)
	for _, c := range contents {
		tagged, err := r.store.Neighbors(ctx, c.ID, store.EdgeTagged, store.Outgoing, store.Filter{IncludeDeleted: true}, store.Unordered, 0, store.NoLimit)
		if err != nil {
			return nil, err
		}
		for _, t := range tagged {
			counts[t.ID]++
			if _, ok := tags[t.ID]; !ok {
				tags[t.ID] = tagFromNode(t)
			}
		}
	}

	ranked := make([]Tag, 0, len(tags))
	for id := range tags {
		ranked = append(ranked, tags[id])
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i].ID] != counts[ranked[j].ID] {
			return counts[ranked[i].ID] > counts[ranked[j].ID]
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// PopularSince ranks tags over the window [now-since, now]. Results are
// cached briefly since trending queries are the hottest read path and a
// few seconds of staleness is acceptable for a trend list.
func (r *TagRanker) PopularSince(ctx context.Context, since time.Duration, limit int) ([]Tag, error) {
	key := popularTagsKey(since, limit)
	if cached, err := r.cache.Get(key); err == nil {
		var tags []Tag
		if err := json.Unmarshal([]byte(cached), &tags); err == nil {
			return tags, nil
		}
	}

	now := r.now().UTC()
	ranked, err := r.FindMostPopular(ctx, now.Add(-since), now, limit)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(ranked); err == nil {
		if err := r.cache.Set(key, payload, popularTagsTTL); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("failed to cache popular tags", zap.Error(err))
		}
	}
	return ranked, nil
}

// FindRecentTagged lists non-deleted content carrying the tag, oldest first.
func (r *TagRanker) FindRecentTagged(ctx context.Context, tagID string, skip, limit int) ([]FeedItem, error) {
	if err := checkPagination(skip, limit); err != nil {
		return nil, err
	}
	n, found, err := r.store.GetNode(ctx, tagID)
	if err != nil {
		return nil, err
	}
	if !found || n.Kind != store.NodeTag {
		return nil, notFound("tag", tagID)
	}

	nodes, err := r.store.Neighbors(ctx, tagID, store.EdgeTagged, store.Incoming, store.Filter{}, store.CreatedAsc, skip, limit)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(nodes))
	for _, c := range nodes {
		author, err := authorOf(ctx, r.store, c.ID)
		if err != nil {
			return nil, err
		}
		item, err := hydrateItem(ctx, r.store, c, author)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FindByName returns the tag with the exact normalized name.
func (r *TagRanker) FindByName(ctx context.Context, name string) (Tag, error) {
	n, found, err := r.store.GetNodeByName(ctx, store.NodeTag, name)
	if err != nil {
		return Tag{}, err
	}
	if !found {
		return Tag{}, notFound("tag", name)
	}
	return tagFromNode(n), nil
}
