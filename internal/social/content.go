package social

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/logging"
)

// ContentGraph maintains the POSTS, RESPONDS, REBLOBBS and TAGGED
// relationships and the soft-delete state of content nodes.
type ContentGraph struct {
	store  store.GraphStore
	logger *zap.Logger
	now    func() time.Time
}

// NewContentGraph creates a new content graph over the given store.
func NewContentGraph(st store.GraphStore) *ContentGraph {
	return &ContentGraph{
		store:  st,
		logger: logging.GetLogger().With(zap.String("component", "content-graph")),
		now:    time.Now,
	}
}

// Post creates a root content node authored by authorID. Hashtags found in
// the text are attached as TAGGED edges at creation and never change.
func (g *ContentGraph) Post(ctx context.Context, authorID, text string) (Content, error) {
	return g.create(ctx, authorID, text, store.SubkindPost, "", "")
}

// Respond creates a response to targetID. Responding to deleted content is
// allowed: the target only has to exist.
func (g *ContentGraph) Respond(ctx context.Context, authorID, text, targetID string) (Content, error) {
	if err := g.requireContent(ctx, targetID); err != nil {
		return Content{}, err
	}
	return g.create(ctx, authorID, text, store.SubkindResponse, string(store.EdgeResponds), targetID)
}

// Reblobb creates a reblobb of targetID. The text may be empty.
func (g *ContentGraph) Reblobb(ctx context.Context, authorID, text, targetID string) (Content, error) {
	if err := g.requireContent(ctx, targetID); err != nil {
		return Content{}, err
	}
	return g.create(ctx, authorID, text, store.SubkindReblobb, string(store.EdgeReblobbs), targetID)
}

func (g *ContentGraph) create(ctx context.Context, authorID, text, subkind, targetEdge, targetID string) (Content, error) {
	author, found, err := g.store.GetNode(ctx, authorID)
	if err != nil {
		return Content{}, err
	}
	if !found || author.Kind != store.NodeUser {
		return Content{}, notFound("user", authorID)
	}

	n := store.Node{
		ID:        uuid.NewString(),
		Kind:      store.NodeContent,
		Subkind:   subkind,
		Body:      text,
		CreatedAt: g.now().UTC(),
	}
	if err := g.store.CreateNode(ctx, n); err != nil {
		return Content{}, err
	}
	if _, err := g.store.CreateEdge(ctx, store.EdgePosts, authorID, n.ID); err != nil {
		return Content{}, err
	}
	if targetEdge != "" {
		if _, err := g.store.CreateEdge(ctx, store.EdgeKind(targetEdge), n.ID, targetID); err != nil {
			return Content{}, err
		}
	}
	if err := g.attachTags(ctx, n.ID, text); err != nil {
		return Content{}, err
	}

	g.logger.Debug("content created",
		zap.String("uuid", n.ID),
		zap.String("kind", subkind),
		zap.String("author", authorID))
	return contentFromNode(n), nil
}

func (g *ContentGraph) attachTags(ctx context.Context, contentID, text string) error {
	for _, name := range extractTags(text) {
		tag, found, err := g.store.GetNodeByName(ctx, store.NodeTag, name)
		if err != nil {
			return err
		}
		if !found {
			tag = store.Node{
				ID:        uuid.NewString(),
				Kind:      store.NodeTag,
				Name:      name,
				CreatedAt: g.now().UTC(),
			}
			if err := g.store.CreateNode(ctx, tag); errors.Is(err, store.ErrDuplicateName) {
				// lost the create race; attach to the winning tag node
				if tag, _, err = g.store.GetNodeByName(ctx, store.NodeTag, name); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
		}
		if _, err := g.store.CreateEdge(ctx, store.EdgeTagged, contentID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete marks content as deleted. Only the author may delete, the flag
// never reverts and deleting already-deleted content succeeds.
func (g *ContentGraph) SoftDelete(ctx context.Context, requesterID, contentID string) (bool, error) {
	n, found, err := g.store.GetNode(ctx, contentID)
	if err != nil {
		return false, err
	}
	if !found || n.Kind != store.NodeContent {
		return false, notFound("content", contentID)
	}

	author, err := authorOf(ctx, g.store, contentID)
	if err != nil {
		return false, err
	}
	if author.ID != requesterID {
		return false, ErrNotAuthor
	}
	if n.Deleted {
		return true, nil
	}
	if err := g.store.MarkDeleted(ctx, contentID); err != nil {
		return false, err
	}

	g.logger.Info("content soft-deleted",
		zap.String("uuid", contentID),
		zap.String("author", requesterID))
	return true, nil
}

// GetByID returns a single hydrated content row. Deleted content is
// invisible here, mirroring its exclusion from feeds.
func (g *ContentGraph) GetByID(ctx context.Context, contentID string) (FeedItem, error) {
	n, found, err := g.store.GetNode(ctx, contentID)
	if err != nil {
		return FeedItem{}, err
	}
	if !found || n.Kind != store.NodeContent || n.Deleted {
		return FeedItem{}, notFound("content", contentID)
	}
	author, err := authorOf(ctx, g.store, contentID)
	if err != nil {
		return FeedItem{}, err
	}
	return hydrateItem(ctx, g.store, n, author)
}

// GetInfo returns response/like/reblobb counters for visible content.
// Responses and reblobbs exclude deleted nodes; likes are counted as-is
// since like edges carry no delete state.
func (g *ContentGraph) GetInfo(ctx context.Context, contentID string) (ContentInfo, error) {
	n, found, err := g.store.GetNode(ctx, contentID)
	if err != nil {
		return ContentInfo{}, err
	}
	if !found || n.Kind != store.NodeContent || n.Deleted {
		return ContentInfo{}, notFound("content", contentID)
	}

	responses, err := g.store.CountEdges(ctx, contentID, store.EdgeResponds, store.Incoming, store.Filter{})
	if err != nil {
		return ContentInfo{}, err
	}
	reblobbs, err := g.store.CountEdges(ctx, contentID, store.EdgeReblobbs, store.Incoming, store.Filter{})
	if err != nil {
		return ContentInfo{}, err
	}
	likes, err := g.store.CountEdges(ctx, contentID, store.EdgeLikes, store.Incoming, store.Filter{IncludeDeleted: true})
	if err != nil {
		return ContentInfo{}, err
	}
	return ContentInfo{Responses: responses, Likes: likes, Reblobbs: reblobbs}, nil
}

// ListResponses lists non-deleted responses to contentID, oldest first.
// The target itself may be deleted; its responses stay listable.
func (g *ContentGraph) ListResponses(ctx context.Context, contentID string, skip, limit int) ([]FeedItem, error) {
	return g.listIncoming(ctx, contentID, store.EdgeResponds, skip, limit)
}

// ListReblobbs lists non-deleted reblobbs of contentID, oldest first, with
// the same visibility rule as ListResponses.
func (g *ContentGraph) ListReblobbs(ctx context.Context, contentID string, skip, limit int) ([]FeedItem, error) {
	return g.listIncoming(ctx, contentID, store.EdgeReblobbs, skip, limit)
}

func (g *ContentGraph) listIncoming(ctx context.Context, contentID string, kind store.EdgeKind, skip, limit int) ([]FeedItem, error) {
	if err := checkPagination(skip, limit); err != nil {
		return nil, err
	}
	if err := g.requireContent(ctx, contentID); err != nil {
		return nil, err
	}

	nodes, err := g.store.Neighbors(ctx, contentID, kind, store.Incoming, store.Filter{}, store.CreatedAsc, skip, limit)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(nodes))
	for _, n := range nodes {
		author, err := authorOf(ctx, g.store, n.ID)
		if err != nil {
			return nil, err
		}
		item, err := hydrateItem(ctx, g.store, n, author)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// requireContent checks that a content node exists, deleted or not.
// Deleted content remains a valid relationship target.
func (g *ContentGraph) requireContent(ctx context.Context, id string) error {
	n, found, err := g.store.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !found || n.Kind != store.NodeContent {
		return targetNotFound("content", id)
	}
	return nil
}

// authorOf resolves the author of a content node through its incoming
// POSTS edge.
func authorOf(ctx context.Context, st store.GraphStore, contentID string) (User, error) {
	nodes, err := st.Neighbors(ctx, contentID, store.EdgePosts, store.Incoming, store.Filter{IncludeDeleted: true}, store.Unordered, 0, 1)
	if err != nil {
		return User{}, err
	}
	if len(nodes) == 0 {
		return User{}, notFound("author of content", contentID)
	}
	return userFromNode(nodes[0]), nil
}

// hydrateItem builds a result row from a content node: author plus the ids
// of the content it responds to or reblobs. Targets resolve even when the
// target node is deleted, so rows never dangle.
func hydrateItem(ctx context.Context, st store.GraphStore, n store.Node, author User) (FeedItem, error) {
	item := FeedItem{
		ID:        n.ID,
		Text:      n.Body,
		CreatedAt: n.CreatedAt,
		Author:    author,
	}
	deleted := store.Filter{IncludeDeleted: true}

	if n.Subkind == store.SubkindResponse {
		targets, err := st.Neighbors(ctx, n.ID, store.EdgeResponds, store.Outgoing, deleted, store.Unordered, 0, 1)
		if err != nil {
			return FeedItem{}, err
		}
		if len(targets) > 0 {
			item.RespondsTo = targets[0].ID
		}
	}
	if n.Subkind == store.SubkindReblobb {
		targets, err := st.Neighbors(ctx, n.ID, store.EdgeReblobbs, store.Outgoing, deleted, store.Unordered, 0, 1)
		if err != nil {
			return FeedItem{}, err
		}
		if len(targets) > 0 {
			item.Reblobbs = targets[0].ID
		}
	}
	return item, nil
}
