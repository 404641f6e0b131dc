package social

import (
	"context"
	"testing"
	"time"

	"github.com/Echelon133/Blobb/internal/store/memstore"
)

// fakeClock hands out strictly increasing timestamps so ordering
// assertions never depend on wall-clock resolution.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) tick() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

// testEnv wires every engine component over a shared in-memory store.
type testEnv struct {
	users   *UserDirectory
	follows *FollowIndex
	content *ContentGraph
	likes   *LikeToggle
	feed    *FeedBuilder
	tags    *TagRanker
	clock   *fakeClock
}

func newTestEnv() *testEnv {
	st := memstore.New()
	clock := &fakeClock{t: time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)}

	follows := NewFollowIndex(st)
	users := NewUserDirectory(st, follows)
	users.now = clock.now
	content := NewContentGraph(st)
	content.now = clock.now
	tags := NewTagRanker(st, nil)
	tags.now = clock.now

	return &testEnv{
		users:   users,
		follows: follows,
		content: content,
		likes:   NewLikeToggle(st),
		feed:    NewFeedBuilder(st),
		tags:    tags,
		clock:   clock,
	}
}

func (e *testEnv) register(t *testing.T, username string) User {
	t.Helper()
	e.clock.tick()
	u, err := e.users.Register(context.Background(), username, username)
	if err != nil {
		t.Fatalf("Register(%s) error: %v", username, err)
	}
	return u
}

func (e *testEnv) post(t *testing.T, authorID, text string) Content {
	t.Helper()
	e.clock.tick()
	c, err := e.content.Post(context.Background(), authorID, text)
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	return c
}

func (e *testEnv) respond(t *testing.T, authorID, text, targetID string) Content {
	t.Helper()
	e.clock.tick()
	c, err := e.content.Respond(context.Background(), authorID, text, targetID)
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	return c
}

func (e *testEnv) reblobb(t *testing.T, authorID, text, targetID string) Content {
	t.Helper()
	e.clock.tick()
	c, err := e.content.Reblobb(context.Background(), authorID, text, targetID)
	if err != nil {
		t.Fatalf("Reblobb() error: %v", err)
	}
	return c
}

func (e *testEnv) follow(t *testing.T, followerID, targetID string) {
	t.Helper()
	if _, err := e.follows.Follow(context.Background(), followerID, targetID); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}
}

func (e *testEnv) like(t *testing.T, userID, contentID string) {
	t.Helper()
	if _, err := e.likes.Like(context.Background(), userID, contentID); err != nil {
		t.Fatalf("Like() error: %v", err)
	}
}

func itemIDs(items []FeedItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
