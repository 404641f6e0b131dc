package social

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newTestEnv()
	env.register(t, "alice")

	_, err := env.users.Register(context.Background(), "alice", "Alice Again")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Register(duplicate) error = %v, want ErrUsernameTaken", err)
	}
}

func TestRegister_ConcurrentSameUsername(t *testing.T) {
	env := newTestEnv()

	const workers = 64
	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := env.users.Register(context.Background(), "alice", "Alice")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var registered, rejected int
	for err := range errs {
		switch {
		case err == nil:
			registered++
		case errors.Is(err, ErrUsernameTaken):
			rejected++
		default:
			t.Errorf("Register() unexpected error: %v", err)
		}
	}
	// exactly one winner regardless of interleaving
	if registered != 1 {
		t.Errorf("got %d successful registrations, want exactly 1", registered)
	}
	if rejected != workers-1 {
		t.Errorf("got %d ErrUsernameTaken rejections, want %d", rejected, workers-1)
	}

	u, err := env.users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername() error: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("FindByUsername() = %q, want alice", u.Username)
	}
}

func TestRegister_CreatesSelfFollowEdge(t *testing.T) {
	env := newTestEnv()
	u := env.register(t, "alice")

	// the self edge exists in the graph so feeds can include own content
	self, err := env.follows.IsFollowing(context.Background(), u.ID, u.ID)
	if err != nil {
		t.Fatalf("IsFollowing() error: %v", err)
	}
	if !self {
		t.Error("IsFollowing(self) = false, want materialized self edge")
	}

	// but it never leaks into listings or counts
	profile, err := env.users.ProfileInfo(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ProfileInfo() error: %v", err)
	}
	if profile.Follows != 0 || profile.Followers != 0 {
		t.Errorf("ProfileInfo() = %+v, want zero counters for fresh user", profile)
	}
}

func TestFindByUsername(t *testing.T) {
	env := newTestEnv()
	u := env.register(t, "alice")

	found, err := env.users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername() error: %v", err)
	}
	if found.ID != u.ID {
		t.Errorf("FindByUsername() = %s, want %s", found.ID, u.ID)
	}

	if _, err := env.users.FindByUsername(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByUsername(missing) error = %v, want ErrNotFound", err)
	}
}

func TestProfileInfo_Counters(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	b := env.register(t, "bob")
	c := env.register(t, "carol")
	env.follow(t, a.ID, b.ID)
	env.follow(t, a.ID, c.ID)
	env.follow(t, b.ID, a.ID)

	profile, err := env.users.ProfileInfo(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("ProfileInfo() error: %v", err)
	}
	if profile.Follows != 2 {
		t.Errorf("Follows = %d, want 2", profile.Follows)
	}
	if profile.Followers != 1 {
		t.Errorf("Followers = %d, want 1", profile.Followers)
	}
}

func TestRecentContent_NewestFirstExcludingDeleted(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	first := env.post(t, a.ID, "first")
	second := env.post(t, a.ID, "second")
	third := env.post(t, a.ID, "third")

	if _, err := env.content.SoftDelete(context.Background(), a.ID, second.ID); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}

	items, err := env.users.RecentContent(context.Background(), a.ID, 0, 10)
	if err != nil {
		t.Fatalf("RecentContent() error: %v", err)
	}
	want := []string{third.ID, first.ID}
	if !sameIDs(itemIDs(items), want) {
		t.Errorf("RecentContent() = %v, want %v", itemIDs(items), want)
	}
}
