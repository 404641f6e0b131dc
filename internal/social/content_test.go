package social

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no tags",
			text: "just some words",
			want: nil,
		},
		{
			name: "lowercased",
			text: "good morning #Coffee",
			want: []string{"#coffee"},
		},
		{
			name: "duplicates dropped",
			text: "#go #GO #Go",
			want: []string{"#go"},
		},
		{
			name: "multiple in order",
			text: "#one then #two then #three",
			want: []string{"#one", "#two", "#three"},
		},
		{
			name: "punctuation terminates",
			text: "love #go, hate #java!",
			want: []string{"#go", "#java"},
		},
		{
			name: "overlong truncated",
			text: "#" + strings.Repeat("a", 40),
			want: []string{"#" + strings.Repeat("a", maxTagLength-1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTags(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractTags(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPost_AttachesTags(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	c := env.post(t, a.ID, "hello #world #World")

	tag, err := env.tags.FindByName(context.Background(), "#world")
	if err != nil {
		t.Fatalf("FindByName() error: %v", err)
	}

	items, err := env.tags.FindRecentTagged(context.Background(), tag.ID, 0, 10)
	if err != nil {
		t.Fatalf("FindRecentTagged() error: %v", err)
	}
	if len(items) != 1 || items[0].ID != c.ID {
		t.Errorf("FindRecentTagged() = %v, want only %s", itemIDs(items), c.ID)
	}
}

func TestRespond_MissingTarget(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")

	_, err := env.content.Respond(context.Background(), a.ID, "hello?", "no-such-blobb")
	if !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("Respond(missing target) error = %v, want ErrTargetNotFound", err)
	}
}

func TestRespond_DeletedTargetAllowed(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	b := env.register(t, "bob")
	target := env.post(t, a.ID, "soon gone")
	if _, err := env.content.SoftDelete(context.Background(), a.ID, target.ID); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}

	resp := env.respond(t, b.ID, "too late", target.ID)

	item, err := env.content.GetByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if item.RespondsTo != target.ID {
		t.Errorf("RespondsTo = %s, want %s even though target is deleted", item.RespondsTo, target.ID)
	}
}

func TestSoftDelete(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	b := env.register(t, "bob")
	c := env.post(t, a.ID, "mine")

	t.Run("non-author rejected", func(t *testing.T) {
		_, err := env.content.SoftDelete(context.Background(), b.ID, c.ID)
		if !errors.Is(err, ErrNotAuthor) {
			t.Errorf("SoftDelete(non-author) error = %v, want ErrNotAuthor", err)
		}
	})

	t.Run("author deletes", func(t *testing.T) {
		deleted, err := env.content.SoftDelete(context.Background(), a.ID, c.ID)
		if err != nil {
			t.Fatalf("SoftDelete() error: %v", err)
		}
		if !deleted {
			t.Error("SoftDelete() = false, want true")
		}
	})

	t.Run("repeat delete succeeds", func(t *testing.T) {
		deleted, err := env.content.SoftDelete(context.Background(), a.ID, c.ID)
		if err != nil {
			t.Fatalf("second SoftDelete() error: %v", err)
		}
		if !deleted {
			t.Error("second SoftDelete() = false, want true")
		}
	})

	t.Run("deleted content invisible", func(t *testing.T) {
		_, err := env.content.GetByID(context.Background(), c.ID)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID(deleted) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("missing content", func(t *testing.T) {
		_, err := env.content.SoftDelete(context.Background(), a.ID, "no-such-blobb")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("SoftDelete(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestGetInfo_Counters(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	b := env.register(t, "bob")
	c := env.post(t, a.ID, "popular")

	r1 := env.respond(t, b.ID, "nice", c.ID)
	env.respond(t, a.ID, "thanks", c.ID)
	env.reblobb(t, b.ID, "", c.ID)
	env.like(t, a.ID, c.ID)
	env.like(t, b.ID, c.ID)

	// deleted responses leave the counter
	if _, err := env.content.SoftDelete(context.Background(), b.ID, r1.ID); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}

	info, err := env.content.GetInfo(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetInfo() error: %v", err)
	}
	if info.Responses != 1 {
		t.Errorf("Responses = %d, want 1", info.Responses)
	}
	if info.Reblobbs != 1 {
		t.Errorf("Reblobbs = %d, want 1", info.Reblobbs)
	}
	if info.Likes != 2 {
		t.Errorf("Likes = %d, want 2", info.Likes)
	}
}

func TestListResponses_OldestFirstOnDeletedTarget(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	b := env.register(t, "bob")
	target := env.post(t, a.ID, "thread root")
	first := env.respond(t, b.ID, "first", target.ID)
	second := env.respond(t, a.ID, "second", target.ID)

	// responses to a deleted target stay listable
	if _, err := env.content.SoftDelete(context.Background(), a.ID, target.ID); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}

	items, err := env.content.ListResponses(context.Background(), target.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListResponses() error: %v", err)
	}
	want := []string{first.ID, second.ID}
	if !sameIDs(itemIDs(items), want) {
		t.Errorf("ListResponses() = %v, want %v", itemIDs(items), want)
	}
}

func TestListReblobbs_HydratesTarget(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "alice")
	b := env.register(t, "bob")
	target := env.post(t, a.ID, "original")
	rb := env.reblobb(t, b.ID, "look at this", target.ID)

	items, err := env.content.ListReblobbs(context.Background(), target.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListReblobbs() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ListReblobbs() returned %d items, want 1", len(items))
	}
	if items[0].ID != rb.ID || items[0].Reblobbs != target.ID {
		t.Errorf("ListReblobbs()[0] = %+v, want id=%s reblobbs=%s", items[0], rb.ID, target.ID)
	}
	if items[0].Author.ID != b.ID {
		t.Errorf("author = %s, want %s", items[0].Author.ID, b.ID)
	}
}
