package social

import (
	"regexp"
	"strings"
	"time"

	"github.com/Echelon133/Blobb/internal/store"
)

// User is a registered account.
type User struct {
	ID            string    `json:"uuid"`
	Username      string    `json:"username"`
	DisplayedName string    `json:"displayedName"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ContentKind distinguishes the three content variants.
type ContentKind string

const (
	KindPost     ContentKind = "post"
	KindResponse ContentKind = "response"
	KindReblobb  ContentKind = "reblobb"
)

// Content is a single blobb as stored: a post, a response or a reblobb.
type Content struct {
	ID        string      `json:"uuid"`
	Kind      ContentKind `json:"kind"`
	Text      string      `json:"content"`
	CreatedAt time.Time   `json:"date"`
	Deleted   bool        `json:"-"`
}

// FeedItem is a single hydrated result row: the content plus its author and,
// where applicable, the ids of the content it responds to or reblobs.
type FeedItem struct {
	ID         string    `json:"uuid"`
	Text       string    `json:"content"`
	CreatedAt  time.Time `json:"date"`
	Author     User      `json:"author"`
	RespondsTo string    `json:"respondsTo,omitempty"`
	Reblobbs   string    `json:"reblobbs,omitempty"`
}

// ContentInfo aggregates counters for one content node. Responses and
// reblobbs count only non-deleted nodes; likes have no delete state.
type ContentInfo struct {
	Responses int64 `json:"responses"`
	Likes     int64 `json:"likes"`
	Reblobbs  int64 `json:"reblobbs"`
}

// Tag is a normalized hashtag.
type Tag struct {
	ID        string    `json:"uuid"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserProfile carries follow counts shown on a profile page. The synthetic
// self-follow edge is excluded from both counters.
type UserProfile struct {
	ID        string `json:"uuid"`
	Follows   int64  `json:"follows"`
	Followers int64  `json:"followers"`
}

func userFromNode(n store.Node) User {
	return User{
		ID:            n.ID,
		Username:      n.Name,
		DisplayedName: n.Attrs["displayedName"],
		CreatedAt:     n.CreatedAt,
	}
}

func contentFromNode(n store.Node) Content {
	return Content{
		ID:        n.ID,
		Kind:      ContentKind(n.Subkind),
		Text:      n.Body,
		CreatedAt: n.CreatedAt,
		Deleted:   n.Deleted,
	}
}

func tagFromNode(n store.Node) Tag {
	return Tag{ID: n.ID, Name: n.Name, CreatedAt: n.CreatedAt}
}

var tagPattern = regexp.MustCompile(`#([A-Za-z0-9]+)`)

const maxTagLength = 32

// extractTags pulls normalized hashtags out of a content body: lowercased,
// truncated, leading '#' kept, duplicates dropped.
func extractTags(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var tags []string
	for _, m := range matches {
		name := "#" + strings.ToLower(m[1])
		if len(name) > maxTagLength {
			name = name[:maxTagLength]
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}
	return tags
}
