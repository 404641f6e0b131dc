package social

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. All are terminal for the operation
// that produced them; the engine never retries. Transient adapter faults
// surface as store.ErrUnavailable and are passed through unwrapped.
var (
	// ErrNotFound means a referenced user/content/tag does not exist or
	// is soft-deleted and therefore invisible.
	ErrNotFound = errors.New("not found")

	// ErrTargetNotFound means the target of a relationship (follow,
	// respond, reblobb) is missing. It is a specialization of
	// ErrNotFound and matches it under errors.Is.
	ErrTargetNotFound = fmt.Errorf("target %w", ErrNotFound)

	// ErrSelfFollow is returned when a user attempts to follow themselves.
	ErrSelfFollow = errors.New("users cannot follow themselves")

	// ErrNotAuthor is returned when a delete is attempted by a user who
	// is not the content's author.
	ErrNotAuthor = errors.New("user is not the author")

	// ErrInvalidPagination is returned for negative skip or limit values.
	ErrInvalidPagination = errors.New("invalid skip and/or limit values")

	// ErrUsernameTaken is returned when registering an already used username.
	ErrUsernameTaken = errors.New("username already taken")
)

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}

func targetNotFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrTargetNotFound)
}

// checkPagination rejects negative skip/limit before any traversal is issued.
func checkPagination(skip, limit int) error {
	if skip < 0 || limit < 0 {
		return fmt.Errorf("skip=%d limit=%d: %w", skip, limit, ErrInvalidPagination)
	}
	return nil
}
