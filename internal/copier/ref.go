package copier

import (
	"fmt"
	"strings"

	"github.com/apalmeirim/playlist-copycat/internal/shared"
)

// PlaylistRef is a resolved playlist reference: the bare ID plus the
// input it was derived from.
type PlaylistRef struct {
	ID  string
	URL string
}

// ParseRef derives a playlist ID from a user-supplied URL, URI, or bare
// ID. The ID is the final non-query path segment: the query string is
// stripped first, then everything up to the last slash (or colon, for
// spotify: URIs). A bare ID passes through unchanged.
func ParseRef(input string) (PlaylistRef, error) {
	trimmed := strings.TrimSpace(input)

	id := trimmed
	if idx := strings.IndexAny(id, "?#"); idx >= 0 {
		id = id[:idx]
	}
	id = strings.TrimRight(id, "/")
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	if idx := strings.LastIndex(id, ":"); idx >= 0 {
		id = id[idx+1:]
	}

	if id == "" {
		return PlaylistRef{}, fmt.Errorf("%w: %q", shared.ErrInvalidReference, input)
	}

	return PlaylistRef{ID: id, URL: trimmed}, nil
}
