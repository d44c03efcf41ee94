package interfaces

import (
	"context"

	"github.com/docpilot/docpilot/internal/models"
)

// LinkFollower expands the index when retrieval comes up empty. It mines
// the current page for promising same-origin links, fetches the best
// candidates, and indexes them.
type LinkFollower interface {
	// Follow extracts and scores links from the page markdown against
	// the query, fetches the top candidates, and indexes each fetched
	// page's sections under the source role. Returns the pages that were
	// newly indexed; per-link fetch failures are isolated, so a partial
	// result is normal.
	Follow(ctx context.Context, pageURL, markdown, query string) ([]models.IndexedPage, error)
}
