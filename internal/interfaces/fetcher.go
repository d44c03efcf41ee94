package interfaces

import (
	"context"

	"github.com/docpilot/docpilot/internal/models"
)

// Fetcher retrieves a page over HTTP and returns its main content as
// markdown. Implementations apply their own per-fetch timeout.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.FetchedPage, error)
}
