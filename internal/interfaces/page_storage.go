package interfaces

import (
	"context"

	"github.com/docpilot/docpilot/internal/models"
)

// PageStorage persists page content and metadata. The stored markdown is
// what the link fallback mines for outbound links at answer time.
type PageStorage interface {
	// SavePage upserts a page
	SavePage(ctx context.Context, page *models.Page) error

	// GetPage returns a page by ID, nil if none exists
	GetPage(ctx context.Context, pageID string) (*models.Page, error)

	// GetPageByURL returns a page by its URL, nil if none exists
	GetPageByURL(ctx context.Context, pageURL string) (*models.Page, error)

	// DeletePage removes a page
	DeletePage(ctx context.Context, pageID string) error

	// ListPages returns all stored pages
	ListPages(ctx context.Context) ([]*models.Page, error)
}
