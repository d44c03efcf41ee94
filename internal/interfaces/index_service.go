package interfaces

import (
	"context"

	"github.com/docpilot/docpilot/internal/models"
)

// IndexService maintains the dual-role embedding index for pages.
// Source entries embed raw section content for question answering;
// summary entries embed generated summaries for cross-page search.
type IndexService interface {
	// StoreSections embeds and stores sections under the given role.
	// For RoleSummary the summaries map supplies the text to embed,
	// keyed by section ID; sections without a summary are skipped.
	// Storing is idempotent: identical input overwrites in place.
	StoreSections(ctx context.Context, pageURL string, sections []*models.Section, summaries map[string]string, role models.EmbeddingRole) error

	// Search embeds the query and returns the topK most relevant stored
	// sections of the given role for the page, highest score first.
	Search(ctx context.Context, pageURL string, query string, role models.EmbeddingRole, topK int) ([]*models.RetrievedSection, error)

	// Delete removes all index entries for the page, both roles
	Delete(ctx context.Context, pageURL string) error

	// Exists reports whether the page has source entries indexed
	Exists(ctx context.Context, pageURL string) (bool, error)

	// Reindex deletes existing entries and stores sections fresh under
	// RoleSource
	Reindex(ctx context.Context, pageURL string, sections []*models.Section) error
}
