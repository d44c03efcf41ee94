package interfaces

import (
	"context"

	"github.com/docpilot/docpilot/internal/models"
)

// VectorStorage persists embedding records and answers similarity
// queries. Records are partitioned by namespace (one per page) and role;
// a query only ever sees vectors from its own namespace and role.
type VectorStorage interface {
	// Upsert writes records, overwriting any with the same ID
	Upsert(ctx context.Context, records []*models.EmbeddingRecord) error

	// Query returns the topK most similar records within a namespace and
	// role, scored by cosine similarity, descending. Records below
	// minScore are excluded.
	Query(ctx context.Context, namespace string, role models.EmbeddingRole, vector []float32, topK int, minScore float64) ([]*models.RetrievedSection, error)

	// DeleteNamespace removes every record in the namespace, both roles
	DeleteNamespace(ctx context.Context, namespace string) error

	// Count returns the number of records for a namespace and role
	Count(ctx context.Context, namespace string, role models.EmbeddingRole) (int, error)
}
