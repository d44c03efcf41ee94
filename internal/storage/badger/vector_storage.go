package badger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
)

// VectorStorage implements the VectorStorage interface for Badger.
// Similarity search is a cosine scan over the namespace partition, which
// stays fast at per-page scale (tens of sections per namespace).
type VectorStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVectorStorage creates a new VectorStorage instance
func NewVectorStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VectorStorage {
	return &VectorStorage{
		db:     db,
		logger: logger,
	}
}

func (s *VectorStorage) Upsert(ctx context.Context, records []*models.EmbeddingRecord) error {
	now := time.Now()
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("embedding record ID is required")
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if err := s.db.Store().Upsert(rec.ID, rec); err != nil {
			return fmt.Errorf("failed to upsert embedding record %s: %w", rec.ID, err)
		}
	}

	s.logger.Debug().
		Int("records", len(records)).
		Msg("Embedding records upserted")

	return nil
}

func (s *VectorStorage) Query(ctx context.Context, namespace string, role models.EmbeddingRole, vector []float32, topK int, minScore float64) ([]*models.RetrievedSection, error) {
	var records []models.EmbeddingRecord
	err := s.db.Store().Find(&records, badgerhold.Where("Namespace").Eq(namespace).And("Role").Eq(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding records: %w", err)
	}

	results := make([]*models.RetrievedSection, 0, len(records))
	for i := range records {
		rec := &records[i]
		score := cosineSimilarity(vector, rec.Vector)
		if score < minScore {
			continue
		}
		results = append(results, &models.RetrievedSection{
			SectionID: rec.SectionID,
			PageURL:   rec.PageURL,
			Heading:   rec.Heading,
			Text:      rec.Text,
			Score:     score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func (s *VectorStorage) DeleteNamespace(ctx context.Context, namespace string) error {
	err := s.db.Store().DeleteMatching(&models.EmbeddingRecord{}, badgerhold.Where("Namespace").Eq(namespace))
	if err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	return nil
}

func (s *VectorStorage) Count(ctx context.Context, namespace string, role models.EmbeddingRole) (int, error) {
	count, err := s.db.Store().Count(&models.EmbeddingRecord{}, badgerhold.Where("Namespace").Eq(namespace).And("Role").Eq(role))
	if err != nil {
		return 0, fmt.Errorf("failed to count embedding records: %w", err)
	}
	return int(count), nil
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// 0 when either vector is zero or dimensions mismatch.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
