package index

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
)

// Service implements the dual-role embedding index on top of the
// embedding provider and vector storage. Vector IDs are deterministic,
// so storing the same page twice overwrites rather than duplicates.
type Service struct {
	embedding interfaces.EmbeddingService
	vectors   interfaces.VectorStorage
	minScore  float64
	logger    arbor.ILogger
}

// NewService creates an index service. minScore applies to every search.
func NewService(embedding interfaces.EmbeddingService, vectors interfaces.VectorStorage, minScore float64, logger arbor.ILogger) *Service {
	return &Service{
		embedding: embedding,
		vectors:   vectors,
		minScore:  minScore,
		logger:    logger,
	}
}

// StoreSections embeds and stores sections under the given role. For
// RoleSummary the summaries map supplies the embedded text; sections
// without a summary entry are skipped. Failed placeholder summaries
// should not be passed in the map.
func (s *Service) StoreSections(ctx context.Context, pageURL string, sections []*models.Section, summaries map[string]string, role models.EmbeddingRole) error {
	if !s.embedding.IsAvailable(ctx) {
		return fmt.Errorf("%w: embedding service unavailable", models.ErrEmbeddingFailure)
	}

	// Select the role-appropriate payload per section.
	kept := make([]*models.Section, 0, len(sections))
	texts := make([]string, 0, len(sections))
	for _, section := range sections {
		payload := section.Content
		if role == models.RoleSummary {
			summary, ok := summaries[section.ID]
			if !ok || summary == "" {
				continue
			}
			payload = summary
		}
		if payload == "" {
			continue
		}
		kept = append(kept, section)
		texts = append(texts, payload)
	}
	if len(kept) == 0 {
		s.logger.Debug().
			Str("page_url", pageURL).
			Str("role", string(role)).
			Msg("No sections to index")
		return nil
	}

	vectors, err := s.embedding.EmbedPassages(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(kept) {
		return fmt.Errorf("%w: expected %d vectors, got %d", models.ErrEmbeddingFailure, len(kept), len(vectors))
	}

	namespace := common.PageNamespace(pageURL)
	now := time.Now()
	records := make([]*models.EmbeddingRecord, 0, len(kept))
	for i, section := range kept {
		records = append(records, &models.EmbeddingRecord{
			ID:        common.VectorID(pageURL, section.ID, string(role)),
			Namespace: namespace,
			PageURL:   pageURL,
			SectionID: section.ID,
			Role:      role,
			Heading:   section.Heading,
			Text:      texts[i],
			Vector:    vectors[i],
			CreatedAt: now,
		})
	}

	if err := s.vectors.Upsert(ctx, records); err != nil {
		return fmt.Errorf("storing embedding records failed: %w", err)
	}

	s.logger.Info().
		Str("page_url", pageURL).
		Str("role", string(role)).
		Int("record_count", len(records)).
		Msg("Sections indexed")

	return nil
}

// Search embeds the query and returns the topK most relevant sections of
// the given role, highest score first. Queries under one role never see
// vectors stored under the other.
func (s *Service) Search(ctx context.Context, pageURL string, query string, role models.EmbeddingRole, topK int) ([]*models.RetrievedSection, error) {
	vector, err := s.embedding.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailure, err)
	}

	results, err := s.vectors.Query(ctx, common.PageNamespace(pageURL), role, vector, topK, s.minScore)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	s.logger.Debug().
		Str("page_url", pageURL).
		Str("role", string(role)).
		Int("result_count", len(results)).
		Msg("Index searched")

	return results, nil
}

// Delete removes all index entries for the page across both roles.
func (s *Service) Delete(ctx context.Context, pageURL string) error {
	if err := s.vectors.DeleteNamespace(ctx, common.PageNamespace(pageURL)); err != nil {
		return fmt.Errorf("deleting page index failed: %w", err)
	}
	s.logger.Info().Str("page_url", pageURL).Msg("Page index deleted")
	return nil
}

// Exists reports whether the page has source entries indexed. Used to
// skip redundant re-embedding of already processed pages.
func (s *Service) Exists(ctx context.Context, pageURL string) (bool, error) {
	count, err := s.vectors.Count(ctx, common.PageNamespace(pageURL), models.RoleSource)
	if err != nil {
		return false, fmt.Errorf("counting page index entries failed: %w", err)
	}
	return count > 0, nil
}

// Reindex drops the page's existing entries and stores the sections
// fresh under RoleSource.
func (s *Service) Reindex(ctx context.Context, pageURL string, sections []*models.Section) error {
	if err := s.Delete(ctx, pageURL); err != nil {
		return err
	}
	return s.StoreSections(ctx, pageURL, sections, nil, models.RoleSource)
}
