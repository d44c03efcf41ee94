package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
)

// PageStorage implements the PageStorage interface for Badger
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PageStorage) SavePage(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		return fmt.Errorf("page ID is required")
	}

	now := time.Now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now

	if err := s.db.Store().Upsert(page.ID, page); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

func (s *PageStorage) GetPage(ctx context.Context, pageID string) (*models.Page, error) {
	var page models.Page
	if err := s.db.Store().Get(pageID, &page); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *PageStorage) GetPageByURL(ctx context.Context, pageURL string) (*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("URL").Eq(pageURL)); err != nil {
		return nil, fmt.Errorf("failed to get page by URL: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return &pages[0], nil
}

func (s *PageStorage) DeletePage(ctx context.Context, pageID string) error {
	if err := s.db.Store().Delete(pageID, &models.Page{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return nil
}

func (s *PageStorage) ListPages(ctx context.Context) ([]*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}
