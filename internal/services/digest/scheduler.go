package digest

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler refreshes the corpus digest on a cron schedule.
type Scheduler struct {
	service *Service
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewScheduler creates a digest refresh scheduler.
func NewScheduler(service *Service, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		service: service,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start begins scheduled digest refreshes and runs one immediately so a
// fresh start has a digest without waiting for the first tick.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = "@every 6h"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runRefresh()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Corpus digest scheduler started")

	go s.runRefresh()
	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Corpus digest scheduler stopped")
}

// RunNow triggers an immediate digest refresh.
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate digest refresh")
	go s.runRefresh()
}

func (s *Scheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.service.GenerateDigestDocument(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled digest refresh failed")
	}
}
