package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/services/classifier"
	"github.com/docpilot/docpilot/internal/services/crawler"
	"github.com/docpilot/docpilot/internal/services/digest"
	"github.com/docpilot/docpilot/internal/services/index"
	"github.com/docpilot/docpilot/internal/services/llm"
	"github.com/docpilot/docpilot/internal/services/pipeline"
	"github.com/docpilot/docpilot/internal/services/processor"
	"github.com/docpilot/docpilot/internal/services/retrieval"
	"github.com/docpilot/docpilot/internal/services/segmenter"
	"github.com/docpilot/docpilot/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB            *badger.BadgerDB
	PageStorage   interfaces.PageStorage
	StateStorage  interfaces.StateStorage
	VectorStorage interfaces.VectorStorage

	// LLM services. Gemini is always constructed because it serves
	// embeddings regardless of the generation provider.
	GeminiService     *llm.GeminiService
	GenerationService interfaces.GenerationService

	// Pipeline services
	Classifier   *classifier.Classifier
	Segmenter    *segmenter.Segmenter
	Chunker      *segmenter.Chunker
	Processor    *processor.Processor
	Synthesizer  *processor.Synthesizer
	IndexService interfaces.IndexService
	Retrieval    *retrieval.Engine
	Orchestrator *pipeline.Orchestrator

	// Link fallback
	LinkExtractor *crawler.LinkExtractor
	Fetcher       interfaces.Fetcher
	Fallback      *crawler.Fallback

	// Corpus digest
	DigestService   *digest.Service
	DigestScheduler *digest.Scheduler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.Digest.Enabled {
		if err := app.DigestScheduler.Start(cfg.Digest.Schedule); err != nil {
			return nil, fmt.Errorf("failed to start digest scheduler: %w", err)
		}
	}

	logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Bool("digest_enabled", cfg.Digest.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db

	a.PageStorage = badger.NewPageStorage(db, a.Logger)
	a.StateStorage = badger.NewStateStorage(db, a.Logger)
	a.VectorStorage = badger.NewVectorStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices wires the pipeline and its supporting services
func (a *App) initServices() error {
	gemini, err := llm.NewGeminiService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create Gemini service: %w", err)
	}
	a.GeminiService = gemini

	generation, err := llm.NewGenerationService(a.Config, gemini, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create generation service: %w", err)
	}
	a.GenerationService = generation

	a.Classifier = classifier.NewClassifier(generation, a.Logger)
	a.Segmenter = segmenter.NewSegmenter(a.Config.Pipeline, a.Logger)
	a.Chunker = segmenter.NewChunker(a.Config.Pipeline, a.Logger)
	a.Processor = processor.NewProcessor(a.Config.Pipeline, generation, a.Chunker, a.Logger)
	a.Synthesizer = processor.NewSynthesizer(generation, a.Logger)

	a.IndexService = index.NewService(gemini, a.VectorStorage, a.Config.Retrieval.MinScore, a.Logger)

	a.LinkExtractor = crawler.NewLinkExtractor(a.Logger)
	fetcher, err := crawler.NewFetcher(a.Config.Crawler, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	a.Fetcher = fetcher
	a.Fallback = crawler.NewFallback(a.Config.Crawler, a.LinkExtractor, a.Fetcher, a.Segmenter, a.IndexService, a.Logger)

	a.Retrieval = retrieval.NewEngine(a.Config.Retrieval, a.IndexService, a.Fallback, a.Logger)

	a.Orchestrator = pipeline.NewOrchestrator(
		a.Classifier,
		a.Segmenter,
		a.Processor,
		a.Synthesizer,
		a.IndexService,
		a.Retrieval,
		generation,
		a.StateStorage,
		a.PageStorage,
		a.Logger,
	)

	a.DigestService = digest.NewService(a.StateStorage, a.PageStorage, a.IndexService, a.Segmenter, a.Logger)
	a.DigestScheduler = digest.NewScheduler(a.DigestService, a.Logger)

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.DigestScheduler != nil && a.Config.Digest.Enabled {
		a.DigestScheduler.Stop()
	}

	if a.GenerationService != nil {
		if err := a.GenerationService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generation service")
		}
	}

	// The Gemini service may also be the generation service; its Close
	// is idempotent.
	if a.GeminiService != nil {
		if err := a.GeminiService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close Gemini service")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
