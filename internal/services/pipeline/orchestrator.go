package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
	"github.com/docpilot/docpilot/internal/services/classifier"
	"github.com/docpilot/docpilot/internal/services/llm"
	"github.com/docpilot/docpilot/internal/services/processor"
	"github.com/docpilot/docpilot/internal/services/retrieval"
	"github.com/docpilot/docpilot/internal/services/segmenter"
)

// Answer is the outcome of one question-answering run.
type Answer struct {
	Text     string                     `json:"text"`
	Sections []*models.RetrievedSection `json:"sections"`
	NewPages []models.IndexedPage       `json:"new_pages,omitempty"`
}

// noAnswerText is returned when retrieval, including fallback, finds
// nothing to ground an answer on.
const noAnswerText = "No relevant content was found to answer this question."

// Orchestrator drives the summarization and answering flows as ordered
// stages with a persisted checkpoint after each one. Runs for the same
// page serialize behind a per-page mutex; distinct pages run freely in
// parallel.
type Orchestrator struct {
	classifier  *classifier.Classifier
	segmenter   *segmenter.Segmenter
	processor   *processor.Processor
	synthesizer *processor.Synthesizer
	index       interfaces.IndexService
	retrieval   *retrieval.Engine
	generation  interfaces.GenerationService
	states      interfaces.StateStorage
	pages       interfaces.PageStorage
	logger      arbor.ILogger

	mu        sync.Mutex
	pageLocks map[string]*sync.Mutex
}

// NewOrchestrator wires the pipeline from its services.
func NewOrchestrator(
	cls *classifier.Classifier,
	seg *segmenter.Segmenter,
	proc *processor.Processor,
	synth *processor.Synthesizer,
	index interfaces.IndexService,
	engine *retrieval.Engine,
	generation interfaces.GenerationService,
	states interfaces.StateStorage,
	pages interfaces.PageStorage,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		classifier:  cls,
		segmenter:   seg,
		processor:   proc,
		synthesizer: synth,
		index:       index,
		retrieval:   engine,
		generation:  generation,
		states:      states,
		pages:       pages,
		logger:      logger,
		pageLocks:   make(map[string]*sync.Mutex),
	}
}

// pageLock returns the mutex serializing runs for one page.
func (o *Orchestrator) pageLock(pageID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.pageLocks[pageID]
	if !ok {
		lock = &sync.Mutex{}
		o.pageLocks[pageID] = lock
	}
	return lock
}

// Summarize runs the full summarization flow for a page and returns its
// digest.
func (o *Orchestrator) Summarize(ctx context.Context, pageURL, title, markdown string) (*models.PageDigest, error) {
	return o.run(ctx, pageURL, title, markdown, nil)
}

// SummarizeStream runs the summarization flow, emitting progress and
// token events on the returned channel. The channel closes when the run
// finishes; cancellation via ctx stops generation and discards the
// partially accumulated summary.
func (o *Orchestrator) SummarizeStream(ctx context.Context, pageURL, title, markdown string) <-chan models.StreamEvent {
	events := make(chan models.StreamEvent, 64)
	go func() {
		defer close(events)
		emit := func(event models.StreamEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		}

		digest, err := o.run(ctx, pageURL, title, markdown, emit)
		if err != nil {
			emit(models.StreamEvent{Type: models.EventError, Message: err.Error()})
			return
		}
		emit(models.StreamEvent{Type: models.EventComplete, Summary: digest.Summary})
	}()
	return events
}

// run executes the stage sequence. emit is nil for non-streaming runs.
func (o *Orchestrator) run(ctx context.Context, pageURL, title, markdown string, emit func(models.StreamEvent)) (*models.PageDigest, error) {
	pageID := common.PageNamespace(pageURL)

	lock := o.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	status := func(message string) {
		if emit != nil {
			emit(models.StreamEvent{Type: models.EventStatus, Message: message})
		}
	}

	state := &models.PipelineState{
		PageID:    pageID,
		RunID:     common.NewRunID(),
		URL:       pageURL,
		Title:     title,
		Stage:     models.StageClassify,
		StartedAt: time.Now(),
	}
	if err := o.checkpoint(ctx, state); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("run_id", state.RunID).
		Str("page_url", pageURL).
		Msg("Pipeline run started")

	// Classify. Failures inside degrade to the unknown page type.
	status("Classifying page")
	state.PageType = o.classifier.Classify(ctx, title, markdown)

	if err := o.savePage(ctx, state, markdown); err != nil {
		return nil, o.fail(ctx, state, err)
	}

	// Segment.
	state.Stage = models.StageSegment
	if err := o.checkpoint(ctx, state); err != nil {
		return nil, err
	}
	status("Segmenting page")
	sections := o.segmenter.Segment(pageURL, markdown)
	state.SectionCount = len(sections)

	if len(sections) == 0 {
		// Nothing to summarize is a completed run, not an error.
		state.Stage = models.StageComplete
		if err := o.checkpoint(ctx, state); err != nil {
			return nil, err
		}
		return o.digest(state), nil
	}

	// Process each section in order, checkpointing after each.
	state.Stage = models.StageProcessSection
	if err := o.checkpoint(ctx, state); err != nil {
		return nil, err
	}
	for i, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, o.fail(ctx, state, err)
		}

		if emit != nil {
			emit(models.StreamEvent{
				Type:         models.EventSectionStart,
				SectionID:    section.ID,
				Heading:      section.Heading,
				SectionIndex: i,
				SectionTotal: len(sections),
			})
		}

		summary, err := o.processSection(ctx, state.PageType, section, emit)
		if err != nil {
			// Cancelled mid-section: the partial summary is discarded.
			return nil, o.fail(ctx, state, err)
		}

		state.SectionSummaries = append(state.SectionSummaries, summary)
		state.CurrentSection = i + 1
		if err := o.checkpoint(ctx, state); err != nil {
			return nil, err
		}

		if emit != nil {
			emit(models.StreamEvent{
				Type:         models.EventSectionEnd,
				SectionID:    section.ID,
				Heading:      section.Heading,
				SectionIndex: i,
				SectionTotal: len(sections),
				Summary:      summary.Summary,
			})
		}
	}

	// Index source vectors. Embedding failures are soft: the run still
	// produces summaries, it just can't be queried yet.
	state.Stage = models.StageIndexSource
	if err := o.checkpoint(ctx, state); err != nil {
		return nil, err
	}
	status("Indexing page content")
	state.SourceIndexed = o.indexSource(ctx, pageURL, sections)

	// Synthesize the page summary.
	state.Stage = models.StageSynthesize
	if err := o.checkpoint(ctx, state); err != nil {
		return nil, err
	}
	if emit != nil {
		emit(models.StreamEvent{Type: models.EventSynthesisStart})
	}
	pageSummary, err := o.synthesize(ctx, state, emit)
	if err != nil {
		return nil, o.fail(ctx, state, err)
	}
	state.PageSummary = pageSummary
	if emit != nil {
		emit(models.StreamEvent{Type: models.EventSynthesisEnd, Summary: pageSummary})
	}

	// Index summary vectors. Also soft.
	state.Stage = models.StageIndexSummary
	if err := o.checkpoint(ctx, state); err != nil {
		return nil, err
	}
	state.SummaryIndexed = o.indexSummaries(ctx, pageURL, sections, state.SectionSummaries)

	state.Stage = models.StageComplete
	if err := o.checkpoint(ctx, state); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("run_id", state.RunID).
		Str("page_url", pageURL).
		Int("section_count", state.SectionCount).
		Bool("source_indexed", state.SourceIndexed).
		Bool("summary_indexed", state.SummaryIndexed).
		Msg("Pipeline run complete")

	return o.digest(state), nil
}

// processSection runs one section through the adaptive processor,
// streaming tokens when emitting.
func (o *Orchestrator) processSection(ctx context.Context, pageType models.PageType, section models.Section, emit func(models.StreamEvent)) (models.SectionSummary, error) {
	if emit == nil {
		return o.processor.Summarize(ctx, pageType, section), nil
	}
	return o.processor.SummarizeStream(ctx, pageType, section, func(token string) error {
		emit(models.StreamEvent{Type: models.EventToken, SectionID: section.ID, Token: token})
		return ctx.Err()
	})
}

// synthesize produces the page summary, streaming when emitting. Only
// successful section summaries feed synthesis; placeholders would
// pollute the digest.
func (o *Orchestrator) synthesize(ctx context.Context, state *models.PipelineState, emit func(models.StreamEvent)) (string, error) {
	usable := make([]models.SectionSummary, 0, len(state.SectionSummaries))
	for _, summary := range state.SectionSummaries {
		if !summary.Failed {
			usable = append(usable, summary)
		}
	}
	if len(usable) == 0 {
		usable = state.SectionSummaries
	}

	if emit == nil {
		return o.synthesizer.Synthesize(ctx, state.PageType, state.Title, usable), nil
	}
	return o.synthesizer.SynthesizeStream(ctx, state.PageType, state.Title, usable, func(token string) error {
		emit(models.StreamEvent{Type: models.EventToken, Token: token})
		return ctx.Err()
	})
}

// indexSource stores section content vectors, reusing existing entries
// when the page is already indexed.
func (o *Orchestrator) indexSource(ctx context.Context, pageURL string, sections []models.Section) bool {
	exists, err := o.index.Exists(ctx, pageURL)
	if err == nil && exists {
		o.logger.Debug().Str("page_url", pageURL).Msg("Page already indexed, skipping re-embedding")
		return true
	}

	if err := o.index.StoreSections(ctx, pageURL, sectionPtrs(sections), nil, models.RoleSource); err != nil {
		o.logger.Warn().
			Err(err).
			Str("page_url", pageURL).
			Msg("Source indexing failed, summaries still available")
		return false
	}
	return true
}

// indexSummaries stores summary vectors for sections that summarized
// successfully.
func (o *Orchestrator) indexSummaries(ctx context.Context, pageURL string, sections []models.Section, summaries []models.SectionSummary) bool {
	byID := make(map[string]string, len(summaries))
	for _, summary := range summaries {
		if !summary.Failed {
			byID[summary.SectionID] = summary.Summary
		}
	}
	if len(byID) == 0 {
		return false
	}

	if err := o.index.StoreSections(ctx, pageURL, sectionPtrs(sections), byID, models.RoleSummary); err != nil {
		o.logger.Warn().
			Err(err).
			Str("page_url", pageURL).
			Msg("Summary indexing failed")
		return false
	}
	return true
}

// savePage persists the page content for later answering runs.
func (o *Orchestrator) savePage(ctx context.Context, state *models.PipelineState, markdown string) error {
	return o.pages.SavePage(ctx, &models.Page{
		ID:       state.PageID,
		URL:      state.URL,
		Title:    state.Title,
		PageType: state.PageType,
		Content:  markdown,
	})
}

// checkpoint persists the run state after a stage transition.
func (o *Orchestrator) checkpoint(ctx context.Context, state *models.PipelineState) error {
	if err := o.states.SaveState(ctx, state); err != nil {
		return fmt.Errorf("checkpointing stage %s failed: %w", state.Stage, err)
	}
	return nil
}

// fail records the failure on the checkpoint and returns the error.
func (o *Orchestrator) fail(ctx context.Context, state *models.PipelineState, err error) error {
	state.Stage = models.StageFailed
	state.Error = err.Error()
	if saveErr := o.states.SaveState(context.WithoutCancel(ctx), state); saveErr != nil {
		o.logger.Error().Err(saveErr).Str("page_id", state.PageID).Msg("Failed to persist failure state")
	}
	return err
}

// digest builds the run's final output from its state.
func (o *Orchestrator) digest(state *models.PipelineState) *models.PageDigest {
	return &models.PageDigest{
		PageID:           state.PageID,
		URL:              state.URL,
		Title:            state.Title,
		PageType:         state.PageType,
		SectionSummaries: state.SectionSummaries,
		Summary:          state.PageSummary,
		GeneratedAt:      time.Now(),
	}
}

// Ask answers a question against a previously summarized page. Retrieval
// grounds the answer in source-role vectors; when the page itself has
// nothing relevant, the link fallback may pull in related pages first.
func (o *Orchestrator) Ask(ctx context.Context, pageURL, query string) (*Answer, error) {
	return o.answer(ctx, pageURL, query, nil)
}

// AskStream is the streaming variant of Ask, emitting answer events on
// the returned channel.
func (o *Orchestrator) AskStream(ctx context.Context, pageURL, query string) <-chan models.StreamEvent {
	events := make(chan models.StreamEvent, 64)
	go func() {
		defer close(events)
		emit := func(event models.StreamEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		}

		emit(models.StreamEvent{Type: models.EventAnswerStart})
		answer, err := o.answer(ctx, pageURL, query, func(token string) error {
			emit(models.StreamEvent{Type: models.EventToken, Token: token})
			return ctx.Err()
		})
		if err != nil {
			emit(models.StreamEvent{Type: models.EventError, Message: err.Error()})
			return
		}
		emit(models.StreamEvent{Type: models.EventAnswerEnd, Summary: answer.Text})
	}()
	return events
}

func (o *Orchestrator) answer(ctx context.Context, pageURL, query string, emitToken interfaces.TokenFunc) (*Answer, error) {
	page, err := o.pages.GetPage(ctx, common.PageNamespace(pageURL))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrPageNotIndexed, pageURL)
	}

	result, err := o.retrieval.Retrieve(ctx, pageURL, query, page.Content)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return &Answer{Text: noAnswerText, NewPages: result.NewPages}, nil
	}

	req := llm.AnswerRequest(result.Context, query)
	var text string
	if emitToken == nil {
		text, err = o.generation.Generate(ctx, req)
	} else {
		text, err = o.generation.GenerateStream(ctx, req, emitToken)
	}
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &Answer{
		Text:     text,
		Sections: result.Sections,
		NewPages: result.NewPages,
	}, nil
}

// IndexForChat makes a page queryable without running summarization:
// the page is stored, segmented, and source-indexed unless it already
// is.
func (o *Orchestrator) IndexForChat(ctx context.Context, pageURL, title, markdown string) error {
	pageID := common.PageNamespace(pageURL)
	lock := o.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.pages.SavePage(ctx, &models.Page{
		ID:      pageID,
		URL:     pageURL,
		Title:   title,
		Content: markdown,
	}); err != nil {
		return err
	}

	exists, err := o.index.Exists(ctx, pageURL)
	if err == nil && exists {
		return nil
	}

	sections := o.segmenter.Segment(pageURL, markdown)
	if len(sections) == 0 {
		return nil
	}
	return o.index.StoreSections(ctx, pageURL, sectionPtrs(sections), nil, models.RoleSource)
}

// Clear removes everything stored for a page: checkpoint, content, and
// index entries.
func (o *Orchestrator) Clear(ctx context.Context, pageURL string) error {
	pageID := common.PageNamespace(pageURL)
	lock := o.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.index.Delete(ctx, pageURL); err != nil {
		return err
	}
	if err := o.pages.DeletePage(ctx, pageID); err != nil {
		return err
	}
	return o.states.DeleteState(ctx, pageID)
}

func sectionPtrs(sections []models.Section) []*models.Section {
	ptrs := make([]*models.Section, 0, len(sections))
	for i := range sections {
		ptrs = append(ptrs, &sections[i])
	}
	return ptrs
}
