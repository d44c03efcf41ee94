package models

import "time"

// Stage identifies where a pipeline run is in its lifecycle. Stages
// advance strictly forward; the processing loop iterates sections rather
// than recursing.
type Stage string

const (
	StageClassify       Stage = "classify"
	StageSegment        Stage = "segment"
	StageProcessSection Stage = "process_section"
	StageIndexSource    Stage = "index_source"
	StageSynthesize     Stage = "synthesize"
	StageIndexSummary   Stage = "index_summary"
	StageComplete       Stage = "complete"
	StageFailed         Stage = "failed"
)

// PipelineState is the per-page checkpoint persisted after each stage.
// A crashed or cancelled run leaves behind its last completed stage.
type PipelineState struct {
	PageID           string           `json:"page_id" badgerhold:"key"`
	RunID            string           `json:"run_id"`
	URL              string           `json:"url"`
	Title            string           `json:"title"`
	PageType         PageType         `json:"page_type"`
	Stage            Stage            `json:"stage"`
	SectionCount     int              `json:"section_count"`
	CurrentSection   int              `json:"current_section"`
	SectionSummaries []SectionSummary `json:"section_summaries"`
	PageSummary      string           `json:"page_summary"`
	SourceIndexed    bool             `json:"source_indexed"`
	SummaryIndexed   bool             `json:"summary_indexed"`
	Error            string           `json:"error,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// StreamEventType enumerates the streaming event vocabulary emitted by
// streaming pipeline runs.
type StreamEventType string

const (
	EventStatus         StreamEventType = "status"
	EventSectionStart   StreamEventType = "section_start"
	EventToken          StreamEventType = "token"
	EventSectionEnd     StreamEventType = "section_end"
	EventSynthesisStart StreamEventType = "synthesis_start"
	EventSynthesisEnd   StreamEventType = "synthesis_end"
	EventAnswerStart    StreamEventType = "answer_start"
	EventAnswerEnd      StreamEventType = "answer_end"
	EventComplete       StreamEventType = "complete"
	EventError          StreamEventType = "error"
)

// StreamEvent is one event on a streaming run's event channel.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Message      string          `json:"message,omitempty"`
	SectionID    string          `json:"section_id,omitempty"`
	Heading      string          `json:"heading,omitempty"`
	SectionIndex int             `json:"section_index,omitempty"`
	SectionTotal int             `json:"section_total,omitempty"`
	Token        string          `json:"token,omitempty"`
	Summary      string          `json:"summary,omitempty"`
}
