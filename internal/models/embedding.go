package models

import "time"

// EmbeddingRole distinguishes what text a vector was computed from.
// Source vectors embed raw section content; summary vectors embed the
// generated summaries. Searches never mix roles.
type EmbeddingRole string

const (
	RoleSource  EmbeddingRole = "source"
	RoleSummary EmbeddingRole = "summary"
)

// EmbeddingRecord is one stored vector with its retrieval payload.
type EmbeddingRecord struct {
	ID        string        `json:"id" badgerhold:"key"` // Deterministic: derived from (url, section, role)
	Namespace string        `json:"namespace" badgerhold:"index"`
	PageURL   string        `json:"page_url"`
	SectionID string        `json:"section_id"`
	Role      EmbeddingRole `json:"role"`
	Heading   string        `json:"heading"`
	Text      string        `json:"text"` // Role-appropriate payload (content or summary)
	Vector    []float32     `json:"vector"`
	CreatedAt time.Time     `json:"created_at"`
}

// RetrievedSection is a search hit with its similarity score.
type RetrievedSection struct {
	SectionID string  `json:"section_id"`
	PageURL   string  `json:"page_url"`
	Heading   string  `json:"heading"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}
