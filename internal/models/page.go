package models

import "time"

// PageType classifies the kind of page being summarized. The type steers
// prompt wording so API references and blog posts are summarized differently.
type PageType string

const (
	PageTypeDocs    PageType = "docs"
	PageTypeBlog    PageType = "blog"
	PageTypeAPI     PageType = "api"
	PageTypeReadme  PageType = "readme"
	PageTypeUnknown PageType = "unknown"
)

// Page is a single document moving through the summarization pipeline.
// ID is the stable namespace hash derived from the URL.
type Page struct {
	ID        string    `json:"id" badgerhold:"key"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	PageType  PageType  `json:"page_type"`
	Content   string    `json:"content"` // Markdown (or plain text) body
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Section is one contiguous region of a page under a single heading.
type Section struct {
	ID         string `json:"id"`
	Heading    string `json:"heading"`
	Content    string `json:"content"`
	Level      int    `json:"level"` // Heading level 1-3, 0 for synthetic sections
	Index      int    `json:"index"` // Position within the page, document order
	CharCount  int    `json:"char_count"`
	TokenCount int    `json:"token_count"`
}

// Chunk is a sentence-aligned slice of a large section.
type Chunk struct {
	ParentSectionID string `json:"parent_section_id"`
	Index           int    `json:"index"`
	Text            string `json:"text"`
	TokenCount      int    `json:"token_count"`
}

// SectionSummary pairs a section with its generated summary, preserving
// document order.
type SectionSummary struct {
	SectionID string `json:"section_id"`
	Heading   string `json:"heading"`
	Summary   string `json:"summary"`
	Failed    bool   `json:"failed"` // True when the summary is an error placeholder
}

// PageDigest is the final output of a summarization run: per-section
// summaries in document order plus the synthesized page summary.
type PageDigest struct {
	PageID           string           `json:"page_id"`
	URL              string           `json:"url"`
	Title            string           `json:"title"`
	PageType         PageType         `json:"page_type"`
	SectionSummaries []SectionSummary `json:"section_summaries"`
	Summary          string           `json:"summary"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// FetchedPage is the result of fetching a linked page during fallback.
type FetchedPage struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// IndexedPage identifies a page brought into the index by the link
// fallback.
type IndexedPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Link is a candidate outbound link discovered on a page.
type Link struct {
	URL     string `json:"url"`
	Anchor  string `json:"anchor"`
	Context string `json:"context"` // Text surrounding the link
	Score   int    `json:"score"`
}
