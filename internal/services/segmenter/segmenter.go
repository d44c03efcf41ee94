package segmenter

import (
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
)

// Segmenter splits page markdown into heading-delimited sections.
// Sections carry deterministic IDs so re-segmenting the same page yields
// the same identifiers.
type Segmenter struct {
	config common.PipelineConfig
	logger arbor.ILogger
	md     goldmark.Markdown
}

// NewSegmenter creates a section segmenter.
func NewSegmenter(config common.PipelineConfig, logger arbor.ILogger) *Segmenter {
	return &Segmenter{
		config: config,
		logger: logger,
		md:     goldmark.New(),
	}
}

// headingMark records one H1-H3 heading's position in the source.
type headingMark struct {
	level int
	text  string
	start int // byte offset of the heading's line start
	end   int // byte offset just past the heading line
}

// Segment splits markdown into ordered sections. Content before the first
// heading becomes a synthetic "Introduction" section when large enough; a
// page with no headings at all becomes a single "Content" section. An
// empty page yields an empty list, which callers treat as nothing to
// summarize rather than an error.
func (s *Segmenter) Segment(pageURL, markdown string) []models.Section {
	source := []byte(markdown)
	if len(strings.TrimSpace(markdown)) == 0 {
		return []models.Section{}
	}

	marks := s.findHeadings(source)

	if len(marks) == 0 {
		content := strings.TrimSpace(markdown)
		return []models.Section{s.buildSection(pageURL, 0, "Content", 0, content)}
	}

	sections := make([]models.Section, 0, len(marks)+1)

	// Preamble before the first heading becomes an Introduction section
	// when it carries enough content to be worth summarizing.
	intro := strings.TrimSpace(string(source[:marks[0].start]))
	if len(intro) >= s.config.MinIntroChars {
		sections = append(sections, s.buildSection(pageURL, len(sections), "Introduction", 0, intro))
	}

	for i, mark := range marks {
		end := len(source)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		content := strings.TrimSpace(string(source[mark.end:end]))
		if len(content) < s.config.MinSectionChars {
			continue
		}
		sections = append(sections, s.buildSection(pageURL, len(sections), mark.text, mark.level, content))
	}

	if len(sections) > s.config.MaxSectionsPerPage {
		s.logger.Warn().
			Str("page_url", pageURL).
			Int("section_count", len(sections)).
			Int("max_sections", s.config.MaxSectionsPerPage).
			Msg("Page exceeds section cap, truncating tail")
		sections = sections[:s.config.MaxSectionsPerPage]
	}

	s.logger.Debug().
		Str("page_url", pageURL).
		Int("heading_count", len(marks)).
		Int("section_count", len(sections)).
		Msg("Page segmented")

	return sections
}

// findHeadings walks the markdown AST and records each H1-H3 heading with
// its span in the source, in document order.
func (s *Segmenter) findHeadings(source []byte) []headingMark {
	doc := s.md.Parser().Parse(text.NewReader(source))

	var marks []headingMark
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Level > 3 {
			return ast.WalkSkipChildren, nil
		}

		lines := heading.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		first := lines.At(0)
		last := lines.At(lines.Len() - 1)

		// Extend the span to full source lines so section content starts
		// cleanly after the heading's markup.
		start := first.Start
		for start > 0 && source[start-1] != '\n' {
			start--
		}
		end := last.Stop
		for end < len(source) && source[end] != '\n' {
			end++
		}
		if end < len(source) {
			end++
		}

		marks = append(marks, headingMark{
			level: heading.Level,
			text:  headingText(source, lines),
			start: start,
			end:   end,
		})
		return ast.WalkSkipChildren, nil
	})

	return marks
}

// headingText extracts the plain heading text from its source lines. The
// parser has already trimmed ATX markers and closing hash sequences.
func headingText(source []byte, lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}

func (s *Segmenter) buildSection(pageURL string, index int, heading string, level int, content string) models.Section {
	return models.Section{
		ID:         common.SectionID(pageURL, index, heading),
		Heading:    heading,
		Content:    content,
		Level:      level,
		Index:      index,
		CharCount:  len(content),
		TokenCount: common.EstimateTokens(content),
	}
}
