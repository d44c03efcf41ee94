// -----------------------------------------------------------------------
// Link Extractor - Same-origin link discovery with anchor context capture
// -----------------------------------------------------------------------

package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
)

// contextRadius is how many characters of surrounding text are captured
// around each link for relevance scoring.
const contextRadius = 100

// markdownLinkPattern matches [anchor](target) style links.
var markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)

// LinkExtractor discovers outbound links in page content. Page content
// is markdown produced by the fetcher, but inline HTML anchors survive
// conversion, so both syntaxes are mined.
type LinkExtractor struct {
	logger arbor.ILogger
}

// NewLinkExtractor creates a new link extractor.
func NewLinkExtractor(logger arbor.ILogger) *LinkExtractor {
	return &LinkExtractor{
		logger: logger,
	}
}

// ExtractLinks returns all same-origin links found in the content, with
// anchor text and surrounding context, deduplicated by normalized URL.
func (le *LinkExtractor) ExtractLinks(content, sourceURL string) []models.Link {
	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		le.logger.Warn().Err(err).Str("source_url", sourceURL).Msg("Failed to parse source URL for link resolution")
		baseURL = nil
	}

	seen := make(map[string]bool)
	var links []models.Link

	add := func(href, anchor, context string) {
		if shouldSkipLink(href) {
			return
		}
		resolved := common.ResolveURL(href, baseURL)
		if resolved == "" {
			return
		}
		resolved = common.NormalizeURL(resolved)
		if resolved == common.NormalizeURL(sourceURL) {
			return
		}
		if !common.SameOrigin(resolved, sourceURL) {
			return
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, models.Link{
			URL:     resolved,
			Anchor:  strings.TrimSpace(anchor),
			Context: context,
		})
	}

	le.extractMarkdownLinks(content, add)
	le.extractHTMLLinks(content, add)

	le.logger.Debug().
		Str("source_url", sourceURL).
		Int("links_found", len(links)).
		Msg("Links extracted from page content")

	return links
}

// extractMarkdownLinks mines [anchor](target) links with context windows.
func (le *LinkExtractor) extractMarkdownLinks(content string, add func(href, anchor, context string)) {
	matches := markdownLinkPattern.FindAllStringSubmatchIndex(content, -1)
	for _, m := range matches {
		anchor := content[m[2]:m[3]]
		href := content[m[4]:m[5]]
		add(href, anchor, surroundingContext(content, m[0], m[1]))
	}
}

// extractHTMLLinks mines <a href> anchors that survived markdown
// conversion.
func (le *LinkExtractor) extractHTMLLinks(content string, add func(href, anchor, context string)) {
	if !strings.Contains(content, "<a") {
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		le.logger.Debug().Err(err).Msg("Content not parseable as HTML, skipping anchor extraction")
		return
	}

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		anchor := s.Text()
		// Parent text approximates the surrounding context.
		context := anchor
		if parent := s.Parent(); parent != nil {
			context = parent.Text()
		}
		if len(context) > 2*contextRadius {
			context = context[:2*contextRadius]
		}
		add(href, anchor, context)
	})
}

// surroundingContext returns the text window around a link occurrence.
func surroundingContext(content string, start, end int) string {
	from := start - contextRadius
	if from < 0 {
		from = 0
	}
	to := end + contextRadius
	if to > len(content) {
		to = len(content)
	}
	return content[from:to]
}

// shouldSkipLink filters non-navigational link targets.
func shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" {
		return true
	}
	if strings.HasPrefix(href, "#") {
		return true
	}
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
