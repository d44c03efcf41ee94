// -----------------------------------------------------------------------
// Link Scorer - Query relevance scoring for fallback link selection
// -----------------------------------------------------------------------

package crawler

import (
	"sort"
	"strings"

	"github.com/docpilot/docpilot/internal/models"
)

// Scoring weights. Anchor text is the strongest relevance signal, the
// surrounding context the weakest.
const (
	anchorWeight  = 3
	contextWeight = 1
	keywordBonus  = 2
)

// docKeywords mark links that typically lead to documentation content
// worth following even on partial query overlap.
var docKeywords = map[string]bool{
	"setup":         true,
	"install":       true,
	"guide":         true,
	"tutorial":      true,
	"getting":       true,
	"started":       true,
	"development":   true,
	"environment":   true,
	"configuration": true,
	"wsl":           true,
	"windows":       true,
	"linux":         true,
	"mac":           true,
	"docker":        true,
	"vagrant":       true,
	"prerequisites": true,
}

// ScoreLinks scores each link against the query and returns those with a
// positive score, sorted descending. Zero-score links are discarded so
// the fallback never fetches pages with no query relevance at all.
func ScoreLinks(links []models.Link, query string) []models.Link {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var scored []models.Link
	for _, link := range links {
		link.Score = scoreLink(link, queryTokens)
		if link.Score > 0 {
			scored = append(scored, link)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// scoreLink computes token overlap between the query and the link's
// anchor and context. Query tokens that are documentation keywords and
// appear in the link earn an extra bonus.
func scoreLink(link models.Link, queryTokens map[string]bool) int {
	anchorTokens := tokenize(link.Anchor)
	contextTokens := tokenize(link.Context)

	score := 0
	for token := range queryTokens {
		if anchorTokens[token] {
			score += anchorWeight
		}
		if contextTokens[token] {
			score += contextWeight
		}
		if docKeywords[token] && (anchorTokens[token] || contextTokens[token]) {
			score += keywordBonus
		}
	}

	return score
}

// tokenize lowercases and splits text into a word set, trimming common
// punctuation.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;!?\"'()[]")
		if len(word) > 1 {
			tokens[word] = true
		}
	}
	return tokens
}
