package common

import (
	"math"
	"strings"
)

// EstimateTokens approximates the token count of text using a word-based
// heuristic of roughly 1.3 tokens per whitespace-delimited word. Every
// component that reasons about token budgets uses this single estimator so
// that section sizing, chunk packing, and context assembly agree with each
// other.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 1
	}
	tokens := int(math.Round(float64(words) * 1.3))
	if tokens < 1 {
		return 1
	}
	return tokens
}
