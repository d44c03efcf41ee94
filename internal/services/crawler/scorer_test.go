package crawler

import (
	"testing"

	"github.com/docpilot/docpilot/internal/models"
)

func TestScoreLinks_AnchorOutweighsContext(t *testing.T) {
	links := []models.Link{
		{URL: "a", Anchor: "unrelated words", Context: "how to deploy the service"},
		{URL: "b", Anchor: "deploy the service", Context: "unrelated words"},
	}

	scored := ScoreLinks(links, "deploy service")

	if len(scored) != 2 {
		t.Fatalf("expected both links scored, got %d", len(scored))
	}
	if scored[0].URL != "b" {
		t.Errorf("anchor match should rank first, got %q", scored[0].URL)
	}
	if scored[0].Score <= scored[1].Score {
		t.Errorf("scores not descending: %d, %d", scored[0].Score, scored[1].Score)
	}
}

func TestScoreLinks_ZeroScoreDiscarded(t *testing.T) {
	links := []models.Link{
		{URL: "a", Anchor: "pricing page", Context: "see our plans"},
	}

	if scored := ScoreLinks(links, "kubernetes deployment"); len(scored) != 0 {
		t.Errorf("expected zero-score link discarded, got %v", scored)
	}
}

func TestScoreLinks_DocKeywordBonus(t *testing.T) {
	links := []models.Link{
		{URL: "plain", Anchor: "commands usage", Context: ""},
		{URL: "keyworded", Anchor: "docker usage", Context: ""},
	}

	scored := ScoreLinks(links, "docker commands")

	if len(scored) != 2 {
		t.Fatalf("expected both links scored, got %d", len(scored))
	}
	// Each anchor matches one query token, but "docker" is a
	// documentation keyword and earns the bonus.
	if scored[0].URL != "keyworded" {
		t.Errorf("keyword bonus should rank first, got %q", scored[0].URL)
	}
}

func TestScoreLinks_EmptyQuery(t *testing.T) {
	links := []models.Link{{URL: "a", Anchor: "setup guide", Context: "context"}}

	if scored := ScoreLinks(links, "  "); scored != nil {
		t.Errorf("expected nil for empty query, got %v", scored)
	}
}
