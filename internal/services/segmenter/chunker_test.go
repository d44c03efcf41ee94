package segmenter

import (
	"strings"
	"testing"

	"github.com/docpilot/docpilot/internal/common"
)

func newTestChunker() *Chunker {
	return NewChunker(testConfig(), common.GetLogger())
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			"punctuation boundaries",
			"First sentence. Second sentence! Third sentence? Fourth.",
			[]string{"First sentence.", "Second sentence!", "Third sentence?", "Fourth."},
		},
		{
			"newline boundaries without punctuation",
			"- install the binary\n- configure the path\n- run it",
			[]string{"- install the binary", "- configure the path", "- run it"},
		},
		{
			"decimal points not split",
			"Requires version 1.25 or later. Nothing else.",
			[]string{"Requires version 1.25 or later.", "Nothing else."},
		},
		{
			"empty input",
			"   ",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != len(tt.expected) {
				t.Fatalf("splitSentences() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSplit_RespectsTokenBudget(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkMaxTokens = 50

	// 20 sentences of 10 words each, roughly 13 tokens per sentence.
	sentence := strings.Repeat("word ", 9) + "end."
	content := strings.TrimSpace(strings.Repeat(sentence+" ", 20))

	chunks := NewChunker(cfg, common.GetLogger()).Split("sec1", content)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d carries index %d", i, chunk.Index)
		}
		if chunk.ParentSectionID != "sec1" {
			t.Errorf("chunk %d carries parent section %q, want %q", i, chunk.ParentSectionID, "sec1")
		}
		if chunk.TokenCount > cfg.ChunkMaxTokens {
			t.Errorf("chunk %d token count %d exceeds budget %d", i, chunk.TokenCount, cfg.ChunkMaxTokens)
		}
	}
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkMaxTokens = 10

	long := strings.Repeat("word ", 49) + "end."
	chunks := NewChunker(cfg, common.GetLogger()).Split("sec1", "Short lead. "+long)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].TokenCount <= cfg.ChunkMaxTokens {
		t.Errorf("oversized sentence should exceed the budget, token count %d", chunks[1].TokenCount)
	}
	if !strings.HasSuffix(chunks[1].Text, "end.") {
		t.Errorf("oversized sentence was truncated: %q", chunks[1].Text)
	}
}

func TestSplit_NoSentenceDropped(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkMaxTokens = 30

	content := "Alpha one two three. Bravo four five six. Charlie seven eight nine. " +
		"Delta ten eleven twelve. Echo thirteen fourteen fifteen. Foxtrot sixteen seventeen."
	sentences := splitSentences(content)

	chunks := NewChunker(cfg, common.GetLogger()).Split("sec1", content)

	var rejoined []string
	for _, chunk := range chunks {
		rejoined = append(rejoined, splitSentences(chunk.Text)...)
	}
	if len(rejoined) != len(sentences) {
		t.Fatalf("sentence count changed: %d -> %d", len(sentences), len(rejoined))
	}
	for i := range sentences {
		if rejoined[i] != sentences[i] {
			t.Errorf("sentence %d = %q, want %q", i, rejoined[i], sentences[i])
		}
	}
}

func TestSplit_ChunkCapFoldsTail(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkMaxTokens = 15
	cfg.MaxChunksPerSection = 3

	sentence := strings.Repeat("word ", 9) + "end."
	content := strings.TrimSpace(strings.Repeat(sentence+" ", 12))

	chunks := NewChunker(cfg, common.GetLogger()).Split("sec1", content)

	if len(chunks) != 3 {
		t.Fatalf("expected chunk cap of 3, got %d", len(chunks))
	}
	// Remaining sentences fold into the last chunk instead of being dropped.
	total := 0
	for _, chunk := range chunks {
		total += len(splitSentences(chunk.Text))
	}
	if total != 12 {
		t.Errorf("expected all 12 sentences across chunks, got %d", total)
	}
}

func TestSplit_EmptyContent(t *testing.T) {
	chunks := newTestChunker().Split("sec1", "")
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty content, got %d", len(chunks))
	}
}
