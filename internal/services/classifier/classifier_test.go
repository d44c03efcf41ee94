package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
)

type stubGeneration struct {
	response string
	err      error
}

func (s *stubGeneration) Generate(ctx context.Context, req interfaces.GenerationRequest) (string, error) {
	return s.response, s.err
}

func (s *stubGeneration) GenerateStream(ctx context.Context, req interfaces.GenerationRequest, emit interfaces.TokenFunc) (string, error) {
	return s.response, s.err
}

func (s *stubGeneration) HealthCheck(ctx context.Context) error { return nil }
func (s *stubGeneration) Close() error                          { return nil }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		expected models.PageType
	}{
		{"clean docs answer", "docs", nil, models.PageTypeDocs},
		{"uppercase with punctuation", "API.", nil, models.PageTypeAPI},
		{"answer in a sentence", "This page is a blog post.", nil, models.PageTypeBlog},
		{"readme", "readme", nil, models.PageTypeReadme},
		{"unrecognized word", "documentation-ish", nil, models.PageTypeUnknown},
		{"empty response", "", nil, models.PageTypeUnknown},
		{"generation error degrades", "", errors.New("quota exceeded"), models.PageTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&stubGeneration{response: tt.response, err: tt.err}, common.GetLogger())
			got := c.Classify(context.Background(), "Some Page", "some content")
			if got != tt.expected {
				t.Errorf("Classify() = %q, want %q", got, tt.expected)
			}
		})
	}
}
