package common

import (
	"strings"
	"testing"
)

func TestPageNamespace(t *testing.T) {
	ns1 := PageNamespace("https://example.com/docs/setup")
	ns2 := PageNamespace("https://example.com/docs/setup")
	ns3 := PageNamespace("https://example.com/docs/other")

	if ns1 != ns2 {
		t.Errorf("expected identical namespaces for same URL, got %s and %s", ns1, ns2)
	}
	if ns1 == ns3 {
		t.Error("expected different namespaces for different URLs")
	}
	if len(ns1) != 16 {
		t.Errorf("expected 16 char namespace, got %d", len(ns1))
	}
}

func TestSectionID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		index    int
		heading  string
		otherURL string
		otherIdx int
		otherHdg string
		same     bool
	}{
		{
			name: "identical inputs",
			url:  "https://example.com/page", index: 0, heading: "Setup",
			otherURL: "https://example.com/page", otherIdx: 0, otherHdg: "Setup",
			same: true,
		},
		{
			name: "different index",
			url:  "https://example.com/page", index: 0, heading: "Setup",
			otherURL: "https://example.com/page", otherIdx: 1, otherHdg: "Setup",
			same: false,
		},
		{
			name: "different heading",
			url:  "https://example.com/page", index: 0, heading: "Setup",
			otherURL: "https://example.com/page", otherIdx: 0, otherHdg: "Install",
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := SectionID(tt.url, tt.index, tt.heading)
			b := SectionID(tt.otherURL, tt.otherIdx, tt.otherHdg)
			if (a == b) != tt.same {
				t.Errorf("SectionID equality = %v, want %v (%s vs %s)", a == b, tt.same, a, b)
			}
			if len(a) != 12 {
				t.Errorf("expected 12 char section ID, got %d", len(a))
			}
		})
	}
}

func TestVectorID_RoleIsolation(t *testing.T) {
	source := VectorID("https://example.com/page", "abc123def456", "source")
	summary := VectorID("https://example.com/page", "abc123def456", "summary")

	if source == summary {
		t.Error("source and summary vector IDs must differ for the same section")
	}
	if source != VectorID("https://example.com/page", "abc123def456", "source") {
		t.Error("vector ID must be deterministic")
	}
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	if !strings.HasPrefix(id, "run_") {
		t.Errorf("expected run_ prefix, got %s", id)
	}
	if id == NewRunID() {
		t.Error("expected unique run IDs")
	}
}
