package common

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewRunID generates a unique pipeline run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// PageNamespace derives the stable vector namespace for a page URL.
// The same URL always maps to the same namespace.
func PageNamespace(pageURL string) string {
	return md5Hex(pageURL)[:16]
}

// SectionID derives a stable section identifier from the page URL, the
// section's position, and its heading. Re-segmenting identical content
// yields identical IDs.
func SectionID(pageURL string, index int, heading string) string {
	return md5Hex(fmt.Sprintf("%s:section:%d:%s", pageURL, index, heading))[:12]
}

// VectorID derives a deterministic vector identifier from the page URL,
// section ID, and embedding role. Re-indexing overwrites rather than
// duplicates.
func VectorID(pageURL, sectionID, role string) string {
	return md5Hex(fmt.Sprintf("%s:%s:%s", pageURL, sectionID, role))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
