package models

import "errors"

// Failure sentinels for the pipeline. Section-level generation and
// embedding failures are soft: the run continues with placeholders or
// skipped indexing. Only a generation service that is unavailable
// outright aborts a run.
var (
	// ErrGenerationUnavailable means no generation provider could be
	// reached at all. Runs abort on this.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrRateLimited means the provider rejected a call for quota
	// reasons after retries were exhausted.
	ErrRateLimited = errors.New("generation rate limited")

	// ErrEmbeddingFailure means embedding vectors could not be produced.
	// Indexing is skipped but summaries are still returned.
	ErrEmbeddingFailure = errors.New("embedding generation failed")

	// ErrFetchFailure means a fallback page fetch failed. Failures are
	// isolated per link.
	ErrFetchFailure = errors.New("page fetch failed")

	// ErrPageNotIndexed means a query targeted a page with no stored
	// source vectors.
	ErrPageNotIndexed = errors.New("page not indexed")
)
