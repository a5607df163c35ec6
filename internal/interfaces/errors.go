package interfaces

import "errors"

// Sentinel errors for subsystem outages. Each one marks a degradation
// path rather than a request failure: callers check with errors.Is and
// fall back instead of propagating.
var (
	// ErrEmbeddingUnavailable means no vector could be produced. For the
	// primary query vector the orchestrator answers with the persona's
	// apology reply; for the expansion vector it falls back to a second
	// raw-query search.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable means the completion model failed after
	// retries. The orchestrator substitutes the persona's apology reply.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrClassifierUnavailable means relevance scoring failed. Results
	// keep their similarity ordering instead of being reranked.
	ErrClassifierUnavailable = errors.New("relevance classifier unavailable")

	// ErrMemoryUnavailable means the memory backend failed. Reads return
	// empty context; writes are dropped silently.
	ErrMemoryUnavailable = errors.New("memory storage unavailable")
)
