package interfaces

import "context"

// ScorePair is one (query, candidate) pair submitted for relevance scoring.
type ScorePair struct {
	Query     string `json:"query"`
	Candidate string `json:"candidate"`
}

// RelevanceScorer scores (query, candidate) pairs in [0,1].
// The scorer is deliberately abstract: the current implementation is a text
// classifier repurposed for relevance, and it should be replaceable by a
// purpose-built cross-encoder without touching the pipeline.
type RelevanceScorer interface {
	// ScoreBatch returns one score per pair, aligned by index. A failed call
	// returns an error wrapping ErrClassifierUnavailable; callers degrade to
	// similarity ordering rather than failing the request.
	ScoreBatch(ctx context.Context, pairs []ScorePair) ([]float64, error)
}
