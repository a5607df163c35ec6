package interfaces

import (
	"context"

	"github.com/docuchat/docuchat/internal/models"
)

// IndexPoint is one vector plus its chunk payload, as stored in the index.
type IndexPoint struct {
	ID     string
	Vector []float32
	Chunk  models.Chunk
}

// ScoredPoint is a search hit with cosine similarity in [0,1].
type ScoredPoint struct {
	Chunk      models.Chunk
	Similarity float64
}

// VectorIndex wraps the vector database. Every operation is scoped to a
// per-user namespace; cross-user leakage is a correctness violation, so
// the userID travels with every call and namespace resolution happens
// inside the implementation.
type VectorIndex interface {
	// EnsureNamespace creates the user's namespace if it does not exist.
	// Safe to call repeatedly; implementations cache known namespaces.
	EnsureNamespace(ctx context.Context, userID string) error

	// Upsert stores points into the user's namespace
	Upsert(ctx context.Context, userID string, points []IndexPoint) error

	// Search returns up to limit nearest neighbors from the user's
	// namespace, similarity-descending
	Search(ctx context.Context, userID string, vector []float32, limit int) ([]ScoredPoint, error)
}
