package interfaces

import (
	"context"
	"time"

	"github.com/docuchat/docuchat/internal/models"
)

// MemoryService is the per-user append-only interaction and ingestion log.
// Memory is an enrichment, not a dependency: every operation is best-effort
// and degrades to zero results on failure instead of propagating errors to
// the answer pipeline. Per-user isolation is mandatory.
type MemoryService interface {
	// AppendInteraction stores a user_interaction record for a completed answer
	AppendInteraction(ctx context.Context, userID, query, answer string, metadata map[string]interface{}) error

	// AppendChunks stores one document_chunk record per ingested chunk
	AppendChunks(ctx context.Context, userID string, chunks []models.Chunk, metadata map[string]interface{}) error

	// RecentDocuments returns document_chunk records newer than the window,
	// newest first
	RecentDocuments(ctx context.Context, userID string, window time.Duration) []*models.MemoryRecord

	// ConversationContext returns the most recent user_interaction records,
	// newest first, bounded by limit
	ConversationContext(ctx context.Context, userID string, limit int) []*models.MemoryRecord

	// RelevantMemories returns records matching the query across all kinds,
	// most relevant first, bounded by limit
	RelevantMemories(ctx context.Context, userID, query string, limit int) []*models.MemoryRecord
}

// MemoryStorage is the persistence backend behind MemoryService. Backends
// (badger, in-memory) are swapped by configuration; the service layer owns
// the best-effort semantics, the backend just stores and queries.
type MemoryStorage interface {
	// SaveRecord persists one record
	SaveRecord(rec *models.MemoryRecord) error

	// RecordsByKindSince returns a user's records of the given kind with
	// Timestamp >= since, newest first
	RecordsByKindSince(userID, kind string, since time.Time) ([]*models.MemoryRecord, error)

	// RecentByKind returns a user's most recent records of the given kind,
	// newest first, bounded by limit
	RecentByKind(userID, kind string, limit int) ([]*models.MemoryRecord, error)

	// AllForUser returns every record for a user, newest first
	AllForUser(userID string) ([]*models.MemoryRecord, error)

	// DeleteOlderThan removes records older than the cutoff across all
	// users, returning the number deleted
	DeleteOlderThan(cutoff time.Time) (int, error)

	// Close releases backend resources
	Close() error
}
