package interfaces

import (
	"context"

	"github.com/docuchat/docuchat/internal/models"
)

// AnswerOptions tunes one query-answering transaction. Zero values fall
// back to configured defaults.
type AnswerOptions struct {
	// TopK is the number of chunks surfaced to generation (default 5)
	TopK int

	// UseMemory enables the conversational memory fetches (default true
	// at the service level; the pointer distinguishes "unset" from false)
	UseMemory *bool
}

// AnswerService is the single entry point exposed to callers (an HTTP
// layer, a CLI). The returned AnswerResult is always well-formed; partial
// subsystem failures degrade the answer rather than raising. A non-nil
// error means the request itself was malformed, never that a collaborator
// was down.
type AnswerService interface {
	// Answer runs one full retrieval-augmented answering transaction
	Answer(ctx context.Context, userID, query string, opts *AnswerOptions) (*models.AnswerResult, error)

	// IndexChunks embeds and stores chunks into the user's namespace and
	// records them in memory
	IndexChunks(ctx context.Context, userID string, chunks []models.Chunk, metadata map[string]interface{}) error
}
