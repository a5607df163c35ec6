package models

import "time"

const (
	// MemoryKindDocumentChunk marks records created on ingestion events
	MemoryKindDocumentChunk = "document_chunk"
	// MemoryKindUserInteraction marks records created on completed answers
	MemoryKindUserInteraction = "user_interaction"
)

// MemoryRecord is one entry in a user's append-only memory log. Records are
// never mutated after creation; eviction by age is the only removal path.
type MemoryRecord struct {
	ID        string                 `json:"id" badgerhold:"key"`
	UserID    string                 `json:"user_id" badgerhold:"index"`
	Kind      string                 `json:"kind" badgerhold:"index"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// MemoryContext is the joined snapshot of the three memory fetches used to
// enrich one answer. Slices may be empty but are never nil after assembly.
type MemoryContext struct {
	Conversation     []*MemoryRecord `json:"conversation"`
	RecentDocuments  []*MemoryRecord `json:"recent_documents"`
	RelevantMemories []*MemoryRecord `json:"relevant_memories"`
}

// TotalItems returns the number of records across all three categories.
func (m *MemoryContext) TotalItems() int {
	if m == nil {
		return 0
	}
	return len(m.Conversation) + len(m.RecentDocuments) + len(m.RelevantMemories)
}
