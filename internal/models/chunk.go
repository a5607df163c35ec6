package models

import "time"

// Chunk represents a fragment of an ingested document stored for retrieval.
// Chunks are immutable once stored; identity for deduplication purposes is
// the pair (UserID, exact text content).
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata carries provenance for a chunk. SourceID is the citation
// label shown to users (file name, URL host, etc.).
type ChunkMetadata struct {
	SourceID   string    `json:"source_id"`
	UserID     string    `json:"user_id"`
	PageNumber int       `json:"page_number,omitempty"`
	URL        string    `json:"url,omitempty"`
	CrawlDepth int       `json:"crawl_depth,omitempty"`
	InsertedAt time.Time `json:"inserted_at"`
}

// ScoredChunk is a Chunk plus retrieval scores. Similarity comes from the
// vector index (cosine, [0,1]); Relevance is assigned by the reranker and is
// zero until reranking has run.
type ScoredChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
	Relevance  float64 `json:"relevance,omitempty"`
}

// Source returns the citation source for a chunk, or "unknown" when the
// chunk carries no provenance.
func (c *Chunk) Source() string {
	if c.Metadata.SourceID != "" {
		return c.Metadata.SourceID
	}
	return "unknown"
}
