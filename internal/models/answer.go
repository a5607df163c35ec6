package models

// AnswerResult is the complete outcome of one query-answering transaction.
// It is always well-formed: subsystem failures degrade the answer text, they
// never surface as errors to the caller.
type AnswerResult struct {
	Answer  string        `json:"answer"`
	Context []ScoredChunk `json:"context"`
	Sources []string      `json:"sources"`
	Persona string        `json:"persona"`

	Diagnostics AnswerDiagnostics `json:"diagnostics"`
}

// AnswerDiagnostics records how an answer was produced, for observability
// and tests. It carries no user data beyond counts.
type AnswerDiagnostics struct {
	Greeting        bool   `json:"greeting"`
	HydeUsed        bool   `json:"hyde_used"`
	RerankApplied   bool   `json:"rerank_applied"`
	RawChannelHits  int    `json:"raw_channel_hits"`
	HydeChannelHits int    `json:"hyde_channel_hits"`
	FusedCount      int    `json:"fused_count"`
	MemoryItems     int    `json:"memory_items"`
	Model           string `json:"model,omitempty"`
}
