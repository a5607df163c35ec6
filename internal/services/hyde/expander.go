package hyde

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
)

// hydePrompt asks the model to write the document that would answer the
// query. Embedding that passage lands nearer to real document chunks than
// the terse query does.
const hydePrompt = `Given the following question, generate a hypothetical document that would contain the answer. Write it as if you are the document itself, using first person or neutral tone. Include specific details, dates, numbers, and facts that would be relevant to answering this question.

Question: %s

Hypothetical Document:`

// Expansion is the outcome of one query expansion: the generated passage
// and its embedding vector.
type Expansion struct {
	Document  string
	Embedding []float32
}

// Expander produces a second search vector by generating a hypothetical
// answer passage and embedding it. Expansion is strictly best-effort:
// any failure returns nil and the retriever continues single-channel.
type Expander struct {
	generator  interfaces.GenerationService
	embeddings interfaces.EmbeddingService
	config     *common.RetrievalConfig
	logger     arbor.ILogger
}

// NewExpander creates a new HyDE expander
func NewExpander(generator interfaces.GenerationService, embeddings interfaces.EmbeddingService, config *common.RetrievalConfig, logger arbor.ILogger) *Expander {
	return &Expander{
		generator:  generator,
		embeddings: embeddings,
		config:     config,
		logger:     logger,
	}
}

// Expand generates and embeds a hypothetical answer passage for the query.
// Returns nil on any failure; the caller treats nil as "no second channel".
func (e *Expander) Expand(ctx context.Context, query string) *Expansion {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	maxTokens := e.config.HydeMaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	start := time.Now()
	resp, err := e.generator.Generate(ctx, &interfaces.GenerationRequest{
		Prompt:      fmt.Sprintf(hydePrompt, query),
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("Hypothetical document generation failed, continuing single-channel")
		return nil
	}

	doc := strings.TrimSpace(resp.Text)
	if doc == "" {
		e.logger.Warn().Msg("Hypothetical document came back empty, continuing single-channel")
		return nil
	}

	embedding, err := e.embeddings.GenerateEmbedding(ctx, doc)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Hypothetical document embedding failed, continuing single-channel")
		return nil
	}

	e.logger.Debug().
		Int("document_length", len(doc)).
		Int("embedding_dim", len(embedding)).
		Dur("duration", time.Since(start)).
		Msg("Expanded query with hypothetical document")

	return &Expansion{
		Document:  doc,
		Embedding: embedding,
	}
}
