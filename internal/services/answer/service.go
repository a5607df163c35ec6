package answer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/services/hyde"
)

// queryExpander produces the optional second search vector. Satisfied by
// hyde.Expander; narrowed here so tests can stub it.
type queryExpander interface {
	Expand(ctx context.Context, query string) *hyde.Expansion
}

// channelRetriever runs the dual search and fusion steps. Satisfied by
// retrieval.Retriever.
type channelRetriever interface {
	DualSearch(ctx context.Context, userID string, rawVector, hydeVector []float32, topK int) (raw, hyde []models.ScoredChunk)
	FuseAndRerank(ctx context.Context, query string, raw, hyde []models.ScoredChunk, topK int) ([]models.ScoredChunk, bool)
}

// Service orchestrates one retrieval-augmented answering transaction.
// Every subsystem failure degrades the answer instead of failing the
// request; a returned error always means malformed input.
// Implements interfaces.AnswerService.
type Service struct {
	embeddings interfaces.EmbeddingService
	generator  interfaces.GenerationService
	expander   queryExpander
	retriever  channelRetriever
	index      interfaces.VectorIndex
	memory     interfaces.MemoryService
	config     *common.Config
	logger     arbor.ILogger
}

// NewService creates a new answer service
func NewService(
	embeddings interfaces.EmbeddingService,
	generator interfaces.GenerationService,
	expander queryExpander,
	retriever channelRetriever,
	index interfaces.VectorIndex,
	memory interfaces.MemoryService,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		embeddings: embeddings,
		generator:  generator,
		expander:   expander,
		retriever:  retriever,
		index:      index,
		memory:     memory,
		config:     config,
		logger:     logger,
	}
}

// Answer runs one full query-answering transaction
func (s *Service) Answer(ctx context.Context, userID, query string, opts *interfaces.AnswerOptions) (*models.AnswerResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	persona := models.GetPersona(s.config.Answer.Persona)
	topK := s.config.Retrieval.TopK
	useMemory := true
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		if opts.UseMemory != nil {
			useMemory = *opts.UseMemory
		}
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("top_k", topK).
		Msg("Processing query")

	if isGreeting(query) {
		return &models.AnswerResult{
			Answer:      persona.GreetingReply,
			Context:     []models.ScoredChunk{},
			Sources:     []string{},
			Persona:     persona.Name,
			Diagnostics: models.AnswerDiagnostics{Greeting: true},
		}, nil
	}

	var memCtx *models.MemoryContext
	if useMemory {
		memCtx = s.fetchMemoryContext(ctx, userID, query)
		s.logger.Debug().
			Str("user_id", userID).
			Int("memory_items", memCtx.TotalItems()).
			Msg("Fetched memory context")
	}

	diag := models.AnswerDiagnostics{MemoryItems: memCtx.TotalItems()}

	// The primary query vector is the one hard retrieval dependency;
	// without it the transaction degrades straight to an apology.
	queryVector, err := s.embeddings.GenerateQueryEmbedding(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Query embedding failed, returning apology")
		result := &models.AnswerResult{
			Answer:      persona.ApologyReply,
			Context:     []models.ScoredChunk{},
			Sources:     []string{},
			Persona:     persona.Name,
			Diagnostics: diag,
		}
		if useMemory {
			s.writeBack(ctx, userID, query, result)
		}
		return result, nil
	}

	var hydeVector []float32
	if expansion := s.expander.Expand(ctx, query); expansion != nil {
		hydeVector = expansion.Embedding
		diag.HydeUsed = true
	}

	raw, hydeResults := s.retriever.DualSearch(ctx, userID, queryVector, hydeVector, topK)
	diag.RawChannelHits = len(raw)
	diag.HydeChannelHits = len(hydeResults)

	fused, reranked := s.retriever.FuseAndRerank(ctx, query, raw, hydeResults, topK)
	diag.FusedCount = len(fused)
	diag.RerankApplied = reranked

	if len(fused) == 0 {
		result := &models.AnswerResult{
			Answer:      persona.NoContextReply,
			Context:     []models.ScoredChunk{},
			Sources:     []string{},
			Persona:     persona.Name,
			Diagnostics: diag,
		}
		if useMemory {
			s.writeBack(ctx, userID, query, result)
		}
		return result, nil
	}

	prompt := buildAnswerPrompt(persona, query,
		buildDocumentContext(fused),
		buildMemoryBlock(memCtx, &s.config.Memory))

	answerText := persona.ApologyReply
	resp, err := s.generator.Generate(ctx, &interfaces.GenerationRequest{
		Prompt:      prompt,
		Temperature: s.config.Answer.Temperature,
		MaxTokens:   s.config.Answer.MaxTokens,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Generation failed, returning apology")
	} else {
		answerText = resp.Text
		diag.Model = resp.Model
	}

	result := &models.AnswerResult{
		Answer:      answerText,
		Context:     fused,
		Sources:     collectSources(fused),
		Persona:     persona.Name,
		Diagnostics: diag,
	}

	if useMemory {
		s.writeBack(ctx, userID, query, result)
	}

	return result, nil
}

// IndexChunks embeds and stores chunks into the user's namespace and
// records them in memory. Unlike Answer, ingestion failures surface as
// errors so callers can retry.
func (s *Service) IndexChunks(ctx context.Context, userID string, chunks []models.Chunk, metadata map[string]interface{}) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]interfaces.IndexPoint, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.embeddings.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk: %w", err)
		}

		chunk.Metadata.UserID = userID
		if chunk.Metadata.InsertedAt.IsZero() {
			chunk.Metadata.InsertedAt = time.Now()
		}

		points = append(points, interfaces.IndexPoint{
			ID:     common.NewChunkID(),
			Vector: vector,
			Chunk:  chunk,
		})
	}

	if err := s.index.Upsert(ctx, userID, points); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}

	// Memory is an enrichment; an ingestion that indexed but failed to
	// journal still counts as success.
	if err := s.memory.AppendChunks(ctx, userID, chunks, metadata); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to journal chunks to memory")
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("chunk_count", len(points)).
		Msg("Indexed document chunks")

	return nil
}

// fetchMemoryContext issues the three memory fetches concurrently and
// joins them. Each fetch is already best-effort inside the memory
// service, so the joined context is always usable.
func (s *Service) fetchMemoryContext(ctx context.Context, userID, query string) *models.MemoryContext {
	memCtx := &models.MemoryContext{}
	window := time.Duration(s.config.Memory.RecentDocsHours) * time.Hour

	var wg sync.WaitGroup
	wg.Add(3)

	common.SafeGo(s.logger, "memory-conversation", func() {
		defer wg.Done()
		memCtx.Conversation = s.memory.ConversationContext(ctx, userID, s.config.Memory.ConversationLimit)
	})
	common.SafeGo(s.logger, "memory-recent-docs", func() {
		defer wg.Done()
		memCtx.RecentDocuments = s.memory.RecentDocuments(ctx, userID, window)
	})
	common.SafeGo(s.logger, "memory-relevant", func() {
		defer wg.Done()
		memCtx.RelevantMemories = s.memory.RelevantMemories(ctx, userID, query, s.config.Memory.RelevantLimit)
	})

	wg.Wait()
	return memCtx
}

// writeBack journals the completed interaction. Failures are logged and
// swallowed; the answer has already been decided.
func (s *Service) writeBack(ctx context.Context, userID, query string, result *models.AnswerResult) {
	metadata := map[string]interface{}{
		"sources":      result.Sources,
		"chunks_used":  len(result.Context),
		"hyde_used":    result.Diagnostics.HydeUsed,
		"memory_items": result.Diagnostics.MemoryItems,
	}
	if err := s.memory.AppendInteraction(ctx, userID, query, result.Answer, metadata); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Interaction write-back failed")
	}
}

// collectSources dedupes chunk sources in order, dropping unknowns
func collectSources(chunks []models.ScoredChunk) []string {
	seen := make(map[string]bool, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		src := sc.Source()
		if src == "unknown" || seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}
