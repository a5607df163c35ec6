package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/interfaces"
)

// Service implements the EmbeddingService interface over a generation
// provider. Failures are wrapped in ErrEmbeddingUnavailable so callers
// can distinguish "no vector" from a malformed request.
type Service struct {
	provider  interfaces.GenerationService
	modelName string
	dimension int
	logger    arbor.ILogger
}

// NewService creates a new embedding service
func NewService(provider interfaces.GenerationService, modelName string, dimension int, logger arbor.ILogger) interfaces.EmbeddingService {
	return &Service{
		provider:  provider,
		modelName: modelName,
		dimension: dimension,
		logger:    logger,
	}
}

// GenerateEmbedding creates a vector embedding for text
func (s *Service) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	start := time.Now()
	embedding, err := s.provider.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("text_length", len(text)).
			Msg("Embedding generation failed")
		return nil, fmt.Errorf("%w: %v", interfaces.ErrEmbeddingUnavailable, err)
	}

	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty embedding", interfaces.ErrEmbeddingUnavailable)
	}

	if s.dimension > 0 && len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: provider returned %d dimensions, expected %d", interfaces.ErrEmbeddingUnavailable, len(embedding), s.dimension)
	}

	s.logger.Debug().
		Str("model", s.modelName).
		Int("embedding_dim", len(embedding)).
		Dur("duration", duration).
		Msg("Generated embedding")

	return embedding, nil
}

// GenerateQueryEmbedding generates embedding for a search query.
// Queries currently get the same treatment as document text.
func (s *Service) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return s.GenerateEmbedding(ctx, query)
}

// ModelName returns the embedding model name
func (s *Service) ModelName() string {
	return s.modelName
}

// Dimension returns the embedding dimension
func (s *Service) Dimension() int {
	return s.dimension
}

// IsAvailable checks if the embedding service is available
func (s *Service) IsAvailable(ctx context.Context) bool {
	if s.provider == nil {
		return false
	}

	if err := s.provider.HealthCheck(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Embedding provider not available")
		return false
	}

	return true
}
