package interfaces

import "context"

// GenerationRequest is a provider-agnostic completion request. Model may be
// empty, in which case the provider's configured default is used.
type GenerationRequest struct {
	Prompt            string
	SystemInstruction string
	Model             string
	Temperature       float32
	MaxTokens         int
}

// GenerationResponse carries the generated text and the model that
// produced it.
type GenerationResponse struct {
	Text  string
	Model string
}

// GenerationService wraps a chat/completion model. Implementations carry
// their own per-call timeouts and retry policy; a returned error means the
// call is exhausted, not merely slow.
type GenerationService interface {
	// Generate produces text for the given request
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)

	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// HealthCheck verifies the provider can serve requests
	HealthCheck(ctx context.Context) error

	// Close releases provider clients
	Close() error
}
