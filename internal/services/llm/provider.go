package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderOpenAI uses the OpenAI API
	ProviderOpenAI ProviderType = "openai"
)

// ProviderFactory routes generation and embedding calls to the provider
// selected by model string or configuration. Clients are created lazily
// and reused; each provider carries its own rate limiter and timeout.
// Implements interfaces.GenerationService.
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	openaiConfig *common.OpenAIConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger

	geminiClient *genai.Client
	claudeClient anthropic.Client
	claudeReady  bool
	openaiClient *openai.Client

	geminiLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
	openaiLimiter *rate.Limiter

	geminiTimeout time.Duration
	claudeTimeout time.Duration
	openaiTimeout time.Duration
}

// NewProviderFactory creates a new provider factory. Timeout and rate
// limit strings are parsed eagerly so a misconfiguration fails at startup
// rather than on the first request.
func NewProviderFactory(config *common.Config, logger arbor.ILogger) (*ProviderFactory, error) {
	f := &ProviderFactory{
		geminiConfig: &config.Gemini,
		claudeConfig: &config.Claude,
		openaiConfig: &config.OpenAI,
		llmConfig:    &config.LLM,
		logger:       logger,
	}

	var err error
	if f.geminiTimeout, f.geminiLimiter, err = parsePacing(config.Gemini.Timeout, config.Gemini.RateLimit); err != nil {
		return nil, fmt.Errorf("invalid gemini pacing: %w", err)
	}
	if f.claudeTimeout, f.claudeLimiter, err = parsePacing(config.Claude.Timeout, config.Claude.RateLimit); err != nil {
		return nil, fmt.Errorf("invalid claude pacing: %w", err)
	}
	if f.openaiTimeout, f.openaiLimiter, err = parsePacing(config.OpenAI.Timeout, config.OpenAI.RateLimit); err != nil {
		return nil, fmt.Errorf("invalid openai pacing: %w", err)
	}

	return f, nil
}

// parsePacing parses the per-provider timeout and minimum call interval.
// An empty rate limit yields an unthrottled limiter.
func parsePacing(timeoutStr, rateLimitStr string) (time.Duration, *rate.Limiter, error) {
	timeout := 2 * time.Minute
	if timeoutStr != "" {
		parsed, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid timeout duration '%s': %w", timeoutStr, err)
		}
		timeout = parsed
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rateLimitStr != "" {
		interval, err := time.ParseDuration(rateLimitStr)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid rate limit duration '%s': %w", rateLimitStr, err)
		}
		if interval > 0 {
			limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}

	return timeout, limiter, nil
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-haiku-3-5-20241022" -> Claude
// - "claude/claude-haiku-3-5-20241022" -> Claude (with prefix)
// - "gemini-3-flash-preview" -> Gemini
// - "gpt-4o-mini" or "openai/gpt-4o-mini" -> OpenAI
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if model == "" {
		return ProviderType(f.llmConfig.DefaultProvider)
	}

	model = strings.ToLower(model)

	// Check for explicit provider prefix
	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}
	if strings.HasPrefix(model, "openai/") {
		return ProviderOpenAI
	}

	// Check for model name patterns
	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}
	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1-") || strings.HasPrefix(model, "o3-") {
		return ProviderOpenAI
	}

	// Default to configured provider
	return ProviderType(f.llmConfig.DefaultProvider)
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/", "openai/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.claudeConfig.Model
	case ProviderOpenAI:
		return f.openaiConfig.Model
	case ProviderGemini:
		return f.geminiConfig.Model
	default:
		return f.geminiConfig.Model
	}
}

// Generate produces text using the provider selected by the request model.
func (f *ProviderFactory) Generate(ctx context.Context, req *interfaces.GenerationRequest) (*interfaces.GenerationResponse, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("generation request requires a prompt")
	}

	provider := f.DetectProvider(req.Model)
	model := f.NormalizeModel(req.Model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("prompt_length", len(req.Prompt)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, req, model)
	case ProviderOpenAI:
		return f.generateWithOpenAI(ctx, req, model)
	case ProviderGemini:
		return f.generateWithGemini(ctx, req, model)
	default:
		return f.generateWithGemini(ctx, req, model)
	}
}

// Embed generates an embedding vector using the configured embed provider.
func (f *ProviderFactory) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	switch ProviderType(f.llmConfig.EmbedProvider) {
	case ProviderOpenAI:
		return f.embedWithOpenAI(ctx, text)
	default:
		return f.embedWithGemini(ctx, text)
	}
}

// HealthCheck exercises the default generation provider and the embed
// provider with lightweight probes.
func (f *ProviderFactory) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	embedding, err := f.Embed(probeCtx, "health check probe")
	if err != nil {
		return fmt.Errorf("embedding probe failed: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding probe returned empty vector")
	}

	resp, err := f.Generate(probeCtx, &interfaces.GenerationRequest{
		Prompt:    "ping",
		MaxTokens: 8,
	})
	if err != nil {
		return fmt.Errorf("generation probe failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return fmt.Errorf("generation probe returned empty response")
	}

	f.logger.Info().
		Str("default_provider", string(f.llmConfig.DefaultProvider)).
		Str("embed_provider", string(f.llmConfig.EmbedProvider)).
		Msg("LLM provider health check passed")

	return nil
}

// Close closes all provider clients
func (f *ProviderFactory) Close() error {
	f.geminiClient = nil
	f.claudeClient = anthropic.Client{}
	f.claudeReady = false
	f.openaiClient = nil
	return nil
}

// getGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	if f.geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set DOCUCHAT_GEMINI_API_KEY or gemini.api_key in config)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  f.geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// getClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) getClaudeClient() (anthropic.Client, error) {
	if f.claudeReady {
		return f.claudeClient, nil
	}

	if f.claudeConfig.APIKey == "" {
		return anthropic.Client{}, fmt.Errorf("Anthropic API key is required (set DOCUCHAT_ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	f.claudeClient = anthropic.NewClient(
		option.WithAPIKey(f.claudeConfig.APIKey),
	)
	f.claudeReady = true
	return f.claudeClient, nil
}

// getOpenAIClient returns an OpenAI client, creating one if necessary
func (f *ProviderFactory) getOpenAIClient() (*openai.Client, error) {
	if f.openaiClient != nil {
		return f.openaiClient, nil
	}

	if f.openaiConfig.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set DOCUCHAT_OPENAI_API_KEY or openai.api_key in config)")
	}

	f.openaiClient = openai.NewClient(f.openaiConfig.APIKey)
	return f.openaiClient, nil
}
