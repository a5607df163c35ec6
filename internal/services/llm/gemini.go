package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/docuchat/docuchat/internal/interfaces"
)

// generateWithGemini generates content using the Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, req *interfaces.GenerationRequest, model string) (*interfaces.GenerationResponse, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.geminiConfig.Model
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = f.geminiConfig.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	callCtx, cancel := context.WithTimeout(ctx, f.geminiTimeout)
	defer cancel()

	// Make API call with retry
	var resp *genai.GenerateContentResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		if err := f.geminiLimiter.Wait(callCtx); err != nil {
			return nil, err
		}

		resp, apiErr = client.Models.GenerateContent(callCtx, model, contents, config)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			apiDelay := ExtractRetryDelay(apiErr)
			backoff = retryConfig.CalculateBackoff(attempt, apiDelay)
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		f.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-callCtx.Done():
			return nil, callCtx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("Gemini API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &interfaces.GenerationResponse{
		Text:  responseText,
		Model: model,
	}, nil
}

// embedWithGemini generates an embedding vector using the Gemini API with
// the configured model and output dimensionality.
func (f *ProviderFactory) embedWithGemini(ctx context.Context, text string) ([]float32, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, f.geminiTimeout)
	defer cancel()

	if err := f.geminiLimiter.Wait(callCtx); err != nil {
		return nil, err
	}

	outputDim := int32(f.llmConfig.EmbedDimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := client.Models.EmbedContent(
		callCtx,
		f.llmConfig.EmbedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		embeddingConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini embedding call failed: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response from Gemini API")
	}

	embedding := result.Embeddings[0].Values
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty embedding vector from Gemini API")
	}

	return embedding, nil
}
