package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docuchat/docuchat/internal/interfaces"
)

// generateWithOpenAI generates content using the OpenAI chat completion API
func (f *ProviderFactory) generateWithOpenAI(ctx context.Context, req *interfaces.GenerationRequest, model string) (*interfaces.GenerationResponse, error) {
	client, err := f.getOpenAIClient()
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.openaiConfig.Model
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = f.openaiConfig.Temperature
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	params := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temp,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, f.openaiTimeout)
	defer cancel()

	// Make API call with retry
	var resp openai.ChatCompletionResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		if err := f.openaiLimiter.Wait(callCtx); err != nil {
			return nil, err
		}

		resp, apiErr = client.CreateChatCompletion(callCtx, params)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, 0)
		}

		f.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying OpenAI API call")

		select {
		case <-callCtx.Done():
			return nil, callCtx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("OpenAI API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty response from OpenAI API")
	}

	return &interfaces.GenerationResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
	}, nil
}

// embedWithOpenAI generates an embedding vector using the OpenAI API
func (f *ProviderFactory) embedWithOpenAI(ctx context.Context, text string) ([]float32, error) {
	client, err := f.getOpenAIClient()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, f.openaiTimeout)
	defer cancel()

	if err := f.openaiLimiter.Wait(callCtx); err != nil {
		return nil, err
	}

	resp, err := client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(f.llmConfig.EmbedModel),
		Input:      []string{text},
		Dimensions: f.llmConfig.EmbedDimension,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embedding call failed: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response from OpenAI API")
	}

	return resp.Data[0].Embedding, nil
}
