package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/interfaces"
)

// Client scores (query, candidate) pairs against a local classifier
// server over HTTP. The server exposes POST /score taking a batch of
// pairs and returning one relevance score per pair in [0,1].
// Implements interfaces.RelevanceScorer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
}

// scoreRequest is the batch scoring request body
type scoreRequest struct {
	Pairs []interfaces.ScorePair `json:"pairs"`
}

// scoreResponse is the batch scoring response body
type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// NewClient creates a new classifier client
func NewClient(baseURL string, timeout time.Duration, logger arbor.ILogger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ScoreBatch submits pairs for scoring and returns one score per pair,
// aligned by index. Any transport or protocol failure is wrapped in
// ErrClassifierUnavailable so callers can degrade to similarity order.
func (c *Client) ScoreBatch(ctx context.Context, pairs []interfaces.ScorePair) ([]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(scoreRequest{Pairs: pairs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/score", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Int("pair_count", len(pairs)).
			Msg("Classifier request failed")
		return nil, fmt.Errorf("%w: %v", interfaces.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("response", string(body)).
			Msg("Classifier returned error status")
		return nil, fmt.Errorf("%w: status %d", interfaces.ErrClassifierUnavailable, resp.StatusCode)
	}

	var scored scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", interfaces.ErrClassifierUnavailable, err)
	}

	if len(scored.Scores) != len(pairs) {
		return nil, fmt.Errorf("%w: got %d scores for %d pairs", interfaces.ErrClassifierUnavailable, len(scored.Scores), len(pairs))
	}

	c.logger.Debug().
		Int("pair_count", len(pairs)).
		Dur("duration", time.Since(start)).
		Msg("Scored relevance batch")

	return scored.Scores, nil
}
