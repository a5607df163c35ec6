package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/models"
)

// QdrantIndex is a minimal REST client to Qdrant. It assumes cosine
// distance and creates one collection per user, named
// "<collection_prefix>-<userID>", on first use. Collection existence is
// cached so the ensure call costs one round trip per user per process.
// Implements interfaces.VectorIndex.
type QdrantIndex struct {
	url       string
	apiKey    string
	prefix    string
	dimension int
	client    *http.Client
	logger    arbor.ILogger

	mu    sync.Mutex
	known map[string]bool
}

// NewQdrantIndex creates a new Qdrant index client
func NewQdrantIndex(config *common.QdrantConfig, dimension int, logger arbor.ILogger) *QdrantIndex {
	timeout := 15 * time.Second
	if config.Timeout != "" {
		if parsed, err := time.ParseDuration(config.Timeout); err == nil && parsed > 0 {
			timeout = parsed
		} else {
			logger.Warn().Str("timeout", config.Timeout).Msg("Invalid qdrant timeout, using default")
		}
	}

	prefix := config.CollectionPrefix
	if prefix == "" {
		prefix = "docuchat"
	}

	return &QdrantIndex{
		url:       config.URL,
		apiKey:    config.APIKey,
		prefix:    prefix,
		dimension: dimension,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		known:     make(map[string]bool),
	}
}

// collectionName resolves the per-user collection. userID is the only
// tenancy boundary, so it must never be empty here.
func (q *QdrantIndex) collectionName(userID string) string {
	return q.prefix + "-" + userID
}

// EnsureNamespace creates the user's collection if it does not exist.
// Qdrant returns 200 for an existing collection with the same schema, so
// the create call doubles as an existence check.
func (q *QdrantIndex) EnsureNamespace(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	q.mu.Lock()
	if q.known[userID] {
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	collection := q.collectionName(userID)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimension,
			"distance": "Cosine",
		},
	}

	if err := q.putJSON(ctx, fmt.Sprintf("%s/collections/%s", q.url, collection), body); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", collection, err)
	}

	q.mu.Lock()
	q.known[userID] = true
	q.mu.Unlock()

	q.logger.Debug().
		Str("collection", collection).
		Int("dimension", q.dimension).
		Msg("Ensured vector collection")

	return nil
}

// Upsert stores points into the user's collection
func (q *QdrantIndex) Upsert(ctx context.Context, userID string, points []interfaces.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	if err := q.EnsureNamespace(ctx, userID); err != nil {
		return err
	}

	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		qdrantPoints[i] = map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"text":        p.Chunk.Text,
				"source_id":   p.Chunk.Metadata.SourceID,
				"user_id":     p.Chunk.Metadata.UserID,
				"page_number": p.Chunk.Metadata.PageNumber,
				"url":         p.Chunk.Metadata.URL,
				"crawl_depth": p.Chunk.Metadata.CrawlDepth,
				"inserted_at": p.Chunk.Metadata.InsertedAt.Format(time.RFC3339Nano),
			},
		}
	}

	collection := q.collectionName(userID)
	body := map[string]any{"points": qdrantPoints}

	if err := q.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, collection), body); err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), collection, err)
	}

	q.logger.Debug().
		Str("collection", collection).
		Int("point_count", len(points)).
		Msg("Upserted vector points")

	return nil
}

// Search returns up to limit nearest neighbors from the user's collection,
// similarity-descending.
func (q *QdrantIndex) Search(ctx context.Context, userID string, vector []float32, limit int) ([]interfaces.ScoredPoint, error) {
	if limit <= 0 {
		limit = 5
	}

	// A user's first action may be a query, so the search path creates
	// the collection lazily too; searching a fresh collection just
	// returns zero hits instead of a 404.
	if err := q.EnsureNamespace(ctx, userID); err != nil {
		return nil, err
	}

	collection := q.collectionName(userID)
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	if err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", q.url, collection), req, &resp); err != nil {
		return nil, fmt.Errorf("search in %s failed: %w", collection, err)
	}

	results := make([]interfaces.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := models.Chunk{}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		if v, ok := r.Payload["source_id"].(string); ok {
			chunk.Metadata.SourceID = v
		}
		if v, ok := r.Payload["user_id"].(string); ok {
			chunk.Metadata.UserID = v
		}
		if v, ok := r.Payload["page_number"].(float64); ok {
			chunk.Metadata.PageNumber = int(v)
		}
		if v, ok := r.Payload["url"].(string); ok {
			chunk.Metadata.URL = v
		}
		if v, ok := r.Payload["crawl_depth"].(float64); ok {
			chunk.Metadata.CrawlDepth = int(v)
		}
		if v, ok := r.Payload["inserted_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				chunk.Metadata.InsertedAt = ts
			}
		}
		// Cosine scores can run negative for opposing vectors; the
		// pipeline's similarity contract is [0,1].
		similarity := r.Score
		if similarity < 0 {
			similarity = 0
		} else if similarity > 1 {
			similarity = 1
		}
		results = append(results, interfaces.ScoredPoint{
			Chunk:      chunk,
			Similarity: similarity,
		})
	}

	return results, nil
}

func (q *QdrantIndex) putJSON(ctx context.Context, url string, body any) error {
	return q.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (q *QdrantIndex) postJSON(ctx context.Context, url string, body any, out any) error {
	return q.doJSON(ctx, http.MethodPost, url, body, out)
}

func (q *QdrantIndex) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, string(respBody))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
