package retrieval

import (
	"context"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/models"
)

// rerankPrefixLen bounds the candidate text sent to the classifier; the
// head of a chunk carries enough signal and keeps the batch cheap.
const rerankPrefixLen = 500

// Retriever runs similarity search channels against the vector index and
// fuses their results through the relevance scorer. The scorer may be
// nil, in which case results keep their similarity ordering.
type Retriever struct {
	index  interfaces.VectorIndex
	scorer interfaces.RelevanceScorer
	config *common.RetrievalConfig
	logger arbor.ILogger
}

// NewRetriever creates a new retriever
func NewRetriever(index interfaces.VectorIndex, scorer interfaces.RelevanceScorer, config *common.RetrievalConfig, logger arbor.ILogger) *Retriever {
	return &Retriever{
		index:  index,
		scorer: scorer,
		config: config,
		logger: logger,
	}
}

// SearchChannel runs one similarity search against the user's namespace.
// It oversamples, filters by the inclusive similarity threshold, and
// falls back to the raw top-K when nothing passes, so a populated index
// never produces an empty channel.
func (r *Retriever) SearchChannel(ctx context.Context, userID string, vector []float32, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	oversample := topK * 4
	if oversample < 10 {
		oversample = 10
	}

	points, err := r.index.Search(ctx, userID, vector, oversample)
	if err != nil {
		return nil, err
	}

	// Index results arrive similarity-descending; keep the order stable
	// regardless.
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Similarity > points[j].Similarity
	})

	passed := make([]models.ScoredChunk, 0, topK)
	for _, p := range points {
		if p.Similarity >= r.config.MinSimilarity {
			passed = append(passed, models.ScoredChunk{Chunk: p.Chunk, Similarity: p.Similarity})
			if len(passed) == topK {
				break
			}
		}
	}

	if len(passed) > 0 {
		return passed, nil
	}

	// Fallback ladder: nothing met the threshold, return the best raw
	// candidates rather than nothing.
	limit := topK
	if len(points) < limit {
		limit = len(points)
	}
	fallback := make([]models.ScoredChunk, 0, limit)
	for _, p := range points[:limit] {
		fallback = append(fallback, models.ScoredChunk{Chunk: p.Chunk, Similarity: p.Similarity})
	}

	if len(fallback) > 0 {
		r.logger.Debug().
			Str("user_id", userID).
			Int("returned", len(fallback)).
			Float64("min_similarity", r.config.MinSimilarity).
			Msg("No candidates met similarity threshold, returning raw top-K")
	}

	return fallback, nil
}

// DualSearch runs the raw-query and expansion channels concurrently and
// joins them. hydeVector may be nil; the second channel then reuses the
// raw vector, matching the single-vector degradation path.
func (r *Retriever) DualSearch(ctx context.Context, userID string, rawVector, hydeVector []float32, topK int) (raw, hyde []models.ScoredChunk) {
	secondVector := hydeVector
	if secondVector == nil {
		secondVector = rawVector
	}

	var wg sync.WaitGroup
	wg.Add(2)

	common.SafeGo(r.logger, "retrieval-raw-channel", func() {
		defer wg.Done()
		results, err := r.SearchChannel(ctx, userID, rawVector, topK)
		if err != nil {
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("Raw channel search failed")
			return
		}
		raw = results
	})

	common.SafeGo(r.logger, "retrieval-hyde-channel", func() {
		defer wg.Done()
		results, err := r.SearchChannel(ctx, userID, secondVector, topK)
		if err != nil {
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("Expansion channel search failed")
			return
		}
		hyde = results
	})

	wg.Wait()
	return raw, hyde
}

// FuseAndRerank deduplicates the two channels and reorders the survivors
// by classifier relevance. The raw channel is concatenated first, so on
// duplicate text the raw-channel instance survives. A failed or absent
// scorer degrades to similarity ordering; the bool reports whether
// reranking was actually applied.
func (r *Retriever) FuseAndRerank(ctx context.Context, query string, raw, hyde []models.ScoredChunk, topK int) ([]models.ScoredChunk, bool) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	seen := make(map[string]bool, len(raw)+len(hyde))
	fused := make([]models.ScoredChunk, 0, len(raw)+len(hyde))
	for _, sc := range append(append([]models.ScoredChunk{}, raw...), hyde...) {
		if seen[sc.Text] {
			continue
		}
		seen[sc.Text] = true
		fused = append(fused, sc)
	}

	if len(fused) == 0 {
		return nil, false
	}

	if r.scorer == nil {
		return truncateBySimilarity(fused, topK), false
	}

	pairs := make([]interfaces.ScorePair, len(fused))
	for i, sc := range fused {
		pairs[i] = interfaces.ScorePair{Query: query, Candidate: rerankPrefix(sc.Text)}
	}

	scores, err := r.scorer.ScoreBatch(ctx, pairs)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Relevance scoring failed, keeping similarity order")
		return truncateBySimilarity(fused, topK), false
	}
	if len(scores) != len(fused) {
		r.logger.Warn().
			Int("pairs", len(fused)).
			Int("scores", len(scores)).
			Msg("Scorer returned wrong score count, keeping similarity order")
		return truncateBySimilarity(fused, topK), false
	}

	for i := range fused {
		score := scores[i]
		if score < 0 || score > 1 {
			score = 0.5
		}
		fused[i].Relevance = score
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Relevance != fused[j].Relevance {
			return fused[i].Relevance > fused[j].Relevance
		}
		return fused[i].Similarity > fused[j].Similarity
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, true
}

// rerankPrefix bounds the candidate text sent to the classifier, backing
// up to a rune boundary so the prefix stays valid UTF-8.
func rerankPrefix(text string) string {
	if len(text) <= rerankPrefixLen {
		return text
	}
	cut := rerankPrefixLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// truncateBySimilarity sorts by similarity descending and truncates
func truncateBySimilarity(chunks []models.ScoredChunk, topK int) []models.ScoredChunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Similarity > chunks[j].Similarity
	})
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks
}
