package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/models"
)

// fakeIndex returns canned points and records the requested limit
type fakeIndex struct {
	points    []interfaces.ScoredPoint
	err       error
	lastLimit int
}

func (f *fakeIndex) EnsureNamespace(ctx context.Context, userID string) error { return nil }
func (f *fakeIndex) Upsert(ctx context.Context, userID string, points []interfaces.IndexPoint) error {
	return nil
}
func (f *fakeIndex) Search(ctx context.Context, userID string, vector []float32, limit int) ([]interfaces.ScoredPoint, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

// fakeScorer returns fixed scores keyed by candidate text
type fakeScorer struct {
	scores map[string]float64
	err    error
}

func (f *fakeScorer) ScoreBatch(ctx context.Context, pairs []interfaces.ScorePair) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		if s, ok := f.scores[p.Candidate]; ok {
			out[i] = s
		} else {
			out[i] = 0.5
		}
	}
	return out, nil
}

func point(text string, similarity float64) interfaces.ScoredPoint {
	return interfaces.ScoredPoint{
		Chunk:      models.Chunk{Text: text, Metadata: models.ChunkMetadata{SourceID: "doc.md"}},
		Similarity: similarity,
	}
}

func scored(text string, similarity float64) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk:      models.Chunk{Text: text, Metadata: models.ChunkMetadata{SourceID: "doc.md"}},
		Similarity: similarity,
	}
}

func newTestRetriever(index interfaces.VectorIndex, scorer interfaces.RelevanceScorer) *Retriever {
	config := common.NewDefaultConfig()
	return NewRetriever(index, scorer, &config.Retrieval, arbor.NewLogger())
}

func TestSearchChannelOversamples(t *testing.T) {
	index := &fakeIndex{}
	retriever := newTestRetriever(index, nil)

	retriever.SearchChannel(context.Background(), "u", []float32{1}, 5)
	if index.lastLimit != 20 {
		t.Errorf("oversample = %d, want 20 for topK=5", index.lastLimit)
	}

	retriever.SearchChannel(context.Background(), "u", []float32{1}, 2)
	if index.lastLimit != 10 {
		t.Errorf("oversample = %d, want floor of 10 for topK=2", index.lastLimit)
	}
}

func TestSearchChannelFiltersAndTruncates(t *testing.T) {
	index := &fakeIndex{points: []interfaces.ScoredPoint{
		point("a", 0.95), point("b", 0.85), point("c", 0.75),
		point("d", 0.65), point("e", 0.62), point("f", 0.61),
		point("g", 0.3),
	}}
	retriever := newTestRetriever(index, nil)

	results, err := retriever.SearchChannel(context.Background(), "u", []float32{1}, 5)
	if err != nil {
		t.Fatalf("SearchChannel() error = %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	if results[0].Text != "a" || results[4].Text != "e" {
		t.Errorf("unexpected ordering: first=%q last=%q", results[0].Text, results[4].Text)
	}
}

func TestSearchChannelInclusiveThreshold(t *testing.T) {
	index := &fakeIndex{points: []interfaces.ScoredPoint{
		point("exactly at threshold", 0.60),
		point("below", 0.59),
	}}
	retriever := newTestRetriever(index, nil)

	results, err := retriever.SearchChannel(context.Background(), "u", []float32{1}, 5)
	if err != nil {
		t.Fatalf("SearchChannel() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Text != "exactly at threshold" {
		t.Errorf("boundary chunk excluded: got %q", results[0].Text)
	}
}

func TestSearchChannelFallbackLadder(t *testing.T) {
	index := &fakeIndex{points: []interfaces.ScoredPoint{
		point("a", 0.5), point("b", 0.4), point("c", 0.3),
	}}
	retriever := newTestRetriever(index, nil)

	results, err := retriever.SearchChannel(context.Background(), "u", []float32{1}, 5)
	if err != nil {
		t.Fatalf("SearchChannel() error = %v", err)
	}
	// Nothing passes 0.60 but the channel still returns min(topK, count)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Text != "a" {
		t.Errorf("fallback should keep similarity order, got %q first", results[0].Text)
	}
}

func TestSearchChannelEmptyIndex(t *testing.T) {
	retriever := newTestRetriever(&fakeIndex{}, nil)

	results, err := retriever.SearchChannel(context.Background(), "u", []float32{1}, 5)
	if err != nil {
		t.Fatalf("SearchChannel() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index, want 0", len(results))
	}
}

func TestDualSearchJoinsBothChannels(t *testing.T) {
	index := &fakeIndex{points: []interfaces.ScoredPoint{point("a", 0.9)}}
	retriever := newTestRetriever(index, nil)

	raw, hyde := retriever.DualSearch(context.Background(), "u", []float32{1}, []float32{2}, 5)
	if len(raw) != 1 || len(hyde) != 1 {
		t.Errorf("raw=%d hyde=%d, want 1 and 1", len(raw), len(hyde))
	}
}

func TestDualSearchSurvivesChannelFailure(t *testing.T) {
	index := &fakeIndex{err: errors.New("connection refused")}
	retriever := newTestRetriever(index, nil)

	raw, hyde := retriever.DualSearch(context.Background(), "u", []float32{1}, nil, 5)
	if raw != nil || hyde != nil {
		t.Errorf("expected nil results on index failure, got raw=%v hyde=%v", raw, hyde)
	}
}

func TestFuseDeduplicatesWithRawPriority(t *testing.T) {
	retriever := newTestRetriever(&fakeIndex{}, nil)

	raw := []models.ScoredChunk{scored("shared text", 0.7)}
	hyde := []models.ScoredChunk{scored("shared text", 0.9), scored("unique", 0.8)}

	fused, _ := retriever.FuseAndRerank(context.Background(), "q", raw, hyde, 5)
	if len(fused) != 2 {
		t.Fatalf("got %d fused chunks, want 2", len(fused))
	}

	for _, sc := range fused {
		if sc.Text == "shared text" && sc.Similarity != 0.7 {
			t.Errorf("duplicate kept similarity %v, want the raw channel's 0.7", sc.Similarity)
		}
	}
}

func TestFuseAndRerankOrdering(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{
		"low":  0.2,
		"high": 0.9,
		"mid":  0.5,
	}}
	retriever := newTestRetriever(&fakeIndex{}, scorer)

	raw := []models.ScoredChunk{scored("low", 0.9), scored("high", 0.8), scored("mid", 0.7)}

	fused, reranked := retriever.FuseAndRerank(context.Background(), "q", raw, nil, 5)
	if !reranked {
		t.Fatal("reranked = false, want true")
	}
	want := []string{"high", "mid", "low"}
	for i, w := range want {
		if fused[i].Text != w {
			t.Errorf("fused[%d] = %q, want %q", i, fused[i].Text, w)
		}
	}
	if fused[0].Relevance != 0.9 {
		t.Errorf("fused[0].Relevance = %v, want 0.9", fused[0].Relevance)
	}
}

func TestFuseAndRerankTieBrokenBySimilarity(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{"a": 0.8, "b": 0.8}}
	retriever := newTestRetriever(&fakeIndex{}, scorer)

	raw := []models.ScoredChunk{scored("a", 0.6), scored("b", 0.9)}

	fused, _ := retriever.FuseAndRerank(context.Background(), "q", raw, nil, 5)
	if fused[0].Text != "b" {
		t.Errorf("tie should prefer higher similarity, got %q first", fused[0].Text)
	}
}

func TestFuseAndRerankClassifierOutage(t *testing.T) {
	scorer := &fakeScorer{err: interfaces.ErrClassifierUnavailable}
	retriever := newTestRetriever(&fakeIndex{}, scorer)

	raw := []models.ScoredChunk{scored("a", 0.6), scored("b", 0.9), scored("c", 0.7)}

	fused, reranked := retriever.FuseAndRerank(context.Background(), "q", raw, nil, 5)
	if reranked {
		t.Error("reranked = true despite classifier outage")
	}
	want := []string{"b", "c", "a"}
	for i, w := range want {
		if fused[i].Text != w {
			t.Errorf("fused[%d] = %q, want %q (similarity order)", i, fused[i].Text, w)
		}
	}
}

func TestFuseAndRerankNilScorer(t *testing.T) {
	retriever := newTestRetriever(&fakeIndex{}, nil)

	raw := []models.ScoredChunk{scored("a", 0.6), scored("b", 0.9)}

	fused, reranked := retriever.FuseAndRerank(context.Background(), "q", raw, nil, 5)
	if reranked {
		t.Error("reranked = true with no scorer configured")
	}
	if fused[0].Text != "b" {
		t.Errorf("got %q first, want similarity order", fused[0].Text)
	}
}

func TestFuseAndRerankTruncatesToTopK(t *testing.T) {
	retriever := newTestRetriever(&fakeIndex{}, nil)

	raw := []models.ScoredChunk{
		scored("a", 0.9), scored("b", 0.8), scored("c", 0.7),
	}

	fused, _ := retriever.FuseAndRerank(context.Background(), "q", raw, nil, 2)
	if len(fused) != 2 {
		t.Errorf("got %d chunks, want 2", len(fused))
	}
}

func TestFuseAndRerankEmptyInput(t *testing.T) {
	retriever := newTestRetriever(&fakeIndex{}, nil)

	fused, reranked := retriever.FuseAndRerank(context.Background(), "q", nil, nil, 5)
	if fused != nil || reranked {
		t.Errorf("got fused=%v reranked=%v for empty input", fused, reranked)
	}
}

func TestFuseAndRerankLongChunkPrefix(t *testing.T) {
	var sawLen int
	scorer := &recordingScorer{record: func(pairs []interfaces.ScorePair) {
		sawLen = len(pairs[0].Candidate)
	}}
	retriever := newTestRetriever(&fakeIndex{}, scorer)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	raw := []models.ScoredChunk{scored(string(long), 0.9)}

	retriever.FuseAndRerank(context.Background(), "q", raw, nil, 5)
	if sawLen != 500 {
		t.Errorf("candidate prefix length = %d, want 500", sawLen)
	}
}

func TestFuseAndRerankMultiByteChunkPrefix(t *testing.T) {
	var saw string
	scorer := &recordingScorer{record: func(pairs []interfaces.ScorePair) {
		saw = pairs[0].Candidate
	}}
	retriever := newTestRetriever(&fakeIndex{}, scorer)

	// 200 three-byte runes, 600 bytes total; a plain byte cut at 500
	// would land mid-rune.
	long := strings.Repeat("स", 200)
	raw := []models.ScoredChunk{scored(long, 0.9)}

	retriever.FuseAndRerank(context.Background(), "q", raw, nil, 5)
	if len(saw) > 500 {
		t.Errorf("candidate prefix length = %d, want <= 500", len(saw))
	}
	if !utf8.ValidString(saw) {
		t.Errorf("candidate prefix is not valid UTF-8: %q", saw)
	}
	if len(saw) == 0 {
		t.Error("candidate prefix is empty")
	}
}

func TestFuseAndRerankScoreCountMismatch(t *testing.T) {
	scorer := &shortScorer{}
	retriever := newTestRetriever(&fakeIndex{}, scorer)

	raw := []models.ScoredChunk{scored("a", 0.6), scored("b", 0.9), scored("c", 0.7)}

	fused, reranked := retriever.FuseAndRerank(context.Background(), "q", raw, nil, 5)
	if reranked {
		t.Error("reranked = true for a scorer returning too few scores")
	}
	if len(fused) != 3 {
		t.Fatalf("got %d chunks, want 3", len(fused))
	}
	// Similarity order survives the degraded pass-through.
	if fused[0].Text != "b" || fused[1].Text != "c" || fused[2].Text != "a" {
		t.Errorf("order = [%s %s %s], want [b c a]", fused[0].Text, fused[1].Text, fused[2].Text)
	}
}

type recordingScorer struct {
	record func([]interfaces.ScorePair)
}

func (r *recordingScorer) ScoreBatch(ctx context.Context, pairs []interfaces.ScorePair) ([]float64, error) {
	r.record(pairs)
	return make([]float64, len(pairs)), nil
}

// shortScorer drops the last score, simulating a misbehaving scorer
// implementation behind the RelevanceScorer interface.
type shortScorer struct{}

func (s *shortScorer) ScoreBatch(ctx context.Context, pairs []interfaces.ScorePair) ([]float64, error) {
	out := make([]float64, 0, len(pairs))
	for range pairs[:len(pairs)-1] {
		out = append(out, 0.9)
	}
	return out, nil
}
