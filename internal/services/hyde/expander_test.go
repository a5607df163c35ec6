package hyde

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
)

type stubGenerator struct {
	text       string
	err        error
	lastPrompt string
	lastMax    int
}

func (g *stubGenerator) Generate(ctx context.Context, req *interfaces.GenerationRequest) (*interfaces.GenerationResponse, error) {
	g.lastPrompt = req.Prompt
	g.lastMax = req.MaxTokens
	if g.err != nil {
		return nil, g.err
	}
	return &interfaces.GenerationResponse{Text: g.text}, nil
}

func (g *stubGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not used")
}
func (g *stubGenerator) HealthCheck(ctx context.Context) error { return nil }
func (g *stubGenerator) Close() error                          { return nil }

type stubEmbedder struct {
	vector   []float32
	err      error
	lastText string
}

func (e *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.lastText = text
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}
func (e *stubEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return e.GenerateEmbedding(ctx, query)
}
func (e *stubEmbedder) ModelName() string                    { return "stub" }
func (e *stubEmbedder) Dimension() int                       { return len(e.vector) }
func (e *stubEmbedder) IsAvailable(ctx context.Context) bool { return e.err == nil }

func newTestExpander(gen *stubGenerator, emb *stubEmbedder) *Expander {
	config := common.NewDefaultConfig()
	return NewExpander(gen, emb, &config.Retrieval, arbor.NewLogger())
}

func TestExpandEmbedsGeneratedDocument(t *testing.T) {
	gen := &stubGenerator{text: "The project deadline is 15 September 2025, as stated in the planning document."}
	emb := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	expander := newTestExpander(gen, emb)

	expansion := expander.Expand(context.Background(), "when is the deadline?")
	if expansion == nil {
		t.Fatal("Expand() = nil, want expansion")
	}
	if expansion.Document != gen.text {
		t.Errorf("Document = %q, want generated text", expansion.Document)
	}
	if len(expansion.Embedding) != 3 {
		t.Errorf("Embedding length = %d, want 3", len(expansion.Embedding))
	}
	if emb.lastText != gen.text {
		t.Error("embedded text differs from generated document")
	}
	if !strings.Contains(gen.lastPrompt, "when is the deadline?") {
		t.Error("prompt does not contain the query")
	}
	if gen.lastMax != 500 {
		t.Errorf("max tokens = %d, want 500", gen.lastMax)
	}
}

func TestExpandNilOnGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model down")}
	expander := newTestExpander(gen, &stubEmbedder{vector: []float32{1}})

	if expansion := expander.Expand(context.Background(), "query"); expansion != nil {
		t.Errorf("Expand() = %v, want nil on generation failure", expansion)
	}
}

func TestExpandNilOnEmbeddingFailure(t *testing.T) {
	gen := &stubGenerator{text: "a document"}
	emb := &stubEmbedder{err: interfaces.ErrEmbeddingUnavailable}
	expander := newTestExpander(gen, emb)

	if expansion := expander.Expand(context.Background(), "query"); expansion != nil {
		t.Errorf("Expand() = %v, want nil on embedding failure", expansion)
	}
}

func TestExpandNilOnEmptyOutput(t *testing.T) {
	gen := &stubGenerator{text: "   \n"}
	expander := newTestExpander(gen, &stubEmbedder{vector: []float32{1}})

	if expansion := expander.Expand(context.Background(), "query"); expansion != nil {
		t.Errorf("Expand() = %v, want nil when generation is empty", expansion)
	}
}

func TestExpandNilOnBlankQuery(t *testing.T) {
	expander := newTestExpander(&stubGenerator{text: "doc"}, &stubEmbedder{vector: []float32{1}})

	if expansion := expander.Expand(context.Background(), "   "); expansion != nil {
		t.Errorf("Expand() = %v, want nil for blank query", expansion)
	}
}
