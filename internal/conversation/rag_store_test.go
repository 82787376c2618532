package conversation

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

func TestEmbeddingKnowledgeStore_AddAndSearch(t *testing.T) {
	client := &stubEmbeddingClient{}
	store := NewEmbeddingKnowledgeStore(client, "text-embedding-3-small", logging.Default())

	client.nextVectors = [][]float32{
		{1, 0},
		{0, 1},
	}
	err := store.AddDocuments(context.Background(), []KnowledgeDoc{
		{Title: "Rapid Prototyping", Category: "services", Content: "MVPs in weeks"},
		{Title: "Fractional CTO", Category: "services", Content: "Part-time technical leadership"},
	})
	if err != nil {
		t.Fatalf("AddDocuments error: %v", err)
	}

	client.nextVectors = [][]float32{{0.9, 0.1}}
	results, err := store.Search(context.Background(), "how fast can you build an MVP?", 0.3, 2)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above floor, got %d", len(results))
	}
	if results[0].Title != "Rapid Prototyping" {
		t.Fatalf("expected prototyping doc first, got %s", results[0].Title)
	}
	if results[0].Similarity < 0.9 {
		t.Fatalf("unexpected similarity %f", results[0].Similarity)
	}
}

func TestEmbeddingKnowledgeStore_FloorFiltersAll(t *testing.T) {
	client := &stubEmbeddingClient{}
	store := NewEmbeddingKnowledgeStore(client, "", logging.Default())

	client.nextVectors = [][]float32{{1, 0}}
	_ = store.AddDocuments(context.Background(), []KnowledgeDoc{{Title: "Doc", Content: "text"}})

	client.nextVectors = [][]float32{{0, 1}}
	results, err := store.Search(context.Background(), "unrelated", 0.3, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("orthogonal doc should fall below floor, got %d results", len(results))
	}
}

func TestEmbeddingKnowledgeStore_EmbeddingError(t *testing.T) {
	client := &stubEmbeddingClient{err: errors.New("boom")}
	store := NewEmbeddingKnowledgeStore(client, "", logging.Default())

	if err := store.AddDocuments(context.Background(), []KnowledgeDoc{{Content: "a"}}); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

type stubEmbeddingClient struct {
	nextVectors [][]float32
	err         error
	calls       int
}

func (s *stubEmbeddingClient) CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	s.calls++
	if s.err != nil {
		return openai.EmbeddingResponse{}, s.err
	}
	req, ok := request.(*openai.EmbeddingRequest)
	if !ok {
		return openai.EmbeddingResponse{}, errors.New("unexpected request type")
	}
	inputs, ok := req.Input.([]string)
	if !ok {
		return openai.EmbeddingResponse{}, errors.New("unexpected input type")
	}
	if len(s.nextVectors) < len(inputs) {
		return openai.EmbeddingResponse{}, errors.New("insufficient stub embeddings")
	}
	data := make([]openai.Embedding, len(inputs))
	for i := range inputs {
		data[i] = openai.Embedding{Embedding: s.nextVectors[i]}
	}
	return openai.EmbeddingResponse{Data: data}, nil
}
