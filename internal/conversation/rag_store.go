package conversation

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// KnowledgeDoc is one ingestible chunk of company knowledge.
type KnowledgeDoc struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// SearchResult is a retrieved chunk with its similarity to the query.
type SearchResult struct {
	Title      string
	Category   string
	Content    string
	Similarity float64
}

// KnowledgeSearcher is the retrieval capability the engine depends on.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, floor float64, limit int) ([]SearchResult, error)
}

// EmbeddingKnowledgeStore keeps document embeddings in memory and retrieves
// by cosine similarity. The corpus is small (site copy, service pages), so a
// linear scan is plenty.
type EmbeddingKnowledgeStore struct {
	client embeddingClient
	model  string
	logger *logging.Logger

	mu   sync.RWMutex
	docs []embeddedDoc
}

type embeddedDoc struct {
	doc       KnowledgeDoc
	embedding []float32
}

// NewEmbeddingKnowledgeStore creates an in-memory store.
func NewEmbeddingKnowledgeStore(client embeddingClient, model string, logger *logging.Logger) *EmbeddingKnowledgeStore {
	if client == nil {
		panic("conversation: embedding client cannot be nil")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &EmbeddingKnowledgeStore{
		client: client,
		model:  model,
		logger: logger,
	}
}

// AddDocuments embeds and stores the provided docs.
func (s *EmbeddingKnowledgeStore) AddDocuments(ctx context.Context, docs []KnowledgeDoc) error {
	if len(docs) == 0 {
		return nil
	}

	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}

	req := &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: contents,
	}
	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Data) != len(docs) {
		return errors.New("conversation: embedding response size mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range resp.Data {
		s.docs = append(s.docs, embeddedDoc{
			doc:       docs[i],
			embedding: item.Embedding,
		})
	}
	return nil
}

// Search returns up to limit documents scoring at or above floor, most
// similar first.
func (s *EmbeddingKnowledgeStore) Search(ctx context.Context, query string, floor float64, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 3
	}

	req := &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: []string{query},
	}
	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	queryVec := resp.Data[0].Embedding

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.docs))
	for _, d := range s.docs {
		sim := cosineSimilarity(queryVec, d.embedding)
		if sim < floor {
			continue
		}
		results = append(results, SearchResult{
			Title:      d.doc.Title,
			Category:   d.doc.Category,
			Content:    d.doc.Content,
			Similarity: sim,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	var normA float64
	var normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
