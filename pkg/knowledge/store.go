package knowledge

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ksmt/ava/internal/models"
	"github.com/ksmt/ava/internal/types"
	"github.com/ksmt/ava/pkg/processor"
)

type StoreConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// MemoryStore holds ingested documents and answers similarity queries.
// Scoring uses cosine similarity over the injected embedder; when the
// embedder is missing or unreachable it degrades to lexical keyword
// overlap instead of failing.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     []models.Document // insertion order, ties resolved by position
	embedder types.Embedder
	chunker  processor.Processor
}

// NewMemoryStore creates a store. A nil embedder is allowed and keeps
// the store in lexical mode.
func NewMemoryStore(embedder types.Embedder, config StoreConfig) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		chunker: processor.NewWithConfig(processor.ProcessorConfig{
			ChunkSize:    config.ChunkSize,
			ChunkOverlap: config.ChunkOverlap,
		}),
	}
}

// Ingest validates, chunks and stores the text. Each chunk becomes its
// own document sharing the given metadata. Duplicate text is not
// deduplicated; re-ingesting creates new documents.
func (s *MemoryStore) Ingest(ctx context.Context, text string, metadata map[string]interface{}) ([]models.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.ValidationError{Field: "text", Message: "document text cannot be empty"}
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, models.ValidationError{Field: "text", Message: "document text cannot be empty"}
	}

	docs := make([]models.Document, 0, len(chunks))
	for _, chunk := range chunks {
		doc := models.Document{
			ID:       uuid.NewString(),
			Text:     chunk,
			Metadata: metadata,
		}

		if s.embedder != nil {
			embedding, err := s.embedder.Embed(ctx, chunk)
			if err != nil {
				// Lexical mode still works without the vector.
				log.Printf("embedding unavailable for document %s: %v", doc.ID, err)
			} else {
				doc.Embedding = embedding
			}
		}

		docs = append(docs, doc)
	}

	s.mu.Lock()
	s.docs = append(s.docs, docs...)
	s.mu.Unlock()

	return docs, nil
}

// Search returns the topK documents by descending similarity. Ties keep
// insertion order. An empty store returns an empty result, not an error.
func (s *MemoryStore) Search(ctx context.Context, query string, topK int) ([]models.RetrievalResult, error) {
	if topK <= 0 {
		topK = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return nil, nil
	}

	var queryEmbedding []float32
	if s.embedder != nil {
		embedding, err := s.embedder.Embed(ctx, query)
		if err != nil {
			log.Printf("query embedding unavailable, falling back to lexical scoring: %v", err)
		} else {
			queryEmbedding = embedding
		}
	}

	queryTokens := tokenize(query)

	results := make([]models.RetrievalResult, 0, len(s.docs))
	for _, doc := range s.docs {
		score := s.score(queryEmbedding, queryTokens, doc)
		results = append(results, models.RetrievalResult{Document: doc, Similarity: score})
	}

	// Stable sort keeps earlier-ingested documents first on equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count reports the number of stored documents.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// score prefers cosine similarity and falls back to lexical overlap for
// documents without a usable embedding.
func (s *MemoryStore) score(queryEmbedding []float32, queryTokens map[string]struct{}, doc models.Document) float64 {
	if queryEmbedding != nil && len(doc.Embedding) == len(queryEmbedding) {
		sim, err := cosineSimilarity(queryEmbedding, doc.Embedding)
		if err == nil {
			return sim
		}
	}
	return lexicalScore(queryTokens, doc.Text)
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// clamped to [0,1]. Orthogonal-or-worse matches score zero.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}
	sim := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	if sim < 0 {
		sim = 0
	}
	return sim, nil
}
