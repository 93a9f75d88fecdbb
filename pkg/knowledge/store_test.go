package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksmt/ava/internal/models"
)

// stubEmbedder returns canned vectors keyed by text prefix.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	for prefix, vec := range s.vectors {
		if strings.HasPrefix(text, prefix) {
			return vec, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func TestIngestRejectsEmptyText(t *testing.T) {
	store := NewMemoryStore(nil, StoreConfig{})

	_, err := store.Ingest(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestSearchEmptyStore(t *testing.T) {
	store := NewMemoryStore(nil, StoreConfig{})

	results, err := store.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"AI is":   {1, 0, 0},
		"Cooking": {0, 1, 0},
		"What is": {0.9, 0.1, 0},
	}}
	store := NewMemoryStore(emb, StoreConfig{})
	ctx := context.Background()

	_, err := store.Ingest(ctx, "Cooking is the art of preparing food.", nil)
	require.NoError(t, err)
	_, err = store.Ingest(ctx, "AI is the simulation of human intelligence by machines.", nil)
	require.NoError(t, err)

	results, err := store.Search(ctx, "What is artificial intelligence?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, results[0].Document.Text, "AI is the simulation")
	assert.Greater(t, results[0].Similarity, 0.75)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"Same": {1, 0, 0},
	}}
	store := NewMemoryStore(emb, StoreConfig{})
	ctx := context.Background()

	first, err := store.Ingest(ctx, "Same answer, ingested first.", nil)
	require.NoError(t, err)
	second, err := store.Ingest(ctx, "Same answer, ingested second.", nil)
	require.NoError(t, err)

	// No dedup: both ingests created distinct documents.
	assert.NotEqual(t, first[0].ID, second[0].ID)

	emb.vectors["query"] = []float32{1, 0, 0}
	results, err := store.Search(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, first[0].ID, results[0].Document.ID)
	assert.Equal(t, second[0].ID, results[1].Document.ID)
	assert.Equal(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchLexicalFallbackWithoutEmbedder(t *testing.T) {
	store := NewMemoryStore(nil, StoreConfig{})
	ctx := context.Background()

	_, err := store.Ingest(ctx, "Machine learning finds patterns in data.", nil)
	require.NoError(t, err)
	_, err = store.Ingest(ctx, "Bread baking requires yeast and patience.", nil)
	require.NoError(t, err)

	results, err := store.Search(ctx, "machine learning patterns", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, results[0].Document.Text, "Machine learning")
	assert.Equal(t, 1.0, results[0].Similarity)
	assert.Equal(t, 0.0, results[1].Similarity)
}

func TestSearchLexicalFallbackWhenEmbedderFails(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("ollama unreachable")}
	store := NewMemoryStore(emb, StoreConfig{})
	ctx := context.Background()

	_, err := store.Ingest(ctx, "Neural networks are inspired by the brain.", nil)
	require.NoError(t, err)

	results, err := store.Search(ctx, "neural networks", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].Similarity, 0.0)
}

func TestIngestChunksLongText(t *testing.T) {
	store := NewMemoryStore(nil, StoreConfig{ChunkSize: 80, ChunkOverlap: 20})
	ctx := context.Background()

	text := strings.Repeat("Each sentence here fills out a very long document. ", 10)
	docs, err := store.Ingest(ctx, text, map[string]interface{}{"source": "test"})
	require.NoError(t, err)
	assert.Greater(t, len(docs), 1)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(docs), count)

	for _, doc := range docs {
		assert.Equal(t, "test", doc.Metadata["source"])
	}
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := cosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	// Opposed vectors clamp to zero on the [0,1] scale.
	sim, err = cosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	_, err = cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.Error(t, err)

	_, err = cosineSimilarity([]float32{0, 0}, []float32{1, 0})
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	store := NewMemoryStore(nil, StoreConfig{})
	ctx := context.Background()

	calls := 0
	seeded, err := Seed(ctx, store, func() { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 10, seeded)
	assert.Equal(t, 10, calls)

	// Seeding a non-empty store is a no-op.
	seeded, err = Seed(ctx, store, nil)
	require.NoError(t, err)
	assert.Zero(t, seeded)
}
