package types

import (
	"context"
	"time"

	"github.com/ksmt/ava/internal/models"
)

// Core interfaces
type KnowledgeBase interface {
	Search(ctx context.Context, query string, topK int) ([]models.RetrievalResult, error)
	Ingest(ctx context.Context, text string, metadata map[string]interface{}) ([]models.Document, error)
	Count(ctx context.Context) (int, error)
}

type SearchProvider interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

type HistoryStore interface {
	Append(ctx context.Context, chatID string, msg models.Message) error
	Get(ctx context.Context, chatID string) (models.Conversation, error)
	Close() error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Composer optionally rewrites a knowledge base excerpt into a direct
// answer. A nil Composer means template answers only.
type Composer interface {
	Compose(ctx context.Context, query string, docs []models.Document) (string, error)
}

// OrchestratorConfig tunes the fallback cascade. Zero values take
// sensible defaults.
type OrchestratorConfig struct {
	SimilarityThreshold float64
	TopK                int
	KnowledgeTimeout    time.Duration
	SearchTimeout       time.Duration
	HistoryTimeout      time.Duration
	FallbackText        string
}
