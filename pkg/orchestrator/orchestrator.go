package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ksmt/ava/internal/models"
	"github.com/ksmt/ava/internal/types"
)

// HistoryWriter is the fire-and-forget append queue. The orchestrator
// never waits for history writes to finish.
type HistoryWriter interface {
	Enqueue(chatID string, msg models.Message)
}

type Options struct {
	KnowledgeBase  types.KnowledgeBase
	SearchProvider types.SearchProvider
	History        types.HistoryStore
	Writer         HistoryWriter
	Composer       types.Composer // optional
}

// Orchestrator routes a user message through the fallback cascade:
// knowledge base, then web search, then a static fallback. It holds no
// per-request state beyond configuration.
type Orchestrator struct {
	kb       types.KnowledgeBase
	provider types.SearchProvider
	history  types.HistoryStore
	writer   HistoryWriter
	composer types.Composer
	config   types.OrchestratorConfig
}

func NewWithConfig(opts Options, config types.OrchestratorConfig) (*Orchestrator, error) {
	if opts.KnowledgeBase == nil {
		return nil, fmt.Errorf("knowledge base is required")
	}
	if opts.SearchProvider == nil {
		return nil, fmt.Errorf("search provider is required")
	}
	if opts.History == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("history writer is required")
	}

	if config.SimilarityThreshold == 0 {
		config.SimilarityThreshold = 0.75
	}
	if config.TopK == 0 {
		config.TopK = 3
	}
	if config.KnowledgeTimeout == 0 {
		config.KnowledgeTimeout = 10 * time.Second
	}
	if config.SearchTimeout == 0 {
		config.SearchTimeout = 15 * time.Second
	}
	if config.HistoryTimeout == 0 {
		config.HistoryTimeout = 5 * time.Second
	}
	if config.FallbackText == "" {
		config.FallbackText = "I'm sorry, I couldn't find information about that topic. Could you try rephrasing your question?"
	}

	return &Orchestrator{
		kb:       opts.KnowledgeBase,
		provider: opts.SearchProvider,
		history:  opts.History,
		writer:   opts.Writer,
		composer: opts.Composer,
		config:   config,
	}, nil
}

// Handle processes one user message and returns the assistant reply.
// Upstream failures never fail the request; they cascade to the next
// tier. Handle never returns an error for the chat path.
func (o *Orchestrator) Handle(ctx context.Context, message, chatID string) models.Reply {
	if chatID == "" {
		chatID = uuid.NewString()
	}

	if strings.TrimSpace(message) == "" {
		// Validation failure: no knowledge base or search calls.
		return o.reply(chatID, message, validationResponse(), models.SourceError)
	}

	response, source := o.resolve(ctx, message)
	return o.reply(chatID, message, response, source)
}

// resolve walks the fallback tiers for a non-empty message.
func (o *Orchestrator) resolve(ctx context.Context, message string) (string, models.Source) {
	if results := o.queryKnowledgeBase(ctx, message); len(results) > 0 {
		if results[0].Similarity >= o.config.SimilarityThreshold {
			return o.knowledgeAnswer(ctx, message, results), models.SourceKnowledgeBase
		}
	}

	if results := o.performWebSearch(ctx, message); len(results) > 0 {
		return searchResponse(message, results), models.SourceWebSearch
	}

	return o.config.FallbackText, models.SourceFallback
}

func (o *Orchestrator) queryKnowledgeBase(ctx context.Context, message string) []models.RetrievalResult {
	ctx, cancel := context.WithTimeout(ctx, o.config.KnowledgeTimeout)
	defer cancel()

	results, err := o.kb.Search(ctx, message, o.config.TopK)
	if err != nil {
		log.Printf("knowledge base error: %v", err)
		return nil
	}
	return results
}

func (o *Orchestrator) performWebSearch(ctx context.Context, message string) []models.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, o.config.SearchTimeout)
	defer cancel()

	results, err := o.provider.Search(ctx, message)
	if err != nil {
		log.Printf("search provider error: %v", err)
		return nil
	}
	return results
}

// knowledgeAnswer prefers the composer when configured; a compose
// failure keeps the template answer and the knowledge_base tag.
func (o *Orchestrator) knowledgeAnswer(ctx context.Context, message string, results []models.RetrievalResult) string {
	if o.composer != nil {
		docs := make([]models.Document, 0, len(results))
		for _, r := range results {
			if r.Similarity >= o.config.SimilarityThreshold {
				docs = append(docs, r.Document)
			}
		}
		answer, err := o.composer.Compose(ctx, message, docs)
		if err != nil {
			log.Printf("composer error, using template answer: %v", err)
		} else {
			return answer
		}
	}
	return knowledgeResponse(results)
}

// reply records both turns through the writer and builds the result.
// History is best-effort; the queue absorbs failures.
func (o *Orchestrator) reply(chatID, message, response string, source models.Source) models.Reply {
	now := time.Now()

	o.writer.Enqueue(chatID, models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      models.RoleUser,
		Text:      message,
		Timestamp: now,
	})
	o.writer.Enqueue(chatID, models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      models.RoleAssistant,
		Text:      response,
		Source:    source,
		Timestamp: now,
	})

	return models.Reply{
		Response:  response,
		ChatID:    chatID,
		Source:    source,
		Timestamp: now,
	}
}

// History returns the stored conversation. An unknown chat id yields an
// empty conversation, not an error.
func (o *Orchestrator) History(ctx context.Context, chatID string) (models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.HistoryTimeout)
	defer cancel()

	conv, err := o.history.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Conversation{ChatID: chatID}, nil
		}
		return models.Conversation{}, err
	}
	return conv, nil
}
