package history

import (
	"context"
	"sync"
	"time"

	"github.com/ksmt/ava/internal/models"
)

// MemoryStore is an in-memory append-only conversation log.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
	}
}

// Append adds a message to the conversation, creating it on first use.
func (s *MemoryStore) Append(ctx context.Context, chatID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[chatID]
	if !ok {
		conv = &models.Conversation{
			ChatID:    chatID,
			CreatedAt: time.Now(),
		}
		s.conversations[chatID] = conv
	}
	conv.Messages = append(conv.Messages, msg)
	return nil
}

// Get returns a copy of the conversation, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, chatID string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[chatID]
	if !ok {
		return models.Conversation{}, models.ErrNotFound
	}

	out := models.Conversation{
		ChatID:    conv.ChatID,
		CreatedAt: conv.CreatedAt,
		Messages:  make([]models.Message, len(conv.Messages)),
	}
	copy(out.Messages, conv.Messages)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
