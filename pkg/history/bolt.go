package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ksmt/ava/internal/models"
)

// BoltStore persists conversations in a BoltDB file. Each chat id gets
// its own bucket; sequence-numbered keys preserve append order.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %v", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Append(ctx context.Context, chatID string, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %v", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(chatID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

func (s *BoltStore) Get(ctx context.Context, chatID string) (models.Conversation, error) {
	conv := models.Conversation{ChatID: chatID}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(chatID))
		if b == nil {
			return models.ErrNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			var msg models.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				// Skip malformed entries instead of failing the whole read
				return nil
			}
			conv.Messages = append(conv.Messages, msg)
			return nil
		})
	})
	if err != nil {
		return models.Conversation{}, err
	}

	if len(conv.Messages) > 0 {
		conv.CreatedAt = conv.Messages[0].Timestamp
	}
	return conv, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
