package knowledge

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ksmt/ava/internal/models"
	"github.com/ksmt/ava/internal/types"
	"github.com/ksmt/ava/pkg/processor"
)

type PgStoreConfig struct {
	ConnString   string
	TableName    string
	VectorDim    int
	ChunkSize    int
	ChunkOverlap int
}

// PgStore is a pgvector-backed knowledge base for deployments where the
// corpus must survive restarts. It requires a working embedder; when
// embedding fails searches report the failure and the orchestrator
// degrades to its next tier.
type PgStore struct {
	config   PgStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
	chunker  processor.Processor
}

func NewPgStore(embedder types.Embedder, config PgStoreConfig) (*PgStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("pg store requires an embedder")
	}
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	ps := &PgStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
		chunker: processor.NewWithConfig(processor.ProcessorConfig{
			ChunkSize:    config.ChunkSize,
			ChunkOverlap: config.ChunkOverlap,
		}),
	}

	if err := ps.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *PgStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := ps.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	// The position column preserves insertion order for tie breaking.
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			position BIGSERIAL,
			text TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB
		)`, ps.config.TableName, ps.config.VectorDim)

	_, err = ps.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		ps.config.TableName, ps.config.TableName)

	_, err = ps.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

func (ps *PgStore) Ingest(ctx context.Context, text string, metadata map[string]interface{}) ([]models.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.ValidationError{Field: "text", Message: "document text cannot be empty"}
	}

	chunks := ps.chunker.Chunk(sanitizeUTF8(text))
	if len(chunks) == 0 {
		return nil, models.ValidationError{Field: "text", Message: "document text cannot be empty"}
	}

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, text, embedding, metadata)
		VALUES ($1, $2, $3, $4)`,
		ps.config.TableName)

	docs := make([]models.Document, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := ps.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding: %v", err)
		}

		doc := models.Document{
			ID:        uuid.NewString(),
			Text:      chunk,
			Embedding: embedding,
			Metadata:  metadata,
		}

		_, err = tx.Exec(ctx, stmt,
			doc.ID,
			doc.Text,
			pgvector.NewVector(embedding),
			doc.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert document: %v", err)
		}

		docs = append(docs, doc)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	return docs, nil
}

func (ps *PgStore) Search(ctx context.Context, query string, topK int) ([]models.RetrievalResult, error) {
	if topK <= 0 {
		topK = 3
	}

	queryEmbedding, err := ps.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}

	// Cosine distance; similarity = 1 - distance. Ties keep insertion order.
	sql := fmt.Sprintf(`
		SELECT id, text, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1, position
		LIMIT $2`,
		ps.config.TableName)

	rows, err := ps.pool.Query(ctx, sql, pgvector.NewVector(queryEmbedding), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %v", err)
	}
	defer rows.Close()

	var results []models.RetrievalResult
	for rows.Next() {
		var doc models.Document
		var similarity float64
		if err := rows.Scan(&doc.ID, &doc.Text, &doc.Metadata, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		if similarity < 0 {
			similarity = 0
		}
		results = append(results, models.RetrievalResult{Document: doc, Similarity: similarity})
	}

	return results, rows.Err()
}

func (ps *PgStore) Count(ctx context.Context) (int, error) {
	var count int
	err := ps.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", ps.config.TableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %v", err)
	}
	return count, nil
}

func (ps *PgStore) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
