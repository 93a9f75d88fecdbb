package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: "9090"

llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  embed_model: "nomic-embed-text:latest"
  max_tokens: 1000
  temperature: 0.5

knowledge:
  database_url: "postgres://localhost:5432/test"
  table_name: "test_docs"
  vector_dim: 768
  top_k: 5
  similarity_threshold: 0.8
  chunk_size: 500
  chunk_overlap: 100

search:
  rate_limit: 1.5
  max_results: 3
  timeout_sec: 10

history:
  backend: "bolt"
  path: "/tmp/test.bolt"
  queue_size: 64
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Knowledge.DatabaseURL)
	assert.Equal(t, 5, config.Knowledge.TopK)
	assert.Equal(t, 0.8, config.Knowledge.SimilarityThreshold)
	assert.Equal(t, 500, config.Knowledge.ChunkSize)
	assert.Equal(t, 3, config.Search.MaxResults)
	assert.Equal(t, "bolt", config.History.Backend)
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 0.75, config.Knowledge.SimilarityThreshold)
	assert.Equal(t, 3, config.Knowledge.TopK)
	assert.Equal(t, "memory", config.History.Backend)
	assert.Equal(t, 15, config.Search.TimeoutSec)
}

func TestConfigValidation(t *testing.T) {
	valid := &Config{}
	applyDefaults(valid)
	assert.Empty(t, valid.Validate())

	invalid := &Config{}
	applyDefaults(invalid)
	invalid.LLM.MaxTokens = 5000
	invalid.LLM.Temperature = 3.0
	invalid.Knowledge.SimilarityThreshold = 1.5
	invalid.Knowledge.ChunkOverlap = invalid.Knowledge.ChunkSize
	invalid.History.Backend = "mongo"

	errors := invalid.Validate()
	assert.Len(t, errors, 5)

	messages := make([]string, 0, len(errors))
	for _, e := range errors {
		messages = append(messages, e.Error())
	}
	assert.Contains(t, messages, "llm.max_tokens: max_tokens must be between 1 and 4096")
	assert.Contains(t, messages, "llm.temperature: temperature must be between 0 and 2")
	assert.Contains(t, messages, "knowledge.similarity_threshold: similarity_threshold must be between 0 and 1")
	assert.Contains(t, messages, "history.backend: unknown backend: mongo")
}

func TestEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	defer func() {
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("DATABASE_URL")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Knowledge.DatabaseURL)
}
