package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Knowledge config
	if c.Knowledge.DatabaseURL != "" {
		if _, err := url.Parse(c.Knowledge.DatabaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "knowledge.database_url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Knowledge.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "knowledge.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Knowledge.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "knowledge.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Knowledge.SimilarityThreshold < 0 || c.Knowledge.SimilarityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "knowledge.similarity_threshold",
			Message: "similarity_threshold must be between 0 and 1",
		})
	}

	if c.Knowledge.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "knowledge.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "knowledge.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate Search config
	if c.Search.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "search.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Search.MaxResults < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.max_results",
			Message: "max_results must be positive",
		})
	}

	// Validate History config
	if c.History.Backend != "memory" && c.History.Backend != "bolt" {
		errors = append(errors, ValidationError{
			Field:   "history.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.History.Backend),
		})
	}

	if c.History.Backend == "bolt" && c.History.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "history.path",
			Message: "path is required for the bolt backend",
		})
	}

	if c.History.QueueSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "history.queue_size",
			Message: "queue_size must be positive",
		})
	}

	return errors
}
