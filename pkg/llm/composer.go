package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ksmt/ava/internal/models"
)

// ComposerConfig represents the configuration for the answer composer.
type ComposerConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	BaseURL        string // Ollama server URL
}

// Composer rewrites retrieved knowledge base excerpts into a direct
// answer. It is optional: when no model is reachable the orchestrator
// keeps the template answer.
type Composer struct {
	config ComposerConfig
	llm    llms.Model
}

// NewComposerWithConfig creates a new Composer with the given configuration.
func NewComposerWithConfig(config ComposerConfig) (*Composer, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant with access to the following knowledge base entries. Answer the question using only this context."
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Composer{
		config: config,
		llm:    llm,
	}, nil
}

// Compose generates an answer for the query from the given documents.
func (c *Composer) Compose(ctx context.Context, query string, docs []models.Document) (string, error) {
	var contextBuilder strings.Builder
	for _, doc := range docs {
		contextBuilder.WriteString(doc.Text)
		contextBuilder.WriteString("\n\n")
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, contextBuilder.String()),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	response, err := c.llm.GenerateContent(ctx, content,
		llms.WithTemperature(c.config.Temperature),
		llms.WithMaxTokens(c.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("compose error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "", fmt.Errorf("no response from LLM")
	}

	return response.Choices[0].Content, nil
}
