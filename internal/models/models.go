package models

import "time"

// Source tags a response with the tier that produced it.
type Source string

const (
	SourceKnowledgeBase Source = "knowledge_base"
	SourceWebSearch     Source = "web_search"
	SourceFallback      Source = "fallback"
	SourceError         Source = "error"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single immutable turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Source    Source    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered message log for one chat id.
type Conversation struct {
	ChatID    string    `json:"chat_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is an ingested knowledge base entry. The embedding is
// populated by the store; it stays nil in lexical-only mode.
type Document struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Embedding []float32              `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RetrievalResult pairs a document with its similarity to a query.
// Produced per search, never persisted.
type RetrievalResult struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}

// SearchResult is one ranked snippet from the web search provider.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Reply is the orchestrator's answer to a single user message.
type Reply struct {
	Response  string    `json:"response"`
	ChatID    string    `json:"chat_id"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
