package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ksmt/ava/internal/models"
)

// Each source tag owns its own formatting rule.

func validationResponse() string {
	return "Please enter a message so I can help you."
}

// knowledgeResponse uses the best match as the primary answer and
// appends trimmed context from the remaining results.
func knowledgeResponse(results []models.RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}

	answer := results[0].Document.Text

	var related []string
	for _, r := range results[1:] {
		category := "General"
		if c, ok := r.Document.Metadata["category"].(string); ok {
			category = c
		}
		related = append(related, fmt.Sprintf("[%s] %s", category, excerpt(r.Document.Text, 150)))
	}

	if len(related) > 0 {
		answer += "\n\nAdditional related information:\n" + strings.Join(related, "\n")
	}
	return answer
}

// searchResponse formats the top three snippets into a readable reply.
func searchResponse(query string, results []models.SearchResult) string {
	if len(results) > 3 {
		results = results[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on web search results for '%s':\n\n", query)

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "No title"
		}
		snippet := r.Snippet
		if snippet == "" {
			snippet = "No description available"
		}

		fmt.Fprintf(&b, "%d. **%s**\n   %s\n", i+1, title, snippet)
		if r.URL != "" {
			fmt.Fprintf(&b, "   Source: %s\n", r.URL)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
