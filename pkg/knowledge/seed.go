package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ksmt/ava/internal/types"
)

// SeedDocument is one starter knowledge base entry.
type SeedDocument struct {
	Text     string
	Metadata map[string]interface{}
}

// SampleDocuments returns the starter corpus of AI topics loaded when
// the knowledge base is empty.
func SampleDocuments() []SeedDocument {
	return []SeedDocument{
		{
			Text:     "Artificial Intelligence (AI) is a branch of computer science that aims to create intelligent machines that can think, learn, and adapt like humans. AI systems can perform tasks that typically require human intelligence, such as visual perception, speech recognition, decision-making, and language translation.",
			Metadata: map[string]interface{}{"category": "AI Basics", "source": "knowledge_base"},
		},
		{
			Text:     "Machine Learning is a subset of artificial intelligence that enables computers to learn and improve from experience without being explicitly programmed. It uses algorithms and statistical models to identify patterns in data and make predictions or decisions.",
			Metadata: map[string]interface{}{"category": "AI Basics", "source": "knowledge_base"},
		},
		{
			Text:     "Deep Learning is a subset of machine learning that uses artificial neural networks with multiple layers (deep neural networks) to model and understand complex patterns in data. It's particularly effective for tasks like image recognition, natural language processing, and speech recognition.",
			Metadata: map[string]interface{}{"category": "AI Basics", "source": "knowledge_base"},
		},
		{
			Text:     "Neural Networks are computing systems inspired by biological neural networks. They consist of interconnected nodes (neurons) that process information using a connectionist approach. Neural networks can learn and model non-linear and complex relationships between inputs and outputs.",
			Metadata: map[string]interface{}{"category": "AI Basics", "source": "knowledge_base"},
		},
		{
			Text:     "Natural Language Processing (NLP) is a branch of artificial intelligence that helps computers understand, interpret, and manipulate human language. NLP combines computational linguistics with statistical, machine learning, and deep learning models to enable computers to process human language in text and speech forms.",
			Metadata: map[string]interface{}{"category": "AI Applications", "source": "knowledge_base"},
		},
		{
			Text:     "Computer Vision is a field of artificial intelligence that trains computers to interpret and understand visual information from the world. It involves acquiring, processing, analyzing, and understanding digital images and videos to extract meaningful information.",
			Metadata: map[string]interface{}{"category": "AI Applications", "source": "knowledge_base"},
		},
		{
			Text:     "Reinforcement Learning is a type of machine learning where an agent learns to make decisions by taking actions in an environment to maximize cumulative reward. The agent learns through trial and error, receiving feedback from its actions.",
			Metadata: map[string]interface{}{"category": "AI Methods", "source": "knowledge_base"},
		},
		{
			Text:     "Supervised Learning is a machine learning paradigm where algorithms learn from labeled training data to make predictions or decisions on new, unseen data. The algorithm learns the mapping between input features and target labels.",
			Metadata: map[string]interface{}{"category": "AI Methods", "source": "knowledge_base"},
		},
		{
			Text:     "Unsupervised Learning is a machine learning paradigm where algorithms find hidden patterns or structures in data without labeled examples. It includes techniques like clustering, dimensionality reduction, and association rule learning.",
			Metadata: map[string]interface{}{"category": "AI Methods", "source": "knowledge_base"},
		},
		{
			Text:     "AI Ethics involves the moral principles and values that guide the development and deployment of artificial intelligence systems. It addresses issues like bias, fairness, transparency, privacy, accountability, and the societal impact of AI technologies.",
			Metadata: map[string]interface{}{"category": "AI Ethics", "source": "knowledge_base"},
		},
	}
}

// Seed loads the sample corpus into an empty knowledge base. A non-empty
// base is left untouched. onProgress may be nil.
func Seed(ctx context.Context, kb types.KnowledgeBase, onProgress func()) (int, error) {
	count, err := kb.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to check knowledge base size: %v", err)
	}
	if count > 0 {
		return 0, nil
	}

	seeded := 0
	for _, doc := range SampleDocuments() {
		if _, err := kb.Ingest(ctx, doc.Text, doc.Metadata); err != nil {
			return seeded, fmt.Errorf("failed to seed document: %v", err)
		}
		seeded++
		if onProgress != nil {
			onProgress()
		}
	}
	return seeded, nil
}

// SeedFromDir ingests every .txt and .md file in dir. Unlike Seed it
// runs regardless of the current knowledge base size.
func SeedFromDir(ctx context.Context, kb types.KnowledgeBase, dir string, onProgress func()) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed directory: %v", err)
	}

	seeded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return seeded, fmt.Errorf("failed to read %s: %v", path, err)
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}

		metadata := map[string]interface{}{"source": "file", "path": path}
		if _, err := kb.Ingest(ctx, string(data), metadata); err != nil {
			return seeded, fmt.Errorf("failed to ingest %s: %v", path, err)
		}
		seeded++
		if onProgress != nil {
			onProgress()
		}
	}
	return seeded, nil
}
