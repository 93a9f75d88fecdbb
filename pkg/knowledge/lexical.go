package knowledge

import "strings"

// lexicalScore measures keyword overlap between a query and a document:
// the fraction of non-stopword query tokens that appear in the text.
// Scores are on [0,1] but are not comparable in magnitude to cosine
// similarities from an embedding model.
func lexicalScore(queryTokens map[string]struct{}, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	docTokens := tokenize(text)
	matched := 0
	for token := range queryTokens {
		if _, ok := docTokens[token]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTokens))
}

// tokenize lowercases, strips punctuation and drops stopwords.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
		})
		if word == "" || isStopword(word) {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}

func isStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// Common English stopwords plus question words, so conversational
// queries score on their content words.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "are": {}, "as": {},
	"at": {}, "be": {}, "by": {}, "can": {}, "could": {}, "do": {},
	"does": {}, "explain": {}, "for": {}, "from": {}, "has": {},
	"he": {}, "how": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"me": {}, "my": {}, "of": {}, "on": {}, "please": {}, "tell": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"will": {}, "with": {}, "you": {}, "your": {},
}
