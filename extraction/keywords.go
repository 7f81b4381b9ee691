package extraction

import (
	"regexp"
	"strings"
)

// maxKeywords bounds the derived keyword list.
const maxKeywords = 10

// wordPattern tokenizes on word boundaries.
var wordPattern = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// stopWords are tokens carrying no retrieval signal.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "i": true, "if": true,
	"in": true, "is": true, "it": true, "its": true, "me": true, "my": true,
	"no": true, "not": true, "of": true, "on": true, "or": true, "our": true,
	"she": true, "so": true, "that": true, "the": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "to": true, "up": true, "us": true, "was": true, "we": true,
	"were": true, "what": true, "when": true, "which": true, "will": true,
	"with": true, "would": true, "you": true, "your": true,
}

// ExtractKeywords tokenizes a message, lower-cases the tokens, drops
// stop-words and duplicates, and returns at most maxKeywords tokens in
// order of first appearance. Pure function, no I/O.
func ExtractKeywords(message string) []string {
	tokens := wordPattern.FindAllString(message, -1)
	seen := make(map[string]bool, len(tokens))
	keywords := make([]string, 0, maxKeywords)

	for _, tok := range tokens {
		word := strings.ToLower(tok)
		if stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
