package pattern

import (
	"regexp"
	"strings"
)

// wordPattern splits text on non-word characters.
var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_]*`)

// stopWords are common programming/English words excluded from matching.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "this": true, "to": true, "was": true,
	"will": true, "with": true, "not": true, "but": true, "you": true,
	"your": true, "can": true, "do": true, "does": true, "did": true,
	"should": true, "would": true, "could": true, "may": true, "might": true,
	"must": true, "shall": true, "need": true, "if": true, "then": true,
	"else": true, "when": true, "where": true, "which": true, "who": true,
	"whom": true, "what": true, "how": true, "why": true, "all": true,
	"any": true, "both": true, "each": true, "few": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "no": true,
	"nor": true, "only": true, "own": true, "same": true, "so": true,
	"than": true, "too": true, "very": true, "just": true, "also": true,
}

// Tokenize extracts lower-cased keywords from text, dropping stop words
// and words shorter than three characters. Order follows first appearance;
// duplicates are removed.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	words := wordPattern.FindAllString(text, -1)
	seen := make(map[string]bool)
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		lower := strings.ToLower(word)
		if len(lower) < 3 || stopWords[lower] {
			continue
		}
		if !seen[lower] {
			seen[lower] = true
			keywords = append(keywords, lower)
		}
	}
	return keywords
}

// Similarity blends word-set overlap (weight 0.7) with a normalized
// length ratio (weight 0.3). It is a pure function: identical inputs
// always yield identical scores. Scores lie in [0,1].
func Similarity(a, b string) float64 {
	wordsA := Tokenize(a)
	wordsB := Tokenize(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	overlapCount := 0
	for _, w := range wordsB {
		if setA[w] {
			overlapCount++
		}
	}

	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}
	overlap := float64(overlapCount) / float64(larger)

	smaller := len(wordsA)
	if len(wordsB) < smaller {
		smaller = len(wordsB)
	}
	lengthRatio := float64(smaller) / float64(larger)

	return 0.7*overlap + 0.3*lengthRatio
}

// KeywordOverlap returns the fraction of query keywords present in the
// candidate keyword set, in [0,1].
func KeywordOverlap(query, candidate []string) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	set := make(map[string]bool, len(candidate))
	for _, w := range candidate {
		set[w] = true
	}
	matched := 0
	for _, w := range query {
		if set[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
