package services

import (
	"strings"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

// ProcessQuery normalizes a raw query string into a QueryIntent.
// Pure function: no network or store access, no failure modes beyond an
// empty input yielding an empty token list (callers reject empty
// queries at the boundary).
func ProcessQuery(raw string) domain.QueryIntent {
	normalized := strings.ToLower(strings.Join(strings.Fields(raw), " "))

	phrases, remainder := extractExactPhrases(normalized)

	terms := strings.Fields(remainder)
	if len(terms) > domain.MaxKeyTerms {
		terms = terms[:domain.MaxKeyTerms]
	}

	return domain.QueryIntent{
		Original:     raw,
		Normalized:   normalized,
		ExactPhrases: phrases,
		KeyTerms:     terms,
		Confidence:   intentConfidence(phrases, terms),
	}
}

// extractExactPhrases pulls out all double-quoted substrings and
// returns them alongside the text with those segments removed.
func extractExactPhrases(text string) ([]string, string) {
	var phrases []string
	var rest strings.Builder

	for {
		start := strings.IndexByte(text, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(text[start+1:], '"')
		if end < 0 {
			break
		}
		phrase := text[start+1 : start+1+end]
		if strings.TrimSpace(phrase) != "" {
			phrases = append(phrases, phrase)
		}
		rest.WriteString(text[:start])
		rest.WriteByte(' ')
		text = text[start+end+2:]
	}
	rest.WriteString(text)

	remainder := strings.Join(strings.Fields(rest.String()), " ")
	return phrases, remainder
}

// intentConfidence is informational only; it does not gate behavior.
// Quoted phrases and multi-term queries read as more deliberate intent.
func intentConfidence(phrases, terms []string) float64 {
	confidence := 0.5
	if len(phrases) > 0 {
		confidence += 0.3
	}
	switch {
	case len(terms) >= 3:
		confidence += 0.2
	case len(terms) == 2:
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// FuzzyWords returns the query words usable for trigram matching.
// Words shorter than 3 characters carry too little trigram signal.
func FuzzyWords(normalized string) []string {
	var words []string
	for _, w := range strings.Fields(normalized) {
		w = strings.Trim(w, `"`)
		if len(w) >= 3 {
			words = append(words, w)
		}
	}
	return words
}
