package nlp

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase word tokens.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops}
}

// Tokenize splits text into normalized tokens, removing stopwords.
// Hyphens and apostrophes join word parts; a '.' or ',' between two digits
// keeps an amount like 12.50 in one token.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			current.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '\'' || r == '’':
			if r == '’' {
				r = '\''
			}
			current.WriteRune(r)
		case (r == '.' || r == ',') && i > 0 && i+1 < len(runes) &&
			unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// processToken applies cleaning and stopword filtering.
func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if word == "" {
		return ""
	}
	if t.isStopword(word) {
		return ""
	}
	return word
}

// cleanToken strips leading/trailing joiners, a possessive 's, and
// normalizes consecutive hyphens.
func cleanToken(token string) string {
	token = strings.Trim(token, "-'")
	token = strings.TrimSuffix(token, "'s")

	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}

	return strings.Trim(token, "-'")
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[strings.ToLower(word)] = struct{}{}
}
