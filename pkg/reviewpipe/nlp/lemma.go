package nlp

import (
	"strings"
	"unicode"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/lexicon"
)

// Lemmatizer reduces a token to its dictionary form. The lexicon is
// consulted first; unknown words fall back to English plural rules.
type Lemmatizer struct {
	lex *lexicon.Lexicon
}

// NewLemmatizer creates a lemmatizer. A nil lexicon means rules only.
func NewLemmatizer(lex *lexicon.Lexicon) *Lemmatizer {
	if lex == nil {
		lex = lexicon.New()
	}
	return &Lemmatizer{lex: lex}
}

// Lemma returns the lemma of a lowercase token.
func (l *Lemmatizer) Lemma(token string) string {
	token = strings.ToLower(token)
	if canonical, ok := l.lex.Lookup(token); ok {
		return canonical
	}
	if len(token) <= 3 || strings.IndexFunc(token, unicode.IsDigit) >= 0 {
		return token
	}
	return pluralRule(token)
}

func pluralRule(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "sses"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "zzes"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}
