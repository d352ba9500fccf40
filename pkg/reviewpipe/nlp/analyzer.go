// Package nlp is the text analysis capability used by processing: it turns
// one review text into a lemma sequence, recognized entities and a character
// count.
//
// The pipeline only depends on the Analyzer interface. RuleAnalyzer is the
// built-in implementation: markup stripping, tokenization, lexicon-backed
// lemmatization and pattern-based entity recognition.
package nlp

import (
	"context"
	_ "embed"
	"fmt"
	"unicode/utf8"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/lexicon"
)

//go:embed lemmas.yaml
var defaultLemmas []byte

// Analyzer turns raw text into an Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, text string) (Analysis, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, text string) (Analysis, error) {
	return f(ctx, text)
}

// Analysis is the result of analyzing one text.
type Analysis struct {
	Lemmas         []string
	Entities       []Entity
	CharCount      int
	NormalizedText string
}

// EntityTypes returns one type label per recognized entity, in order.
func (a Analysis) EntityTypes() []string {
	types := make([]string, len(a.Entities))
	for i, e := range a.Entities {
		types[i] = e.Type
	}
	return types
}

// EntityTypeSet returns the distinct entity types.
func (a Analysis) EntityTypeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Entities))
	for _, e := range a.Entities {
		set[e.Type] = struct{}{}
	}
	return set
}

// RuleAnalyzer orchestrates the analysis flow:
// text → markup stripping → tokenization → lemmatization → entity recognition
type RuleAnalyzer struct {
	tokenizer  *Tokenizer
	lemmatizer *Lemmatizer
	entities   *EntityRecognizer
}

var _ Analyzer = (*RuleAnalyzer)(nil)

// NewRuleAnalyzer creates an analyzer with the given components. Nil
// components are replaced with empty defaults.
func NewRuleAnalyzer(tokenizer *Tokenizer, lemmatizer *Lemmatizer, entities *EntityRecognizer) *RuleAnalyzer {
	if tokenizer == nil {
		tokenizer = NewTokenizer(nil)
	}
	if lemmatizer == nil {
		lemmatizer = NewLemmatizer(nil)
	}
	if entities == nil {
		entities = NewEntityRecognizer()
	}
	return &RuleAnalyzer{tokenizer: tokenizer, lemmatizer: lemmatizer, entities: entities}
}

// DefaultLexicon returns the built-in lemma lexicon.
func DefaultLexicon() (*lexicon.Lexicon, error) {
	lex, err := lexicon.Parse(defaultLemmas)
	if err != nil {
		return nil, fmt.Errorf("parse built-in lemmas: %w", err)
	}
	return lex, nil
}

// DefaultAnalyzer returns a RuleAnalyzer over the built-in lexicon with no
// stopwords and no keyword entities.
func DefaultAnalyzer() (*RuleAnalyzer, error) {
	lex, err := DefaultLexicon()
	if err != nil {
		return nil, err
	}
	return NewRuleAnalyzer(NewTokenizer(nil), NewLemmatizer(lex), NewEntityRecognizer()), nil
}

// Analyze runs one text through the full analysis flow.
func (a *RuleAnalyzer) Analyze(ctx context.Context, text string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	normalized := NormalizeText(text)

	tokens := a.tokenizer.Tokenize(normalized)
	lemmas := make([]string, len(tokens))
	for i, tok := range tokens {
		lemmas[i] = a.lemmatizer.Lemma(tok)
	}

	return Analysis{
		Lemmas:         lemmas,
		Entities:       a.entities.Recognize(normalized),
		CharCount:      utf8.RuneCountInString(normalized),
		NormalizedText: normalized,
	}, nil
}
