package config

import (
	"fmt"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/classify"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/lexicon"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/nlp"
)

// Loader loads the analyzer resource files and constructs components
type Loader struct {
	LemmasPath   string
	StoplistPath string
	EntitiesPath string
	Stopwords    []string
}

// Components holds all loaded analysis components
type Components struct {
	Tokenizer  *nlp.Tokenizer
	Lemmatizer *nlp.Lemmatizer
	Entities   *nlp.EntityRecognizer
	Lexicon    *lexicon.Lexicon
}

// Analyzer assembles the rule analyzer from the loaded components.
func (c *Components) Analyzer() *nlp.RuleAnalyzer {
	return nlp.NewRuleAnalyzer(c.Tokenizer, c.Lemmatizer, c.Entities)
}

// NewLoader returns a loader for the files named in cfg.
func NewLoader(cfg NLPConfig) Loader {
	return Loader{
		LemmasPath:   cfg.LemmasPath,
		StoplistPath: cfg.StoplistPath,
		EntitiesPath: cfg.EntitiesPath,
		Stopwords:    cfg.Stopwords,
	}
}

// Load reads all configured files and returns initialized components.
// Unset paths leave the built-in defaults in place.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Lemma lexicon: built-in groups, extended or overridden by the file
	lex, err := nlp.DefaultLexicon()
	if err != nil {
		return nil, err
	}
	if l.LemmasPath != "" {
		extra, err := lexicon.LoadFromYAML(l.LemmasPath)
		if err != nil {
			return nil, fmt.Errorf("load lemmas: %w", err)
		}
		lex.Merge(extra)
	}
	comp.Lexicon = lex
	comp.Lemmatizer = nlp.NewLemmatizer(lex)

	// Stoplist
	if l.StoplistPath != "" {
		stoplist, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Tokenizer = nlp.NewTokenizer(stoplist.Terms)
	} else {
		comp.Tokenizer = nlp.NewTokenizer([]string{})
	}
	for _, w := range l.Stopwords {
		comp.Tokenizer.AddStopword(w)
	}

	// Keyword entities
	comp.Entities = nlp.NewEntityRecognizer()
	if l.EntitiesPath != "" {
		ents, err := LoadEntities(l.EntitiesPath)
		if err != nil {
			return nil, fmt.Errorf("load entities: %w", err)
		}
		for entityType, named := range ents.Entities {
			for name, keywords := range named {
				comp.Entities.AddEntity(entityType, name, keywords)
			}
		}
	}

	return comp, nil
}

// Classifier builds the classifier, replacing each built-in lexicon that the
// configuration overrides.
func (c Config) Classifier() *classify.Classifier {
	food, service := classify.DefaultFood, classify.DefaultService
	if len(c.Lexicon.Food) > 0 {
		food = c.Lexicon.Food
	}
	if len(c.Lexicon.Service) > 0 {
		service = c.Lexicon.Service
	}
	return classify.New(food, service)
}
