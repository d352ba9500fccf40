package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

func TestLoaderDefaults(t *testing.T) {
	l := NewLoader(NLPConfig{})
	comp, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "waiter", comp.Lemmatizer.Lemma("waitresses"))
	assert.Equal(t, []string{"the", "bread"}, comp.Tokenizer.Tokenize("the bread"))
}

func TestLoaderWithFiles(t *testing.T) {
	l := NewLoader(NLPConfig{
		LemmasPath:   writeFile(t, "lemmas.yaml", "lemmas:\n  - canonical: pizza\n    variants: [pizze, pizzas]\n"),
		StoplistPath: writeFile(t, "stoplist.yaml", "terms: [the, a]\n"),
		EntitiesPath: writeFile(t, "entities.yaml", "entities:\n  DISH:\n    pizza: [pizze]\n"),
	})
	comp, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "pizza", comp.Lemmatizer.Lemma("pizze"))
	assert.Equal(t, "waiter", comp.Lemmatizer.Lemma("waiters"), "built-in groups survive the merge")

	res, err := comp.Analyzer().Analyze(context.Background(), "The pizze cost $9")
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza", "cost", "9"}, res.Lemmas)
	assert.Equal(t, []string{"MONEY", "DISH"}, res.EntityTypes())
}

func TestLoaderInlineStopwords(t *testing.T) {
	l := NewLoader(NLPConfig{
		StoplistPath: writeFile(t, "stoplist.yaml", "terms: [the]\n"),
		Stopwords:    []string{"Very", "really"},
	})
	comp, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"good", "good", "bread"}, comp.Tokenizer.Tokenize("The VERY good, really good bread"))
}

func TestLoaderLexiconStats(t *testing.T) {
	baseLoader := NewLoader(NLPConfig{})
	base, err := baseLoader.Load()
	require.NoError(t, err)
	fileLoader := NewLoader(NLPConfig{
		LemmasPath: writeFile(t, "lemmas.yaml", "lemmas:\n  - canonical: pizza\n    variants: [pizze, pizzas]\n"),
	})
	withFile, err := fileLoader.Load()
	require.NoError(t, err)

	before, after := base.Lexicon.Stats(), withFile.Lexicon.Stats()
	assert.Positive(t, before.Groups)
	assert.Equal(t, before.Groups+1, after.Groups)
	assert.Equal(t, before.TotalVariants+3, after.TotalVariants)
}

func TestLoaderMissingFile(t *testing.T) {
	l := NewLoader(NLPConfig{StoplistPath: "/nonexistent/stoplist.yaml"})
	_, err := l.Load()
	assert.Error(t, err)
}

func TestConfigClassifierOverrides(t *testing.T) {
	cfg := Default()
	cfg.Lexicon.Food = []string{"pizza"}

	c := cfg.Classifier()
	assert.Equal(t, store.CategoryFood, c.Classify([]string{"pizza"}, nil))
	assert.Equal(t, store.CategoryGeneral, c.Classify([]string{"bread"}, nil), "food lexicon replaced")
	assert.Equal(t, store.CategoryService, c.Classify([]string{"waiter"}, nil), "service lexicon kept")
}
