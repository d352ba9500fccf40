package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/nlp"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

func TestClassify(t *testing.T) {
	c := Default()

	cases := []struct {
		name     string
		lemmas   []string
		entities []string
		want     store.Category
	}{
		{"service words", []string{"waiter", "table"}, nil, store.CategoryService},
		{"food words", []string{"bread", "cheese"}, nil, store.CategoryFood},
		{"no evidence", []string{"hello", "world"}, nil, store.CategoryGeneral},
		{"tie goes to food", []string{"bread", "waiter"}, nil, store.CategoryFood},
		{"empty", nil, nil, store.CategoryGeneral},
		{"money tips the balance", []string{"bread", "waiter"}, []string{nlp.EntityMoney}, store.CategoryService},
		{"money alone", []string{"hello"}, []string{nlp.EntityMoney}, store.CategoryService},
		{"each money occurrence counts", []string{"bread", "cheese"}, []string{nlp.EntityMoney, nlp.EntityMoney, nlp.EntityMoney}, store.CategoryService},
		{"other entity types ignored", []string{"bread"}, []string{"DISH", "DISH"}, store.CategoryFood},
		{"case insensitive", []string{"WAITER"}, nil, store.CategoryService},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.lemmas, tc.entities))
		})
	}
}

func TestScores(t *testing.T) {
	c := New([]string{"soup"}, []string{"soup", "bill"})

	food, service := c.Scores([]string{"soup", "bill", "bill"}, []string{nlp.EntityMoney})
	assert.Equal(t, 1, food, "word in both lexicons counts as food only")
	assert.Equal(t, 3, service)
}

func TestClassifyAnalysis(t *testing.T) {
	a := nlp.Analysis{
		Lemmas:   []string{"tip", "taste"},
		Entities: []nlp.Entity{{Type: nlp.EntityMoney, Value: "$5"}},
	}
	assert.Equal(t, store.CategoryService, Default().ClassifyAnalysis(a))
}

func TestClassifyAlwaysValid(t *testing.T) {
	c := Default()
	inputs := [][]string{nil, {"bread"}, {"waiter"}, {"x", "y", "z"}}
	for _, in := range inputs {
		assert.True(t, c.Classify(in, nil).Valid())
	}
}
