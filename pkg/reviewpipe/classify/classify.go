package classify

import (
	"strings"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/nlp"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// DefaultFood is the built-in FOOD lexicon.
var DefaultFood = []string{
	"sandwich", "bread", "meat", "cheese", "ham", "omelette", "food", "meal",
	"lettuce", "tomato", "mayo", "mustard", "avocado", "bacon", "turkey",
	"chicken", "toast", "baguette", "wrap", "salad", "fries", "vegetarian",
	"vegan", "gluten", "flavor", "taste", "fresh", "spicy", "recipe",
	"ingredient", "portion",
}

// DefaultService is the built-in SERVICE lexicon.
var DefaultService = []string{
	"waiter", "service", "table", "staff", "server", "host", "manager",
	"tip", "bill", "payment", "cashier", "order", "wait", "delay",
	"reservation", "cleanliness", "atmosphere", "ambiance", "complaint",
	"feedback", "experience",
}

// Classifier maps analyzer output to a category. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	food    map[string]struct{}
	service map[string]struct{}
}

// New creates a classifier from the given lexicons. Entries are lowercased.
func New(food, service []string) *Classifier {
	return &Classifier{food: toSet(food), service: toSet(service)}
}

// Default returns a classifier over DefaultFood and DefaultService.
func Default() *Classifier {
	return New(DefaultFood, DefaultService)
}

// Scores counts lexicon evidence. A lemma in both lexicons counts as food.
// entityTypes holds one label per recognized entity; every MONEY occurrence
// adds one service point.
func (c *Classifier) Scores(lemmas []string, entityTypes []string) (food, service int) {
	for _, l := range lemmas {
		l = strings.ToLower(l)
		if _, ok := c.food[l]; ok {
			food++
		} else if _, ok := c.service[l]; ok {
			service++
		}
	}
	for _, t := range entityTypes {
		if t == nlp.EntityMoney {
			service++
		}
	}
	return food, service
}

// Classify returns the category for one text.
//
// The branch order is the tie-break: equal positive scores resolve to FOOD,
// zero scores to GENERAL.
func (c *Classifier) Classify(lemmas []string, entityTypes []string) store.Category {
	food, service := c.Scores(lemmas, entityTypes)
	switch {
	case service > food:
		return store.CategoryService
	case food >= service && food > 0:
		return store.CategoryFood
	default:
		return store.CategoryGeneral
	}
}

// ClassifyAnalysis is Classify over an analyzer result.
func (c *Classifier) ClassifyAnalysis(a nlp.Analysis) store.Category {
	return c.Classify(a.Lemmas, a.EntityTypes())
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
