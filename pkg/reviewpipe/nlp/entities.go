package nlp

import (
	"regexp"
	"sort"
	"strings"
)

// EntityMoney labels a monetary amount.
const EntityMoney = "MONEY"

// Entity represents a recognized entity
type Entity struct {
	Type  string
	Value string
}

var moneyPattern = regexp.MustCompile(`(?i)` +
	`[$€£¥]\s?\d+(?:[.,]\d+)*` +
	`|\b\d+(?:[.,]\d+)*\s?(?:dollars?|bucks|euros?|pounds?|quid|cents?|usd|eur|gbp)\b` +
	`|\b(?:usd|eur|gbp)\s?\d+(?:[.,]\d+)*`)

// EntityRecognizer finds monetary amounts and configured keyword entities.
type EntityRecognizer struct {
	entities map[string]map[string][]string // type → name → keywords
}

// NewEntityRecognizer creates a recognizer that knows MONEY only.
func NewEntityRecognizer() *EntityRecognizer {
	return &EntityRecognizer{entities: make(map[string]map[string][]string)}
}

// AddEntity adds an entity type with name and keywords
func (r *EntityRecognizer) AddEntity(entityType, name string, keywords []string) {
	if r.entities[entityType] == nil {
		r.entities[entityType] = make(map[string][]string)
	}
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			normalized = append(normalized, kw)
		}
	}
	r.entities[entityType][name] = normalized
}

// Recognize returns one MONEY entity per amount, in text order, followed by
// keyword entities (at most one per type and name) sorted by type and name.
func (r *EntityRecognizer) Recognize(text string) []Entity {
	var out []Entity
	for _, m := range moneyPattern.FindAllString(text, -1) {
		out = append(out, Entity{Type: EntityMoney, Value: m})
	}

	lowerText := strings.ToLower(text)
	var keyed []Entity
	for entityType, named := range r.entities {
		for name, keywords := range named {
			for _, kw := range keywords {
				if strings.Contains(lowerText, kw) {
					keyed = append(keyed, Entity{Type: entityType, Value: name})
					break
				}
			}
		}
	}
	sort.Slice(keyed, func(i, j int) bool {
		if keyed[i].Type != keyed[j].Type {
			return keyed[i].Type < keyed[j].Type
		}
		return keyed[i].Value < keyed[j].Value
	})

	return append(out, keyed...)
}
