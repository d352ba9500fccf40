package lexicon

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected or variant word forms to a canonical lemma:
//   - Inflections: waiters, waited, waiting -> wait(er)
//   - Irregular forms the suffix rules get wrong: fries -> fries, ate -> eat
//   - Spelling variants: flavour -> flavor
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	// Example: "order" -> ["order", "orders", "ordered", "ordering"]
	groups map[string][]string

	// variant -> canonical
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups:       make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads lemma groups from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - canonical: order
//	    variants: [orders, ordered, ordering]
//	  - canonical: flavor
//	    variants: [flavour, flavours, flavors]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML bytes in the LoadFromYAML format.
func Parse(data []byte) (*Lexicon, error) {
	var config struct {
		Lemmas []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Lemmas {
		if strings.TrimSpace(entry.Canonical) == "" {
			continue
		}
		lex.AddGroup(entry.Canonical, entry.Variants)
	}
	return lex, nil
}

// AddGroup adds a lemma group. The canonical form is always the first entry
// of the group. If the group already exists, its old reverse index entries
// are cleaned up first.
func (l *Lexicon) AddGroup(canonical string, variants []string) {
	canonical = strings.ToLower(strings.TrimSpace(canonical))

	if old, exists := l.groups[canonical]; exists {
		for _, v := range old {
			delete(l.reverseIndex, v)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)
	normalized = append(normalized, canonical)
	seen[canonical] = true

	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && !seen[v] {
			normalized = append(normalized, v)
			seen[v] = true
		}
	}

	l.groups[canonical] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Merge copies every group of other into l. Groups in other win.
func (l *Lexicon) Merge(other *Lexicon) {
	if other == nil {
		return
	}
	for canonical, variants := range other.groups {
		l.AddGroup(canonical, variants)
	}
}

// Lookup returns the canonical form of token when the lexicon knows it.
func (l *Lexicon) Lookup(token string) (string, bool) {
	canonical, ok := l.reverseIndex[strings.ToLower(token)]
	return canonical, ok
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, variants := range l.groups {
		total += len(variants)
	}
	return Stats{Groups: len(l.groups), TotalVariants: total}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Groups        int // Number of canonical forms
	TotalVariants int // Total number of forms across all groups
}
