package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLexiconNew(t *testing.T) {
	lex := New()
	if lex == nil {
		t.Fatal("New() returned nil")
	}

	stats := lex.Stats()
	if stats.Groups != 0 {
		t.Errorf("New lexicon should have 0 groups, got %d", stats.Groups)
	}
}

func TestLexiconAddGroup(t *testing.T) {
	lex := New()
	lex.AddGroup("Waiter", []string{"waiters", "WAITRESS", "waiter", ""})

	if got, ok := lex.Lookup("Waitress"); !ok || got != "waiter" {
		t.Errorf("Lookup('Waitress') = %q, %v, want 'waiter'", got, ok)
	}
	if _, ok := lex.Lookup("chef"); ok {
		t.Error("Lookup('chef') should miss")
	}

	stats := lex.Stats()
	if stats.Groups != 1 || stats.TotalVariants != 3 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestLexiconReplaceGroup(t *testing.T) {
	lex := New()
	lex.AddGroup("order", []string{"orders", "ordered"})
	lex.AddGroup("order", []string{"ordering"})

	if _, ok := lex.Lookup("orders"); ok {
		t.Error("replaced variant 'orders' is still indexed")
	}
	if got, _ := lex.Lookup("ordering"); got != "order" {
		t.Errorf("Lookup('ordering') = %q, want 'order'", got)
	}
}

func TestLexiconMerge(t *testing.T) {
	base := New()
	base.AddGroup("flavor", []string{"flavors"})
	base.AddGroup("tip", []string{"tips"})

	extra := New()
	extra.AddGroup("flavor", []string{"flavour"})
	extra.AddGroup("menu", []string{"menus"})

	base.Merge(extra)
	base.Merge(nil)

	if got, _ := base.Lookup("flavour"); got != "flavor" {
		t.Errorf("Lookup('flavour') = %q, want 'flavor'", got)
	}
	if got, _ := base.Lookup("menus"); got != "menu" {
		t.Errorf("Lookup('menus') = %q, want 'menu'", got)
	}
	if got, _ := base.Lookup("tips"); got != "tip" {
		t.Errorf("Lookup('tips') = %q, want 'tip'", got)
	}
	if base.Stats().Groups != 3 {
		t.Errorf("Groups = %d, want 3", base.Stats().Groups)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `lemmas:
  - canonical: order
    variants: [orders, ordered, ordering]
  - canonical: ""
    variants: [ignored]
  - canonical: flavor
    variants: [flavour, flavours]
`
	path := filepath.Join(t.TempDir(), "lemmas.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	lex, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML failed: %v", err)
	}

	if got, _ := lex.Lookup("ordered"); got != "order" {
		t.Errorf("Lookup('ordered') = %q, want 'order'", got)
	}
	if got, _ := lex.Lookup("flavours"); got != "flavor" {
		t.Errorf("Lookup('flavours') = %q, want 'flavor'", got)
	}
	if _, ok := lex.Lookup("ignored"); ok {
		t.Error("group with empty canonical should be skipped")
	}

	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Parse([]byte("lemmas: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
