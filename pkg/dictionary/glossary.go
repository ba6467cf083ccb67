package dictionary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// GlossaryItem is one row of a glossary file in list form.
type GlossaryItem struct {
	Lemma string `json:"lemma" yaml:"lemma"`
	Entry `json:",inline" yaml:",inline"`
}

// Glossary is a local lemma → Entry resource, typically a curated
// translation list. It is safe for concurrent use.
type Glossary struct {
	// index is read concurrently by enrichment workers and written by Put.
	mu    sync.RWMutex
	index map[string]Entry
}

// NewGlossary builds a glossary from a map keyed by lemma.
func NewGlossary(entries map[string]Entry) *Glossary {
	g := &Glossary{index: make(map[string]Entry, len(entries))}
	for lemma, e := range entries {
		g.Put(lemma, e)
	}
	return g
}

// LoadGlossary reads a YAML or JSON glossary. Two layouts are accepted:
// a wrapper object {"entries": [{lemma, translation, ...}]} or a plain map
// keyed by lemma.
func LoadGlossary(path string) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}

	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewGlossary(nil), nil
	}

	// Try parsing as wrapper first { "entries": [...] }
	var wrapper struct {
		Entries []GlossaryItem `json:"entries" yaml:"entries"`
	}
	if err := unmarshal(data, &wrapper); err == nil && len(wrapper.Entries) > 0 {
		g := NewGlossary(nil)
		for _, item := range wrapper.Entries {
			g.Put(item.Lemma, item.Entry)
		}
		return g, nil
	}

	// Fall back to a map keyed by lemma.
	var entries map[string]Entry
	if err := unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse glossary %s as list or map: %w", path, err)
	}
	return NewGlossary(entries), nil
}

// Put adds or replaces the entry of lemma. Empty lemmas are ignored.
func (g *Glossary) Put(lemma string, e Entry) {
	key := glossaryKey(lemma)
	if key == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index == nil {
		g.index = make(map[string]Entry)
	}
	g.index[key] = e
}

// Lookup implements Lookup. It never fails.
func (g *Glossary) Lookup(_ context.Context, lemma string) (*Entry, error) {
	g.mu.RLock()
	e, ok := g.index[glossaryKey(lemma)]
	g.mu.RUnlock()
	if !ok || e.Empty() {
		return nil, nil
	}
	return &e, nil
}

// Len returns the number of entries.
func (g *Glossary) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.index)
}

// Lemmas returns the indexed lemmas, sorted.
func (g *Glossary) Lemmas() []string {
	g.mu.RLock()
	out := make([]string, 0, len(g.index))
	for k := range g.index {
		out = append(out, k)
	}
	g.mu.RUnlock()
	sort.Strings(out)
	return out
}

func glossaryKey(lemma string) string {
	return strings.ToLower(strings.TrimSpace(lemma))
}
