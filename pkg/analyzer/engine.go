package analyzer

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// Model names understood by Open.
const (
	ModelProse   = "prose/en"
	ModelKagome  = "kagome/ipa"
	DefaultModel = ModelProse
)

// Tagged is one unit produced by an Engine for a single sentence.
type Tagged struct {
	Text   string
	Lemma  string
	POS    vocab.POS
	Proper bool
}

// Engine is a linguistic annotation engine. Implementations must be safe for
// concurrent use once opened.
type Engine interface {
	Name() string
	Tag(sentence string) ([]Tagged, error)
	Close() error
}

// Lexicon answers whether a word form is a known headword. Engines use it to
// choose between lemma candidates; a nil Lexicon is allowed.
type Lexicon interface {
	Contains(word string) bool
}

type opener func(lex Lexicon) (Engine, error)

var registry = map[string]opener{
	ModelProse:  openProse,
	ModelKagome: openKagome,
}

// contentScripts lists the writing systems each model scores. Text in any
// other script is tokenized but never becomes a candidate.
var contentScripts = map[string][]*unicode.RangeTable{
	ModelProse:  {unicode.Latin},
	ModelKagome: {unicode.Han, unicode.Hiragana, unicode.Katakana},
}

// ContentScripts returns the scripts scored for model, nil when unknown.
func ContentScripts(model string) []*unicode.RangeTable {
	return contentScripts[model]
}

// Open loads the engine registered under model.
func Open(model string, lex Lexicon) (Engine, error) {
	open, ok := registry[model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", vocab.ErrEngineUnavailable, model)
	}
	e, err := open(lex)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", vocab.ErrEngineUnavailable, model, err)
	}
	return e, nil
}

// Models lists the registered model names.
func Models() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownModel reports whether model is registered.
func KnownModel(model string) bool {
	_, ok := registry[model]
	return ok
}
