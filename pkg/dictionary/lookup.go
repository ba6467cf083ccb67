// Package dictionary attaches translations and definitions to candidates.
//
// Sources implement Lookup. A nil entry with a nil error means "not found";
// the Enricher treats not-found, errors, panics and timeouts the same way:
// the candidate passes through with empty fields.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// Entry is what a source knows about a lemma. Empty fields are unknown.
type Entry struct {
	Translation string `json:"translation,omitempty" yaml:"translation,omitempty"`
	Definition  string `json:"definition,omitempty" yaml:"definition,omitempty"`
	Phonetic    string `json:"phonetic,omitempty" yaml:"phonetic,omitempty"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Empty reports whether e carries no data.
func (e *Entry) Empty() bool {
	return e == nil || (e.Translation == "" && e.Definition == "" && e.Phonetic == "" && e.Example == "")
}

// Complete reports whether every field is filled.
func (e *Entry) Complete() bool {
	return e != nil && e.Translation != "" && e.Definition != "" && e.Phonetic != "" && e.Example != ""
}

// merge fills the empty fields of e from o.
func (e *Entry) merge(o *Entry) {
	if o == nil {
		return
	}
	if e.Translation == "" {
		e.Translation = strings.TrimSpace(o.Translation)
	}
	if e.Definition == "" {
		e.Definition = strings.TrimSpace(o.Definition)
	}
	if e.Phonetic == "" {
		e.Phonetic = strings.TrimSpace(o.Phonetic)
	}
	if e.Example == "" {
		e.Example = strings.TrimSpace(o.Example)
	}
}

// Lookup resolves a lemma to dictionary data.
type Lookup interface {
	Lookup(ctx context.Context, lemma string) (*Entry, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, lemma string) (*Entry, error)

func (f LookupFunc) Lookup(ctx context.Context, lemma string) (*Entry, error) {
	return f(ctx, lemma)
}

// Chain queries lookups in priority order. Each field is taken from the
// first source that has it, and the chain stops once every field is
// filled. Source errors are only reported when no source found anything.
type Chain []Lookup

func (c Chain) Lookup(ctx context.Context, lemma string) (*Entry, error) {
	var (
		merged Entry
		found  bool
		errs   []error
	)
	for _, l := range c {
		if l == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		e, err := l.Lookup(ctx, lemma)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if e.Empty() {
			continue
		}
		found = true
		merged.merge(e)
		if merged.Complete() {
			break
		}
	}
	if found {
		return &merged, nil
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", vocab.ErrLookupFailed, lemma, errors.Join(errs...))
	}
	return nil, nil
}
