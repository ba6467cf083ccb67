// Package candidate reduces a document's tokens to a ranked list of unique
// lemmas worth studying.
package candidate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/japaniel/newsvocab/pkg/difficulty"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

// DefaultTopN is the number of candidates kept per document.
const DefaultTopN = 30

// Aggregator groups tokens by lemma and ranks the groups by difficulty.
type Aggregator struct {
	scorer *difficulty.Scorer
	topN   int
}

// New creates an Aggregator. topN <= 0 keeps every candidate.
func New(scorer *difficulty.Scorer, topN int) *Aggregator {
	return &Aggregator{scorer: scorer, topN: topN}
}

type group struct {
	cand     vocab.Candidate
	posCount map[vocab.POS]int
	posOrder []vocab.POS
}

// Aggregate deduplicates tokens by lemma in a single pass. text is the
// document the token spans point into; it is only used to cut out example
// sentences and may be empty.
//
// Each candidate keeps the earliest occurrence as its example, the highest
// occurrence score as its score and the most frequent POS (ties go to the
// tag seen first). Candidates are ordered by score descending, then by
// first occurrence, and truncated to the configured top N. The result is
// never nil.
func (a *Aggregator) Aggregate(tokens []vocab.Token, text string) []vocab.Candidate {
	groups := make(map[string]*group)
	var order []*group

	for _, tok := range tokens {
		if !a.scorer.Eligible(tok) {
			continue
		}
		lemma := tok.Lemma
		if lemma == "" {
			lemma = tok.Surface
		}
		key := Key(lemma)
		score := a.scorer.Score(tok)

		g, ok := groups[key]
		if !ok {
			g = &group{
				cand: vocab.Candidate{
					Lemma:     key,
					Surface:   tok.Surface,
					Score:     score,
					FirstSeen: tok.Span.Start,
					Example:   tok.Sentence,
				},
				posCount: map[vocab.POS]int{},
			}
			groups[key] = g
			order = append(order, g)
		} else if tok.Span.Start < g.cand.FirstSeen {
			g.cand.Surface = tok.Surface
			g.cand.FirstSeen = tok.Span.Start
			g.cand.Example = tok.Sentence
		}

		g.cand.Count++
		if score > g.cand.Score {
			g.cand.Score = score
		}
		if g.posCount[tok.POS] == 0 {
			g.posOrder = append(g.posOrder, tok.POS)
		}
		g.posCount[tok.POS]++
	}

	out := make([]vocab.Candidate, 0, len(order))
	for _, g := range order {
		c := g.cand
		c.POS = dominantPOS(g)
		c.Level = difficulty.EstimateCEFR(c.Score)
		c.NewsCore = difficulty.IsNewsCore(c.Lemma)
		c.ExampleText = c.Example.Slice(text)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].FirstSeen < out[j].FirstSeen
	})

	if a.topN > 0 && len(out) > a.topN {
		out = out[:a.topN]
	}
	return out
}

func dominantPOS(g *group) vocab.POS {
	best := g.posOrder[0]
	for _, p := range g.posOrder[1:] {
		if g.posCount[p] > g.posCount[best] {
			best = p
		}
	}
	return best
}

// Key returns the grouping key of a lemma: case-folded when it contains
// Latin letters, unchanged otherwise.
func Key(lemma string) string {
	for _, r := range lemma {
		if unicode.Is(unicode.Latin, r) {
			return strings.ToLower(lemma)
		}
	}
	return lemma
}
