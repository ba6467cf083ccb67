// Package difficulty scores how hard a word is likely to be for a learner.
//
// Scores live on the closed interval [0, 1]. The policy combines three
// signals: a base from the lemma's corpus frequency rank (rarer is harder),
// a bonus for long surface forms and a down-weight for function words. All
// constants are exposed through Weights and may be tuned; callers should
// rely on relative ordering rather than exact values.
package difficulty

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// Weights are the tunable constants of the scoring policy.
type Weights struct {
	// RareBase is the base score of lemmas missing from the frequency table
	// and the ceiling of every rank-derived base.
	RareBase float64
	// RunePerLength is the per-rune base used when no frequency data exists.
	RunePerLength float64
	// LengthThreshold is the surface length (in runes) after which the
	// length bonus starts.
	LengthThreshold int
	LengthStep      float64
	LengthCap       float64
	// OtherWeight multiplies scores of tokens tagged OTHER.
	OtherWeight float64
}

// DefaultWeights returns the shipped policy.
func DefaultWeights() Weights {
	return Weights{
		RareBase:        0.8,
		RunePerLength:   0.08,
		LengthThreshold: 6,
		LengthStep:      0.04,
		LengthCap:       0.2,
		OtherWeight:     0.6,
	}
}

// Config controls which tokens are eligible and how they are scored.
type Config struct {
	MinWordLength int
	StopWords     StopWords
	SkipProper    bool
	// Scripts restricts candidates to words written in these scripts.
	// Letters of the Common and Inherited scripts (ー, combining marks) are
	// always accepted. Empty accepts every script.
	Scripts []*unicode.RangeTable
	Weights Weights
}

// DefaultConfig mirrors the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MinWordLength: 4,
		StopWords:     DefaultStopWords(),
		SkipProper:    true,
		Weights:       DefaultWeights(),
	}
}

// Scorer is safe for concurrent use; it never mutates its inputs.
type Scorer struct {
	freq *FrequencyTable
	cfg  Config
}

// NewScorer creates a scorer over freq, which may be nil.
func NewScorer(freq *FrequencyTable, cfg Config) *Scorer {
	if cfg.StopWords == nil {
		cfg.StopWords = StopWords{}
	}
	return &Scorer{freq: freq, cfg: cfg}
}

// Eligible reports whether tok may become a candidate at all. Short words,
// stop words, tokens without letters, words in a foreign script and
// (optionally) proper nouns are excluded before scoring.
func (s *Scorer) Eligible(tok vocab.Token) bool {
	if !hasLetter(tok.Surface) {
		return false
	}
	if !s.inScripts(tok.Surface) {
		return false
	}
	if utf8.RuneCountInString(tok.Surface) < s.cfg.MinWordLength {
		return false
	}
	if s.cfg.StopWords.Contains(tok.Lemma) || s.cfg.StopWords.Contains(tok.Surface) {
		return false
	}
	if s.cfg.SkipProper && tok.Proper {
		return false
	}
	return true
}

// Score returns the difficulty of tok in [0, 1].
func (s *Scorer) Score(tok vocab.Token) float64 {
	w := s.cfg.Weights

	base := w.RareBase
	if s.freq.Len() > 0 {
		if rank, ok := s.rank(tok); ok {
			base = w.RareBase * math.Log1p(float64(rank)) / math.Log1p(float64(s.freq.Len()))
		}
	} else {
		lemma := tok.Lemma
		if lemma == "" {
			lemma = tok.Surface
		}
		base = math.Min(w.RareBase, float64(utf8.RuneCountInString(lemma))*w.RunePerLength)
	}

	bonus := 0.0
	if extra := utf8.RuneCountInString(tok.Surface) - w.LengthThreshold; extra > 0 {
		bonus = math.Min(w.LengthCap, float64(extra)*w.LengthStep)
	}

	score := base + bonus
	if !tok.POS.IsContent() {
		score *= w.OtherWeight
	}
	return round4(clamp(score))
}

func (s *Scorer) rank(tok vocab.Token) (int, bool) {
	if r, ok := s.freq.Rank(tok.Lemma); ok {
		return r, true
	}
	return s.freq.Rank(tok.Surface)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// inScripts reports whether every letter of word belongs to a content script.
func (s *Scorer) inScripts(word string) bool {
	if len(s.cfg.Scripts) == 0 {
		return true
	}
	for _, r := range word {
		if !unicode.IsLetter(r) || unicode.In(r, unicode.Common, unicode.Inherited) {
			continue
		}
		if !unicode.In(r, s.cfg.Scripts...) {
			return false
		}
	}
	return true
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
