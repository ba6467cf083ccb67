package difficulty

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

func tok(surface string, pos vocab.POS) vocab.Token {
	return vocab.Token{Surface: surface, Lemma: strings.ToLower(surface), POS: pos}
}

func sampleTable() *FrequencyTable {
	return NewFrequencyTable(map[string]float64{
		"the": 1000, "say": 500, "government": 200, "plan": 150,
		"tariff": 5, "sanction": 4, "moratorium": 1,
	})
}

func TestScoreBounds(t *testing.T) {
	tokens := []vocab.Token{
		tok("", vocab.Other),
		tok("a", vocab.Noun),
		tok("x", vocab.Other),
		tok("the", vocab.Other),
		tok("moratorium", vocab.Noun),
		tok("internationalization", vocab.Noun),
		tok("supercalifragilisticexpialidocious", vocab.Adj),
		tok("경제", vocab.Noun),
		tok("経済成長率", vocab.Noun),
	}
	tables := map[string]*FrequencyTable{
		"nil":    nil,
		"empty":  NewFrequencyTable(nil),
		"sample": sampleTable(),
	}
	for name, table := range tables {
		s := NewScorer(table, DefaultConfig())
		for _, tk := range tokens {
			got := s.Score(tk)
			assert.GreaterOrEqual(t, got, 0.0, "%s/%q", name, tk.Surface)
			assert.LessOrEqual(t, got, 1.0, "%s/%q", name, tk.Surface)
		}
	}

	heavy := NewScorer(nil, Config{Weights: Weights{RareBase: 5, RunePerLength: 1, LengthStep: 1, LengthCap: 10}})
	assert.Equal(t, 1.0, heavy.Score(tok("enormous", vocab.Noun)), "scores are clamped")
}

func TestScoreRarerIsHarder(t *testing.T) {
	s := NewScorer(sampleTable(), DefaultConfig())

	common := s.Score(tok("plan", vocab.Noun))
	rare := s.Score(tok("tariff", vocab.Noun))
	unseen := s.Score(tok("envoy", vocab.Noun))

	assert.Less(t, common, rare)
	assert.Less(t, rare, unseen)
	assert.Equal(t, DefaultWeights().RareBase, unseen, "unseen lemmas get the rare base")
}

func TestScoreLengthBonus(t *testing.T) {
	s := NewScorer(sampleTable(), DefaultConfig())

	// all unseen, so only the length bonus differs
	short := s.Score(tok("envoy", vocab.Noun))
	longer := s.Score(tok("emissary", vocab.Noun))
	longest := s.Score(tok("plenipotentiary", vocab.Noun))

	assert.Less(t, short, longer)
	assert.LessOrEqual(t, longer, longest)
}

func TestScoreWithoutStatsUsesLength(t *testing.T) {
	s := NewScorer(nil, DefaultConfig())
	assert.Less(t, s.Score(tok("plan", vocab.Noun)), s.Score(tok("tariff", vocab.Noun)))
	assert.InDelta(t, 0.32, s.Score(tok("plan", vocab.Noun)), 1e-9)
}

func TestScoreDownWeightsOther(t *testing.T) {
	s := NewScorer(nil, DefaultConfig())
	content := s.Score(tok("nevertheless", vocab.Adv))
	other := s.Score(tok("nevertheless", vocab.Other))
	assert.InDelta(t, content*DefaultWeights().OtherWeight, other, 1e-4)
}

func TestScoreUsesSurfaceWhenLemmaUnranked(t *testing.T) {
	s := NewScorer(sampleTable(), DefaultConfig())
	withLemma := vocab.Token{Surface: "plans", Lemma: "plan", POS: vocab.Noun}
	surfaceOnly := vocab.Token{Surface: "Plan", Lemma: "plan-b", POS: vocab.Noun}
	assert.Less(t, s.Score(withLemma), DefaultWeights().RareBase)
	assert.Less(t, s.Score(surfaceOnly), DefaultWeights().RareBase)
}

func TestEligible(t *testing.T) {
	s := NewScorer(nil, Config{
		MinWordLength: 3,
		StopWords:     NewStopWords("the", "don't"),
		SkipProper:    true,
	})

	tests := []struct {
		name string
		tok  vocab.Token
		want bool
	}{
		{"content word", tok("fox", vocab.Noun), true},
		{"too short", tok("is", vocab.Verb), false},
		{"stop word by lemma", vocab.Token{Surface: "The", Lemma: "the"}, false},
		{"stop word by surface", vocab.Token{Surface: "don’t", Lemma: "do"}, false},
		{"digits only", tok("2024", vocab.Other), false},
		{"proper noun", vocab.Token{Surface: "Seoul", Lemma: "seoul", POS: vocab.Noun, Proper: true}, false},
		{"hangul", tok("경제학", vocab.Noun), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Eligible(tt.tok))
		})
	}

	keepProper := NewScorer(nil, Config{MinWordLength: 1})
	assert.True(t, keepProper.Eligible(vocab.Token{Surface: "Seoul", Proper: true}))
}

func TestEligibleScripts(t *testing.T) {
	latin := NewScorer(nil, Config{MinWordLength: 2, Scripts: []*unicode.RangeTable{unicode.Latin}})
	japanese := NewScorer(nil, Config{MinWordLength: 2, Scripts: []*unicode.RangeTable{unicode.Han, unicode.Hiragana, unicode.Katakana}})

	tests := []struct {
		name   string
		scorer *Scorer
		tok    vocab.Token
		want   bool
	}{
		{"english word", latin, tok("sanctions", vocab.Noun), true},
		{"accented latin", latin, tok("café", vocab.Noun), true},
		{"dotted abbreviation", latin, tok("U.S.", vocab.Noun), true},
		{"hangul in english run", latin, tok("승인했습니다", vocab.Verb), false},
		{"mixed script word", latin, tok("K팝", vocab.Noun), false},
		{"katakana with long vowel mark", japanese, tok("コーヒー", vocab.Noun), true},
		{"kanji", japanese, tok("経済", vocab.Noun), true},
		{"english in japanese run", japanese, tok("tariff", vocab.Noun), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scorer.Eligible(tt.tok))
		})
	}
}

func TestDefaultStopWords(t *testing.T) {
	sw := DefaultStopWords()
	for _, w := range []string{"the", "The", "again", "wouldn't"} {
		assert.True(t, sw.Contains(w), w)
	}
	assert.False(t, sw.Contains("tariff"))
	assert.False(t, StopWords(nil).Contains("the"))
	require.Len(t, NewStopWords(" A ", "a", "").Words(), 1)
}

func TestEstimateCEFR(t *testing.T) {
	tests := []struct {
		score float64
		want  vocab.CEFR
	}{
		{1, vocab.C2},
		{0.875, vocab.C2},
		{0.8, vocab.C1},
		{0.7, vocab.B2},
		{0.5, vocab.B1},
		{0.4, vocab.A2},
		{0.1, vocab.A1},
		{0, vocab.A1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateCEFR(tt.score), "score %v", tt.score)
	}
}

func TestIsNewsCore(t *testing.T) {
	assert.True(t, IsNewsCore("tariff"))
	assert.True(t, IsNewsCore(" Sanction "))
	assert.False(t, IsNewsCore("banana"))

	words := NewsCoreWords()
	assert.Contains(t, words, "ceasefire")
	assert.IsNonDecreasing(t, words)
}
