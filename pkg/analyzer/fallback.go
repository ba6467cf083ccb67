package analyzer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// reWord matches, in order of preference: numbers with internal separators
// (3.5, 10,000), dotted abbreviations (U.S., a.m.) and plain words.
var reWord = regexp.MustCompile(`\p{N}+(?:[.,]\p{N}+)+|(?:\p{L}\.){2,}|[\p{L}\p{N}]+(?:['’-][\p{L}\p{N}]+)*`)

// suffix rules for the heuristic tagger, checked in order
var suffixTags = []struct {
	suffix string
	minLen int
	pos    vocab.POS
}{
	{"tion", 6, vocab.Noun},
	{"sion", 6, vocab.Noun},
	{"ment", 6, vocab.Noun},
	{"ness", 6, vocab.Noun},
	{"ity", 5, vocab.Noun},
	{"ism", 5, vocab.Noun},
	{"ance", 6, vocab.Noun},
	{"ence", 6, vocab.Noun},
	{"ship", 6, vocab.Noun},
	{"hood", 6, vocab.Noun},
	{"ize", 5, vocab.Verb},
	{"ise", 6, vocab.Verb},
	{"ify", 5, vocab.Verb},
	{"ous", 5, vocab.Adj},
	{"ful", 5, vocab.Adj},
	{"ive", 5, vocab.Adj},
	{"able", 6, vocab.Adj},
	{"ible", 6, vocab.Adj},
	{"less", 6, vocab.Adj},
	{"ical", 6, vocab.Adj},
	{"ly", 5, vocab.Adv},
}

// fallbackTokens splits each sentence on whitespace and punctuation. The
// surface form doubles as the lemma.
func fallbackTokens(text string, sentences []sentence) []vocab.Token {
	var out []vocab.Token
	for _, s := range sentences {
		for i, loc := range reWord.FindAllStringIndex(s.text, -1) {
			word := s.text[loc[0]:loc[1]]
			out = append(out, vocab.Token{
				Surface:  word,
				Lemma:    word,
				POS:      guessPOS(word),
				Proper:   i > 0 && looksProper(word),
				Span:     vocab.Span{Start: s.start + loc[0], End: s.start + loc[1]},
				Sentence: vocab.Span{Start: s.start, End: s.end},
			})
		}
	}
	return out
}

func guessPOS(word string) vocab.POS {
	w := strings.ToLower(word)
	n := utf8.RuneCountInString(w)
	for _, rule := range suffixTags {
		if n >= rule.minLen && strings.HasSuffix(w, rule.suffix) {
			return rule.pos
		}
	}
	return vocab.Other
}

// looksProper flags capitalised words that do not start a sentence.
func looksProper(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	if size == len(word) || !unicode.IsUpper(r) {
		return false
	}
	return unicode.Is(unicode.Latin, r)
}
