package difficulty

import "strings"

// StopWords is a set of folded word forms that never become candidates.
type StopWords map[string]struct{}

// NewStopWords builds a set from words, folding case and trimming space.
func NewStopWords(words ...string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		if w = normalize(w); w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}

// Contains reports whether word is a stop word.
func (s StopWords) Contains(word string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[normalize(word)]
	if !ok && strings.ContainsRune(word, '’') {
		_, ok = s[normalize(strings.ReplaceAll(word, "’", "'"))]
	}
	return ok
}

// Words returns the set as a slice in no particular order.
func (s StopWords) Words() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	return out
}

// DefaultStopWords returns the standard English stop list.
func DefaultStopWords() StopWords {
	return NewStopWords(englishStopWords...)
}

var englishStopWords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "she's", "her", "hers", "herself", "it", "it's",
	"its", "itself", "they", "them", "their", "theirs", "themselves", "what",
	"which", "who", "whom", "this", "that", "that'll", "these", "those", "am", "is",
	"are", "was", "were", "be", "been", "being", "have", "has", "had", "having",
	"do", "does", "did", "doing", "a", "an", "the", "and", "but", "if", "or",
	"because", "as", "until", "while", "of", "at", "by", "for", "with", "about",
	"against", "between", "into", "through", "during", "before", "after", "above",
	"below", "to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where", "why",
	"how", "all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too", "very",
	"s", "t", "can", "will", "just", "don", "don't", "should", "should've", "now",
	"d", "ll", "m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn",
	"couldn't", "didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn",
	"hasn't", "haven", "haven't", "isn", "isn't", "ma", "mightn", "mightn't",
	"mustn", "mustn't", "needn", "needn't", "shan", "shan't", "shouldn",
	"shouldn't", "wasn", "wasn't", "weren", "weren't", "won", "won't", "wouldn",
	"wouldn't",
}
