// Package vocab holds the data model shared by the analysis pipeline:
// documents coming in, tokens and candidates in the middle, enriched
// candidates going out to the reporter.
package vocab

// RawDocument is a script as handed over by the crawler.
type RawDocument struct {
	ID   string // episode id or file stem
	Date string // YYYYMMDD, empty when unknown
	Text string
}

// POS is the coarse part-of-speech tagset used across the pipeline.
type POS string

const (
	Noun  POS = "NOUN"
	Verb  POS = "VERB"
	Adj   POS = "ADJ"
	Adv   POS = "ADV"
	Other POS = "OTHER"
)

func (p POS) String() string { return string(p) }

// IsContent reports whether p is a content-word tag.
func (p POS) IsContent() bool {
	switch p {
	case Noun, Verb, Adj, Adv:
		return true
	}
	return false
}

// Span is a half-open byte range into RawDocument.Text.
type Span struct {
	Start int
	End   int
}

// Len returns the span width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Slice returns the part of text covered by s, or "" when s is out of range.
func (s Span) Slice(text string) string {
	if s.Start < 0 || s.End > len(text) || s.Start > s.End {
		return ""
	}
	return text[s.Start:s.End]
}

// Token represents a single analyzed word of a document.
type Token struct {
	Surface  string // the text as it appears (e.g. "jumped")
	Lemma    string // the dictionary form (e.g. "jump")
	POS      POS
	Proper   bool // proper noun, when the tagger can tell
	Span     Span // offsets of Surface
	Sentence Span // offsets of the enclosing sentence
}

// CEFR is a rough proficiency band attached to a candidate.
type CEFR string

const (
	A1 CEFR = "A1"
	A2 CEFR = "A2"
	B1 CEFR = "B1"
	B2 CEFR = "B2"
	C1 CEFR = "C1"
	C2 CEFR = "C2"
)

// Candidate is a unique lemma of a document with its aggregated attributes.
type Candidate struct {
	Lemma       string
	Surface     string // surface form of the first occurrence
	POS         POS
	Count       int
	Score       float64 // difficulty in [0, 1]
	Level       CEFR
	NewsCore    bool // part of the built-in B2+ current-affairs list
	FirstSeen   int  // byte offset of the first occurrence
	Example     Span // sentence of the first occurrence
	ExampleText string
}

// EnrichedCandidate is a Candidate with dictionary data attached.
// Empty strings mean the data was not available.
type EnrichedCandidate struct {
	Candidate
	Translation string
	Definition  string
	Phonetic    string
	Example     string // dictionary usage example, distinct from Candidate.ExampleText
}

// Enriched reports whether any dictionary field was filled.
func (e EnrichedCandidate) Enriched() bool {
	return e.Translation != "" || e.Definition != "" || e.Phonetic != "" || e.Example != ""
}
