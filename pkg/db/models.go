package db

import "time"

// Run is one execution of the pipeline over a day's scripts.
type Run struct {
	ID           string
	TargetDate   string
	Model        string
	StartedAt    time.Time
	FinishedAt   *time.Time
	EngineDocs   int
	FallbackDocs int
}

// Document is a script analyzed within a run.
type Document struct {
	ID       int64
	RunID    string
	SourceID string
	Date     string
	Path     string // tokenization path, "engine" or "fallback"
	AddedAt  time.Time
}

// Vocabulary is one ranked candidate of a document.
type Vocabulary struct {
	ID           int64
	DocumentID   int64
	Lemma        string
	Surface      string
	POS          string
	Occurrences  int
	Score        float64
	CEFR         string
	NewsCore     bool
	Rank         int
	Example      string // context sentence from the script
	Translation  string
	Definition   string
	Phonetic     string
	UsageExample string // dictionary example
}

// CachedLookup is a memoized dictionary answer. Found is false for cached
// misses.
type CachedLookup struct {
	Source      string
	Lemma       string
	Found       bool
	Translation string
	Definition  string
	Phonetic    string
	Example     string
	FetchedAt   time.Time
}
