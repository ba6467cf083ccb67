package difficulty

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// FrequencyTable holds corpus statistics as 1-based frequency ranks. Rank 1
// is the most frequent lemma. A nil table is valid and empty.
type FrequencyTable struct {
	rank map[string]int
	freq map[string]float64
}

// NewFrequencyTable ranks lemmas by descending frequency. Equal frequencies
// are ranked alphabetically so the table is deterministic.
func NewFrequencyTable(freqs map[string]float64) *FrequencyTable {
	type pair struct {
		lemma string
		freq  float64
	}
	merged := make(map[string]float64, len(freqs))
	for lemma, f := range freqs {
		key := normalize(lemma)
		if key == "" {
			continue
		}
		merged[key] += f
	}
	pairs := make([]pair, 0, len(merged))
	for lemma, f := range merged {
		pairs = append(pairs, pair{lemma, f})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].freq != pairs[j].freq {
			return pairs[i].freq > pairs[j].freq
		}
		return pairs[i].lemma < pairs[j].lemma
	})

	t := &FrequencyTable{
		rank: make(map[string]int, len(pairs)),
		freq: make(map[string]float64, len(pairs)),
	}
	for i, p := range pairs {
		t.rank[p.lemma] = i + 1
		t.freq[p.lemma] = p.freq
	}
	return t
}

// ParseCSV reads an NGSL-style word list. The first row is a header, the
// first column is the word and row order is the rank. A numeric second
// column, when present, is kept as the raw frequency. Repeated words keep
// their first rank.
func ParseCSV(r io.Reader) (*FrequencyTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	t := &FrequencyTable{rank: map[string]int{}, freq: map[string]float64{}}

	// Skip header row.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return t, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	rank := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		word := normalize(record[0])
		if word == "" {
			continue
		}
		if _, dup := t.rank[word]; dup {
			continue
		}

		rank++
		t.rank[word] = rank
		if len(record) > 1 {
			if f, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64); err == nil {
				t.freq[word] = f
			}
		}
	}
	return t, nil
}

// LoadCSV opens path and parses it with ParseCSV.
func LoadCSV(path string) (*FrequencyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	t, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse word list %s: %w", path, err)
	}
	return t, nil
}

// Rank returns the 1-based rank of lemma.
func (t *FrequencyTable) Rank(lemma string) (int, bool) {
	if t == nil {
		return 0, false
	}
	r, ok := t.rank[normalize(lemma)]
	return r, ok
}

// Frequency returns the raw frequency of lemma, or 0 when unknown.
func (t *FrequencyTable) Frequency(lemma string) float64 {
	if t == nil {
		return 0
	}
	return t.freq[normalize(lemma)]
}

// Len returns the number of ranked lemmas.
func (t *FrequencyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rank)
}

// Contains reports whether word is ranked. It lets the table act as the
// analyzer's lexicon when choosing lemma candidates.
func (t *FrequencyTable) Contains(word string) bool {
	_, ok := t.Rank(word)
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
