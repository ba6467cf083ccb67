// Package export writes the daily study files: vocabulary_YYYYMMDD.json for
// the report renderer and vocabulary_YYYYMMDD.csv for spreadsheet use.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/japaniel/newsvocab/pkg/db"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

// Item is one vocabulary entry of a study file.
type Item struct {
	Word            string  `json:"word"`
	Lemma           string  `json:"lemma"`
	POS             string  `json:"pos"`
	POSKo           string  `json:"pos_ko"`
	Phonetic        string  `json:"phonetic"`
	DefinitionEn    string  `json:"definition_en"`
	TranslationKo   string  `json:"translation_ko"`
	ExampleEn       string  `json:"example_en"`
	ContextSentence string  `json:"context_sentence"`
	CEFRLevel       string  `json:"cefr_level"`
	FrequencyScore  float64 `json:"frequency_score"`
	IsB2Plus        bool    `json:"is_b2_plus"`
	Occurrences     int     `json:"occurrences"`
	SeenBefore      int     `json:"seen_before"`
	Source          string  `json:"source"`
}

var posKo = map[vocab.POS]string{
	vocab.Noun: "명사",
	vocab.Verb: "동사",
	vocab.Adj:  "형용사",
	vocab.Adv:  "부사",
}

// NewItem flattens an enriched candidate found in document source.
func NewItem(source string, c vocab.EnrichedCandidate) Item {
	return Item{
		Word:            c.Surface,
		Lemma:           c.Lemma,
		POS:             c.POS.String(),
		POSKo:           posKo[c.POS],
		Phonetic:        c.Phonetic,
		DefinitionEn:    c.Definition,
		TranslationKo:   c.Translation,
		ExampleEn:       c.Example,
		ContextSentence: c.ExampleText,
		CEFRLevel:       string(c.Level),
		FrequencyScore:  c.Score,
		IsB2Plus:        c.NewsCore,
		Occurrences:     c.Count,
		Source:          source,
	}
}

// AnnotateHistory sets SeenBefore on every item to the number of earlier
// documents (before date) that contained the lemma.
func AnnotateHistory(conn db.DBExecutor, date string, items []Item) error {
	memo := make(map[string]int)
	for i := range items {
		n, ok := memo[items[i].Lemma]
		if !ok {
			var err error
			n, err = db.LemmaHistory(conn, items[i].Lemma, date)
			if err != nil {
				return fmt.Errorf("lemma history %s: %w", items[i].Lemma, err)
			}
			memo[items[i].Lemma] = n
		}
		items[i].SeenBefore = n
	}
	return nil
}

type jsonPayload struct {
	CreatedAt string `json:"created_at"`
	Count     int    `json:"count"`
	Items     []Item `json:"items"`
}

// JSONPath and CSVPath return where the files for date live under dir.
func JSONPath(dir, date string) string { return filepath.Join(dir, "vocabulary_"+date+".json") }
func CSVPath(dir, date string) string { return filepath.Join(dir, "vocabulary_"+date+".csv") }

// WriteJSON writes {created_at, count, items} to vocabulary_<date>.json.
func WriteJSON(dir, date string, items []Item, now time.Time) (string, error) {
	if err := checkDate(date); err != nil {
		return "", err
	}
	if items == nil {
		items = []Item{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonPayload{
		CreatedAt: now.Format(time.RFC3339),
		Count:     len(items),
		Items:     items,
	}); err != nil {
		return "", fmt.Errorf("encode vocabulary json: %w", err)
	}

	path := JSONPath(dir, date)
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

var csvHeader = []string{
	"word", "lemma", "pos", "pos_ko", "phonetic", "definition_en", "translation_ko",
	"example_en", "context_sentence", "cefr_level", "frequency_score", "is_b2_plus",
	"occurrences", "seen_before", "source",
}

// WriteCSV writes items to vocabulary_<date>.csv with a UTF-8 byte order
// mark so spreadsheet applications detect the encoding.
func WriteCSV(dir, date string, items []Item) (string, error) {
	if err := checkDate(date); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, it := range items {
		record := []string{
			it.Word, it.Lemma, it.POS, it.POSKo, it.Phonetic, it.DefinitionEn, it.TranslationKo,
			it.ExampleEn, it.ContextSentence, it.CEFRLevel,
			strconv.FormatFloat(it.FrequencyScore, 'f', -1, 64),
			strconv.FormatBool(it.IsB2Plus),
			strconv.Itoa(it.Occurrences),
			strconv.Itoa(it.SeenBefore),
			it.Source,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encode vocabulary csv: %w", err)
	}

	path := CSVPath(dir, date)
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func checkDate(date string) error {
	if _, err := time.Parse("20060102", date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYYMMDD", vocab.ErrInvalidInput, date)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
