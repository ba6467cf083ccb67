package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// CreateRun inserts a new run and returns its id.
func CreateRun(db DBExecutor, targetDate, model string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO runs (id, target_date, model, started_at) VALUES (?, ?, ?, ?)`,
		id, targetDate, model, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FindOpenRun returns the most recent unfinished run of targetDate and
// model. ok is false when every such run finished.
func FindOpenRun(db DBExecutor, targetDate, model string) (id string, ok bool, err error) {
	err = db.QueryRow(`SELECT id FROM runs WHERE target_date = ? AND model = ? AND finished_at IS NULL
		ORDER BY started_at DESC LIMIT 1`, targetDate, model).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find open run: %w", err)
	}
	return id, true, nil
}

// FinishRun records the end of a run with its tokenization path counts.
func FinishRun(db DBExecutor, runID string, engineDocs, fallbackDocs int) error {
	res, err := db.Exec(`UPDATE runs SET finished_at = ?, engine_docs = ?, fallback_docs = ? WHERE id = ?`,
		time.Now().UTC(), engineDocs, fallbackDocs, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// GetRun loads a run by id.
func GetRun(db DBExecutor, runID string) (Run, error) {
	var r Run
	var finished sql.NullTime
	err := db.QueryRow(`SELECT id, target_date, model, started_at, finished_at, engine_docs, fallback_docs FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.TargetDate, &r.Model, &r.StartedAt, &finished, &r.EngineDocs, &r.FallbackDocs)
	if err != nil {
		return Run{}, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// GetRunProgress returns the index of the last persisted document of a run,
// or -1 when nothing was persisted yet.
func GetRunProgress(db DBExecutor, runID string) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_document FROM runs WHERE id = ?", runID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateRunProgress updates the last persisted document index.
func UpdateRunProgress(db DBExecutor, runID string, index int) error {
	_, err := db.Exec("UPDATE runs SET last_processed_document = ? WHERE id = ?", index, runID)
	return err
}

// CreateOrGetDocument returns the id of the document (runID, sourceID),
// inserting it when missing. The stored path is refreshed on conflict.
func CreateOrGetDocument(db DBExecutor, runID, sourceID, date, path string) (int64, error) {
	trimmed := strings.TrimSpace(sourceID)
	if trimmed == "" {
		return 0, fmt.Errorf("sourceID must be non-empty")
	}

	var id int64
	query := `INSERT INTO documents (run_id, source_id, doc_date, path, added_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(run_id, source_id)
			  DO UPDATE SET
			    path = COALESCE(NULLIF(excluded.path, ''), documents.path),
			    doc_date = COALESCE(NULLIF(excluded.doc_date, ''), documents.doc_date)
			  RETURNING id`

	err := db.QueryRow(query, runID, trimmed, date, path, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}
	return id, nil
}

// getOrCreateSentence returns the id of text in the sentences table, or 0
// for blank text.
func getOrCreateSentence(db DBExecutor, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	var id int64
	// Try to find existing sentence first
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err == nil {
		return id, nil
	} else if err != sql.ErrNoRows {
		return 0, err
	}
	// Insert if missing (concurrent-safe via UNIQUE constraint)
	if _, err := db.Exec(`INSERT OR IGNORE INTO sentences (text) VALUES (?)`, trimmed); err != nil {
		return 0, err
	}
	// Select again to get id
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// nullableInt64 returns nil for 0 (meaning no sentence) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// UpsertVocabulary stores a candidate row for a document. Re-running a
// document replaces its ranking data but never erases dictionary fields that
// were filled earlier (for instance by a backfill).
func UpsertVocabulary(db DBExecutor, v Vocabulary) (int64, error) {
	if v.DocumentID <= 0 {
		return 0, fmt.Errorf("documentID must be positive")
	}
	if strings.TrimSpace(v.Lemma) == "" {
		return 0, fmt.Errorf("lemma must be non-empty")
	}
	if v.Occurrences < 1 {
		return 0, fmt.Errorf("occurrences must be positive, got %d", v.Occurrences)
	}

	exID, err := getOrCreateSentence(db, v.Example)
	if err != nil {
		return 0, fmt.Errorf("get/create example sentence: %w", err)
	}

	var id int64
	err = db.QueryRow(`INSERT INTO vocabulary (document_id, lemma, surface, pos, occurrences, score, cefr, news_core, rank,
	    example_sentence_id, translation, definition, phonetic, usage_example)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(document_id, lemma) DO UPDATE SET
	  surface = excluded.surface,
	  pos = excluded.pos,
	  occurrences = excluded.occurrences,
	  score = excluded.score,
	  cefr = excluded.cefr,
	  news_core = excluded.news_core,
	  rank = excluded.rank,
	  example_sentence_id = excluded.example_sentence_id,
	  translation = COALESCE(NULLIF(excluded.translation, ''), vocabulary.translation),
	  definition = COALESCE(NULLIF(excluded.definition, ''), vocabulary.definition),
	  phonetic = COALESCE(NULLIF(excluded.phonetic, ''), vocabulary.phonetic),
	  usage_example = COALESCE(NULLIF(excluded.usage_example, ''), vocabulary.usage_example)
	RETURNING id`,
		v.DocumentID, strings.TrimSpace(v.Lemma), v.Surface, v.POS, v.Occurrences, v.Score, v.CEFR, v.NewsCore, v.Rank,
		nullableInt64(exID), v.Translation, v.Definition, v.Phonetic, v.UsageExample).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert vocabulary %s: %w", v.Lemma, err)
	}
	return id, nil
}

const vocabularyColumns = `v.id, v.document_id, v.lemma, v.surface, v.pos, v.occurrences, v.score, v.cefr, v.news_core, v.rank,
	s.text, v.translation, v.definition, v.phonetic, v.usage_example`

func scanVocabulary(rows *sql.Rows) ([]Vocabulary, error) {
	defer rows.Close()
	var out []Vocabulary
	for rows.Next() {
		var v Vocabulary
		var example sql.NullString
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Lemma, &v.Surface, &v.POS, &v.Occurrences, &v.Score,
			&v.CEFR, &v.NewsCore, &v.Rank, &example, &v.Translation, &v.Definition, &v.Phonetic, &v.UsageExample); err != nil {
			return nil, err
		}
		if example.Valid {
			v.Example = example.String
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVocabulary returns a document's vocabulary in rank order.
func ListVocabulary(db DBExecutor, documentID int64) ([]Vocabulary, error) {
	rows, err := db.Query(`SELECT `+vocabularyColumns+`
		FROM vocabulary v LEFT JOIN sentences s ON s.id = v.example_sentence_id
		WHERE v.document_id = ? ORDER BY v.rank, v.id`, documentID)
	if err != nil {
		return nil, err
	}
	return scanVocabulary(rows)
}

// ListMissingTranslations returns every stored vocabulary row without a
// translation, oldest first.
func ListMissingTranslations(db DBExecutor) ([]Vocabulary, error) {
	rows, err := db.Query(`SELECT ` + vocabularyColumns + `
		FROM vocabulary v LEFT JOIN sentences s ON s.id = v.example_sentence_id
		WHERE v.translation = '' ORDER BY v.id`)
	if err != nil {
		return nil, err
	}
	return scanVocabulary(rows)
}

// UpdateTranslation sets the translation of a vocabulary row. An empty
// definition keeps the stored one.
func UpdateTranslation(db DBExecutor, vocabularyID int64, translation, definition string) error {
	if vocabularyID <= 0 {
		return fmt.Errorf("vocabularyID must be positive")
	}
	_, err := db.Exec(`UPDATE vocabulary SET translation = ?, definition = COALESCE(NULLIF(?, ''), definition) WHERE id = ?`,
		translation, definition, vocabularyID)
	return err
}

// LemmaHistory returns how many distinct documents dated before date
// contained lemma. Documents without a date are ignored.
func LemmaHistory(db DBExecutor, lemma, date string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(DISTINCT d.source_id || '@' || d.doc_date)
		FROM vocabulary v JOIN documents d ON d.id = v.document_id
		WHERE v.lemma = ? AND d.doc_date <> '' AND d.doc_date < ?`, lemma, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("lemma history %s: %w", lemma, err)
	}
	return n, nil
}

// GetCachedLookup returns the cached answer of source for lemma.
func GetCachedLookup(db DBExecutor, source, lemma string) (CachedLookup, bool, error) {
	c := CachedLookup{Source: source, Lemma: lemma}
	err := db.QueryRow(`SELECT found, translation, definition, phonetic, example, fetched_at
		FROM lookup_cache WHERE source = ? AND lemma = ?`, source, lemma).
		Scan(&c.Found, &c.Translation, &c.Definition, &c.Phonetic, &c.Example, &c.FetchedAt)
	if err == sql.ErrNoRows {
		return CachedLookup{}, false, nil
	}
	if err != nil {
		return CachedLookup{}, false, fmt.Errorf("get cached lookup: %w", err)
	}
	return c, true, nil
}

// PutCachedLookup stores or replaces a cached answer.
func PutCachedLookup(db DBExecutor, c CachedLookup) error {
	if c.FetchedAt.IsZero() {
		c.FetchedAt = time.Now().UTC()
	}
	_, err := db.Exec(`INSERT INTO lookup_cache (source, lemma, found, translation, definition, phonetic, example, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, lemma) DO UPDATE SET
		  found = excluded.found,
		  translation = excluded.translation,
		  definition = excluded.definition,
		  phonetic = excluded.phonetic,
		  example = excluded.example,
		  fetched_at = excluded.fetched_at`,
		c.Source, c.Lemma, c.Found, c.Translation, c.Definition, c.Phonetic, c.Example, c.FetchedAt)
	if err != nil {
		return fmt.Errorf("put cached lookup: %w", err)
	}
	return nil
}
