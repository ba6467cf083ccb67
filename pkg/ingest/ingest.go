package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/japaniel/newsvocab/pkg/db"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Document is an analyzed script ready to be stored.
type Document struct {
	Doc   vocab.RawDocument
	Path  string // tokenization path that produced Items
	Items []vocab.EnrichedCandidate
}

// Ingester persists analyzed documents of a run.
type Ingester struct {
	DB        *sql.DB
	BatchSize int
	// Logger receives resume and failure messages. nil means no logging.
	Logger *slog.Logger
	// OnProgress is called periodically with the number of stored documents and the total.
	OnProgress func(current, total int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB) *Ingester {
	return &Ingester{
		DB:        conn,
		BatchSize: 8,
		Workers:   4, // Default worker count
	}
}

// preparedDocument holds the rows of one document before DB ingestion.
type preparedDocument struct {
	Index int
	Doc   Document
	Rows  []db.Vocabulary
	Error error
}

func (ig *Ingester) logger() *slog.Logger {
	if ig.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return ig.Logger.With("component", "ingest")
}

// Ingest stores docs under runID in input order using concurrent preparation
// and batched writes. It resumes after the last document the run already
// persisted. The result is the number of vocabulary rows committed.
func (ig *Ingester) Ingest(ctx context.Context, runID string, docs []Document) (int, error) {
	log := ig.logger().With(slog.String("run", runID))

	lastProcessed, err := db.GetRunProgress(ig.DB, runID)
	if err != nil {
		log.Warn("failed to retrieve progress", slog.String("error", err.Error()))
		lastProcessed = -1
	}
	if lastProcessed >= 0 {
		log.Info("resuming run", slog.Int("from_document", lastProcessed+1))
	}

	total := len(docs)
	startIdx := lastProcessed + 1
	if startIdx >= total {
		return 0, nil // Nothing to do
	}

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	resultCh := make(chan preparedDocument, ig.Workers*2)
	closedResultCh := false
	doneCh := make(chan error, 1)

	bw := NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond, ig.Logger)

	// Ensure resources are cleaned up on any return path: stop workers, close resultCh, flush batches.
	defer func() {
		wp.Close()
		if !closedResultCh {
			close(resultCh)
		}
		_ = bw.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	persist := func(item preparedDocument) error {
		return bw.SubmitRows(func(ctx context.Context, tx *sql.Tx) error {
			d := item.Doc
			docID, err := db.CreateOrGetDocument(tx, runID, d.Doc.ID, d.Doc.Date, d.Path)
			if err != nil {
				return fmt.Errorf("failed to persist document %s: %w", d.Doc.ID, err)
			}
			for _, row := range item.Rows {
				row.DocumentID = docID
				if _, err := db.UpsertVocabulary(tx, row); err != nil {
					return fmt.Errorf("failed to persist vocabulary of %s: %w", d.Doc.ID, err)
				}
			}
			// Checkpoint progress for this document
			if err := db.UpdateRunProgress(tx, runID, item.Index); err != nil {
				return fmt.Errorf("failed to save progress: %w", err)
			}
			return nil
		}, len(item.Rows))
	}

	go func() {
		defer close(doneCh)
		buffer := make(map[int]preparedDocument)
		nextIdx := startIdx

		// drain writes every contiguous finished item starting at nextIdx.
		drain := func() error {
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					return nil
				}
				delete(buffer, nextIdx)
				if err := persist(item); err != nil {
					return err
				}
				if ig.OnProgress != nil && (nextIdx+1)%ig.BatchSize == 0 {
					ig.OnProgress(nextIdx+1, total)
				}
				nextIdx++
			}
		}

		for {
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			default:
			}

			res, ok := <-resultCh
			if !ok {
				if err := drain(); err != nil {
					cancel()
					doneCh <- err
					return
				}
				if ig.OnProgress != nil {
					ig.OnProgress(nextIdx, total)
				}
				doneCh <- nil
				return
			}

			if res.Error != nil {
				log.Error("document preparation failed", slog.Int("index", res.Index), slog.String("error", res.Error.Error()))
				// Ensure producers are signaled to stop so they don't block writing to resultCh.
				cancel()
				doneCh <- res.Error
				return
			}
			buffer[res.Index] = res

			if err := drain(); err != nil {
				// Signal producers to stop to prevent them from blocking on resultCh.
				cancel()
				doneCh <- err
				return
			}
		}
	}()

Loop:
	for i := startIdx; i < total; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		d := docs[i]

		job := func(ctx context.Context) error {
			res := prepareDocument(idx, d)

			// The channel may be closed if cancellation occurred; recover from the send panic.
			defer func() {
				_ = recover()
			}()
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if err == ctx.Err() || err == ErrPoolClosed {
				break Loop
			}
			return 0, err
		}
	}

	// Ensure there are no more worker goroutines running and close the result channel to
	// signal the consumer that no more items will arrive.
	wp.Close()
	if !closedResultCh {
		close(resultCh)
		closedResultCh = true
	}

	consumerErr := <-doneCh

	if err := bw.Close(); err != nil && consumerErr == nil {
		consumerErr = err
	}
	rows := int(bw.Committed())
	log.Debug("ingest finished", slog.Int("rows", rows))

	return rows, consumerErr
}

// prepareDocument converts enriched candidates into vocabulary rows. Rank
// follows the candidate order.
func prepareDocument(index int, d Document) preparedDocument {
	if d.Doc.ID == "" {
		return preparedDocument{Index: index, Error: fmt.Errorf("%w: document %d has no id", vocab.ErrInvalidInput, index)}
	}
	rows := make([]db.Vocabulary, 0, len(d.Items))
	for rank, it := range d.Items {
		rows = append(rows, db.Vocabulary{
			Lemma:        it.Lemma,
			Surface:      it.Surface,
			POS:          it.POS.String(),
			Occurrences:  it.Count,
			Score:        it.Score,
			CEFR:         string(it.Level),
			NewsCore:     it.NewsCore,
			Rank:         rank,
			Example:      it.ExampleText,
			Translation:  it.Translation,
			Definition:   it.Definition,
			Phonetic:     it.Phonetic,
			UsageExample: it.Example,
		})
	}
	return preparedDocument{Index: index, Doc: d, Rows: rows}
}
