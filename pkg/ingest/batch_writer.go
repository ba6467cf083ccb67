package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"
)

// WriteFunc performs database writes inside a batch transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// write is a queued WriteFunc and the rows it accounts for.
type write struct {
	fn   WriteFunc
	rows int64
}

// ErrBatchWriterClosed is returned by Submit and Close once the writer is closed.
var ErrBatchWriterClosed = errors.New("batch writer closed")

// Batch commit retries when sqlite reports the database as busy or locked.
const (
	commitAttempts = 3
	commitBackoff  = 50 * time.Millisecond
)

// BatchWriter groups writes into transactions of up to size functions. A
// batch is committed when full, on every flush interval and on Close. A
// failing function rolls back its whole batch.
type BatchWriter struct {
	mu      sync.Mutex
	pending []write
	size    int
	ticker  *time.Ticker
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	batches chan []write
	db      *sql.DB
	log     *slog.Logger

	// OnError is called for every failed or dropped batch.
	OnError func(error)

	committed atomic.Int64 // rows of committed batches

	errMu    sync.Mutex
	firstErr error
}

// NewBatchWriter starts a writer on conn. size <= 0 uses 10 and a zero
// interval disables time based flushing. logger may be nil.
func NewBatchWriter(conn *sql.DB, size int, interval time.Duration, logger *slog.Logger) *BatchWriter {
	if size <= 0 {
		size = 10
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		pending: make([]write, 0, size),
		size:    size,
		ctx:     ctx,
		cancel:  cancel,
		batches: make(chan []write, 2),
		db:      conn,
		log:     logger.With("component", "batch_writer"),
	}

	bw.wg.Add(1)
	go bw.commitLoop()

	if interval > 0 {
		bw.ticker = time.NewTicker(interval)
		bw.wg.Add(1)
		go bw.flushLoop()
	}
	return bw
}

// Submit queues w as a single row. It blocks while the committer is behind
// by more than two batches.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	return bw.SubmitRows(w, 1)
}

// SubmitRows queues w, which writes rows rows. The rows count toward
// Committed once, after the batch holding w commits.
func (bw *BatchWriter) SubmitRows(w WriteFunc, rows int) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.pending = append(bw.pending, write{fn: w, rows: int64(rows)})
	if len(bw.pending) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// Committed returns how many rows were committed so far. Retried batches
// count once.
func (bw *BatchWriter) Committed() int64 { return bw.committed.Load() }

// Err returns the first batch error, if any.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

func (bw *BatchWriter) fail(err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.errMu.Unlock()
	bw.log.Error("batch failed", slog.String("error", err.Error()))
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

// flushLocked hands the pending writes to the committer. Caller holds mu.
func (bw *BatchWriter) flushLocked() {
	if len(bw.pending) == 0 {
		return
	}
	batch := bw.pending
	bw.pending = make([]write, 0, bw.size)

	select {
	case bw.batches <- batch:
	case <-bw.ctx.Done():
		bw.fail(fmt.Errorf("batch writer: dropped batch of %d writes on shutdown", len(batch)))
	}
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for batch := range bw.batches {
		if err := bw.commit(batch); err != nil {
			bw.fail(err)
			continue
		}
		var rows int64
		for _, w := range batch {
			rows += w.rows
		}
		bw.committed.Add(rows)
	}
}

func (bw *BatchWriter) commit(batch []write) error {
	// Without a connection the writes run with a nil transaction.
	if bw.db == nil {
		for _, w := range batch {
			if err := w.fn(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		if err = bw.commitOnce(batch); err == nil || !retryable(err) {
			return err
		}
		bw.log.Warn("database busy, retrying batch", slog.Int("attempt", attempt), slog.Int("writes", len(batch)))
		time.Sleep(time.Duration(attempt) * commitBackoff)
	}
	return err
}

func (bw *BatchWriter) commitOnce(batch []write) error {
	// Flushing on Close must not see the canceled writer context.
	ctx := context.Background()

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, w := range batch {
		if err := w.fn(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d writes: %w", len(batch), err)
	}
	return nil
}

func retryable(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

func (bw *BatchWriter) flushLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close commits what is pending, stops the writer and returns the first
// batch error. A second Close returns ErrBatchWriterClosed.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.batches)
	bw.wg.Wait()
	return bw.Err()
}
