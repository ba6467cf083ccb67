package dictionary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/japaniel/newsvocab/pkg/ingest"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

// Enricher defaults.
const (
	DefaultLookupTimeout = 4 * time.Second
	DefaultBatchTimeout  = 30 * time.Second
	DefaultWorkers       = 4
)

// Enricher attaches dictionary data to candidates, best effort.
type Enricher struct {
	lookup        Lookup
	LookupTimeout time.Duration // per lemma; 0 disables
	BatchTimeout  time.Duration // per Enrich call; 0 disables
	Workers       int
	log           *slog.Logger
}

// NewEnricher creates an Enricher with default timeouts. lookup may be nil,
// in which case every candidate passes through unenriched.
func NewEnricher(lookup Lookup, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Enricher{
		lookup:        lookup,
		LookupTimeout: DefaultLookupTimeout,
		BatchTimeout:  DefaultBatchTimeout,
		Workers:       DefaultWorkers,
		log:           logger.With("component", "enricher"),
	}
}

// Enrich returns exactly one EnrichedCandidate per input candidate, in input
// order. Lookups run concurrently on a worker pool; a lookup that fails,
// panics, finds nothing or outlives its timeout leaves the fields empty.
// Once the batch deadline passes, remaining candidates are returned as is.
func (e *Enricher) Enrich(ctx context.Context, cands []vocab.Candidate) []vocab.EnrichedCandidate {
	out := make([]vocab.EnrichedCandidate, len(cands))
	for i, c := range cands {
		out[i].Candidate = c
	}
	if len(cands) == 0 || e.lookup == nil {
		return out
	}

	if e.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.BatchTimeout)
		defer cancel()
	}

	var found, missing, failed atomic.Int64

	pool := ingest.NewWorkerPool(e.Workers, len(cands))
	pool.Start(ctx)
	for i := range out {
		target := &out[i]
		job := func(ctx context.Context) error {
			switch err := e.fill(ctx, target); {
			case err != nil:
				failed.Add(1)
			case target.Enriched():
				found.Add(1)
			default:
				missing.Add(1)
			}
			return nil
		}
		if err := pool.SubmitCtx(ctx, job); err != nil {
			e.log.Warn("enrichment stopped early", slog.String("error", err.Error()))
			break
		}
	}
	pool.Close()

	skipped := int64(len(cands)) - found.Load() - missing.Load() - failed.Load()
	e.log.Debug("enrichment done",
		slog.Int("candidates", len(cands)),
		slog.Int64("found", found.Load()),
		slog.Int64("missing", missing.Load()),
		slog.Int64("failed", failed.Load()),
		slog.Int64("skipped", skipped))
	return out
}

type lookupResult struct {
	entry *Entry
	err   error
}

// fill runs one lookup under the per-lemma timeout. The lookup itself runs
// in its own goroutine so a source that ignores ctx cannot hold the worker.
func (e *Enricher) fill(ctx context.Context, target *vocab.EnrichedCandidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.LookupTimeout)
		defer cancel()
	}

	lemma := target.Lemma
	ch := make(chan lookupResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- lookupResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		entry, err := e.lookup.Lookup(ctx, lemma)
		ch <- lookupResult{entry: entry, err: err}
	}()

	var res lookupResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		err := res.err
		if !errors.Is(err, vocab.ErrLookupFailed) {
			err = fmt.Errorf("%w: %s: %w", vocab.ErrLookupFailed, lemma, err)
		}
		e.log.Warn("lookup failed", slog.String("lemma", lemma), slog.String("error", err.Error()))
		return err
	}
	if res.entry.Empty() {
		e.log.Debug("lookup found nothing", slog.String("lemma", lemma))
		return nil
	}

	target.Translation = res.entry.Translation
	target.Definition = res.entry.Definition
	target.Phonetic = res.entry.Phonetic
	target.Example = res.entry.Example
	return nil
}
