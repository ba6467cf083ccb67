// Package pipeline sequences analysis, scoring, aggregation and enrichment
// of radio news scripts.
//
// A Pipeline owns the analyzer (and so the loaded linguistic engine) for its
// whole lifetime. Build one per batch, run every document through it and
// Close it when the batch is done.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/japaniel/newsvocab/pkg/analyzer"
	"github.com/japaniel/newsvocab/pkg/candidate"
	"github.com/japaniel/newsvocab/pkg/dictionary"
	"github.com/japaniel/newsvocab/pkg/difficulty"
	"github.com/japaniel/newsvocab/pkg/ingest"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

// ErrNotProcessed marks batch documents that were never picked up.
var ErrNotProcessed = errors.New("document not processed")

// Result is the outcome for one document of a batch.
type Result struct {
	Doc   vocab.RawDocument
	Items []vocab.EnrichedCandidate
	Path  analyzer.Path
	Err   error
}

// Pipeline turns raw documents into ranked, enriched candidate lists.
type Pipeline struct {
	cfg        Config
	analyzer   *analyzer.Analyzer
	aggregator *candidate.Aggregator
	enricher   *dictionary.Enricher
	log        *slog.Logger
	lookups    atomic.Int64
}

// Option customizes a Pipeline.
type Option func(*options)

type options struct {
	engine    analyzer.Engine
	hasEngine bool
}

// WithEngine uses engine instead of opening Config.EngineModel. A nil
// engine forces the fallback tokenizer.
func WithEngine(engine analyzer.Engine) Option {
	return func(o *options) {
		o.engine = engine
		o.hasEngine = true
	}
}

// New validates cfg and loads the engine once. lookup and freq may be nil:
// without lookup candidates are not enriched, without freq scores are
// estimated from word length. An invalid config is the only error.
func New(cfg Config, lookup dictionary.Lookup, freq *difficulty.FrequencyTable, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		cfg: cfg,
		log: logger.With("component", "pipeline"),
	}

	aopts := []analyzer.Option{analyzer.WithLogger(logger)}
	if freq != nil {
		aopts = append(aopts, analyzer.WithLexicon(freq))
	}
	if o.hasEngine {
		p.analyzer = analyzer.NewWithEngine(o.engine, aopts...)
	} else {
		p.analyzer = analyzer.New(cfg.EngineModel, aopts...)
	}

	p.aggregator = candidate.New(difficulty.NewScorer(freq, cfg.scorerConfig()), cfg.TopN)

	if lookup != nil {
		lookup = p.countLookups(lookup)
	}
	p.enricher = dictionary.NewEnricher(lookup, logger)
	p.enricher.Workers = cfg.Workers
	p.enricher.LookupTimeout = cfg.LookupTimeout
	p.enricher.BatchTimeout = cfg.BatchTimeout

	p.log.Info("pipeline ready",
		slog.String("model", p.analyzer.Model()),
		slog.Bool("engine", p.analyzer.EngineReady()),
		slog.Int("top_n", cfg.TopN),
		slog.Bool("frequency_stats", freq.Len() > 0))
	return p, nil
}

func (p *Pipeline) countLookups(next dictionary.Lookup) dictionary.Lookup {
	return dictionary.LookupFunc(func(ctx context.Context, lemma string) (*dictionary.Entry, error) {
		p.lookups.Add(1)
		return next.Lookup(ctx, lemma)
	})
}

// Run analyzes one document. An empty or whitespace-only document yields an
// empty list without touching the dictionary. The error is non-nil only
// when ctx is already done before the document starts.
func (p *Pipeline) Run(ctx context.Context, doc vocab.RawDocument) ([]vocab.EnrichedCandidate, error) {
	items, _, err := p.run(ctx, doc)
	return items, err
}

func (p *Pipeline) run(ctx context.Context, doc vocab.RawDocument) ([]vocab.EnrichedCandidate, analyzer.Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	log := p.log.With(slog.String("doc", doc.ID))

	text := analyzer.SanitizeScript(doc.Text)
	if strings.TrimSpace(text) == "" {
		log.Debug("empty document")
		return []vocab.EnrichedCandidate{}, "", nil
	}

	tokens, path := p.analyzer.AnalyzeWithPath(text)
	cands := p.aggregator.Aggregate(tokens, text)
	items := p.enricher.Enrich(ctx, cands)

	log.Info("document analyzed",
		slog.String("path", string(path)),
		slog.Int("tokens", len(tokens)),
		slog.Int("candidates", len(items)))
	return items, path, nil
}

// RunBatch analyzes docs concurrently and returns one Result per document
// in input order. Documents share the loaded engine and frequency table.
func (p *Pipeline) RunBatch(ctx context.Context, docs []vocab.RawDocument) []Result {
	results := make([]Result, len(docs))
	for i, d := range docs {
		results[i].Doc = d
	}
	if len(docs) == 0 {
		return results
	}

	pool := ingest.NewWorkerPool(p.cfg.Workers, len(docs))
	pool.OnError = func(err error) {
		p.log.Error("document job failed", slog.String("error", err.Error()))
	}
	pool.Start(ctx)
	for i := range docs {
		slot := &results[i]
		job := func(ctx context.Context) error {
			slot.Items, slot.Path, slot.Err = p.run(ctx, slot.Doc)
			return nil
		}
		if err := pool.SubmitCtx(ctx, job); err != nil {
			break
		}
	}
	pool.Close()
	done, failed := pool.Counts()
	p.log.Info("batch finished",
		slog.Int("documents", len(docs)),
		slog.Int64("done", done),
		slog.Int64("failed", failed))

	// Documents never picked up report why.
	for i := range results {
		if results[i].Items == nil && results[i].Err == nil {
			results[i].Err = ErrNotProcessed
			if err := ctx.Err(); err != nil {
				results[i].Err = err
			}
		}
	}
	return results
}

// Stats reports how many documents went through each tokenization path.
func (p *Pipeline) Stats() analyzer.Stats { return p.analyzer.Stats() }

// Model returns the configured engine model name.
func (p *Pipeline) Model() string { return p.analyzer.Model() }

// Lookups returns how many dictionary lookups were issued so far.
func (p *Pipeline) Lookups() int64 { return p.lookups.Load() }

// Close releases the linguistic engine.
func (p *Pipeline) Close() error {
	return p.analyzer.Close()
}
