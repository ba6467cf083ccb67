package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/japaniel/newsvocab/pkg/config"
	"github.com/japaniel/newsvocab/pkg/db"
	"github.com/japaniel/newsvocab/pkg/dictionary"
	"github.com/japaniel/newsvocab/pkg/difficulty"
	"github.com/japaniel/newsvocab/pkg/export"
	"github.com/japaniel/newsvocab/pkg/ingest"
	"github.com/japaniel/newsvocab/pkg/pipeline"
	"github.com/japaniel/newsvocab/pkg/script"
)

type app struct {
	cfg  *config.Config
	conn *sql.DB
	log  *slog.Logger
}

type summary struct {
	RunID     string
	Resumed   bool
	Documents int
	Words     int // candidates in the study files
	Stored    int // vocabulary rows written by this invocation
	JSONPath  string
	CSVPath   string
}

// runDaily analyzes every script of date, stores the results and writes the
// study files. Days without scripts still produce empty files. An unfinished
// run of the same date and model is resumed after its last stored document.
func (a *app) runDaily(ctx context.Context, date string) (summary, error) {
	log := a.log.With(slog.String("target_date", date))
	start := time.Now()

	docs, err := script.LoadPath(a.cfg.Paths.ScriptsDir)
	if err != nil {
		return summary{}, fmt.Errorf("load scripts: %w", err)
	}
	docs = script.FilterDate(docs, date)
	log.Info("scripts loaded", slog.String("input", a.cfg.Paths.ScriptsDir), slog.Int("documents", len(docs)))

	p, err := pipeline.New(a.cfg.Pipeline(), a.lookups(), a.frequencies(ctx), a.log)
	if err != nil {
		return summary{}, err
	}
	defer p.Close()

	runID, resumed, err := a.openRun(date, p.Model())
	if err != nil {
		return summary{}, err
	}
	if resumed {
		log.Info("resuming unfinished run", slog.String("run", runID))
	}

	results := p.RunBatch(ctx, docs)
	analyzed := make([]ingest.Document, 0, len(results))
	var items []export.Item
	for _, r := range results {
		if r.Err != nil {
			log.Warn("document skipped", slog.String("doc", r.Doc.ID), slog.String("error", r.Err.Error()))
			continue
		}
		analyzed = append(analyzed, ingest.Document{Doc: r.Doc, Path: string(r.Path), Items: r.Items})
		for _, it := range r.Items {
			items = append(items, export.NewItem(r.Doc.ID, it))
		}
	}
	if err := ctx.Err(); err != nil {
		return summary{}, err
	}

	ig := ingest.NewIngester(a.conn)
	ig.Logger = a.log
	ig.Workers = a.cfg.Dictionary.Workers
	ig.OnProgress = func(current, total int) {
		log.Debug("documents stored", slog.Int("current", current), slog.Int("total", total))
	}
	stored, err := ig.Ingest(ctx, runID, analyzed)
	if err != nil {
		return summary{}, fmt.Errorf("store results: %w", err)
	}

	stats := p.Stats()
	if err := db.FinishRun(a.conn, runID, int(stats.Engine), int(stats.Fallback)); err != nil {
		return summary{}, err
	}

	if err := export.AnnotateHistory(a.conn, date, items); err != nil {
		log.Warn("history annotation failed", slog.String("error", err.Error()))
	}
	jsonPath, err := export.WriteJSON(a.cfg.Paths.ReportsDir, date, items, time.Now())
	if err != nil {
		return summary{}, err
	}
	csvPath, err := export.WriteCSV(a.cfg.Paths.ReportsDir, date, items)
	if err != nil {
		return summary{}, err
	}

	log.Info("run finished",
		slog.String("run", runID),
		slog.Int("documents", len(analyzed)),
		slog.Int("words", len(items)),
		slog.Int("stored", stored),
		slog.Int64("engine_docs", stats.Engine),
		slog.Int64("fallback_docs", stats.Fallback),
		slog.Int64("lookups", p.Lookups()),
		slog.Duration("elapsed", time.Since(start)))

	return summary{
		RunID:     runID,
		Resumed:   resumed,
		Documents: len(analyzed),
		Words:     len(items),
		Stored:    stored,
		JSONPath:  jsonPath,
		CSVPath:   csvPath,
	}, nil
}

// openRun returns the unfinished run of date and model, or a new one.
func (a *app) openRun(date, model string) (string, bool, error) {
	id, ok, err := db.FindOpenRun(a.conn, date, model)
	if err != nil {
		return "", false, err
	}
	if ok {
		return id, true, nil
	}
	id, err = db.CreateRun(a.conn, date, model)
	return id, false, err
}

// lookups builds the dictionary chain: the curated glossary first, then the
// cached web dictionary. nil when no source is configured.
func (a *app) lookups() dictionary.Lookup {
	var chain dictionary.Chain
	dc := a.cfg.Dictionary
	if dc.GlossaryPath != "" {
		g, err := dictionary.LoadGlossary(dc.GlossaryPath)
		if err != nil {
			a.log.Warn("glossary unavailable", slog.String("path", dc.GlossaryPath), slog.String("error", err.Error()))
		} else {
			chain = append(chain, g)
		}
	}
	if dc.FreeDictEnabled {
		web := dictionary.NewFreeDictWithURL(dc.FreeDictURL, a.log)
		chain = append(chain, dictionary.NewCache(a.conn, "freedict", web, dc.CacheTTL, a.log))
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// frequencies loads the word frequency list, downloading it when missing.
// Scoring works without it, so failures only warn.
func (a *app) frequencies(ctx context.Context) *difficulty.FrequencyTable {
	fc := a.cfg.Frequency
	if fc.Path == "" {
		return nil
	}
	if err := difficulty.EnsureWordList(ctx, fc.Path, fc.URL, a.log); err != nil {
		a.log.Warn("frequency list unavailable, scoring without it", slog.String("error", err.Error()))
		return nil
	}
	table, err := difficulty.LoadCSV(fc.Path)
	if err != nil {
		a.log.Warn("frequency list unreadable, scoring without it", slog.String("path", fc.Path), slog.String("error", err.Error()))
		return nil
	}
	a.log.Info("frequency list loaded", slog.String("path", fc.Path), slog.Int("words", table.Len()))
	return table
}
