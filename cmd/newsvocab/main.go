package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/japaniel/newsvocab/pkg/config"
	"github.com/japaniel/newsvocab/pkg/db"
	"github.com/japaniel/newsvocab/pkg/dictionary"
	"github.com/japaniel/newsvocab/pkg/schedule"
)

type flags struct {
	config         string
	input          string
	date           string
	db             string
	out            string
	importGlossary string
	daemon         bool
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "Path to the YAML config file (default $"+config.PathEnv+" or ./config.yaml)")
	flag.StringVar(&f.input, "input", "", "Script file or directory to analyze (default paths.scripts_dir)")
	flag.StringVar(&f.date, "date", "", "Target date YYYYMMDD (default yesterday in the schedule timezone)")
	flag.StringVar(&f.db, "db", "", "Path to SQLite database (default paths.db)")
	flag.StringVar(&f.out, "out", "", "Directory for the JSON and CSV files (default paths.reports_dir)")
	flag.StringVar(&f.importGlossary, "import-glossary", "", "Glossary file used to fill missing translations of stored words")
	flag.BoolVar(&f.daemon, "schedule", false, "Run every day at schedule.time instead of once")
	flag.Parse()

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, f); err != nil {
		fmt.Fprintf(os.Stderr, "newsvocab: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	var (
		cfg *config.Config
		err error
	)
	if f.config != "" {
		cfg, err = config.LoadFile(f.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if f.db != "" {
		cfg.Paths.DB = f.db
	}
	if f.out != "" {
		cfg.Paths.ReportsDir = f.out
	}
	if f.input != "" {
		cfg.Paths.ScriptsDir = f.input
	}

	logger := config.NewLogger(cfg.Log)

	conn, err := db.Open(cfg.Paths.DB)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("database ready", slog.String("path", cfg.Paths.DB))

	if f.importGlossary != "" {
		return backfill(ctx, conn, f.importGlossary, logger)
	}

	app := &app{cfg: cfg, conn: conn, log: logger}
	if !f.daemon {
		date := f.date
		if date == "" {
			loc, err := time.LoadLocation(cfg.Schedule.Timezone)
			if err != nil {
				return err
			}
			date = schedule.TargetDate(time.Now(), loc)
		}
		summary, err := app.runDaily(ctx, date)
		if err != nil {
			return err
		}
		fmt.Printf("Processing complete: %d documents, %d words (%d stored), report %s\n",
			summary.Documents, summary.Words, summary.Stored, summary.JSONPath)
		return nil
	}

	sched, err := schedule.New(cfg.Schedule.Timezone, logger)
	if err != nil {
		return err
	}
	err = sched.Daily(cfg.Schedule.Time, func(ctx context.Context, date string) {
		if _, err := app.runDaily(ctx, date); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("daily run failed", slog.String("target_date", date), slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return err
	}
	logger.Info("waiting for the next run", slog.Time("next", sched.Next()))
	sched.Run(ctx)
	logger.Info("scheduler stopped")
	return nil
}

func backfill(ctx context.Context, conn *sql.DB, path string, logger *slog.Logger) error {
	g, err := dictionary.LoadGlossary(path)
	if err != nil {
		return fmt.Errorf("load glossary: %w", err)
	}
	logger.Info("glossary loaded", slog.String("path", path), slog.Int("entries", g.Len()))

	n, err := dictionary.Backfill(ctx, conn, g, logger)
	if err != nil {
		return fmt.Errorf("backfill translations: %w", err)
	}
	fmt.Printf("Successfully updated translations for %d words.\n", n)
	return nil
}
