package pipeline

import (
	"strings"
	"time"

	"github.com/japaniel/newsvocab/pkg/analyzer"
	"github.com/japaniel/newsvocab/pkg/candidate"
	"github.com/japaniel/newsvocab/pkg/dictionary"
	"github.com/japaniel/newsvocab/pkg/difficulty"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

// Config holds the knobs recognized by the pipeline.
type Config struct {
	EngineModel     string
	TopN            int // 0 keeps every candidate
	MinWordLength   int
	StopWords       []string // nil selects the default English list
	SkipProperNouns bool
	Workers         int
	LookupTimeout   time.Duration
	BatchTimeout    time.Duration
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		EngineModel:     analyzer.DefaultModel,
		TopN:            candidate.DefaultTopN,
		MinWordLength:   4,
		SkipProperNouns: true,
		Workers:         dictionary.DefaultWorkers,
		LookupTimeout:   dictionary.DefaultLookupTimeout,
		BatchTimeout:    dictionary.DefaultBatchTimeout,
	}
}

// Validate reports the first malformed field as a *vocab.ConfigError.
func (c Config) Validate() error {
	switch {
	case !analyzer.KnownModel(c.EngineModel):
		return vocab.NewConfigError("model", "must be one of "+strings.Join(analyzer.Models(), ", "))
	case c.TopN < 0:
		return vocab.NewConfigError("top_n", "must not be negative")
	case c.MinWordLength <= 0:
		return vocab.NewConfigError("min_word_length", "must be positive")
	case c.Workers <= 0:
		return vocab.NewConfigError("workers", "must be positive")
	case c.LookupTimeout < 0:
		return vocab.NewConfigError("lookup_timeout", "must not be negative")
	case c.BatchTimeout < 0:
		return vocab.NewConfigError("batch_timeout", "must not be negative")
	}
	return nil
}

func (c Config) scorerConfig() difficulty.Config {
	sc := difficulty.DefaultConfig()
	sc.MinWordLength = c.MinWordLength
	sc.SkipProper = c.SkipProperNouns
	sc.Scripts = analyzer.ContentScripts(c.EngineModel)
	if c.StopWords != nil {
		sc.StopWords = difficulty.NewStopWords(c.StopWords...)
	}
	return sc
}
