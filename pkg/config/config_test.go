package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullYAML = `
vocabulary:
  model: kagome/ipa
  top_n: 0
  min_word_length: 5
  stop_words: [the, said]
  skip_proper_nouns: false

dictionary:
  glossary_path: data/glossary.yaml
  freedict_enabled: false
  cache_ttl: 0s
  lookup_timeout: 2s
  batch_timeout: 1m
  workers: 8

frequency:
  path: data/freq.csv
  url: ""

paths:
  db: /var/lib/newsvocab/vocab.db
  reports_dir: /var/lib/newsvocab/logs
  scripts_dir: /var/lib/newsvocab/scripts

schedule:
  time: "06:45"
  timezone: UTC

log:
  level: debug
  format: json
`

func TestLoadFromYAML(t *testing.T) {
	t.Setenv(PathEnv, writeYAML(t, t.TempDir(), fullYAML))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "kagome/ipa", cfg.Vocabulary.Model)
	assert.Equal(t, 0, cfg.Vocabulary.TopN, "explicit zero keeps every candidate")
	assert.Equal(t, 5, cfg.Vocabulary.MinWordLength)
	assert.Equal(t, []string{"the", "said"}, cfg.Vocabulary.StopWords)
	assert.False(t, cfg.Vocabulary.SkipProperNouns)

	assert.Equal(t, "data/glossary.yaml", cfg.Dictionary.GlossaryPath)
	assert.False(t, cfg.Dictionary.FreeDictEnabled)
	assert.Zero(t, cfg.Dictionary.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Dictionary.LookupTimeout)
	assert.Equal(t, time.Minute, cfg.Dictionary.BatchTimeout)
	assert.Equal(t, 8, cfg.Dictionary.Workers)

	assert.Equal(t, "data/freq.csv", cfg.Frequency.Path)
	assert.Empty(t, cfg.Frequency.URL)
	assert.Equal(t, "/var/lib/newsvocab/vocab.db", cfg.Paths.DB)
	assert.Equal(t, "06:45", cfg.Schedule.Time)
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadDefaults(t *testing.T) {
	// No file and no explicit path: ENV + defaults only.
	t.Setenv(PathEnv, "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prose/en", cfg.Vocabulary.Model)
	assert.Equal(t, 30, cfg.Vocabulary.TopN)
	assert.Equal(t, 4, cfg.Vocabulary.MinWordLength)
	assert.Nil(t, cfg.Vocabulary.StopWords)
	assert.True(t, cfg.Vocabulary.SkipProperNouns)
	assert.True(t, cfg.Dictionary.FreeDictEnabled)
	assert.Equal(t, "https://api.dictionaryapi.dev/api/v2/entries/en", cfg.Dictionary.FreeDictURL)
	assert.Equal(t, 720*time.Hour, cfg.Dictionary.CacheTTL)
	assert.Equal(t, 4*time.Second, cfg.Dictionary.LookupTimeout)
	assert.Equal(t, 30*time.Second, cfg.Dictionary.BatchTimeout)
	assert.Equal(t, 4, cfg.Dictionary.Workers)
	assert.NotEmpty(t, cfg.Frequency.URL)
	assert.Equal(t, "newsvocab.db", cfg.Paths.DB)
	assert.Equal(t, "logs", cfg.Paths.ReportsDir)
	assert.Equal(t, "07:30", cfg.Schedule.Time)
	assert.Equal(t, "Asia/Seoul", cfg.Schedule.Timezone)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv(PathEnv, writeYAML(t, t.TempDir(), fullYAML))
	t.Setenv("NEWSVOCAB_TOP_N", "12")
	t.Setenv("NEWSVOCAB_STOP_WORDS", "a,an,the")
	t.Setenv("NEWSVOCAB_LOOKUP_TIMEOUT", "750ms")
	t.Setenv("NEWSVOCAB_LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Vocabulary.TopN)
	assert.Equal(t, []string{"a", "an", "the"}, cfg.Vocabulary.StopWords)
	assert.Equal(t, 750*time.Millisecond, cfg.Dictionary.LookupTimeout)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	t.Setenv(PathEnv, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"negative top n", "vocabulary:\n  top_n: -1\n", "top_n"},
		{"bad schedule time", "schedule:\n  time: \"7h30\"\n", "schedule"},
		{"bad timezone", "schedule:\n  timezone: Mars/Olympus\n", "timezone"},
		{"bad log format", "log:\n  format: xml\n", "format"},
		{"bad log level", "log:\n  level: loud\n", "level"},
		{"negative cache ttl", "dictionary:\n  cache_ttl: -1h\n", "cache_ttl"},
		{"negative workers via env", "log:\n  level: info\n", "workers"},
		{"unknown model", "vocabulary:\n  model: prose/fr\n", "model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "negative workers via env" {
				t.Setenv("NEWSVOCAB_WORKERS", "-2")
			}
			_, err := LoadFile(writeYAML(t, t.TempDir(), tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatePipelineErrorsAreConfigErrors(t *testing.T) {
	_, err := LoadFile(writeYAML(t, t.TempDir(), "vocabulary:\n  min_word_length: -3\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, vocab.ErrInvalidConfig)
}

func TestExplicitZeroIsRejected(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"min word length", "vocabulary:\n  min_word_length: 0\n", "min_word_length"},
		{"workers", "dictionary:\n  workers: 0\n", "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeYAML(t, t.TempDir(), tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, vocab.ErrInvalidConfig)
			var cerr *vocab.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestPipelineConversion(t *testing.T) {
	cfg, err := LoadFile(writeYAML(t, t.TempDir(), fullYAML))
	require.NoError(t, err)

	pc := cfg.Pipeline()
	assert.Equal(t, "kagome/ipa", pc.EngineModel)
	assert.Equal(t, 0, pc.TopN)
	assert.Equal(t, 5, pc.MinWordLength)
	assert.Equal(t, []string{"the", "said"}, pc.StopWords)
	assert.False(t, pc.SkipProperNouns)
	assert.Equal(t, 8, pc.Workers)
	assert.Equal(t, 2*time.Second, pc.LookupTimeout)
	assert.Equal(t, time.Minute, pc.BatchTimeout)
	assert.NoError(t, pc.Validate())
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(LogConfig{Level: "warn", Format: "json"}, &buf).Info("dropped")
	assert.Empty(t, buf.String(), "info is below warn")

	newLogger(LogConfig{Level: "warn", Format: "json"}, &buf).Warn("kept", slog.String("doc", "ep-1"))
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "kept", m["msg"])
	assert.Equal(t, "ep-1", m["doc"])

	buf.Reset()
	newLogger(LogConfig{Level: "DEBUG", Format: "text"}, &buf).Debug("source test")
	assert.True(t, strings.Contains(buf.String(), "source="), "text format includes the source")

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	logger := NewLogger(LogConfig{Level: "info", Format: "json"})
	assert.Equal(t, logger, slog.Default())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
