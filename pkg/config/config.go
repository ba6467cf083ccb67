// Package config loads the application configuration from a YAML file and
// environment variables.
package config

import (
	"time"

	"github.com/japaniel/newsvocab/pkg/candidate"
	"github.com/japaniel/newsvocab/pkg/dictionary"
	"github.com/japaniel/newsvocab/pkg/difficulty"
	"github.com/japaniel/newsvocab/pkg/pipeline"
)

// Config is the root application configuration.
type Config struct {
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Frequency  FrequencyConfig  `yaml:"frequency"`
	Paths      PathsConfig      `yaml:"paths"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Log        LogConfig        `yaml:"log"`
}

// VocabularyConfig controls candidate extraction.
type VocabularyConfig struct {
	Model           string   `yaml:"model"             env:"NEWSVOCAB_MODEL"             env-default:"prose/en"`
	TopN            int      `yaml:"top_n"             env:"NEWSVOCAB_TOP_N"`
	MinWordLength   int      `yaml:"min_word_length"   env:"NEWSVOCAB_MIN_WORD_LENGTH"`
	StopWords       []string `yaml:"stop_words"        env:"NEWSVOCAB_STOP_WORDS"        env-separator:","`
	SkipProperNouns bool     `yaml:"skip_proper_nouns" env:"NEWSVOCAB_SKIP_PROPER_NOUNS"`
}

// DictionaryConfig controls enrichment.
type DictionaryConfig struct {
	GlossaryPath    string        `yaml:"glossary_path"    env:"NEWSVOCAB_GLOSSARY_PATH"`
	FreeDictEnabled bool          `yaml:"freedict_enabled" env:"NEWSVOCAB_FREEDICT_ENABLED"`
	FreeDictURL     string        `yaml:"freedict_url"     env:"NEWSVOCAB_FREEDICT_URL"`
	CacheTTL        time.Duration `yaml:"cache_ttl"        env:"NEWSVOCAB_CACHE_TTL"`
	LookupTimeout   time.Duration `yaml:"lookup_timeout"   env:"NEWSVOCAB_LOOKUP_TIMEOUT"`
	BatchTimeout    time.Duration `yaml:"batch_timeout"    env:"NEWSVOCAB_BATCH_TIMEOUT"`
	Workers         int           `yaml:"workers"          env:"NEWSVOCAB_WORKERS"`
}

// FrequencyConfig locates the word frequency list. An empty URL disables
// downloading; a missing file then means scoring without frequency stats.
type FrequencyConfig struct {
	Path string `yaml:"path" env:"NEWSVOCAB_FREQUENCY_PATH" env-default:"data/ngsl.csv"`
	URL  string `yaml:"url"  env:"NEWSVOCAB_FREQUENCY_URL"`
}

// PathsConfig holds file locations.
type PathsConfig struct {
	DB         string `yaml:"db"          env:"NEWSVOCAB_DB"          env-default:"newsvocab.db"`
	ReportsDir string `yaml:"reports_dir" env:"NEWSVOCAB_REPORTS_DIR" env-default:"logs"`
	ScriptsDir string `yaml:"scripts_dir" env:"NEWSVOCAB_SCRIPTS_DIR" env-default:"scripts"`
}

// ScheduleConfig holds the daily trigger.
type ScheduleConfig struct {
	Time     string `yaml:"time"     env:"NEWSVOCAB_SCHEDULE_TIME"     env-default:"07:30"`
	Timezone string `yaml:"timezone" env:"NEWSVOCAB_SCHEDULE_TIMEZONE" env-default:"Asia/Seoul"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"NEWSVOCAB_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"NEWSVOCAB_LOG_FORMAT" env-default:"text"`
}

// preset returns the defaults that YAML may override with a zero value.
// cleanenv would silently replace an explicit zero with an env-default tag,
// so these are set before parsing and Validate sees what the file says.
func preset() Config {
	var c Config
	c.Vocabulary.TopN = candidate.DefaultTopN
	c.Vocabulary.MinWordLength = 4
	c.Vocabulary.SkipProperNouns = true
	c.Dictionary.FreeDictEnabled = true
	c.Dictionary.FreeDictURL = dictionary.DefaultFreeDictURL
	c.Dictionary.Workers = dictionary.DefaultWorkers
	c.Dictionary.CacheTTL = 30 * 24 * time.Hour
	c.Dictionary.LookupTimeout = dictionary.DefaultLookupTimeout
	c.Dictionary.BatchTimeout = dictionary.DefaultBatchTimeout
	c.Frequency.URL = difficulty.DefaultWordListURL
	return c
}

// Pipeline converts the vocabulary and dictionary sections into a
// pipeline configuration. An empty stop word list selects the default one.
func (c *Config) Pipeline() pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.EngineModel = c.Vocabulary.Model
	pc.TopN = c.Vocabulary.TopN
	pc.MinWordLength = c.Vocabulary.MinWordLength
	pc.SkipProperNouns = c.Vocabulary.SkipProperNouns
	if len(c.Vocabulary.StopWords) > 0 {
		pc.StopWords = c.Vocabulary.StopWords
	}
	pc.Workers = c.Dictionary.Workers
	pc.LookupTimeout = c.Dictionary.LookupTimeout
	pc.BatchTimeout = c.Dictionary.BatchTimeout
	return pc
}
