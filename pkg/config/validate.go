package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/newsvocab/pkg/schedule"
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Pipeline().Validate(); err != nil {
		return err
	}
	if c.Dictionary.CacheTTL < 0 {
		return fmt.Errorf("dictionary.cache_ttl must be >= 0 (got %v)", c.Dictionary.CacheTTL)
	}
	if c.Dictionary.FreeDictEnabled && strings.TrimSpace(c.Dictionary.FreeDictURL) == "" {
		return fmt.Errorf("dictionary.freedict_url is required when freedict is enabled")
	}
	if strings.TrimSpace(c.Paths.DB) == "" {
		return fmt.Errorf("paths.db must not be empty")
	}
	if strings.TrimSpace(c.Paths.ReportsDir) == "" {
		return fmt.Errorf("paths.reports_dir must not be empty")
	}
	if _, _, err := schedule.ParseClock(c.Schedule.Time); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (l LogConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", l.Format)
	}
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error (got %q)", l.Level)
	}
	return nil
}
