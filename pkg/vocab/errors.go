package vocab

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the pipeline. Only ErrInvalidConfig is ever
// returned to pipeline callers; the others are recovered where they occur
// and show up in logs.
var (
	ErrEngineUnavailable = errors.New("linguistic engine unavailable")
	ErrLookupFailed      = errors.New("dictionary lookup failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// ConfigError describes a malformed configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// NewConfigError creates a ConfigError for a single field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}
