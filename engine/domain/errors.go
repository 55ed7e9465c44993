package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Configuration errors are fatal at startup and never
// recovered silently; everything else is reported to the immediate caller.
var (
	ErrInvalidChunking = errors.New("invalid chunking parameters")
	ErrUnknownBackend  = errors.New("unknown store backend")
	ErrEmptyDocument   = errors.New("document content is empty")
	ErrMissingURL      = errors.New("url is empty")
)

// ConfigError wraps a sentinel with the offending parameter for startup-time
// misconfiguration. It is the only error class that should abort the process.
type ConfigError struct {
	Param   string
	Value   string
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s (value=%q)", e.Wrapped, e.Param, e.Value)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

// NewConfigError creates a ConfigError.
func NewConfigError(param, value string, wrapped error) *ConfigError {
	return &ConfigError{Param: param, Value: value, Wrapped: wrapped}
}
