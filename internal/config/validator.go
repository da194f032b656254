package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "shell.read_buffer_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Read buffer bounds
const (
	MinReadBufferSize = 256
	MaxReadBufferSize = 65536
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidGhostModes returns the list of valid ghost modes
func ValidGhostModes() []string {
	return []string{GhostModeTimer, GhostModePattern}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateShell()...)
	errors = append(errors, c.validateTools()...)
	errors = append(errors, c.validateGhost()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateServer()...)

	return errors
}

// validateShell validates the ShellConfig
func (c *Config) validateShell() []ValidationError {
	var errors []ValidationError

	if c.Shell.ReadBufferSize < MinReadBufferSize || c.Shell.ReadBufferSize > MaxReadBufferSize {
		errors = append(errors, ValidationError{
			Field:   "shell.read_buffer_size",
			Value:   c.Shell.ReadBufferSize,
			Message: fmt.Sprintf("must be between %d and %d", MinReadBufferSize, MaxReadBufferSize),
		})
	}

	if c.Shell.PTYCols <= 0 {
		errors = append(errors, ValidationError{
			Field:   "shell.pty_cols",
			Value:   c.Shell.PTYCols,
			Message: "must be positive",
		})
	}

	if c.Shell.PTYRows <= 0 {
		errors = append(errors, ValidationError{
			Field:   "shell.pty_rows",
			Value:   c.Shell.PTYRows,
			Message: "must be positive",
		})
	}

	return errors
}

// validateTools validates the ToolsConfig
func (c *Config) validateTools() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Tools.Claude) == "" {
		errors = append(errors, ValidationError{
			Field:   "tools.claude",
			Value:   c.Tools.Claude,
			Message: "must not be empty",
		})
	}

	if strings.TrimSpace(c.Tools.NPM) == "" {
		errors = append(errors, ValidationError{
			Field:   "tools.npm",
			Value:   c.Tools.NPM,
			Message: "must not be empty",
		})
	}

	for i, dir := range c.Tools.ExtraSearchDirs {
		if strings.TrimSpace(dir) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("tools.extra_search_dirs[%d]", i),
				Value:   dir,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

// validateGhost validates the GhostConfig
func (c *Config) validateGhost() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidGhostModes(), c.Ghost.Mode) {
		errors = append(errors, ValidationError{
			Field:   "ghost.mode",
			Value:   c.Ghost.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidGhostModes(), ", ")),
		})
	}

	if c.Ghost.DelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "ghost.delay_ms",
			Value:   c.Ghost.DelayMs,
			Message: "must be non-negative",
		})
	}

	if c.Ghost.KeyIntervalMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "ghost.key_interval_ms",
			Value:   c.Ghost.KeyIntervalMs,
			Message: "must be non-negative",
		})
	}

	for i, key := range c.Ghost.Keys {
		if _, ok := keyBytes[strings.ToLower(key)]; !ok {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("ghost.keys[%d]", i),
				Value:   key,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(KeyNames(), ", ")),
			})
		}
	}

	if c.Ghost.Mode == GhostModePattern {
		if strings.TrimSpace(c.Ghost.PromptPattern) == "" {
			errors = append(errors, ValidationError{
				Field:   "ghost.prompt_pattern",
				Value:   c.Ghost.PromptPattern,
				Message: "must not be empty in pattern mode",
			})
		}
		if c.Ghost.PatternTimeoutMs <= 0 {
			errors = append(errors, ValidationError{
				Field:   "ghost.pattern_timeout_ms",
				Value:   c.Ghost.PatternTimeoutMs,
				Message: "must be positive in pattern mode",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Server.Addr) == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	} else if !strings.Contains(c.Server.Addr, ":") {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must be in host:port form",
		})
	}

	return errors
}
