// Package errors provides the error taxonomy for specstudio's process layer.
//
// # Error Types
//
// Errors are split by when they occur relative to a run being "started":
//   - ConfigError: a required input for the requested action is missing
//   - UnsupportedActionError: the action name is not known to the command builder
//   - ResolutionError: the binary cannot be located or the OS refuses to spawn it
//   - RuntimeError: a failure while streaming or waiting on a started run
//   - UnavailableError: input injection or cancellation with nothing to act on
//
// The first three, plus UnavailableError, are returned synchronously to the
// caller. RuntimeError never is; the supervisor logs it and folds it into the
// run's terminal "complete" event.
//
// # Usage
//
//	err := errors.NewConfigError("specContent is required", errors.ErrMissingParam).
//	    WithAction("create_code").WithParam("spec_content")
//
//	if errors.Is(err, errors.ErrMissingParam) { ... }
//
//	var cfgErr *errors.ConfigError
//	if errors.As(err, &cfgErr) { ... }
//
//	code := errors.Code(err) // "config_error"
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Command building sentinel errors
var (
	// ErrMissingParam indicates that a parameter required by an action is absent.
	ErrMissingParam = New("required parameter missing")
	// ErrUnknownAction indicates that an action name has no command mapping.
	ErrUnknownAction = New("unknown action")
	// ErrTempFile indicates the prompt file could not be written.
	ErrTempFile = New("temp prompt file unavailable")
)

// Process sentinel errors
var (
	// ErrSpawnFailed indicates that the OS failed to start the child process.
	ErrSpawnFailed = New("failed to spawn process")
	// ErrNoActiveProcess indicates that no process is currently tracked.
	ErrNoActiveProcess = New("no active process")
	// ErrProcessNotFound indicates that the requested process id is not tracked.
	ErrProcessNotFound = New("process not found")
	// ErrWriterUnavailable indicates that a process's input channel is closed or missing.
	ErrWriterUnavailable = New("process input unavailable")
	// ErrUnsupportedPlatform indicates an operation has no implementation on this OS.
	ErrUnsupportedPlatform = New("unsupported on this platform")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// SpecStudioError is the base interface for all typed errors in this package.
type SpecStudioError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool

	// Code returns a stable machine-readable identifier for the error kind.
	Code() string
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<prefix> [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// ConfigError
// -----------------------------------------------------------------------------

// ConfigError is returned when an action is requested without an input it needs.
//
// Example:
//
//	err := errors.NewConfigError("specContent is required for this action", errors.ErrMissingParam)
//	err = err.WithAction("create_code").WithParam("spec_content")
//	fmt.Println(err) // "config error [action=create_code, param=spec_content]: specContent is required ..."
type ConfigError struct {
	baseError
	Action string
	Param  string
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithAction adds the action name to the error context.
func (e *ConfigError) WithAction(action string) *ConfigError {
	e.Action = action
	return e
}

// WithParam adds the missing parameter name to the error context.
func (e *ConfigError) WithParam(param string) *ConfigError {
	e.Param = param
	return e
}

// Code returns "config_error".
func (e *ConfigError) Code() string { return "config_error" }

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Action != "" {
		parts = append(parts, fmt.Sprintf("action=%s", e.Action))
	}
	if e.Param != "" {
		parts = append(parts, fmt.Sprintf("param=%s", e.Param))
	}
	return e.format("config error", parts)
}

// -----------------------------------------------------------------------------
// UnsupportedActionError
// -----------------------------------------------------------------------------

// UnsupportedActionError is returned for action names the builder does not know.
type UnsupportedActionError struct {
	baseError
	Action string
}

// NewUnsupportedActionError creates a new UnsupportedActionError for action.
func NewUnsupportedActionError(action string) *UnsupportedActionError {
	return &UnsupportedActionError{
		baseError: baseError{
			message:    fmt.Sprintf("unknown streaming action: %s", action),
			cause:      ErrUnknownAction,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Action: action,
	}
}

// Code returns "unsupported_action".
func (e *UnsupportedActionError) Code() string { return "unsupported_action" }

// Error returns the formatted error message.
func (e *UnsupportedActionError) Error() string {
	return e.message
}

// -----------------------------------------------------------------------------
// ResolutionError
// -----------------------------------------------------------------------------

// ResolutionError is returned when a binary cannot be spawned.
//
// Example:
//
//	err := errors.NewResolutionError("failed to spawn claude", osErr).WithBinary("/usr/local/bin/claude")
type ResolutionError struct {
	baseError
	Binary string
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(message string, cause error) *ResolutionError {
	return &ResolutionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithBinary adds the resolved binary path to the error context.
func (e *ResolutionError) WithBinary(path string) *ResolutionError {
	e.Binary = path
	return e
}

// Code returns "resolution_error".
func (e *ResolutionError) Code() string { return "resolution_error" }

// Error returns the formatted error message.
func (e *ResolutionError) Error() string {
	var parts []string
	if e.Binary != "" {
		parts = append(parts, fmt.Sprintf("binary=%s", e.Binary))
	}
	return e.format("resolution error", parts)
}

// Is reports ErrSpawnFailed for every ResolutionError.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrSpawnFailed
}

// -----------------------------------------------------------------------------
// RuntimeError
// -----------------------------------------------------------------------------

// RuntimeError describes a failure after a run has started. It is logged and
// reflected in the run's exit code, never returned from Spawn.
type RuntimeError struct {
	baseError
	ProcessID string
	Stage     string // "read", "wait", "cleanup"
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(stage string, cause error) *RuntimeError {
	return &RuntimeError{
		baseError: baseError{
			message:  stage + " failed",
			cause:    cause,
			severity: SeverityError,
		},
		Stage: stage,
	}
}

// WithProcessID adds the run's process id to the error context.
func (e *RuntimeError) WithProcessID(id string) *RuntimeError {
	e.ProcessID = id
	return e
}

// Code returns "runtime_error".
func (e *RuntimeError) Code() string { return "runtime_error" }

// Error returns the formatted error message.
func (e *RuntimeError) Error() string {
	var parts []string
	if e.ProcessID != "" {
		parts = append(parts, fmt.Sprintf("process=%s", e.ProcessID))
	}
	return e.format("runtime error", parts)
}

// -----------------------------------------------------------------------------
// UnavailableError
// -----------------------------------------------------------------------------

// UnavailableError is returned by input injection when there is no process to
// target or its write channel cannot be used.
type UnavailableError struct {
	baseError
	ProcessID string
}

// NewUnavailableError creates a new UnavailableError.
func NewUnavailableError(message string, cause error) *UnavailableError {
	return &UnavailableError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithProcessID adds the targeted process id to the error context.
func (e *UnavailableError) WithProcessID(id string) *UnavailableError {
	e.ProcessID = id
	return e
}

// Code returns "unavailable".
func (e *UnavailableError) Code() string { return "unavailable" }

// Error returns the formatted error message.
func (e *UnavailableError) Error() string {
	var parts []string
	if e.ProcessID != "" {
		parts = append(parts, fmt.Sprintf("process=%s", e.ProcessID))
	}
	return e.format("unavailable", parts)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var se SpecStudioError
	if As(err, &se) {
		return se.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement SpecStudioError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var se SpecStudioError
	if As(err, &se) {
		return se.Severity()
	}
	return SeverityError
}

// Code returns the stable code of the first typed error in err's chain, or
// "internal" when there is none. Returns "" for a nil error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var se SpecStudioError
	if As(err, &se) {
		return se.Code()
	}
	return "internal"
}

// IsPreStart reports whether err belongs to the class of failures that are
// surfaced synchronously, before a run is considered started.
func IsPreStart(err error) bool {
	var cfg *ConfigError
	var unsupported *UnsupportedActionError
	var resolution *ResolutionError
	return As(err, &cfg) || As(err, &unsupported) || As(err, &resolution)
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
