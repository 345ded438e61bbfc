// Package pluginerr provides the structured error type and canonical error
// codes shared by plugins and the hosts that run them.
//
// Fatal failures (initialization) surface as *Error values returned from
// Initialize. Routine failures travel inside a types.Result as an error code
// and message; the codes used there are the same constants defined here.
package pluginerr

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical error codes.
const (
	// CodePluginNotFound indicates the host could not resolve a plugin id.
	CodePluginNotFound = "PLUGIN_NOT_FOUND"

	// CodeActionNotSupported indicates the requested action is not registered.
	CodeActionNotSupported = "ACTION_NOT_SUPPORTED"

	// CodeInitFailed indicates plugin setup failed.
	CodeInitFailed = "INIT_FAILED"

	// CodeInitializationFailed is the long spelling of CodeInitFailed. Is treats
	// the two as equal.
	CodeInitializationFailed = "INITIALIZATION_FAILED"

	// CodeExecutionFailed indicates an action handler failed or panicked.
	CodeExecutionFailed = "EXECUTION_FAILED"

	// CodeQuotaExceeded indicates a tenant or instance quota was exhausted.
	CodeQuotaExceeded = "QUOTA_EXCEEDED"

	// CodeTimeout indicates an action exceeded its time budget.
	CodeTimeout = "EXECUTION_TIMEOUT"

	// CodeInvalidParam indicates a parameter was present but unusable.
	CodeInvalidParam = "INVALID_PARAM"

	// CodeMissingParam indicates a required parameter was absent.
	CodeMissingParam = "MISSING_PARAM"

	// CodeNotInitialized indicates an action was invoked outside the Ready state.
	CodeNotInitialized = "PLUGIN_NOT_INITIALIZED"

	// CodeConfigMissing indicates a required configuration property was absent.
	CodeConfigMissing = "CONFIG_MISSING"
)

// Error is a structured plugin error. It carries a canonical code, the plugin
// and action it originated from, and an optional underlying cause.
type Error struct {
	// PluginID is the id of the plugin that produced the error, if known.
	PluginID string `json:"plugin_id,omitempty"`

	// Action is the action being executed, if any.
	Action string `json:"action,omitempty"`

	// Code is one of the Code* constants or a plugin-specific code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details contains additional context as key-value pairs.
	Details map[string]any `json:"details,omitempty"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// New creates a structured error with the given code and message.
//
// Example:
//
//	err := pluginerr.New(pluginerr.CodeMissingParam, "missing required parameter: sql")
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf is New with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithCause sets the underlying error and returns e for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithPlugin sets the originating plugin id and returns e for chaining.
func (e *Error) WithPlugin(pluginID string) *Error {
	e.PluginID = pluginID
	return e
}

// WithAction sets the originating action and returns e for chaining.
func (e *Error) WithAction(action string) *Error {
	e.Action = action
	return e
}

// WithDetails merges details into the error and returns e for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Error formats the error as "plugin [action/code]: message: cause". The
// plugin and action parts are omitted when empty.
//
// Examples:
//   - "echo-plugin [echo/MISSING_PARAM]: missing required parameter: message"
//   - "[INIT_FAILED]: plugin initialization failed: dial tcp: connection refused"
func (e *Error) Error() string {
	var parts []string

	scope := e.Code
	if e.Action != "" {
		scope = e.Action + "/" + e.Code
	}
	head := fmt.Sprintf("[%s]", scope)
	if e.PluginID != "" {
		head = e.PluginID + " " + head
	}
	parts = append(parts, head)

	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with an equivalent code. When target
// also names a plugin, the plugin ids must match as well.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.PluginID != "" && t.PluginID != e.PluginID {
		return false
	}
	return normalize(e.Code) == normalize(t.Code)
}

// As allows errors.As to extract the *Error from a chain.
func (e *Error) As(target any) bool {
	t, ok := target.(**Error)
	if !ok {
		return false
	}
	*t = e
	return true
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there
// is none.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	return errors.Is(err, &Error{Code: code})
}

func normalize(code string) string {
	if code == CodeInitializationFailed {
		return CodeInitFailed
	}
	return code
}
