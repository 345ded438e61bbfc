package types

import (
	"errors"

	"github.com/zero-day-ai/bolt/pluginerr"
)

// Result is the outcome of a single action invocation.
//
// A failed Result has Success false, a non-empty Error message and, for
// failures produced by the runtime, one of the pluginerr codes in ErrorCode.
// ExecutionTimeMs is stamped by the dispatcher on every Result it returns.
type Result struct {
	Success         bool           `json:"success"`
	Data            any            `json:"data,omitempty"`
	Error           string         `json:"error,omitempty"`
	ErrorCode       string         `json:"errorCode,omitempty"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Success returns a successful result carrying data.
func Success(data any) *Result {
	return &Result{Success: true, Data: data}
}

// SuccessEmpty returns a successful result without data.
func SuccessEmpty() *Result {
	return &Result{Success: true}
}

// Failure returns a failed result.
func Failure(code, message string) *Result {
	return &Result{Success: false, ErrorCode: code, Error: message}
}

// FailureFromError converts err into a failed result. Structured errors keep
// their code and message; anything else, including a structured error with
// no code, becomes EXECUTION_FAILED.
func FailureFromError(err error) *Result {
	if err == nil {
		return Failure(pluginerr.CodeExecutionFailed, "unknown error")
	}
	var pe *pluginerr.Error
	if errors.As(err, &pe) {
		code := pe.Code
		if code == "" {
			code = pluginerr.CodeExecutionFailed
		}
		r := Failure(code, err.Error())
		if pe.Message != "" {
			r.Error = pe.Message
			if pe.Cause != nil {
				r.Error = pe.Message + ": " + pe.Cause.Error()
			}
		}
		if len(pe.Details) > 0 {
			r.Metadata = make(map[string]any, len(pe.Details))
			for k, v := range pe.Details {
				r.Metadata[k] = v
			}
		}
		return r
	}
	return Failure(pluginerr.CodeExecutionFailed, err.Error())
}

// WithMetadata sets a metadata entry and returns r for chaining.
func (r *Result) WithMetadata(key string, v any) *Result {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = v
	return r
}

// DataAsMap returns Data as a map when it holds one.
func (r *Result) DataAsMap() (map[string]any, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.Data.(map[string]any)
	return m, ok
}

// Err returns the failure as a structured error, or nil for a successful
// result.
func (r *Result) Err() error {
	if r == nil || r.Success {
		return nil
	}
	code := r.ErrorCode
	if code == "" {
		code = pluginerr.CodeExecutionFailed
	}
	return pluginerr.New(code, r.Error).WithDetails(r.Metadata)
}
