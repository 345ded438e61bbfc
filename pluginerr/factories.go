package pluginerr

import "fmt"

// NotFound reports that the host could not resolve pluginID.
func NotFound(pluginID string) *Error {
	return New(CodePluginNotFound, fmt.Sprintf("plugin not found: %s", pluginID)).
		WithPlugin(pluginID)
}

// ActionNotSupported reports that action is not registered on pluginID.
// Supported names, when given, are listed in the message.
func ActionNotSupported(pluginID, action string, supported []string) *Error {
	msg := fmt.Sprintf("action not supported: %s", action)
	if supported != nil {
		msg = fmt.Sprintf("%s (supported: %v)", msg, supported)
	}
	return New(CodeActionNotSupported, msg).WithPlugin(pluginID).WithAction(action)
}

// InitializationFailed wraps cause as an INIT_FAILED error for pluginID.
func InitializationFailed(pluginID string, cause error) *Error {
	return New(CodeInitFailed, "plugin initialization failed").
		WithPlugin(pluginID).
		WithCause(cause)
}

// ExecutionFailed wraps cause as an EXECUTION_FAILED error.
func ExecutionFailed(pluginID, action string, cause error) *Error {
	return New(CodeExecutionFailed, "action execution failed").
		WithPlugin(pluginID).
		WithAction(action).
		WithCause(cause)
}

// QuotaExceeded reports that a named quota was exhausted.
func QuotaExceeded(pluginID, quota string) *Error {
	return New(CodeQuotaExceeded, fmt.Sprintf("quota exceeded: %s", quota)).
		WithPlugin(pluginID).
		WithDetails(map[string]any{"quota": quota})
}

// Timeout reports that action did not finish within timeoutMs.
func Timeout(pluginID, action string, timeoutMs int64) *Error {
	return New(CodeTimeout, fmt.Sprintf("execution timed out after %dms", timeoutMs)).
		WithPlugin(pluginID).
		WithAction(action).
		WithDetails(map[string]any{"timeout_ms": timeoutMs})
}

// MissingParam reports an absent required parameter.
func MissingParam(name string) *Error {
	return New(CodeMissingParam, fmt.Sprintf("missing required parameter: %s", name)).
		WithDetails(map[string]any{"param": name})
}

// InvalidParam reports a parameter that is present but unusable.
func InvalidParam(name, reason string) *Error {
	return New(CodeInvalidParam, fmt.Sprintf("invalid parameter %s: %s", name, reason)).
		WithDetails(map[string]any{"param": name})
}

// ConfigMissing reports an absent required configuration property.
func ConfigMissing(key string) *Error {
	return New(CodeConfigMissing, fmt.Sprintf("required config property missing: %s", key)).
		WithDetails(map[string]any{"property": key})
}

// NotInitialized reports an invocation outside the Ready state.
func NotInitialized(pluginID string) *Error {
	return New(CodeNotInitialized, "plugin not initialized").WithPlugin(pluginID)
}
