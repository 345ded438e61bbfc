package pluginerr

// Class groups error codes by how a host should react to them.
type Class string

const (
	// ClassFatal marks failures that leave the instance unusable.
	ClassFatal Class = "fatal"

	// ClassRoutine marks caller mistakes. Retrying the same call will fail again.
	ClassRoutine Class = "routine"

	// ClassFault marks handler failures that may or may not recur.
	ClassFault Class = "fault"

	// ClassTransient marks temporary conditions that may clear on retry.
	ClassTransient Class = "transient"
)

// Classify returns the class for a code. Unknown codes, including
// plugin-specific ones, are classified as faults.
func Classify(code string) Class {
	switch normalize(code) {
	case CodeInitFailed, CodeConfigMissing, CodePluginNotFound:
		return ClassFatal
	case CodeActionNotSupported, CodeInvalidParam, CodeMissingParam, CodeNotInitialized:
		return ClassRoutine
	case CodeQuotaExceeded, CodeTimeout:
		return ClassTransient
	default:
		return ClassFault
	}
}

// IsRetryable reports whether a host may reasonably retry a call that failed
// with code.
func IsRetryable(code string) bool {
	switch Classify(code) {
	case ClassTransient, ClassFault:
		return true
	default:
		return false
	}
}
