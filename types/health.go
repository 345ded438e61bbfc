package types

// Health status constants represent the operational state of a plugin.
const (
	// StatusHealthy indicates the plugin is fully operational.
	StatusHealthy = "HEALTHY"

	// StatusDegraded indicates the plugin is operational but experiencing issues.
	StatusDegraded = "DEGRADED"

	// StatusUnhealthy indicates the plugin is not operational.
	StatusUnhealthy = "UNHEALTHY"

	// StatusUnknown indicates the state cannot be determined yet, for example
	// before initialization has completed.
	StatusUnknown = "UNKNOWN"
)

// HealthStatus represents the health state of a plugin instance.
type HealthStatus struct {
	// Status is one of the Status* constants.
	Status string `json:"status"`

	// Message provides a human-readable description of the health status.
	Message string `json:"message,omitempty"`

	// Details contains additional diagnostic information.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the status is StatusHealthy.
func (h HealthStatus) IsHealthy() bool {
	return h.Status == StatusHealthy
}

// IsDegraded returns true if the status is StatusDegraded.
func (h HealthStatus) IsDegraded() bool {
	return h.Status == StatusDegraded
}

// IsUnhealthy returns true if the status is StatusUnhealthy.
func (h HealthStatus) IsUnhealthy() bool {
	return h.Status == StatusUnhealthy
}

// IsUnknown returns true if the status is StatusUnknown or unrecognized.
func (h HealthStatus) IsUnknown() bool {
	switch h.Status {
	case StatusHealthy, StatusDegraded, StatusUnhealthy:
		return false
	default:
		return true
	}
}

// IsOperational reports whether the plugin can serve calls, that is, it is
// healthy or degraded.
func (h HealthStatus) IsOperational() bool {
	return h.IsHealthy() || h.IsDegraded()
}

// WithDetail returns a copy of h with key set in Details.
func (h HealthStatus) WithDetail(key string, v any) HealthStatus {
	details := make(map[string]any, len(h.Details)+1)
	for k, e := range h.Details {
		details[k] = e
	}
	details[key] = v
	h.Details = details
	return h
}

// NewHealthyStatus creates a new healthy status with an optional message.
func NewHealthyStatus(message string) HealthStatus {
	return HealthStatus{
		Status:  StatusHealthy,
		Message: message,
	}
}

// NewDegradedStatus creates a new degraded status with a message and optional details.
func NewDegradedStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{
		Status:  StatusDegraded,
		Message: message,
		Details: details,
	}
}

// NewUnhealthyStatus creates a new unhealthy status with a message and optional details.
func NewUnhealthyStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{
		Status:  StatusUnhealthy,
		Message: message,
		Details: details,
	}
}

// NewUnknownStatus creates a new unknown status with an optional message.
func NewUnknownStatus(message string) HealthStatus {
	return HealthStatus{
		Status:  StatusUnknown,
		Message: message,
	}
}
