package types

// Health status constants represent the operational state of a checked
// dependency (broker endpoint, probe tooling, filesystem paths).
const (
	// StatusHealthy indicates the dependency is fully operational.
	StatusHealthy = "healthy"

	// StatusDegraded indicates the dependency works but with reduced fidelity,
	// for example a missing bluetooth tool that only narrows fact collection.
	StatusDegraded = "degraded"

	// StatusUnhealthy indicates the dependency is not operational.
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the outcome of a single preflight check.
// It carries the state, a human-readable message, and diagnostic details.
type HealthStatus struct {
	// Status is the current health state (healthy, degraded, or unhealthy).
	Status string `json:"status"`

	// Message provides a human-readable description of the health status.
	Message string `json:"message,omitempty"`

	// Details contains additional context and diagnostic information,
	// such as the broker address, the missing binary, or the probe error.
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

// Severity orders statuses from best to worst: healthy < degraded <
// unhealthy. Unknown status strings rank worst so that a malformed check
// result never masks a real failure.
func (h HealthStatus) Severity() int {
	switch h.Status {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return 3
	}
}

// Worst returns the status with the highest severity, preferring the
// receiver on ties. Aggregating preflight results reduces to a fold over
// Worst.
func (h HealthStatus) Worst(other HealthStatus) HealthStatus {
	if other.Severity() > h.Severity() {
		return other
	}
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
