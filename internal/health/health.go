// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a
// single operation.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// OperationHealth contains health metrics for one chain operation.
type OperationHealth struct {
	Operation           string       `json:"operation"`
	Status              SystemStatus `json:"status"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	// SecondsSinceSuccess is null until the first success or failure is
	// recorded.
	SecondsSinceSuccess *float64 `json:"seconds_since_success"`
	Network             string   `json:"network"`
}
