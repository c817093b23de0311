// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth contains the health of one dependency.
type ComponentHealth struct {
	Name   string       `json:"name"`
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// ScoringHealth contains health metrics for the scoring service.
type ScoringHealth struct {
	Status    SystemStatus `json:"status"`
	ErrorRate float64      `json:"error_rate"`
	Available bool         `json:"available"`
	InFlight  int          `json:"in_flight"`
	Permits   int          `json:"permits"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus      `json:"system_status"`
	Scoring      ScoringHealth     `json:"scoring"`
	Components   []ComponentHealth `json:"components"`
	Abandoned    int               `json:"abandoned_addresses"`
}

// worse returns the more severe of two statuses.
func worse(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
