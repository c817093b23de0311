package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/fraudlens/internal/infra/scoring"
	"github.com/vietddude/fraudlens/internal/infra/storage"
)

// ScoringProbe exposes the scoring client's running health.
type ScoringProbe interface {
	Health() scoring.HealthStatus
}

// CapacityProbe exposes limiter usage.
type CapacityProbe interface {
	Permits() int
	InFlight() int
}

// AbandonedCounter counts addresses that could not be scored.
type AbandonedCounter interface {
	Count(ctx context.Context) (int, error)
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	scoring    ScoringProbe
	capacity   CapacityProbe
	abandoned  AbandonedCounter
	pingers    map[string]storage.Pinger
	cacheFor   time.Duration
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. Any probe may be nil.
func NewMonitor(
	scoringProbe ScoringProbe,
	capacity CapacityProbe,
	abandoned AbandonedCounter,
	pingers map[string]storage.Pinger,
) *Monitor {
	return &Monitor{
		scoring:   scoringProbe,
		capacity:  capacity,
		abandoned: abandoned,
		pingers:   pingers,
		cacheFor:  10 * time.Second,
	}
}

// CheckHealth builds a health report. Results are reused for a short while
// so frequent probes don't hammer the backends.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheFor {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Scoring:      ScoringHealth{Status: StatusHealthy, Available: true},
		Components:   []ComponentHealth{},
	}

	// 1. Scoring service
	if m.scoring != nil {
		h := m.scoring.Health()
		report.Scoring.ErrorRate = h.ErrorRate
		report.Scoring.Available = h.Available
		if !h.Available || h.ErrorRate > 0.5 {
			report.Scoring.Status = StatusCritical
		} else if h.ErrorRate > 0.1 {
			report.Scoring.Status = StatusDegraded
		}
	}
	if m.capacity != nil {
		report.Scoring.Permits = m.capacity.Permits()
		report.Scoring.InFlight = m.capacity.InFlight()
	}
	report.SystemStatus = worse(report.SystemStatus, report.Scoring.Status)

	// 2. Storage backends
	for name, p := range m.pingers {
		c := ComponentHealth{Name: name, Status: StatusHealthy}
		if err := p.Ping(ctx); err != nil {
			c.Status = StatusCritical
			c.Error = err.Error()
		}
		report.Components = append(report.Components, c)
		report.SystemStatus = worse(report.SystemStatus, c.Status)
	}

	// 3. Abandoned addresses
	if m.abandoned != nil {
		if n, err := m.abandoned.Count(ctx); err == nil {
			report.Abandoned = n
			if n > 100 {
				report.SystemStatus = worse(report.SystemStatus, StatusDegraded)
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}
