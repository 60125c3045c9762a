package gate

import (
	"context"
	"time"
)

// Health checks the gate service health.
func (s *Service) Health(ctx context.Context) *HealthOutput {
	dbOk := s.repo != nil && s.repo.Ping(ctx) == nil

	status := "healthy"
	if !dbOk {
		status = "unhealthy"
	}

	out := &HealthOutput{
		Status:    status,
		Checks:    HealthChecks{Database: dbOk},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.connections != nil {
		out.Checks.Connections = s.connections.Count()
	}
	return out
}
