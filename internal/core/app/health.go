package app

import (
	"context"
	"time"

	"strata/internal/data/history"
	"strata/internal/shared/observability"
)

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports "down" while the latest run failed and "up" otherwise,
// including before the first run.
func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{Status: "up"}

	s.app.healthMu.RLock()
	last := s.app.lastRun
	s.app.healthMu.RUnlock()

	if last == nil {
		return status
	}
	status.LastRun = last.Started.Format(time.RFC3339)
	if last.Outcome == history.OutcomeFailed {
		status.Status = "down"
		status.Error = last.Error
	}
	return status
}
