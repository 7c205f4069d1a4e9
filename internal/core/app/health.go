package app

import (
	"context"
	"fmt"
	"time"

	"pathwatch/internal/core/watcher"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Pinger is satisfied by stores that can report whether they are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	app     *App
	journal Pinger
}

func NewHealthService(app *App, journal Pinger) *HealthService {
	return &HealthService{app: app, journal: journal}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	w := s.app.Watcher
	switch state := w.State(); state {
	case watcher.StateRunning:
		status.Components["watcher"] = fmt.Sprintf("ok (%d paths)", len(w.Paths()))
	default:
		status.Status = "degraded"
		status.Components["watcher"] = state.String()
	}

	if s.journal != nil {
		if err := s.journal.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Components["journal"] = err.Error()
		} else {
			status.Components["journal"] = "ok"
		}
	} else if s.app.Config.Journal.Enabled {
		status.Status = "degraded"
		status.Components["journal"] = "missing but enabled in config"
	}

	return status
}
