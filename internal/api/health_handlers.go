package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	checks := []struct {
		name string
		run  func(context.Context) ComponentHealth
		// critical components make the server unhealthy; others only degrade it
		critical bool
	}{
		{"database", s.checkDatabase, true},
		{"closure", s.checkClosure, false},
		{"search", s.checkSearchIndex, false},
		{"session_state", s.checkSessionState, true},
	}

	components := make(map[string]ComponentHealth, len(checks))
	overall := statusHealthy
	for _, c := range checks {
		h := c.run(ctx)
		components[c.name] = h
		switch {
		case h.Status == statusHealthy:
		case h.Status == statusUnhealthy && c.critical:
			overall = statusUnhealthy
		case overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkDatabase verifies SQLite is reachable.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}

	start := time.Now()
	err := s.store.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "database unreachable",
		}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

// checkClosure reports which tag expansion strategy searches use.
// Live expansion is correct, so a missing table is not a failure.
func (s *Server) checkClosure(ctx context.Context) ComponentHealth {
	if s.services == nil || s.services.Tag == nil {
		return ComponentHealth{Status: statusDegraded, Message: "tag service not configured"}
	}

	status, err := s.services.Tag.ClosureStatus(ctx)
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "closure status unavailable"}
	}
	if !status.Exists {
		return ComponentHealth{Status: statusHealthy, Message: "live expansion"}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d closure rows", status.Rows)}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex(_ context.Context) ComponentHealth {
	if s.services == nil || s.services.Search == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search service not configured"}
	}

	start := time.Now()
	docCount, err := s.services.Search.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}

	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: fmt.Sprintf("%d documents", docCount),
	}
}

// checkSessionState verifies the Badger session store answers.
func (s *Server) checkSessionState(ctx context.Context) ComponentHealth {
	if s.state == nil {
		return ComponentHealth{Status: statusDegraded, Message: "session state not configured"}
	}

	start := time.Now()
	err := s.state.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "session state unreachable",
		}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}
