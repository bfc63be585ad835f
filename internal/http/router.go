// Package httptransport assembles the HTTP surface: middleware chain, health
// and metrics endpoints, and the versioned API routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"freshkeep/internal/http/shared"
	"freshkeep/internal/platform/metrics"
	"freshkeep/internal/platform/middleware"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Registrar is implemented by each domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs from main.
type Deps struct {
	Logger   *slog.Logger
	Handlers []Registrar

	// Checks maps dependency name to its health probe; all must pass for
	// /healthz to return 200.
	Checks map[string]HealthChecker
}

// NewRouter builds the root router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps.Checks))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		for _, h := range deps.Handlers {
			h.Register(api)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		shared.WriteJSON(w, status, resp)
	}
}
