package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/observability"
	"github.com/boddenberg/crm-bff-go/internal/infra/validation"
	"github.com/boddenberg/crm-bff-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Version is reported by /healthz. Overridden at build time with -ldflags.
var Version = "dev"

const readinessTimeout = 2 * time.Second

// ReadinessCheck probes one dependency for /healthz and /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	leadSvc *service.LeadService,
	taskSvc *service.TaskService,
	dashSvc *service.DashboardService,
	tokens *service.TokenService,
	metrics *observability.Metrics,
	logger *zap.Logger,
	checks ...ReadinessCheck,
) http.Handler {
	r := chi.NewRouter()
	v := validation.New()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(checks))
	r.Get("/readyz", readyzHandler(checks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(tokens, logger))

		// Leads and lifecycle
		r.Get("/leads", listLeadsHandler(leadSvc, logger))
		r.Post("/leads", createLeadHandler(leadSvc, v, logger))
		r.Patch("/leads/{leadId}/status", changeStatusHandler(leadSvc, v, logger))
		r.Post("/leads/{leadId}/approval", resolveApprovalHandler(leadSvc, v, logger))

		r.Get("/clients", listClientsHandler(leadSvc, logger))
		r.Get("/tasks", listTasksHandler(leadSvc, logger))
		r.Post("/tasks", createTaskHandler(taskSvc, v, logger))
		r.Patch("/tasks/{taskId}", updateTaskHandler(taskSvc, v, logger))

		// Dashboards
		r.Get("/dashboard", dashboardHandler(dashSvc, v, logger))
		r.Get("/dashboard/monthly", monthlyHandler(dashSvc, v, logger))
		r.Get("/dashboard/sources", sourcesHandler(dashSvc, logger))
		r.Get("/dashboard/change", changeHandler(dashSvc, v, logger))

		r.With(RequireRole(logger, domain.RoleManager, domain.RoleAdmin)).
			Get("/metrics/lifecycle", lifecycleMetricsHandler(metrics))
	})

	return r
}

// runChecks probes every dependency. The map holds "ok" or the error text.
func runChecks(ctx context.Context, checks []ReadinessCheck) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	results := make(map[string]string, len(checks))
	healthy := true
	for _, c := range checks {
		if err := c.Check(ctx); err != nil {
			results[c.Name] = err.Error()
			healthy = false
			continue
		}
		results[c.Name] = "ok"
	}
	return results, healthy
}

func healthzHandler(checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, healthy := runChecks(r.Context(), checks)
		status := "healthy"
		if !healthy {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, domain.HealthResponse{
			Status:    status,
			Version:   Version,
			Timestamp: time.Now().UTC(),
			Checks:    results,
		})
	}
}

func readyzHandler(checks []ReadinessCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, healthy := runChecks(r.Context(), checks)
		if !healthy {
			logger.Warn("not ready", zap.Any("checks", results))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "checks": results})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func lifecycleMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.LifecycleSnapshot())
	}
}
