package handler

import (
	"net/http"

	"github.com/boddenberg/crm-bff-go/internal/infra/validation"
	"github.com/boddenberg/crm-bff-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard: GET /v1/dashboard and its individual views
// ============================================================

func dashboardHandler(svc *service.DashboardService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		year, err := parseYear(r, v)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor, _ := ActorFromContext(ctx)
		d, err := svc.Dashboard(ctx, actor, year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func monthlyHandler(svc *service.DashboardService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/monthly")
		defer span.End()

		year, err := parseYear(r, v)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor, _ := ActorFromContext(ctx)
		monthly, err := svc.Monthly(ctx, actor, year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, monthly)
	}
}

func sourcesHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/sources")
		defer span.End()

		actor, _ := ActorFromContext(ctx)
		sources, err := svc.LeadSources(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sources)
	}
}

func changeHandler(svc *service.DashboardService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/change")
		defer span.End()

		year, err := parseYear(r, v)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		key := r.URL.Query().Get("key")
		span.SetAttributes(attribute.String("change.key", key))

		actor, _ := ActorFromContext(ctx)
		change, err := svc.Change(ctx, actor, year, key)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, change)
	}
}
