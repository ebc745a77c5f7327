package handler

import (
	"net/http"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/validation"
	"github.com/boddenberg/crm-bff-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Leads: GET /v1/leads, POST /v1/leads, PATCH /v1/leads/{leadId}/status,
// POST /v1/leads/{leadId}/approval
// ============================================================

func listLeadsHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		actor, _ := ActorFromContext(ctx)
		list, err := svc.ListLeads(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createLeadHandler(svc *service.LeadService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		var req domain.NewLeadRequest
		if err := decodeBody(r, v, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor, _ := ActorFromContext(ctx)
		lead, err := svc.CreateLead(ctx, actor, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

func changeStatusHandler(svc *service.LeadService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/leads/{leadId}/status")
		defer span.End()

		leadID := chi.URLParam(r, "leadId")
		span.SetAttributes(attribute.String("lead.id", leadID))

		var req domain.StatusChangeRequest
		if err := decodeBody(r, v, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor, _ := ActorFromContext(ctx)
		resp, err := svc.ChangeStatus(ctx, actor, leadID, req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func resolveApprovalHandler(svc *service.LeadService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/approval")
		defer span.End()

		leadID := chi.URLParam(r, "leadId")
		span.SetAttributes(attribute.String("lead.id", leadID))

		var req domain.ApprovalRequest
		if err := decodeBody(r, v, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor, _ := ActorFromContext(ctx)
		resp, err := svc.ResolveApproval(ctx, actor, leadID, req.Decision, req.RejectionReason)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Clients and tasks: GET /v1/clients, GET /v1/tasks
// ============================================================

func listClientsHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients")
		defer span.End()

		actor, _ := ActorFromContext(ctx)
		clients, err := svc.ListClients(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clients": clients, "total": len(clients)})
	}
}

func listTasksHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tasks")
		defer span.End()

		actor, _ := ActorFromContext(ctx)
		tasks, err := svc.ListTasks(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "total": len(tasks)})
	}
}
