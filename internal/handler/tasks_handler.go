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
// Tasks: POST /v1/tasks, PATCH /v1/tasks/{taskId}
// ============================================================

func createTaskHandler(svc *service.TaskService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks")
		defer span.End()

		var req domain.NewTaskRequest
		if err := decodeBody(r, v, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor, _ := ActorFromContext(ctx)
		task, err := svc.CreateTask(ctx, actor, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func updateTaskHandler(svc *service.TaskService, v *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/tasks/{taskId}")
		defer span.End()

		taskID := chi.URLParam(r, "taskId")
		span.SetAttributes(attribute.String("task.id", taskID))

		var req domain.TaskUpdateRequest
		if err := decodeBody(r, v, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor, _ := ActorFromContext(ctx)
		update, err := svc.UpdateTask(ctx, actor, taskID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"task":    update,
			"removed": update.Status == domain.TaskCompleted,
		})
	}
}
