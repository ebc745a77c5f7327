package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/observability"
	"github.com/boddenberg/crm-bff-go/internal/port"
)

// TaskService writes an employee's follow-up tasks to the CRM.
type TaskService struct {
	gateway    port.CRMGateway
	dashboards port.Cache[domain.Dashboard]
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewTaskService creates the task service with all dependencies injected.
func NewTaskService(
	gateway port.CRMGateway,
	dashboards port.Cache[domain.Dashboard],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		gateway:    gateway,
		dashboards: dashboards,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTask adds a task tied to one of the employee's leads. Status
// defaults to TODO.
func (s *TaskService) CreateTask(ctx context.Context, actor domain.Actor, req domain.NewTaskRequest) (*domain.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.CreateTask")
	defer span.End()
	span.SetAttributes(attribute.String("actor.role", string(actor.Role)))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("task_create", time.Since(start))
	}()

	if err := s.check(actor, req.DueDate); err != nil {
		return nil, err
	}

	lead := strings.TrimSpace(req.RelatedLeadID)
	task := domain.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		RelatedLead: &lead,
		AssignedTo:  &domain.ActorRef{ID: actor.ID},
	}
	if task.Status == "" {
		task.Status = domain.TaskTodo
	}

	if err := s.gateway.CreateTask(ctx, actor, task); err != nil {
		return nil, s.failed("task create", actor, err)
	}

	s.invalidate(ctx, actor)
	s.logger.Info("task created",
		zap.String("actor_id", actor.ID),
		zap.String("lead_id", lead),
	)
	return &task, nil
}

// UpdateTask applies the fields set in req to one of the employee's tasks.
// A task moved to COMPLETED is removed by the CRM.
func (s *TaskService) UpdateTask(ctx context.Context, actor domain.Actor, taskID string, req domain.TaskUpdateRequest) (*domain.TaskUpdate, error) {
	ctx, span := tracer.Start(ctx, "TaskService.UpdateTask")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", taskID),
		attribute.String("task.status", req.Status),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("task_update", time.Since(start))
	}()

	if err := s.check(actor, req.DueDate); err != nil {
		return nil, err
	}
	if req.Title == nil && req.Description == nil && req.Status == "" && !req.DueDate.Valid {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	update := domain.TaskUpdate{
		ID:          taskID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		update.Title = &title
	}

	if err := s.gateway.UpdateTask(ctx, actor, update); err != nil {
		return nil, s.failed("task update", actor, err)
	}

	s.invalidate(ctx, actor)
	s.logger.Info("task updated",
		zap.String("actor_id", actor.ID),
		zap.String("task_id", taskID),
		zap.String("status", update.Status),
	)
	return &update, nil
}

// check refuses non-employees and due dates already past.
func (s *TaskService) check(actor domain.Actor, due domain.Timestamp) error {
	if actor.Role != domain.RoleEmployee {
		return &domain.ErrUnauthorized{Role: actor.Role, Action: "manage tasks"}
	}
	if due.Valid && due.Time.Before(s.now()) {
		return &domain.ErrValidation{Field: "dueDate", Message: "cannot be in the past"}
	}
	return nil
}

// invalidate drops the employee's cached dashboards, the only ones that
// count tasks.
func (s *TaskService) invalidate(ctx context.Context, actor domain.Actor) {
	s.dashboards.DeletePrefix(ctx, dashboardPrefix(domain.RoleEmployee, actor.ID))
}

func (s *TaskService) failed(what string, actor domain.Actor, err error) error {
	if isUpstreamFailure(err) {
		s.metrics.IncrExternalError("crm")
	}
	logFailure(s.logger, what+" failed", err,
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
	)
	return fmt.Errorf("%s: %w", what, err)
}
