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
	"github.com/boddenberg/crm-bff-go/internal/lifecycle"
	"github.com/boddenberg/crm-bff-go/internal/port"
)

// LeadService runs lead lifecycle operations against the CRM: it loads the
// lead, lets the lifecycle controller decide, writes the outcome back and
// publishes the resulting event.
type LeadService struct {
	gateway    port.CRMGateway
	publisher  port.EventPublisher
	controller *lifecycle.Controller
	dashboards port.Cache[domain.Dashboard]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewLeadService creates the lead service with all dependencies injected.
func NewLeadService(
	gateway port.CRMGateway,
	publisher port.EventPublisher,
	controller *lifecycle.Controller,
	dashboards port.Cache[domain.Dashboard],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		gateway:    gateway,
		publisher:  publisher,
		controller: controller,
		dashboards: dashboards,
		metrics:    metrics,
		logger:     logger,
	}
}

// ListLeads returns the leads visible to the actor.
func (s *LeadService) ListLeads(ctx context.Context, actor domain.Actor) (*domain.LeadList, error) {
	ctx, span := tracer.Start(ctx, "LeadService.ListLeads")
	defer span.End()

	leads, err := s.gateway.ListLeads(ctx, actor)
	if err != nil {
		s.fetchFailed("leads", actor, err)
		return nil, fmt.Errorf("leads fetch: %w", err)
	}
	return &domain.LeadList{Role: actor.Role, Total: len(leads), Leads: leads}, nil
}

// ListClients returns the clients visible to the actor.
func (s *LeadService) ListClients(ctx context.Context, actor domain.Actor) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "LeadService.ListClients")
	defer span.End()

	clients, err := s.gateway.ListClients(ctx, actor)
	if err != nil {
		s.fetchFailed("clients", actor, err)
		return nil, fmt.Errorf("clients fetch: %w", err)
	}
	return clients, nil
}

// ListTasks returns the actor's tasks.
func (s *LeadService) ListTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error) {
	ctx, span := tracer.Start(ctx, "LeadService.ListTasks")
	defer span.End()

	tasks, err := s.gateway.ListTasks(ctx, actor)
	if err != nil {
		s.fetchFailed("tasks", actor, err)
		return nil, fmt.Errorf("tasks fetch: %w", err)
	}
	return tasks, nil
}

// ChangeStatus requests a status change on a lead. A CONVERTED request
// leaves the lead in APPROVAL_PENDING.
func (s *LeadService) ChangeStatus(ctx context.Context, actor domain.Actor, leadID string, status domain.LeadStatus) (*domain.TransitionResponse, error) {
	ctx, span := tracer.Start(ctx, "LeadService.ChangeStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", leadID),
		attribute.String("lead.requested_status", string(status)),
		attribute.String("actor.role", string(actor.Role)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("lead_status", time.Since(start))
	}()

	status = domain.LeadStatus(strings.ToUpper(strings.TrimSpace(string(status))))

	lead, err := s.load(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}

	next, event, err := s.controller.RequestTransition(*lead, status, actor.Role)
	if err != nil {
		return nil, s.refused(err, actor, *lead, status)
	}

	if err := s.gateway.SaveLead(ctx, actor, next); err != nil {
		return nil, s.writeFailed("lead save", err, actor, *lead, next.Status)
	}

	return s.completed(ctx, actor, next, event), nil
}

// ResolveApproval approves or rejects a lead waiting for conversion approval.
func (s *LeadService) ResolveApproval(ctx context.Context, actor domain.Actor, leadID string, decision domain.ApprovalDecision, reason string) (*domain.TransitionResponse, error) {
	ctx, span := tracer.Start(ctx, "LeadService.ResolveApproval")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", leadID),
		attribute.String("decision", string(decision)),
		attribute.String("actor.role", string(actor.Role)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("lead_approval", time.Since(start))
	}()

	decision = domain.ApprovalDecision(strings.ToUpper(strings.TrimSpace(string(decision))))

	lead, err := s.load(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}

	next, event, err := s.controller.ResolveApproval(*lead, actor.Role, decision, reason)
	if err != nil {
		target := domain.StatusApproved
		if decision == domain.DecisionReject {
			target = domain.StatusRejected
		}
		return nil, s.refused(err, actor, *lead, target)
	}

	if err := s.gateway.SubmitApproval(ctx, actor, next.ID, decision, next.RejectionReason); err != nil {
		return nil, s.writeFailed("approval submit", err, actor, *lead, next.Status)
	}

	return s.completed(ctx, actor, next, event), nil
}

// CreateLead adds a lead assigned to the acting employee. The lead starts
// NEW; the CRM does not report its ID back.
func (s *LeadService) CreateLead(ctx context.Context, actor domain.Actor, req domain.NewLeadRequest) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.CreateLead")
	defer span.End()
	span.SetAttributes(attribute.String("actor.role", string(actor.Role)))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("lead_create", time.Since(start))
	}()

	draft := domain.Lead{
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Company:    strings.TrimSpace(req.Company),
		Source:     strings.TrimSpace(req.Source),
		AssignedTo: &domain.ActorRef{ID: actor.ID},
	}
	lead, err := s.controller.Open(draft, actor.Role)
	if err != nil {
		return nil, s.refused(err, actor, draft, domain.StatusNew)
	}

	if err := s.gateway.CreateLead(ctx, actor, lead); err != nil {
		return nil, s.writeFailed("lead create", err, actor, lead, domain.StatusNew)
	}

	invalidateDashboards(ctx, s.dashboards, actor, lead)
	s.logger.Info("lead created",
		zap.String("actor_id", actor.ID),
		zap.String("source", lead.Source),
	)
	return &lead, nil
}

func (s *LeadService) load(ctx context.Context, actor domain.Actor, leadID string) (*domain.Lead, error) {
	lead, err := s.gateway.GetLead(ctx, actor, leadID)
	if err != nil {
		s.fetchFailed("lead", actor, err)
		return nil, fmt.Errorf("lead fetch: %w", err)
	}
	return lead, nil
}

// refused records and logs a controller refusal and returns it unchanged.
func (s *LeadService) refused(err error, actor domain.Actor, lead domain.Lead, to domain.LeadStatus) error {
	if reason := rejectionReason(err); reason != "" {
		s.metrics.IncrRejected(reason)
	}
	logFailure(s.logger, "lead transition refused", err,
		zap.String("lead_id", lead.ID),
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("from", string(lead.Status)),
		zap.String("to", string(to)),
	)
	return err
}

// completed runs the side effects of a persisted transition. Event
// publication is best effort: the CRM already holds the new status.
func (s *LeadService) completed(ctx context.Context, actor domain.Actor, lead domain.Lead, event domain.LeadEvent) *domain.TransitionResponse {
	event.ActorID = actor.ID
	s.metrics.IncrTransition(event.Kind, event.To)

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncrPublished("error")
		s.metrics.IncrExternalError("events")
		s.logger.Error("lead event not published",
			zap.String("event_id", event.ID),
			zap.String("lead_id", lead.ID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	} else {
		s.metrics.IncrPublished("ok")
	}

	invalidateDashboards(ctx, s.dashboards, actor, lead)

	s.logger.Info("lead transition",
		zap.String("lead_id", lead.ID),
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.String("kind", string(event.Kind)),
	)
	return &domain.TransitionResponse{Lead: lead, Event: event}
}

// writeFailed records a failed CRM write. A refusal by the CRM counts like a
// controller refusal.
func (s *LeadService) writeFailed(what string, err error, actor domain.Actor, lead domain.Lead, to domain.LeadStatus) error {
	if rejectionReason(err) != "" {
		s.refused(err, actor, lead, to)
	} else {
		s.fetchFailed(what, actor, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *LeadService) fetchFailed(what string, actor domain.Actor, err error) {
	if isUpstreamFailure(err) {
		s.metrics.IncrExternalError("crm")
	}
	logFailure(s.logger, what+" failed", err,
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
	)
}
