package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/crm-bff-go/internal/dashboard"
	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/observability"
	"github.com/boddenberg/crm-bff-go/internal/port"
)

var tracer = otel.Tracer("service")

const dashboardCache = "dashboard"

// dashboardKey is the cache key of one role-scoped dashboard.
func dashboardKey(actor domain.Actor, year int) string {
	return fmt.Sprintf("%s%d", dashboardPrefix(actor.Role, actor.ID), year)
}

func dashboardPrefix(role domain.Role, actorID string) string {
	if actorID == "" {
		return fmt.Sprintf("dashboard:%s:", role)
	}
	return fmt.Sprintf("dashboard:%s:%s:", role, actorID)
}

// invalidateDashboards drops every cached dashboard a change to lead may
// have made stale: the acting and assigned employees' own views plus all
// manager and admin views.
func invalidateDashboards(ctx context.Context, cache port.Cache[domain.Dashboard], actor domain.Actor, lead domain.Lead) {
	if actor.Role == domain.RoleEmployee && actor.ID != "" {
		cache.DeletePrefix(ctx, dashboardPrefix(domain.RoleEmployee, actor.ID))
	}
	if lead.AssignedTo != nil && lead.AssignedTo.ID != "" {
		cache.DeletePrefix(ctx, dashboardPrefix(domain.RoleEmployee, lead.AssignedTo.ID))
	}
	cache.DeletePrefix(ctx, dashboardPrefix(domain.RoleManager, ""))
	cache.DeletePrefix(ctx, dashboardPrefix(domain.RoleAdmin, ""))
}

// DashboardService assembles role-scoped dashboards from the CRM records.
type DashboardService struct {
	gateway port.CRMGateway
	cache   port.Cache[domain.Dashboard]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDashboardService creates the dashboard service with all dependencies injected.
func NewDashboardService(
	gateway port.CRMGateway,
	cache port.Cache[domain.Dashboard],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		gateway: gateway,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Dashboard returns the actor's dashboard for year (zero means the current
// year). Leads, clients and tasks are fetched concurrently; tasks only for
// employees, the one role with a task feed.
func (s *DashboardService) Dashboard(ctx context.Context, actor domain.Actor, year int) (*domain.Dashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "DashboardService.Dashboard")
	defer span.End()

	now := time.Now()
	if year == 0 {
		year = now.Year()
	}
	span.SetAttributes(
		attribute.String("actor.role", string(actor.Role)),
		attribute.Int("dashboard.year", year),
	)

	key := dashboardKey(actor, year)
	if cached, ok := s.cache.Get(ctx, key); ok {
		s.metrics.IncrCacheHit(dashboardCache)
		return &cached, nil
	}
	s.metrics.IncrCacheMiss(dashboardCache)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	var (
		leads   []domain.Lead
		clients []domain.Client
		tasks   []domain.Task
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l, err := s.gateway.ListLeads(gCtx, actor)
		if err != nil {
			return fmt.Errorf("leads fetch: %w", err)
		}
		leads = l
		return nil
	})

	g.Go(func() error {
		c, err := s.gateway.ListClients(gCtx, actor)
		if err != nil {
			return fmt.Errorf("clients fetch: %w", err)
		}
		clients = c
		return nil
	})

	if actor.Role == domain.RoleEmployee {
		g.Go(func() error {
			t, err := s.gateway.ListTasks(gCtx, actor)
			if err != nil {
				return fmt.Errorf("tasks fetch: %w", err)
			}
			tasks = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if isUpstreamFailure(err) {
			s.metrics.IncrExternalError("crm")
		}
		logFailure(s.logger, "dashboard fetch failed", err,
			zap.String("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
		)
		return nil, err
	}

	d := dashboard.Build(dashboard.Input{
		Role:    actor.Role,
		Year:    year,
		Leads:   leads,
		Clients: clients,
		Tasks:   tasks,
		Now:     now,
	})
	s.cache.Set(ctx, key, d)

	if d.Summary.UndatedRecords > 0 {
		s.logger.Debug("undated records counted in January",
			zap.String("role", string(actor.Role)),
			zap.Int("count", d.Summary.UndatedRecords),
		)
	}
	return &d, nil
}

// Monthly returns only the monthly series of the actor's dashboard.
func (s *DashboardService) Monthly(ctx context.Context, actor domain.Actor, year int) ([]domain.MonthlyMetric, error) {
	d, err := s.Dashboard(ctx, actor, year)
	if err != nil {
		return nil, err
	}
	return d.Monthly, nil
}

// LeadSources returns the lead-source distribution over all of the actor's leads.
func (s *DashboardService) LeadSources(ctx context.Context, actor domain.Actor) ([]domain.Share, error) {
	d, err := s.Dashboard(ctx, actor, 0)
	if err != nil {
		return nil, err
	}
	return d.LeadSources, nil
}

// Change returns the period-over-period change of one monthly field.
func (s *DashboardService) Change(ctx context.Context, actor domain.Actor, year int, key string) (*domain.PeriodChangeResponse, error) {
	if !slices.Contains(dashboard.ChangeKeys, key) {
		return nil, &domain.ErrValidation{Field: "key", Message: fmt.Sprintf("must be one of %v", dashboard.ChangeKeys)}
	}
	d, err := s.Dashboard(ctx, actor, year)
	if err != nil {
		return nil, err
	}
	return &domain.PeriodChangeResponse{Key: key, Year: d.Year, Change: d.Changes[key]}, nil
}
