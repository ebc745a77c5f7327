// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// CRMGateway reads and writes records in the remote CRM service.
// Every call is scoped by the actor: list endpoints return only the records
// the actor's role is allowed to see.
type CRMGateway interface {
	ListLeads(ctx context.Context, actor domain.Actor) ([]domain.Lead, error)
	GetLead(ctx context.Context, actor domain.Actor, leadID string) (*domain.Lead, error)
	// Writes are acknowledged with a plain message; callers keep their own
	// copy of the written record. A refusal hidden in the acknowledgement
	// comes back as a domain error.
	SaveLead(ctx context.Context, actor domain.Actor, lead domain.Lead) error
	SubmitApproval(ctx context.Context, actor domain.Actor, leadID string, decision domain.ApprovalDecision, reason string) error
	CreateLead(ctx context.Context, actor domain.Actor, lead domain.Lead) error

	ListClients(ctx context.Context, actor domain.Actor) ([]domain.Client, error)
	ListTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error)
	CreateTask(ctx context.Context, actor domain.Actor, task domain.Task) error
	UpdateTask(ctx context.Context, actor domain.Actor, update domain.TaskUpdate) error
}

// EventPublisher emits lead lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LeadEvent) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T)
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
}
