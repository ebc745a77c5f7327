package service_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// --- Mocks ---

type mockGateway struct {
	mu sync.Mutex

	leads      []domain.Lead
	clients    []domain.Client
	tasks      []domain.Task
	leadsErr   error
	clientsErr error
	tasksErr   error
	saveErr    error
	approveErr error
	createErr  error
	taskErr    error

	listCalls    int32
	taskCalls    int32
	saved        []domain.Lead
	approvals    []approval
	created      []domain.Lead
	createdTasks []domain.Task
	taskUpdates  []domain.TaskUpdate
}

type approval struct {
	leadID   string
	decision domain.ApprovalDecision
	reason   string
}

func (m *mockGateway) ListLeads(_ context.Context, _ domain.Actor) ([]domain.Lead, error) {
	atomic.AddInt32(&m.listCalls, 1)
	return m.leads, m.leadsErr
}

func (m *mockGateway) GetLead(_ context.Context, _ domain.Actor, leadID string) (*domain.Lead, error) {
	if m.leadsErr != nil {
		return nil, m.leadsErr
	}
	for i := range m.leads {
		if m.leads[i].ID == leadID {
			l := m.leads[i]
			return &l, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
}

func (m *mockGateway) SaveLead(_ context.Context, _ domain.Actor, lead domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, lead)
	return nil
}

func (m *mockGateway) SubmitApproval(_ context.Context, _ domain.Actor, leadID string, decision domain.ApprovalDecision, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.approveErr != nil {
		return m.approveErr
	}
	m.approvals = append(m.approvals, approval{leadID: leadID, decision: decision, reason: reason})
	return nil
}

func (m *mockGateway) CreateLead(_ context.Context, _ domain.Actor, lead domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, lead)
	return nil
}

func (m *mockGateway) CreateTask(_ context.Context, _ domain.Actor, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taskErr != nil {
		return m.taskErr
	}
	m.createdTasks = append(m.createdTasks, task)
	return nil
}

func (m *mockGateway) UpdateTask(_ context.Context, _ domain.Actor, update domain.TaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taskErr != nil {
		return m.taskErr
	}
	m.taskUpdates = append(m.taskUpdates, update)
	return nil
}

func (m *mockGateway) ListClients(_ context.Context, _ domain.Actor) ([]domain.Client, error) {
	return m.clients, m.clientsErr
}

func (m *mockGateway) ListTasks(_ context.Context, _ domain.Actor) ([]domain.Task, error) {
	atomic.AddInt32(&m.taskCalls, 1)
	return m.tasks, m.tasksErr
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.LeadEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.LeadEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
