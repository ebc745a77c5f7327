package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/client"
	"github.com/boddenberg/crm-bff-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}

var employee = domain.Actor{ID: "7", Role: domain.RoleEmployee, Session: "JSESSIONID=abc"}

func newClient(t *testing.T, h http.Handler) *client.CRMClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return client.NewCRMClient(srv.Client(), srv.URL, nil, fastRetry)
}

func TestListLeads_EmployeeFeed(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/leads/myLeads", r.URL.Path)
		assert.Equal(t, "JSESSIONID=abc", r.Header.Get("Cookie"))
		_, _ = w.Write([]byte(`[
			{"id": 12, "name": "Ada", "status": "qualified", "createdAt": "2025-04-02T10:00:00", "assignedToName": "Bob"},
			{"id": 13, "name": "Eve", "status": "NEW", "createdAt": null}
		]`))
	}))

	leads, err := c.ListLeads(context.Background(), employee)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	assert.Equal(t, "12", leads[0].ID)
	assert.Equal(t, domain.StatusQualified, leads[0].Status)
	assert.True(t, leads[0].CreatedAt.Valid)
	assert.Equal(t, time.April, leads[0].CreatedAt.Time.Month())
	require.NotNil(t, leads[0].AssignedTo)
	assert.Equal(t, "Bob", leads[0].AssignedTo.Name)

	assert.False(t, leads[1].CreatedAt.Valid)
	assert.Nil(t, leads[1].AssignedTo)
}

func TestListLeads_RoleEndpoints(t *testing.T) {
	cases := []struct {
		role    domain.Role
		leads   string
		clients string
	}{
		{domain.RoleEmployee, "/api/leads/myLeads", "/api/clients/myClients"},
		{domain.RoleManager, "/api/manager/leads", "/api/manager/team-clients"},
		{domain.RoleAdmin, "/api/admin/allLeads", "/api/admin/allClients"},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			var (
				mu    sync.Mutex
				paths []string
			)
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				paths = append(paths, r.URL.Path)
				mu.Unlock()
				_, _ = w.Write([]byte(`[]`))
			}))
			actor := domain.Actor{ID: "1", Role: tc.role}

			_, err := c.ListLeads(context.Background(), actor)
			require.NoError(t, err)
			_, err = c.ListClients(context.Background(), actor)
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{tc.leads, tc.clients}, paths)
		})
	}
}

func TestListTasks_ManagerHasNoFeed(t *testing.T) {
	var calls int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	tasks, err := c.ListTasks(context.Background(), domain.Actor{ID: "1", Role: domain.RoleManager})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestListTasks_Employee(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/myTasks", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": 3, "title": "Ring", "description": "call Ada", "status": "to-do",
			"dueDate": "2025-05-06", "relatedLead": {"id": 12}}]`))
	}))

	tasks, err := c.ListTasks(context.Background(), employee)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "3", tasks[0].ID)
	require.NotNil(t, tasks[0].RelatedLead)
	assert.Equal(t, "12", *tasks[0].RelatedLead)
	assert.True(t, tasks[0].DueDate.Valid)
}

func TestGetLead_NotFound(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1, "status": "NEW"}]`))
	}))

	_, err := c.GetLead(context.Background(), employee, "2")

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "2", nf.ID)
}

func TestSaveLead_SendsPatch(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/leads/updateLead", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		_, _ = w.Write([]byte("Lead updated successfully"))
	}))

	err := c.SaveLead(context.Background(), employee, domain.Lead{ID: "12", Status: domain.StatusApprovalPending})
	require.NoError(t, err)
	got := <-bodies

	assert.Equal(t, float64(12), got["id"])
	assert.Equal(t, "APPROVAL_PENDING", got["status"])
	assert.NotContains(t, got, "rejectionReason")
}

func TestSubmitApproval_SendsAction(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/manager/approve-or-reject", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		_, _ = w.Write([]byte("Lead rejected"))
	}))
	manager := domain.Actor{ID: "2", Role: domain.RoleManager}

	err := c.SubmitApproval(context.Background(), manager, "12", domain.DecisionReject, "budget")
	require.NoError(t, err)
	got := <-bodies

	assert.Equal(t, "reject", got["action"])
	assert.Equal(t, "budget", got["rejectionReason"])
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	_, err := c.ListClients(context.Background(), employee)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDo_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Lead ID is required for update"))
	}))

	err := c.SaveLead(context.Background(), employee, domain.Lead{ID: "x"})

	var invalid *domain.ErrValidation
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "lead", invalid.Field)
	assert.Equal(t, "Lead ID is required for update", invalid.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSaveLead_RefusalInSuccessfulResponse(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("You are not authorized to update this lead or lead not found."))
	}))

	err := c.SaveLead(context.Background(), employee, domain.Lead{ID: "12", Status: domain.StatusContacted})

	var unauthz *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthz)
	assert.Equal(t, domain.RoleEmployee, unauthz.Role)
}

func TestSaveLead_OthersLeadIsRefusedLocally(t *testing.T) {
	var calls int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("Lead updated successfully."))
	}))
	admin := domain.Actor{ID: "1", Role: domain.RoleAdmin}
	lead := domain.Lead{ID: "12", Status: domain.StatusLost, AssignedTo: &domain.ActorRef{ID: "7", Name: "Bob"}}

	err := c.SaveLead(context.Background(), admin, lead)

	var unauthz *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthz)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSubmitApproval_IsNotRetried(t *testing.T) {
	var calls int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("❌ Invalid or non-pending lead"))
	}))
	manager := domain.Actor{ID: "2", Role: domain.RoleManager}

	err := c.SubmitApproval(context.Background(), manager, "12", domain.DecisionApprove, "")

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSubmitApproval_RefusalIsAConflict(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("❌ Invalid or non-pending lead"))
	}))
	manager := domain.Actor{ID: "2", Role: domain.RoleManager}

	err := c.SubmitApproval(context.Background(), manager, "12", domain.DecisionReject, "budget")

	var transition *domain.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.StatusRejected, transition.To)
	assert.Contains(t, transition.Error(), "non-pending")
}

func TestCreateLead_SendsNewLead(t *testing.T) {
	var calls int32
	bodies := make(chan map[string]any, 1)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/leads/newLead", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("The lead was created successfully: Not Found Ltd"))
	}))

	lead := domain.Lead{Name: "Not Found Ltd", Email: "a@b.io", Phone: "5551234", Status: domain.StatusNew}
	require.NoError(t, c.CreateLead(context.Background(), employee, lead))
	got := <-bodies

	assert.Equal(t, "NEW", got["status"])
	assert.Equal(t, "a@b.io", got["email"])
	assert.NotContains(t, got, "id")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCreateLead_FieldErrors(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"phone": "Phone is required", "email": "Email should be valid"}`))
	}))

	err := c.CreateLead(context.Background(), employee, domain.Lead{Name: "Ada"})

	var invalid *domain.ErrValidation
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "email", invalid.Field)
	assert.Equal(t, "Email should be valid", invalid.Message)
}

func TestCreateTask_SendsTask(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/newTask", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		_, _ = w.Write([]byte("The task was created successfully."))
	}))

	lead := "12"
	task := domain.Task{
		Title:       "Call Ada",
		Status:      domain.TaskTodo,
		DueDate:     domain.At(time.Date(2030, time.May, 6, 9, 30, 0, 0, time.UTC)),
		RelatedLead: &lead,
	}
	require.NoError(t, c.CreateTask(context.Background(), employee, task))
	got := <-bodies

	assert.Equal(t, "Call Ada", got["title"])
	assert.Equal(t, "2030-05-06T09:30:00", got["dueDate"])
	assert.Equal(t, map[string]any{"id": float64(12)}, got["relatedLead"])
}

func TestTaskWrites_Refusals(t *testing.T) {
	cases := []struct {
		ack   string
		check func(t *testing.T, err error)
	}{
		{"Due date cannot be in the past.", func(t *testing.T, err error) {
			var e *domain.ErrValidation
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "dueDate", e.Field)
		}},
		{"Related lead not found for the logged-in user", func(t *testing.T, err error) {
			var e *domain.ErrValidation
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "relatedLeadId", e.Field)
		}},
		{"Task not found or not assigned to you.", func(t *testing.T, err error) {
			var e *domain.ErrNotFound
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "4", e.ID)
		}},
		{"User not found", func(t *testing.T, err error) {
			var e *domain.ErrUnauthenticated
			require.ErrorAs(t, err, &e)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.ack, func(t *testing.T) {
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.ack))
			}))
			err := c.UpdateTask(context.Background(), employee, domain.TaskUpdate{ID: "4", Status: domain.TaskInProgress})
			tc.check(t, err)
		})
	}
}

func TestUpdateTask_IsNotRetried(t *testing.T) {
	var calls int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/tasks/updateTask", r.URL.Path)
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := c.UpdateTask(context.Background(), employee, domain.TaskUpdate{ID: "4", Status: domain.TaskCompleted})

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTaskWrites_ManagerHasNoTasks(t *testing.T) {
	c := newClient(t, http.NotFoundHandler())
	manager := domain.Actor{ID: "2", Role: domain.RoleManager}

	err := c.CreateTask(context.Background(), manager, domain.Task{Title: "x"})

	var unauthz *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthz)
}

func TestDo_SessionErrors(t *testing.T) {
	cases := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var e *domain.ErrUnauthenticated
			assert.ErrorAs(t, err, &e)
		}},
		{http.StatusForbidden, func(t *testing.T, err error) {
			var e *domain.ErrUnauthorized
			assert.ErrorAs(t, err, &e)
		}},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			_, err := c.ListLeads(context.Background(), employee)
			tc.check(t, err)
		})
	}
}

func TestDo_ExhaustedRetriesWrapExternalError(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListLeads(context.Background(), employee)

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "crm", ext.Service)
}

func TestDo_OpenBreaker(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	var err error
	for i := 0; i < 8; i++ {
		_, err = c.ListLeads(context.Background(), employee)
	}

	var open *domain.ErrCircuitOpen
	require.ErrorAs(t, err, &open)
}

func TestDo_DeadlineBecomesTimeout(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.ListLeads(ctx, employee)

	var timeout *domain.ErrTimeout
	require.ErrorAs(t, err, &timeout)
}

func TestUnknownRoleIsRejected(t *testing.T) {
	c := newClient(t, http.NotFoundHandler())

	_, err := c.ListLeads(context.Background(), domain.Actor{ID: "1", Role: "GUEST"})

	var unauthz *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthz)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, client.IsClientError(nil))
	assert.True(t, client.IsClientError(&domain.ErrNotFound{Resource: "lead", ID: "1"}))
	assert.True(t, client.IsClientError(&domain.ErrValidation{Field: "lead", Message: "bad"}))
	assert.True(t, client.IsClientError(&domain.ErrInvalidStateTransition{To: domain.StatusApproved}))
	assert.False(t, client.IsClientError(errors.New("connection reset")))
}
