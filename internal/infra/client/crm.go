package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("client")

const serviceName = "crm"

// endpoints holds the role-scoped read paths of the CRM API.
type endpoints struct {
	leads   string
	clients string
	tasks   string // empty: the role has no task feed
}

var roleEndpoints = map[domain.Role]endpoints{
	domain.RoleEmployee: {leads: "/api/leads/myLeads", clients: "/api/clients/myClients", tasks: "/api/tasks/myTasks"},
	domain.RoleManager:  {leads: "/api/manager/leads", clients: "/api/manager/team-clients"},
	domain.RoleAdmin:    {leads: "/api/admin/allLeads", clients: "/api/admin/allClients"},
}

const (
	newLeadPath    = "/api/leads/newLead"
	updateLeadPath = "/api/leads/updateLead"
	approvalPath   = "/api/manager/approve-or-reject"
	newTaskPath    = "/api/tasks/newTask"
	updateTaskPath = "/api/tasks/updateTask"
)

// statusError is a 3xx or 5xx response from the CRM API.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("crm API returned status %d", e.Code)
}

// CRMClient talks to the remote CRM API on behalf of an actor, forwarding
// the actor's session cookie. Implements port.CRMGateway.
type CRMClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewCRMClient creates a new CRMClient. A nil breaker gets the default one.
func NewCRMClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *CRMClient {
	if cb == nil {
		cb = resilience.NewCircuitBreaker(serviceName, IsClientError)
	}
	return &CRMClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

// IsClientError reports whether err is the caller's fault rather than the
// CRM's. Such errors do not trip the circuit breaker.
func IsClientError(err error) bool {
	return err == nil || isCallerError(err)
}

func isCallerError(err error) bool {
	var (
		notFound   *domain.ErrNotFound
		unauthn    *domain.ErrUnauthenticated
		unauthz    *domain.ErrUnauthorized
		invalid    *domain.ErrValidation
		transition *domain.ErrInvalidStateTransition
	)
	return errors.As(err, &notFound) || errors.As(err, &unauthn) || errors.As(err, &unauthz) ||
		errors.As(err, &invalid) || errors.As(err, &transition)
}

// ListLeads returns the leads visible to the actor's role.
func (c *CRMClient) ListLeads(ctx context.Context, actor domain.Actor) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "CRMClient.ListLeads")
	defer span.End()
	span.SetAttributes(attribute.String("actor.role", string(actor.Role)))

	ep, err := endpointsFor(actor)
	if err != nil {
		return nil, err
	}

	var records []leadRecord
	if err := c.do(ctx, actor, call{method: http.MethodGet, path: ep.leads, out: &records, resource: "leads"}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("leads.count", len(records)))
	return mapSlice(records, leadRecord.toDomain), nil
}

// GetLead finds one lead within the actor's scope. The CRM API has no
// single-lead read, so this filters the role-scoped list.
func (c *CRMClient) GetLead(ctx context.Context, actor domain.Actor, leadID string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "CRMClient.GetLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", leadID))

	leads, err := c.ListLeads(ctx, actor)
	if err != nil {
		return nil, err
	}
	for i := range leads {
		if leads[i].ID == leadID {
			return &leads[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
}

// SaveLead writes the lead's status (and rejection reason) back to the CRM.
// The CRM only updates leads assigned to the caller; a lead known to belong
// to someone else is refused without a remote call.
func (c *CRMClient) SaveLead(ctx context.Context, actor domain.Actor, lead domain.Lead) error {
	ctx, span := tracer.Start(ctx, "CRMClient.SaveLead")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", lead.ID),
		attribute.String("lead.status", string(lead.Status)),
	)

	if lead.AssignedTo != nil && lead.AssignedTo.ID != "" && lead.AssignedTo.ID != actor.ID {
		err := &domain.ErrUnauthorized{Role: actor.Role, Action: "update a lead assigned to someone else"}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	body := leadPatch{ID: recordID(lead.ID), Status: lead.Status, RejectionReason: lead.RejectionReason}
	err := c.do(ctx, actor, call{method: http.MethodPut, path: updateLeadPath, in: body, resource: "lead", id: lead.ID})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// SubmitApproval forwards a manager's decision on a pending conversion. It is
// sent once: a repeated decision on a lead the first one already resolved is
// refused by the CRM. A refusal means the lead is no longer pending.
func (c *CRMClient) SubmitApproval(ctx context.Context, actor domain.Actor, leadID string, decision domain.ApprovalDecision, reason string) error {
	ctx, span := tracer.Start(ctx, "CRMClient.SubmitApproval")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", leadID),
		attribute.String("decision", string(decision)),
	)

	body := approvalBody{
		LeadID:          recordID(leadID),
		Action:          strings.ToLower(string(decision)),
		RejectionReason: reason,
	}
	target := domain.StatusApproved
	if decision == domain.DecisionReject {
		target = domain.StatusRejected
	}
	err := c.do(ctx, actor, call{
		method:   http.MethodPost,
		path:     approvalPath,
		in:       body,
		resource: "lead",
		id:       leadID,
		once:     true,
		refused: func(msg string) error {
			return &domain.ErrInvalidStateTransition{To: target, Detail: msg}
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// CreateLead adds a lead assigned to the actor. The CRM does not return the
// new lead's ID.
func (c *CRMClient) CreateLead(ctx context.Context, actor domain.Actor, lead domain.Lead) error {
	ctx, span := tracer.Start(ctx, "CRMClient.CreateLead")
	defer span.End()

	body := newLeadBody{
		Name:    lead.Name,
		Email:   lead.Email,
		Phone:   lead.Phone,
		Company: lead.Company,
		Status:  lead.Status,
		Source:  lead.Source,
	}
	err := c.do(ctx, actor, call{method: http.MethodPost, path: newLeadPath, in: body, resource: "lead", once: true})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ListClients returns the clients visible to the actor's role.
func (c *CRMClient) ListClients(ctx context.Context, actor domain.Actor) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "CRMClient.ListClients")
	defer span.End()
	span.SetAttributes(attribute.String("actor.role", string(actor.Role)))

	ep, err := endpointsFor(actor)
	if err != nil {
		return nil, err
	}

	var records []clientRecord
	if err := c.do(ctx, actor, call{method: http.MethodGet, path: ep.clients, out: &records, resource: "clients"}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return mapSlice(records, clientRecord.toDomain), nil
}

// ListTasks returns the actor's own tasks. Managers and admins have no task
// feed and get an empty list without a remote call.
func (c *CRMClient) ListTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error) {
	ctx, span := tracer.Start(ctx, "CRMClient.ListTasks")
	defer span.End()
	span.SetAttributes(attribute.String("actor.role", string(actor.Role)))

	ep, err := endpointsFor(actor)
	if err != nil {
		return nil, err
	}
	if ep.tasks == "" {
		return []domain.Task{}, nil
	}

	var records []taskRecord
	if err := c.do(ctx, actor, call{method: http.MethodGet, path: ep.tasks, out: &records, resource: "tasks"}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return mapSlice(records, taskRecord.toDomain), nil
}

// CreateTask adds a task for the actor, tied to one of the actor's leads.
func (c *CRMClient) CreateTask(ctx context.Context, actor domain.Actor, task domain.Task) error {
	ctx, span := tracer.Start(ctx, "CRMClient.CreateTask")
	defer span.End()

	if err := requireTaskFeed(actor); err != nil {
		return err
	}

	body := taskBody{
		Title:       &task.Title,
		Description: &task.Description,
		Status:      task.Status,
		DueDate:     crmDateTime(task.DueDate),
	}
	if task.RelatedLead != nil {
		body.RelatedLead = &leadRef{ID: recordID(*task.RelatedLead)}
	}
	err := c.do(ctx, actor, call{method: http.MethodPost, path: newTaskPath, in: body, resource: "task", once: true})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// UpdateTask applies a partial update to one of the actor's tasks. The CRM
// deletes a task moved to COMPLETED, so the write is never repeated.
func (c *CRMClient) UpdateTask(ctx context.Context, actor domain.Actor, update domain.TaskUpdate) error {
	ctx, span := tracer.Start(ctx, "CRMClient.UpdateTask")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", update.ID),
		attribute.String("task.status", update.Status),
	)

	if err := requireTaskFeed(actor); err != nil {
		return err
	}

	body := taskBody{
		ID:          recordID(update.ID),
		Title:       update.Title,
		Description: update.Description,
		Status:      update.Status,
		DueDate:     crmDateTime(update.DueDate),
	}
	err := c.do(ctx, actor, call{method: http.MethodPut, path: updateTaskPath, in: body, resource: "task", id: update.ID, once: true})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func requireTaskFeed(actor domain.Actor) error {
	ep, err := endpointsFor(actor)
	if err != nil {
		return err
	}
	if ep.tasks == "" {
		return &domain.ErrUnauthorized{Role: actor.Role, Action: "manage tasks"}
	}
	return nil
}

func endpointsFor(actor domain.Actor) (endpoints, error) {
	ep, ok := roleEndpoints[actor.Role]
	if !ok {
		return endpoints{}, &domain.ErrUnauthorized{Role: actor.Role, Action: "read CRM records"}
	}
	return ep, nil
}

// call is one CRM API request.
type call struct {
	method   string
	path     string
	in       any
	out      any // decoded JSON response; nil for writes acknowledged in plain text
	resource string
	id       string
	// once marks a write that must not be repeated. A retry after a lost
	// response could apply it twice.
	once bool
	// refused builds the error for a 4xx other than 401, 403 and 404.
	// nil yields an ErrValidation carrying the CRM's message.
	refused func(msg string) error
}

// do performs one logical call: bulkhead, then circuit breaker, then retry
// with backoff around the HTTP round trip.
func (c *CRMClient) do(ctx context.Context, actor domain.Actor, cl call) error {
	cfg := c.cfg
	if cl.once {
		cfg.MaxRetries = 0
	}
	err := c.bulkhead.Do(ctx, func() error {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, cfg, func() error {
				return c.roundTrip(ctx, actor, cl)
			})
		})
		return err
	})
	return c.classify(err, cl.method+" "+cl.path)
}

func (c *CRMClient) roundTrip(ctx context.Context, actor domain.Actor, cl call) error {
	var body io.Reader
	if cl.in != nil {
		payload, err := json.Marshal(cl.in)
		if err != nil {
			return resilience.Permanent(err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor.Session != "" {
		req.Header.Set("Cookie", actor.Session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		id := cl.id
		if id == "" {
			id = cl.path
		}
		return resilience.Permanent(&domain.ErrNotFound{Resource: cl.resource, ID: id})
	case resp.StatusCode == http.StatusUnauthorized:
		return resilience.Permanent(&domain.ErrUnauthenticated{Message: "CRM session rejected"})
	case resp.StatusCode == http.StatusForbidden:
		return resilience.Permanent(&domain.ErrUnauthorized{Role: actor.Role, Action: strings.ToLower(cl.method) + " " + cl.resource})
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg := readMessage(resp.Body)
		if msg == "" {
			msg = fmt.Sprintf("refused with status %d", resp.StatusCode)
		}
		if cl.refused != nil {
			return resilience.Permanent(cl.refused(msg))
		}
		return resilience.Permanent(rejection(cl.resource, msg))
	case resp.StatusCode >= 300:
		return &statusError{Code: resp.StatusCode}
	}

	if cl.out == nil {
		return resilience.Permanent(checkAck(actor, cl.resource, cl.id, readMessage(resp.Body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return resilience.Permanent(fmt.Errorf("decoding %s: %w", cl.resource, err))
	}
	return nil
}

func readMessage(r io.Reader) string {
	msg, _ := io.ReadAll(io.LimitReader(r, 1024))
	return strings.TrimSpace(string(msg))
}

// classify maps a failed call onto the domain error the handlers understand.
func (c *CRMClient) classify(err error, operation string) error {
	if err == nil {
		return nil
	}
	if isCallerError(err) {
		return err
	}
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: serviceName}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "crm " + operation}
	}
	return &domain.ErrExternalService{Service: serviceName, Err: err}
}
