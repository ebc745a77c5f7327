// Package lifecycle implements the lead state machine and its
// manager-gated conversion approval. It performs no I/O: callers fetch a
// lead, pass it in with the actor's role, and persist the returned copy.
package lifecycle

import (
	"errors"
	"strings"
	"time"

	"github.com/boddenberg/crm-bff-go/internal/domain"

	"github.com/google/uuid"
)

// requestable lists the statuses an actor may ask for through RequestTransition.
// CONVERTED is accepted but never applied; it opens the approval gate.
var requestable = map[domain.LeadStatus]bool{
	domain.StatusNew:       true,
	domain.StatusContacted: true,
	domain.StatusQualified: true,
	domain.StatusLost:      true,
	domain.StatusConverted: true,
}

// Controller validates and applies lead transitions.
type Controller struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source used for UpdatedAt and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator overrides how event IDs are produced.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// NewController creates a Controller using the wall clock and random UUIDs.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestTransition applies a status change requested by an employee or admin.
//
// A CONVERTED request moves the lead to APPROVAL_PENDING instead; a manager
// or admin must then call ResolveApproval. NEW, CONTACTED, QUALIFIED and LOST
// are set directly. Re-requesting the current status succeeds and only
// refreshes UpdatedAt.
func (c *Controller) RequestTransition(lead domain.Lead, requested domain.LeadStatus, role domain.Role) (domain.Lead, domain.LeadEvent, error) {
	if !requested.IsKnown() {
		return lead, domain.LeadEvent{}, &domain.ErrInvalidStatus{Status: string(requested)}
	}
	if role != domain.RoleEmployee && role != domain.RoleAdmin {
		return lead, domain.LeadEvent{}, &domain.ErrUnauthorized{Role: role, Action: "change lead status"}
	}
	if err := checkRecord(lead); err != nil {
		return lead, domain.LeadEvent{}, err
	}
	if !requestable[requested] {
		return lead, domain.LeadEvent{}, &domain.ErrInvalidStateTransition{From: lead.Status, To: requested}
	}

	target, kind := requested, domain.EventStatusChanged
	if requested == domain.StatusConverted {
		target, kind = domain.StatusApprovalPending, domain.EventConversionRequested
	}

	if !canMove(lead.Status, target) {
		return lead, domain.LeadEvent{}, &domain.ErrInvalidStateTransition{From: lead.Status, To: requested}
	}

	return c.apply(lead, target, kind, role, "")
}

// Open prepares a new lead for the CRM. Only employees create leads: the CRM
// assigns the lead to whoever creates it. Every lead starts NEW, whatever the
// draft carries.
func (c *Controller) Open(draft domain.Lead, role domain.Role) (domain.Lead, error) {
	if role != domain.RoleEmployee {
		return draft, &domain.ErrUnauthorized{Role: role, Action: "create leads"}
	}
	now := domain.At(c.now())
	lead := draft
	lead.ID = ""
	lead.Status = domain.StatusNew
	lead.CreatedAt = now
	lead.UpdatedAt = now
	lead.RejectionReason = ""
	return lead, nil
}

// ResolveApproval approves or rejects a lead waiting in APPROVAL_PENDING.
// Approval is expected to make the remote service materialize a Client.
func (c *Controller) ResolveApproval(lead domain.Lead, role domain.Role, decision domain.ApprovalDecision, rejectionReason string) (domain.Lead, domain.LeadEvent, error) {
	var errs []error
	if !role.CanResolveApprovals() {
		errs = append(errs, &domain.ErrUnauthorized{Role: role, Action: "resolve conversion approvals"})
	}
	if err := checkRecord(lead); err != nil {
		return lead, domain.LeadEvent{}, errors.Join(append(errs, err)...)
	}

	target, kind := domain.StatusApproved, domain.EventConversionApproved
	switch domain.ApprovalDecision(strings.ToUpper(string(decision))) {
	case domain.DecisionApprove:
		rejectionReason = ""
	case domain.DecisionReject:
		target, kind = domain.StatusRejected, domain.EventConversionRejected
		rejectionReason = strings.TrimSpace(rejectionReason)
	default:
		errs = append(errs, &domain.ErrValidation{Field: "decision", Message: "must be APPROVE or REJECT"})
	}

	if lead.Status != domain.StatusApprovalPending {
		errs = append(errs, &domain.ErrInvalidStateTransition{From: lead.Status, To: target})
	}
	if len(errs) > 0 {
		return lead, domain.LeadEvent{}, errors.Join(errs...)
	}

	return c.apply(lead, target, kind, role, rejectionReason)
}

func (c *Controller) apply(lead domain.Lead, to domain.LeadStatus, kind domain.EventKind, role domain.Role, reason string) (domain.Lead, domain.LeadEvent, error) {
	now := c.now()
	if lead.CreatedAt.Valid && now.Before(lead.CreatedAt.Time) {
		now = lead.CreatedAt.Time
	}

	from := lead.Status
	next := lead
	next.Status = to
	next.UpdatedAt = domain.At(now)
	if to == domain.StatusRejected {
		next.RejectionReason = reason
	} else {
		next.RejectionReason = ""
	}

	event := domain.LeadEvent{
		ID:         c.newID(),
		Kind:       kind,
		LeadID:     lead.ID,
		From:       from,
		To:         to,
		ActorRole:  role,
		Reason:     reason,
		OccurredAt: now,
	}
	return next, event, nil
}

func checkRecord(lead domain.Lead) error {
	if lead.ID == "" {
		return &domain.ErrMalformedRecord{Kind: "lead", Field: "id"}
	}
	if !lead.Status.IsKnown() {
		return &domain.ErrMalformedRecord{Kind: "lead", ID: lead.ID, Field: "status"}
	}
	return nil
}
