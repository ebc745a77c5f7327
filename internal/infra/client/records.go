package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// recordID accepts both numeric and string identifiers. The CRM API keys its
// entities with numeric IDs; the BFF treats every ID as an opaque string.
type recordID string

func (id *recordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = recordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = recordID(n.String())
	return nil
}

// MarshalJSON writes numeric IDs back as JSON numbers.
func (id recordID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

type userRecord struct {
	ID   recordID `json:"id"`
	Name string   `json:"name"`
}

func (u *userRecord) ref() *domain.ActorRef {
	if u == nil {
		return nil
	}
	return &domain.ActorRef{ID: string(u.ID), Name: u.Name}
}

// leadRecord is a lead as the CRM API serves it. The employee endpoint
// flattens the assignee into assignedToName; the manager and admin endpoints
// embed the whole user.
type leadRecord struct {
	ID              recordID          `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Company         string            `json:"company"`
	Status          domain.LeadStatus `json:"status"`
	CreatedAt       domain.Timestamp  `json:"createdAt"`
	UpdatedAt       domain.Timestamp  `json:"updatedAt"`
	AssignedTo      *userRecord       `json:"assignedTo"`
	AssignedToName  string            `json:"assignedToName"`
	Source          string            `json:"source"`
	RejectionReason string            `json:"rejectionReason"`
}

func (r leadRecord) toDomain() domain.Lead {
	assigned := r.AssignedTo.ref()
	if assigned == nil && r.AssignedToName != "" {
		assigned = &domain.ActorRef{Name: r.AssignedToName}
	}
	return domain.Lead{
		ID:              string(r.ID),
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		Company:         r.Company,
		Status:          domain.LeadStatus(strings.ToUpper(strings.TrimSpace(string(r.Status)))),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		AssignedTo:      assigned,
		Source:          r.Source,
		RejectionReason: r.RejectionReason,
	}
}

type clientRecord struct {
	ID         recordID         `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Phone      string           `json:"phone"`
	Company    string           `json:"company"`
	AssignedTo *userRecord      `json:"assignedTo"`
	CreatedAt  domain.Timestamp `json:"createdAt"`
}

func (r clientRecord) toDomain() domain.Client {
	return domain.Client{
		ID:         string(r.ID),
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Company:    r.Company,
		AssignedTo: r.AssignedTo.ref(),
		CreatedAt:  r.CreatedAt,
	}
}

type taskRecord struct {
	ID          recordID         `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	DueDate     domain.Timestamp `json:"dueDate"`
	RelatedLead *struct {
		ID recordID `json:"id"`
	} `json:"relatedLead"`
	AssignedTo *userRecord `json:"assignedTo"`
}

func (r taskRecord) toDomain() domain.Task {
	t := domain.Task{
		ID:          string(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		DueDate:     r.DueDate,
		AssignedTo:  r.AssignedTo.ref(),
	}
	if r.RelatedLead != nil && r.RelatedLead.ID != "" {
		id := string(r.RelatedLead.ID)
		t.RelatedLead = &id
	}
	return t
}

// leadPatch is the body of PUT /api/leads/updateLead. The CRM applies only
// the non-null fields and refreshes updatedAt itself.
type leadPatch struct {
	ID              recordID          `json:"id"`
	Status          domain.LeadStatus `json:"status"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
}

// approvalBody is the body of POST /api/manager/approve-or-reject.
type approvalBody struct {
	LeadID          recordID `json:"leadId"`
	Action          string   `json:"action"`
	RejectionReason string   `json:"rejectionReason,omitempty"`
}

// newLeadBody is the body of POST /api/leads/newLead.
type newLeadBody struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Phone   string            `json:"phone"`
	Company string            `json:"company,omitempty"`
	Status  domain.LeadStatus `json:"status"`
	Source  string            `json:"source,omitempty"`
}

// leadRef points a task at one of the caller's leads.
type leadRef struct {
	ID recordID `json:"id"`
}

// taskBody is the body of POST /api/tasks/newTask and PUT
// /api/tasks/updateTask. The CRM skips null fields on update.
type taskBody struct {
	ID          recordID `json:"id,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	DueDate     *string  `json:"dueDate,omitempty"`
	RelatedLead *leadRef `json:"relatedLead,omitempty"`
}

// crmDateTime formats ts the way the CRM stores local date-times.
func crmDateTime(ts domain.Timestamp) *string {
	if !ts.Valid {
		return nil
	}
	s := ts.Time.Format("2006-01-02T15:04:05")
	return &s
}

func mapSlice[R any, D any](records []R, fn func(R) D) []D {
	out := make([]D, len(records))
	for i, r := range records {
		out[i] = fn(r)
	}
	return out
}
