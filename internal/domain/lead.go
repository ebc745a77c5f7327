package domain

// ============================================================
// Lead lifecycle
// ============================================================

// LeadStatus is the pipeline state of a lead.
type LeadStatus string

const (
	StatusNew             LeadStatus = "NEW"
	StatusContacted       LeadStatus = "CONTACTED"
	StatusQualified       LeadStatus = "QUALIFIED"
	StatusLost            LeadStatus = "LOST"
	StatusConverted       LeadStatus = "CONVERTED"
	StatusApprovalPending LeadStatus = "APPROVAL_PENDING"
	StatusApproved        LeadStatus = "APPROVED"
	StatusRejected        LeadStatus = "REJECTED"
)

var knownStatuses = map[LeadStatus]struct{}{
	StatusNew:             {},
	StatusContacted:       {},
	StatusQualified:       {},
	StatusLost:            {},
	StatusConverted:       {},
	StatusApprovalPending: {},
	StatusApproved:        {},
	StatusRejected:        {},
}

// IsKnown reports whether s is one of the enumerated lead states.
func (s LeadStatus) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether no further transitions are defined from s.
func (s LeadStatus) IsTerminal() bool {
	switch s {
	case StatusLost, StatusConverted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Lead is a prospective customer record progressing through the sales pipeline.
type Lead struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Company         string     `json:"company,omitempty"`
	Status          LeadStatus `json:"status"`
	CreatedAt       Timestamp  `json:"createdAt"`
	UpdatedAt       Timestamp  `json:"updatedAt"`
	AssignedTo      *ActorRef  `json:"assignedTo,omitempty"`
	Source          string     `json:"source,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// Client is the durable, revenue-bearing record the remote service creates
// once a conversion is approved.
type Client struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Company    string    `json:"company,omitempty"`
	AssignedTo *ActorRef `json:"assignedTo,omitempty"`
	CreatedAt  Timestamp `json:"createdAt"`
}

// Task statuses the CRM accepts on writes. Reads keep whatever the CRM sends.
const (
	TaskTodo       = "TODO"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
	TaskCancelled  = "CANCELLED"
)

// Task is a unit of follow-up work. Status is free-form on reads.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	DueDate     Timestamp `json:"dueDate"`
	RelatedLead *string   `json:"relatedLead,omitempty"`
	AssignedTo  *ActorRef `json:"assignedTo,omitempty"`
}

// ApprovalDecision is a manager's answer to a pending conversion.
type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "APPROVE"
	DecisionReject  ApprovalDecision = "REJECT"
)

// StatusChangeRequest is the body of PATCH /v1/leads/{leadId}/status.
type StatusChangeRequest struct {
	Status LeadStatus `json:"status" validate:"notblank,max=32"`
}

// ApprovalRequest is the body of POST /v1/leads/{leadId}/approval.
type ApprovalRequest struct {
	Decision        ApprovalDecision `json:"decision" validate:"required,oneof=APPROVE REJECT approve reject"`
	RejectionReason string           `json:"rejectionReason,omitempty" validate:"max=500"`
}

// NewLeadRequest is the body of POST /v1/leads. The lead always starts NEW.
type NewLeadRequest struct {
	Name    string `json:"name" validate:"notblank,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"required,min=7,max=20"`
	Company string `json:"company,omitempty" validate:"max=100"`
	Source  string `json:"source,omitempty" validate:"max=50"`
}

// NewTaskRequest is the body of POST /v1/tasks.
type NewTaskRequest struct {
	Title         string    `json:"title" validate:"notblank,max=200"`
	Description   string    `json:"description" validate:"max=2000"`
	DueDate       Timestamp `json:"dueDate"`
	RelatedLeadID string    `json:"relatedLeadId" validate:"notblank"`
	Status        string    `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS COMPLETED CANCELLED"`
}

// TaskUpdateRequest is the body of PATCH /v1/tasks/{taskId}. Absent fields
// stay as they are. Moving a task to COMPLETED removes it from the CRM.
type TaskUpdateRequest struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	DueDate     Timestamp `json:"dueDate"`
	Status      string    `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS COMPLETED CANCELLED"`
}

// TaskUpdate is a partial task write addressed to one task.
type TaskUpdate struct {
	ID          string    `json:"id"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     Timestamp `json:"dueDate"`
	Status      string    `json:"status,omitempty"`
}
