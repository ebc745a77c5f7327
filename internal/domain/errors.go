package domain

import "fmt"

// Error types for consistent error handling across the BFF.

// ErrInvalidStatus indicates a requested status outside the enumerated set.
type ErrInvalidStatus struct {
	Status string
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("invalid lead status: %q", e.Status)
}

// ErrUnauthorized indicates the actor's role lacks permission for the operation.
type ErrUnauthorized struct {
	Role   Role
	Action string
}

func (e *ErrUnauthorized) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("unauthorized: %s", e.Action)
	}
	return fmt.Sprintf("role %s is not allowed to %s", e.Role, e.Action)
}

// ErrInvalidStateTransition indicates a structurally illegal transition,
// including resolving a lead that is not pending approval. From is empty
// when the remote CRM refused the move without saying where the lead stands.
type ErrInvalidStateTransition struct {
	From   LeadStatus
	To     LeadStatus
	Detail string
}

func (e *ErrInvalidStateTransition) Error() string {
	if e.From == "" {
		return fmt.Sprintf("invalid state transition to %s: %s", e.To, e.Detail)
	}
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// ErrMalformedRecord indicates a record missing fields the core needs.
type ErrMalformedRecord struct {
	Kind  string
	ID    string
	Field string
}

func (e *ErrMalformedRecord) Error() string {
	return fmt.Sprintf("malformed %s record %q: bad or missing %s", e.Kind, e.ID, e.Field)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in a call to the remote CRM API.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthenticated indicates a missing, invalid, or expired token.
type ErrUnauthenticated struct {
	Message string
}

func (e *ErrUnauthenticated) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthenticated"
}
