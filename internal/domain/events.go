package domain

import "time"

// EventKind tags a LeadEvent.
type EventKind string

const (
	EventStatusChanged       EventKind = "status_changed"
	EventConversionRequested EventKind = "conversion_requested"
	EventConversionApproved  EventKind = "conversion_approved"
	EventConversionRejected  EventKind = "conversion_rejected"
)

// LeadEvent is one entry of a lead's append-only transition log.
// Current status can be recomputed as a fold over these events.
type LeadEvent struct {
	ID         string     `json:"id"`
	Kind       EventKind  `json:"kind"`
	LeadID     string     `json:"leadId"`
	From       LeadStatus `json:"from"`
	To         LeadStatus `json:"to"`
	ActorID    string     `json:"actorId,omitempty"`
	ActorRole  Role       `json:"actorRole"`
	Reason     string     `json:"reason,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}
