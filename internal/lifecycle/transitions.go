package lifecycle

import (
	"github.com/boddenberg/crm-bff-go/internal/domain"
)

var open = map[domain.LeadStatus]bool{
	domain.StatusNew:             true,
	domain.StatusContacted:       true,
	domain.StatusQualified:       true,
	domain.StatusLost:            true,
	domain.StatusApprovalPending: true,
}

// requestEdges are the moves RequestTransition may perform. Resolution edges
// out of APPROVAL_PENDING belong to ResolveApproval and are not listed here.
var requestEdges = map[domain.LeadStatus]map[domain.LeadStatus]bool{
	domain.StatusNew:             open,
	domain.StatusContacted:       open,
	domain.StatusQualified:       open,
	domain.StatusApprovalPending: {domain.StatusApprovalPending: true},
	domain.StatusLost:            {domain.StatusLost: true},
	domain.StatusConverted:       {},
	domain.StatusApproved:        {},
	domain.StatusRejected:        {},
}

func canMove(from, to domain.LeadStatus) bool {
	return requestEdges[from][to]
}

// Replay folds an event log over initial and returns the resulting status.
// Each event's From must match the running status and its edge must be legal
// for its kind.
func Replay(initial domain.LeadStatus, events []domain.LeadEvent) (domain.LeadStatus, error) {
	if !initial.IsKnown() {
		return "", &domain.ErrInvalidStatus{Status: string(initial)}
	}

	current := initial
	for _, ev := range events {
		if ev.From != current {
			return current, &domain.ErrInvalidStateTransition{From: current, To: ev.To}
		}
		if !legalEvent(ev) {
			return current, &domain.ErrInvalidStateTransition{From: ev.From, To: ev.To}
		}
		current = ev.To
	}
	return current, nil
}

func legalEvent(ev domain.LeadEvent) bool {
	switch ev.Kind {
	case domain.EventStatusChanged:
		return ev.To != domain.StatusApprovalPending && canMove(ev.From, ev.To)
	case domain.EventConversionRequested:
		return ev.To == domain.StatusApprovalPending && canMove(ev.From, ev.To)
	case domain.EventConversionApproved:
		return ev.From == domain.StatusApprovalPending && ev.To == domain.StatusApproved
	case domain.EventConversionRejected:
		return ev.From == domain.StatusApprovalPending && ev.To == domain.StatusRejected
	}
	return false
}
