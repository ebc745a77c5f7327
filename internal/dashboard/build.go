package dashboard

import (
	"fmt"
	"time"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// Input is a role-scoped snapshot of records. Tasks may be nil for roles
// the remote service serves no tasks to.
type Input struct {
	Role    domain.Role
	Year    int
	Leads   []domain.Lead
	Clients []domain.Client
	Tasks   []domain.Task
	Now     time.Time
}

// Build computes the dashboard for any role. The employee, manager and admin
// views differ only in the records they are given.
func Build(in Input) domain.Dashboard {
	monthly := MonthlyActivity(in.Leads, in.Clients, in.Tasks, in.Year)

	changes := make(map[string]string, len(ChangeKeys))
	for _, key := range ChangeKeys {
		changes[key] = PeriodChange(monthly, key)
	}

	return domain.Dashboard{
		Role:         in.Role,
		Year:         in.Year,
		Monthly:      monthly,
		LeadSources:  LeadSourceDistribution(in.Leads),
		TaskStatuses: TaskStatusDistribution(in.Tasks),
		Summary:      Summarize(in.Leads, in.Clients, in.Tasks, monthly),
		Changes:      changes,
		GeneratedAt:  in.Now,
	}
}

// Summarize computes the headline numbers. Revenue totals come from the
// monthly series, so clients outside the year are not counted as revenue.
func Summarize(leads []domain.Lead, clients []domain.Client, tasks []domain.Task, monthly []domain.MonthlyMetric) domain.Summary {
	s := domain.Summary{
		TotalLeads:     len(leads),
		TotalClients:   len(clients),
		ConversionRate: "0.0",
	}
	if s.TotalLeads > 0 {
		s.ConversionRate = fmt.Sprintf("%.1f", float64(s.TotalClients)/float64(s.TotalLeads)*100)
	}

	for _, m := range monthly {
		s.TotalRevenue += m.Revenue
	}
	if s.TotalClients > 0 {
		s.AvgRevenuePerClient = s.TotalRevenue / float64(s.TotalClients)
	}

	for _, l := range leads {
		if l.AssignedTo == nil || (l.AssignedTo.ID == "" && l.AssignedTo.Name == "") {
			s.UnassignedLeads++
		}
		if l.Status == domain.StatusApprovalPending {
			s.PendingApprovals++
		}
		if !l.CreatedAt.Valid {
			s.UndatedRecords++
		}
	}
	for _, c := range clients {
		if !c.CreatedAt.Valid {
			s.UndatedRecords++
		}
	}
	for _, t := range tasks {
		if IsCall(t) {
			s.TotalCalls++
		}
	}
	return s
}
