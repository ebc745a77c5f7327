package domain

import "time"

// ============================================================
// Dashboard aggregates (derived, never persisted)
// ============================================================

// MonthlyMetric is one calendar month with non-zero activity.
type MonthlyMetric struct {
	Month   string  `json:"month"`
	Leads   int     `json:"leads"`
	Clients int     `json:"clients"`
	Revenue float64 `json:"revenue"`
	Calls   int     `json:"calls"`
}

// Value returns the numeric field named key, used by period-over-period change.
func (m MonthlyMetric) Value(key string) (float64, bool) {
	switch key {
	case "leads":
		return float64(m.Leads), true
	case "clients", "converted":
		return float64(m.Clients), true
	case "revenue":
		return m.Revenue, true
	case "calls":
		return float64(m.Calls), true
	}
	return 0, false
}

// Share is one slice of a percentage distribution (lead sources, task statuses).
type Share struct {
	Name  string `json:"name"`
	Value int    `json:"value"` // integer percentage
	Color string `json:"color"`
}

// Summary holds the headline numbers shown above the charts.
type Summary struct {
	TotalLeads          int     `json:"totalLeads"`
	TotalClients        int     `json:"totalClients"`
	ConversionRate      string  `json:"conversionRate"` // one decimal, no % sign
	TotalRevenue        float64 `json:"totalRevenue"`
	AvgRevenuePerClient float64 `json:"avgRevenuePerClient"`
	UnassignedLeads     int     `json:"unassignedLeads"`
	PendingApprovals    int     `json:"pendingApprovals"`
	TotalCalls          int     `json:"totalCalls"`
	UndatedRecords      int     `json:"undatedRecords"`
}

// Dashboard is the role-scoped view returned by GET /v1/dashboard.
type Dashboard struct {
	Role         Role              `json:"role"`
	Year         int               `json:"year"`
	Monthly      []MonthlyMetric   `json:"monthly"`
	LeadSources  []Share           `json:"leadSources"`
	TaskStatuses []Share           `json:"taskStatuses"`
	Summary      Summary           `json:"summary"`
	Changes      map[string]string `json:"changes"`
	GeneratedAt  time.Time         `json:"generatedAt"`
}
