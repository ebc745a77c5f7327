package domain

import "time"

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LeadList wraps a role-scoped lead collection.
type LeadList struct {
	Role  Role   `json:"role"`
	Total int    `json:"total"`
	Leads []Lead `json:"leads"`
}

// PeriodChangeResponse is returned by GET /v1/dashboard/change.
type PeriodChangeResponse struct {
	Key    string `json:"key"`
	Year   int    `json:"year"`
	Change string `json:"change"`
}

// TransitionResponse is returned after a successful lifecycle operation.
type TransitionResponse struct {
	Lead  Lead      `json:"lead"`
	Event LeadEvent `json:"event"`
}

// LifecycleMetrics is returned by GET /v1/metrics/lifecycle.
type LifecycleMetrics struct {
	TransitionsByKind  map[string]int64 `json:"transitionsByKind"`
	RejectedByReason   map[string]int64 `json:"rejectedByReason"`
	DashboardCacheRate float64          `json:"dashboardCacheHitRate"`
	ExternalErrors     int64            `json:"externalErrors"`
	Period             string           `json:"period"`
}
