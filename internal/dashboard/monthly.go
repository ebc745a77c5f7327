// Package dashboard derives chart-ready aggregates from role-scoped
// lead, client and task collections. Every function is pure: the same
// inputs always produce the same output.
package dashboard

import (
	"strings"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// RevenuePerClient is the illustrative revenue credited per converted client.
const RevenuePerClient = 1000.0

// MonthLabels are the fixed bucket labels, index 0 = January.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type monthBucket struct {
	leads   int
	clients int
	calls   int
}

// MonthlyMetrics buckets leads and clients by CreatedAt into the months of year.
// A record without a usable CreatedAt is counted in January rather than
// dropped. Months with no leads and no clients are omitted.
func MonthlyMetrics(leads []domain.Lead, clients []domain.Client, year int) []domain.MonthlyMetric {
	return MonthlyActivity(leads, clients, nil, year)
}

// MonthlyActivity is MonthlyMetrics plus call activity: tasks whose
// description mentions a call, bucketed by due date. Tasks without a usable
// due date are not counted.
func MonthlyActivity(leads []domain.Lead, clients []domain.Client, tasks []domain.Task, year int) []domain.MonthlyMetric {
	var buckets [12]monthBucket

	for _, l := range leads {
		if i, ok := monthIndex(l.CreatedAt, year, true); ok {
			buckets[i].leads++
		}
	}
	for _, c := range clients {
		if i, ok := monthIndex(c.CreatedAt, year, true); ok {
			buckets[i].clients++
		}
	}
	for _, t := range tasks {
		if !IsCall(t) {
			continue
		}
		if i, ok := monthIndex(t.DueDate, year, false); ok {
			buckets[i].calls++
		}
	}

	out := make([]domain.MonthlyMetric, 0, 12)
	for i, b := range buckets {
		if b.leads == 0 && b.clients == 0 && b.calls == 0 {
			continue
		}
		out = append(out, domain.MonthlyMetric{
			Month:   MonthLabels[i],
			Leads:   b.leads,
			Clients: b.clients,
			Revenue: float64(b.clients) * RevenuePerClient,
			Calls:   b.calls,
		})
	}
	return out
}

// IsCall reports whether a task describes a call.
func IsCall(t domain.Task) bool {
	return strings.Contains(strings.ToLower(t.Description), "call")
}

func monthIndex(ts domain.Timestamp, year int, fallback bool) (int, bool) {
	if !ts.Valid {
		return 0, fallback
	}
	if ts.Time.Year() != year {
		return 0, false
	}
	return int(ts.Time.Month()) - 1, true
}
