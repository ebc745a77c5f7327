package dashboard

import (
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// SourcePalette colors lead-source slices by first-occurrence order.
var SourcePalette = []string{"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6"}

// TaskPalette colors task-status slices.
var TaskPalette = []string{"#10B981", "#F59E0B", "#EF4444"}

// LeadSourceDistribution returns each distinct lead source with its rounded
// share of all leads. Missing sources are grouped under "Unknown".
// Shares are rounded independently, so they may sum to 99 or 101.
func LeadSourceDistribution(leads []domain.Lead) []domain.Share {
	labels := make([]string, len(leads))
	for i, l := range leads {
		labels[i] = l.Source
	}
	return distribution(labels, "Unknown", SourcePalette, nil)
}

// TaskStatusDistribution returns the share of tasks per status, with missing
// statuses grouped under "Pending" and labels capitalized.
func TaskStatusDistribution(tasks []domain.Task) []domain.Share {
	labels := make([]string, len(tasks))
	for i, t := range tasks {
		labels[i] = t.Status
	}
	return distribution(labels, "Pending", TaskPalette, capitalize)
}

func distribution(labels []string, fallback string, palette []string, display func(string) string) []domain.Share {
	counts := make(map[string]int)
	var order []string
	for _, label := range labels {
		if label == "" {
			label = fallback
		}
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	total := len(labels)
	out := make([]domain.Share, 0, len(order))
	for i, label := range order {
		name := label
		if display != nil {
			name = display(label)
		}
		out = append(out, domain.Share{
			Name:  name,
			Value: percent(counts[label], total),
			Color: palette[i%len(palette)],
		})
	}
	return out
}

// percent rounds count/total*100 half-up; zero total yields zero.
func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(count)/float64(total)*100 + 0.5))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
