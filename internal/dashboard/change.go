package dashboard

import "fmt"

// Bucket is one period of a series with named numeric fields.
type Bucket interface {
	Value(key string) (float64, bool)
}

// ChangeKeys are the MonthlyMetric fields reported in Dashboard.Changes.
var ChangeKeys = []string{"leads", "clients", "revenue", "calls"}

// PeriodChange returns the percentage change of key between the last two
// buckets, formatted with one decimal and a % suffix. Fewer than two buckets
// yields "0.0%"; a non-positive previous value yields "N/A". A key the
// buckets do not carry reads as zero.
func PeriodChange[B Bucket](series []B, key string) string {
	if len(series) < 2 {
		return "0.0%"
	}
	current, _ := series[len(series)-1].Value(key)
	previous, _ := series[len(series)-2].Value(key)
	if previous <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", (current-previous)/previous*100)
}
