package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// Event kinds and rejection classes pre-registered so snapshots report zeros.
var (
	eventKinds = []domain.EventKind{
		domain.EventStatusChanged,
		domain.EventConversionRequested,
		domain.EventConversionApproved,
		domain.EventConversionRejected,
	}
	rejectionReasons = []string{"invalid_status", "unauthorized", "invalid_transition", "malformed_record", "validation"}
)

// Metrics holds all Prometheus metrics for the BFF.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	published       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_bff_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_bff_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_bff_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_bff_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_bff_lead_transitions_total",
				Help: "Accepted lead lifecycle transitions.",
			},
			[]string{"kind", "to"},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_bff_lead_transitions_rejected_total",
				Help: "Lead lifecycle requests refused by the controller.",
			},
			[]string{"reason"},
		),
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_bff_events_published_total",
				Help: "Lead events handed to the event publisher.",
			},
			[]string{"result"},
		),
	}

	for _, r := range rejectionReasons {
		m.rejected.WithLabelValues(r)
	}
	return m
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrTransition counts an accepted transition.
func (m *Metrics) IncrTransition(kind domain.EventKind, to domain.LeadStatus) {
	m.transitions.WithLabelValues(string(kind), string(to)).Inc()
}

// IncrRejected counts a refused lifecycle request by reason class.
func (m *Metrics) IncrRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// IncrPublished counts an event publication attempt ("ok" or "error").
func (m *Metrics) IncrPublished(result string) {
	m.published.WithLabelValues(result).Inc()
}

// LifecycleSnapshot returns the cumulative lifecycle counters suitable for
// the GET /v1/metrics/lifecycle endpoint.
func (m *Metrics) LifecycleSnapshot() *domain.LifecycleMetrics {
	byKind := make(map[string]int64, len(eventKinds))
	for _, k := range eventKinds {
		byKind[string(k)] = int64(sumCounterVec(m.transitions, "kind", string(k)))
	}

	rejected := make(map[string]int64, len(rejectionReasons))
	for _, r := range rejectionReasons {
		rejected[r] = int64(getCounterValue(m.rejected, r))
	}

	hits := getCounterValue(m.cacheHits, "dashboard")
	misses := getCounterValue(m.cacheMisses, "dashboard")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.LifecycleMetrics{
		TransitionsByKind:  byKind,
		RejectedByReason:   rejected,
		DashboardCacheRate: hitRate,
		ExternalErrors:     int64(sumCounterVec(m.externalErrors, "", "")),
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every series of cv whose label name has value.
// An empty name sums all series.
func sumCounterVec(cv *prometheus.CounterVec, name, value string) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil || m.Counter == nil {
			continue
		}
		if name == "" || hasLabel(m, name, value) {
			total += m.Counter.GetValue()
		}
	}
	return total
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
