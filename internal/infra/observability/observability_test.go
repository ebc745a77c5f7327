package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/observability"
)

func TestLifecycleSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrTransition(domain.EventStatusChanged, domain.StatusContacted)
	m.IncrTransition(domain.EventStatusChanged, domain.StatusQualified)
	m.IncrTransition(domain.EventConversionRequested, domain.StatusApprovalPending)
	m.IncrRejected("unauthorized")
	m.IncrCacheHit("dashboard")
	m.IncrCacheMiss("dashboard")
	m.IncrCacheMiss("dashboard")
	m.IncrCacheMiss("dashboard")
	m.IncrExternalError("crm")
	m.IncrExternalError("rabbitmq")

	snap := m.LifecycleSnapshot()

	assert.EqualValues(t, 2, snap.TransitionsByKind["status_changed"])
	assert.EqualValues(t, 1, snap.TransitionsByKind["conversion_requested"])
	assert.EqualValues(t, 0, snap.TransitionsByKind["conversion_rejected"])
	assert.EqualValues(t, 1, snap.RejectedByReason["unauthorized"])
	assert.EqualValues(t, 0, snap.RejectedByReason["invalid_transition"])
	assert.InDelta(t, 0.25, snap.DashboardCacheRate, 1e-9)
	assert.EqualValues(t, 2, snap.ExternalErrors)
}

func TestMetrics_RegistryGathers(t *testing.T) {
	m := observability.NewMetrics()
	m.RecordRequestDuration("dashboard", 0)
	m.IncrPublished("ok")

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["crm_bff_request_duration_seconds"])
	assert.True(t, names["crm_bff_events_published_total"])
	assert.True(t, names["crm_bff_lead_transitions_rejected_total"])
}

func TestZapLoggerMiddleware_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mw := observability.ZapLoggerMiddleware(zap.New(core))

	for _, status := range []int{http.StatusOK, http.StatusConflict, http.StatusBadGateway} {
		h := middleware.RequestID(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/leads", nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestTracingMiddleware_ExtractsParent(t *testing.T) {
	shutdown, err := observability.InitTracer("", "test")
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	var got trace.SpanContext
	h := observability.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, got.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got.TraceID().String())
}

func TestNewLogger_Levels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		logger := observability.NewLogger(in, "crm-bff")
		assert.True(t, logger.Core().Enabled(want), "level %q", in)
		if want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(want-1), "level %q", in)
		}
	}
}
