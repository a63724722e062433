package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_RegistersAllCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}

	// Touch every vector so Gather sees at least one series per family.
	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/groups", "200").Inc()
	metrics.HTTPRequestDuration.WithLabelValues("GET", "/groups").Observe(0.1)
	metrics.HTTPRequestSize.WithLabelValues("POST", "/groups").Observe(512)
	metrics.HTTPResponseSize.WithLabelValues("GET", "/groups").Observe(1024)
	metrics.ActivityEntriesTotal.WithLabelValues("group.created").Inc()
	metrics.ActivityWriteFailuresTotal.Inc()
	metrics.ActivityQueryDuration.Observe(0.05)
	metrics.PermissionDenialsTotal.WithLabelValues("activity").Inc()
	metrics.VirtualMembershipUses.Inc()
	metrics.RateLimitRejectionsTotal.WithLabelValues("redis").Inc()
	metrics.RateLimitFallbackTotal.Inc()
	metrics.DBConnectionsActive.Set(5)
	metrics.DBConnectionsIdle.Set(3)
	metrics.RedisConnectionsActive.Set(2)
	metrics.RedisCommandsTotal.WithLabelValues("incr", "ok").Inc()
	metrics.GroupsTotal.Set(12)
	metrics.MembershipsTotal.Set(40)
	metrics.ActiveUsersTotal.Set(7)
	metrics.SessionsActive.Set(4)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	want := []string{
		"tally_http_requests_total",
		"tally_http_request_duration_seconds",
		"tally_activity_entries_total",
		"tally_activity_write_failures_total",
		"tally_activity_query_duration_seconds",
		"tally_permission_denials_total",
		"tally_virtual_membership_uses_total",
		"tally_ratelimit_rejections_total",
		"tally_ratelimit_fallback_total",
		"tally_db_connections_active",
		"tally_redis_commands_total",
		"tally_groups_total",
		"tally_sessions_active",
	}

	got := make(map[string]bool, len(families))
	for _, f := range families {
		got[f.GetName()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("expected metric family %q to be registered", name)
		}
	}
}

func TestMetrics_CounterValues(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ActivityWriteFailuresTotal.Inc()
	metrics.ActivityWriteFailuresTotal.Inc()
	if got := testutil.ToFloat64(metrics.ActivityWriteFailuresTotal); got != 2 {
		t.Errorf("ActivityWriteFailuresTotal = %v, want 2", got)
	}

	metrics.ActivityEntriesTotal.WithLabelValues("member.added").Inc()
	if got := testutil.ToFloat64(metrics.ActivityEntriesTotal.WithLabelValues("member.added")); got != 1 {
		t.Errorf("ActivityEntriesTotal[member.added] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ActivityEntriesTotal.WithLabelValues("member.removed")); got != 0 {
		t.Errorf("ActivityEntriesTotal[member.removed] = %v, want 0", got)
	}

	metrics.RateLimitRejectionsTotal.WithLabelValues("fallback").Inc()
	if got := testutil.ToFloat64(metrics.RateLimitRejectionsTotal.WithLabelValues("fallback")); got != 1 {
		t.Errorf("RateLimitRejectionsTotal[fallback] = %v, want 1", got)
	}
}

func TestMetrics_Gauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.GroupsTotal.Set(9)
	if got := testutil.ToFloat64(metrics.GroupsTotal); got != 9 {
		t.Errorf("GroupsTotal = %v, want 9", got)
	}

	metrics.SessionsActive.Set(3)
	metrics.SessionsActive.Dec()
	if got := testutil.ToFloat64(metrics.SessionsActive); got != 2 {
		t.Errorf("SessionsActive = %v, want 2", got)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"g-1"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/groups", strings.NewReader(`{"name":"trivia night"}`))
	req.ContentLength = int64(len(`{"name":"trivia night"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/groups", "201")); got != 1 {
		t.Errorf("HTTPRequestsTotal[POST /groups 201] = %v, want 1", got)
	}
}

func TestHTTPMetricsMiddleware_DefaultStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")); got != 1 {
		t.Errorf("HTTPRequestsTotal[GET /health 200] = %v, want 1", got)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.GroupsTotal.Set(5)

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tally_groups_total 5") {
		t.Errorf("metrics output missing tally_groups_total, got:\n%s", rec.Body.String())
	}
}

func TestResponseWriter_CapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	n, err := rw.Write([]byte("not found"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", rw.statusCode)
	}
	if rw.bytesWritten != n {
		t.Errorf("bytesWritten = %d, want %d", rw.bytesWritten, n)
	}
}
