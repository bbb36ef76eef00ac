package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDomainCounters(t *testing.T) {
	m := New()

	m.GroupCreated()
	m.MemberCreated()
	m.MemberCreated()
	m.OrderCreated()
	m.GroupJoin(JoinSuccess)
	m.GroupJoin(JoinClosed)
	m.GroupJoin(JoinClosed)

	if got := testutil.ToFloat64(m.groupsCreated); got != 1 {
		t.Errorf("groups_created_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.membersCreated); got != 2 {
		t.Errorf("members_created_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ordersCreated); got != 1 {
		t.Errorf("orders_created_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.groupJoins.WithLabelValues(JoinClosed)); got != 2 {
		t.Errorf("group_joins_total{closed} = %v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.GroupCreated()
	m.MemberCreated()
	m.OrderCreated()
	m.GroupJoin(JoinSuccess)
	if m.RealtimeSubscribers() != nil {
		t.Error("expected nil gauge")
	}

	handler := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/groups/"+id, nil))
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/groups/{id}", "404"))
	if got != 3 {
		t.Errorf("requests_total = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "youowe_http_requests_total") {
		t.Error("expected exposition to include youowe_http_requests_total")
	}
}
