package prometheus_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/neomorfeo/tenantscope/internal/adapter/prometheus"
	"github.com/neomorfeo/tenantscope/internal/domain"
)

func TestRecorder_Counters(t *testing.T) {
	r := prometheus.NewRecorder()

	r.DefinitionResolved(domain.KindProcess, "resolved")
	r.DefinitionResolved(domain.KindProcess, "resolved")
	r.DefinitionResolved(domain.KindDecision, "ambiguous")
	r.AuthorizationDenied("delete")
	r.JobExecuted(domain.JobTimerStart, true, false)

	if got := testutil.ToFloat64(r.DefinitionResolutions.WithLabelValues("process", "resolved")); got != 2 {
		t.Errorf("process resolved = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.DefinitionResolutions.WithLabelValues("decision", "ambiguous")); got != 1 {
		t.Errorf("decision ambiguous = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.AuthorizationDenials.WithLabelValues("delete")); got != 1 {
		t.Errorf("denials = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.JobsExecuted.WithLabelValues("timer-start-event", "true", "false")); got != 1 {
		t.Errorf("jobs = %v, want 1", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := prometheus.NewRecorder()
	r.AuthorizationDenied("create")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `tenantscope_authorization_denials_total{operation="create"} 1`) {
		t.Errorf("metrics output missing denial counter:\n%s", body)
	}
}

func TestRecorder_Independent(t *testing.T) {
	a, b := prometheus.NewRecorder(), prometheus.NewRecorder()
	a.AuthorizationDenied("update")

	if got := testutil.ToFloat64(b.AuthorizationDenials.WithLabelValues("update")); got != 0 {
		t.Errorf("second recorder = %v, want 0", got)
	}
}
