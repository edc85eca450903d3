package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	reg, m := NewRegistry()

	m.RecordSessionStart(true)
	m.RecordSessionStart(false)
	m.RecordSessionStart(false)
	m.RecordSessionCompleted()
	m.RecordTurn("next_question", 150*time.Millisecond)
	m.RecordTurnError("classify")
	m.RecordResolveWarnings(2)
	m.RecordResolveWarnings(0)
	m.RecordLLMCall("gemini-2.5-flash", true, time.Second)

	if got := testutil.ToFloat64(m.SessionsStarted.WithLabelValues("false")); got != 2 {
		t.Errorf("unexpected reused sessions: %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsCompleted); got != 1 {
		t.Errorf("unexpected completed sessions: %v", got)
	}
	if got := testutil.ToFloat64(m.Turns.WithLabelValues("next_question")); got != 1 {
		t.Errorf("unexpected turns: %v", got)
	}
	if got := testutil.ToFloat64(m.CollaboratorErrors.WithLabelValues("classify")); got != 1 {
		t.Errorf("unexpected errors: %v", got)
	}
	if got := testutil.ToFloat64(m.ResolveWarnings); got != 2 {
		t.Errorf("unexpected warnings: %v", got)
	}

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "survey_turns_total") {
		t.Error("metrics output missing survey_turns_total")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordSessionStart(true)
	m.RecordSessionCompleted()
	m.RecordTurn("completed", time.Second)
	m.RecordTurnError("persist")
	m.RecordResolveWarnings(3)
	m.RecordLLMCall("x", false, time.Second)
}
