package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.LLMFailure(StageNarrate)
	m.LLMFailure(StageNarrate)
	m.InvalidEvents(3)
	m.InvalidEvents(0)
	m.Roll("success")
	m.Turn("ok")
	m.ValidationAttempts(2)
	m.ObserveStage(StageIntent, 250*time.Millisecond)

	if got := testutil.ToFloat64(m.llmFailures.WithLabelValues(StageNarrate)); got != 2 {
		t.Errorf("llm failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.invalidEvents); got != 3 {
		t.Errorf("invalid events = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.rolls.WithLabelValues("success")); got != 1 {
		t.Errorf("rolls = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.stageDuration); got != 1 {
		t.Errorf("stage duration series = %d, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.LLMFailure(StageIntent)
	m.InvalidEvents(1)
	m.Roll("failure")
	m.Turn("error")
	m.ValidationAttempts(1)
	m.Time(StageExecute)()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Turn("ok")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `dm_turns_total{result="ok"} 1`) {
		t.Errorf("metrics output missing turn counter:\n%s", body)
	}
}
