package monitoring

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jodok/bees/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveEntity(t *testing.T) {
	s := NewService(config.MonitoringConfig{MetricsEnabled: true, Namespace: "test"})

	s.ObserveEntity("hives", "ok", "", 12, 200*time.Millisecond)
	s.ObserveEntity("hives", "failed", "protocol", 0, time.Second)
	s.ObserveEntity("hives", "ok", "", 3, 100*time.Millisecond)

	if got := testutil.ToFloat64(s.entities.WithLabelValues("hives", "ok", "")); got != 2 {
		t.Errorf("ok entities = %v", got)
	}
	if got := testutil.ToFloat64(s.historyRows.WithLabelValues("hives")); got != 15 {
		t.Errorf("rows = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	s := NewService(config.MonitoringConfig{MetricsEnabled: true})
	s.RecordEvent("sync.run", map[string]string{"run": "r1"})
	s.ObserveRun("sync", false, time.Unix(1714564800, 0))
	s.ObservePosts(3, 1, 0, 30*time.Second)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`bees_events_total{event="sync.run"} 1`,
		`bees_runs_total{job="sync",outcome="ok"} 1`,
		`bees_last_run_timestamp_seconds{job="sync"} 1.7145648e+09`,
		`bees_beep_posts_total{outcome="posted"} 3`,
		`bees_beep_throttled_seconds_total 30`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output lacks %q", want)
		}
	}
}
