package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/models"
)

func fakeSource(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/hives":
			json.NewEncoder(w).Encode([]map[string]any{{"id": 30522, "name": "Stock 1"}})
		case "/api/hives/30522/history":
			json.NewEncoder(w).Encode([]map[string]any{
				{"time": 1704110400000, "weight": 42.17},
				{"time": 1704114000000, "weight": 42.2},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(t *testing.T, sourceURL string) *config.Config {
	return &config.Config{
		Source: config.SourceConfig{
			BaseURL:        sourceURL,
			Token:          "token",
			Entity:         models.EntityKindHives,
			Attributes:     []string{"weight"},
			RequestTimeout: 5 * time.Second,
		},
		Apiaries: []config.ApiaryConfig{{ID: 1, Name: "Rossstall", Hives: []int64{30522}}},
		Lock:     config.LockConfig{Backend: "file", Path: filepath.Join(t.TempDir(), "bees.lock")},
		Server:   config.ServerConfig{ShutdownTimeout: time.Second},
		Monitoring: config.MonitoringConfig{
			MetricsEnabled: true,
		},
		Schedule: config.ScheduleConfig{Sync: "*/15 * * * *"},
	}
}

func openTestStack(t *testing.T, cfg *config.Config) *Stack {
	t.Helper()
	st, err := OpenStack(context.Background(), cfg, StackOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenStack: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestJobsSyncRecordsStatus(t *testing.T) {
	cfg := testConfig(t, fakeSource(t).URL)
	st := openTestStack(t, cfg)
	srv := New(cfg, st)

	report, err := srv.jobs.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Rows() != 2 || len(report.Failures()) != 0 {
		t.Errorf("unexpected report rows=%d failures=%v", report.Rows(), report.Failures())
	}

	snap := st.Hub.Status.Snapshot("test")
	if snap.LastSync != report {
		t.Error("status board should hold the last report")
	}

	scrape := func() string {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Body.String()
	}
	if body := scrape(); !strings.Contains(body, `bees_runs_total{job="sync",outcome="ok"} 1`) {
		t.Errorf("metrics missing run counter:\n%s", body)
	}
	// entity results arrive through the event emitter
	deadline := time.Now().Add(time.Second)
	for !strings.Contains(scrape(), `bees_history_rows_upserted_total{kind="hives"} 2`) {
		if time.Now().After(deadline) {
			t.Fatal("metrics missing row counter")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJobsSkipWhileRunning(t *testing.T) {
	cfg := testConfig(t, fakeSource(t).URL)
	st := openTestStack(t, cfg)
	jobs := NewJobs(st, nil)

	if !st.Hub.Status.Begin(JobSync) {
		t.Fatal("Begin should succeed on an idle board")
	}
	defer st.Hub.Status.End(JobSync)

	if _, err := jobs.Sync(context.Background(), false); !stderrors.Is(err, ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
	if got := st.Hub.Status.Snapshot("test").SkippedRuns[JobSync]; got != 1 {
		t.Errorf("skipped runs = %d", got)
	}
}

func TestJobsSkipWhenLockHeld(t *testing.T) {
	cfg := testConfig(t, fakeSource(t).URL)
	st := openTestStack(t, cfg)

	locker, err := st.Locker(JobSync)
	if err != nil {
		t.Fatal(err)
	}
	held, err := locker.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release(context.Background())

	if _, err := NewJobs(st, nil).Sync(context.Background(), false); !stderrors.Is(err, ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Schedule.Sync = "every now and then"
	srv := New(cfg, openTestStack(t, cfg))
	if err := srv.Schedule(); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
}

func TestHealthWithoutDatabase(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	srv := New(cfg, openTestStack(t, cfg))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body)
	}
}
