package hubservice

import (
	"context"
	"testing"
	"time"

	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	"github.com/jodok/bees/internal/repository/memory"
	"github.com/jodok/bees/internal/syncservice"
)

func newTestHub(t *testing.T) (*HubService, *memory.Repositories) {
	t.Helper()
	repos := memory.NewRepositories()
	ctx := context.Background()
	if err := repos.Apiaries.Upsert(ctx, nil, &models.Apiary{ID: 1, Name: "Rossstall"}); err != nil {
		t.Fatal(err)
	}
	if err := repos.Hives.Upsert(ctx, nil, &models.Hive{ID: 30522, Name: "Stock 1", ApiaryID: 1}); err != nil {
		t.Fatal(err)
	}
	hub := New(repos.Apiaries, repos.Hives, repos.Sensors, repos.History, repos.Events)
	if err := hub.Validate(); err != nil {
		t.Fatal(err)
	}
	return hub, repos
}

func TestGetEntityHistory(t *testing.T) {
	hub, repos := newTestHub(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		repos.Store.PutHistory(&models.History{EntityID: 30522, Time: base.Add(time.Duration(i) * time.Hour), Weight: models.Float(float64(40 + i))})
	}

	rows, err := hub.GetEntityHistory(context.Background(), 30522, models.HistoryFilters{From: base.Add(time.Hour), Limit: 2})
	if err != nil {
		t.Fatalf("GetEntityHistory: %v", err)
	}
	if len(rows) != 2 || !rows[0].Time.Equal(base.Add(4*time.Hour)) {
		t.Errorf("expected the two newest rows, got %+v", rows)
	}

	if _, err := hub.GetEntityHistory(context.Background(), 404, models.HistoryFilters{}); !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := hub.GetEntityHistory(context.Background(), 30522, models.HistoryFilters{From: base, To: base.Add(-time.Hour)}); !errors.IsValidation(err) {
		t.Errorf("expected validation error for an inverted range, got %v", err)
	}
	if _, err := hub.GetEntityHistory(context.Background(), 30522, models.HistoryFilters{Limit: 5000}); !errors.IsValidation(err) {
		t.Errorf("expected validation error for a huge limit, got %v", err)
	}
}

func TestEvents(t *testing.T) {
	hub, _ := newTestHub(t)
	ctx := context.Background()

	if err := hub.CreateEvent(ctx, &models.Event{Title: "  "}); !errors.IsValidation(err) {
		t.Errorf("blank title must be rejected, got %v", err)
	}
	start := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	if err := hub.CreateEvent(ctx, &models.Event{Title: "Varroa treatment", Time: start, EndTime: &end}); !errors.IsValidation(err) {
		t.Errorf("end before start must be rejected, got %v", err)
	}

	ev := &models.Event{Title: "Honey harvest", Time: start, Tags: []string{" Harvest "}}
	if err := hub.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev.ID == 0 || ev.Tags[0] != "harvest" {
		t.Errorf("unexpected event %+v", ev)
	}

	events, err := hub.ListEvents(ctx, models.EventFilters{Tag: "HARVEST"})
	if err != nil || len(events) != 1 {
		t.Fatalf("ListEvents: %v, %v", events, err)
	}
}

func TestListEntities(t *testing.T) {
	hub, repos := newTestHub(t)
	hiveID := int64(30522)
	repos.Sensors.Upsert(context.Background(), nil, &models.Sensor{ID: 900, Name: "Scale A", HiveID: &hiveID})

	ov, err := hub.ListEntities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Apiaries) != 1 || len(ov.Entities) != 2 || ov.Entities[1].Kind != "sensor" {
		t.Errorf("unexpected overview %+v", ov)
	}
}

func TestStatusBoardSkipsOverlappingRuns(t *testing.T) {
	b := NewStatusBoard()
	if !b.Begin("sync") {
		t.Fatal("first run must start")
	}
	if b.Begin("sync") {
		t.Fatal("overlapping run must be skipped")
	}
	b.RecordSync(&syncservice.Report{RunID: "run_1"})
	st := b.Snapshot("1.0.0")
	if len(st.Running) != 1 || st.SkippedRuns["sync"] != 1 || st.LastSync.RunID != "run_1" {
		t.Errorf("unexpected status %+v", st)
	}
	b.End("sync")
	if !b.Begin("sync") {
		t.Error("run must start again after End")
	}
}
