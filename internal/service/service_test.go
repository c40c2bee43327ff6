package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	"github.com/jodok/bees/internal/repository/memory"
)

func newTestService() (*Service, *memory.Repositories) {
	repos := memory.NewRepositories()
	return New(repos.Apiaries, repos.Hives, repos.Sensors, repos.Assignments, repos.History), repos
}

func TestValidate(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	empty := &Service{}
	if err := empty.Validate(); err == nil {
		t.Error("expected an error for missing repositories")
	}
}

func TestUpsertApiaryIsIdempotent(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.UpsertApiary(ctx, 1, "Rossstall"); err != nil {
			t.Fatalf("UpsertApiary: %v", err)
		}
	}
	if err := svc.UpsertApiary(ctx, 1, "Rossstall Nord"); err != nil {
		t.Fatalf("UpsertApiary rename: %v", err)
	}
	apiaries := repos.Store.Apiaries()
	if len(apiaries) != 1 || apiaries[0].Name != "Rossstall Nord" {
		t.Errorf("expected one renamed apiary, got %+v", apiaries)
	}
}

func TestUpsertHiveFailureIsIsolated(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()
	repos.Store.FailOn = func(op string, id int64) error {
		if op == "upsert_hive" && id == 2 {
			return fmt.Errorf("unique violation")
		}
		return nil
	}

	if err := svc.UpsertHive(ctx, 1, "Hive 1", 10); err != nil {
		t.Fatalf("hive 1: %v", err)
	}
	err := svc.UpsertHive(ctx, 2, "Hive 1", 10)
	if !errors.Is(err, errors.ErrorTypePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if !strings.Contains(err.Error(), OpUpsertHive) {
		t.Errorf("error should carry the operation: %v", err)
	}
	if err := svc.UpsertHive(ctx, 3, "Hive 3", 10); err != nil {
		t.Fatalf("hive 3: %v", err)
	}
	if n := len(repos.Store.Hives()); n != 2 {
		t.Errorf("expected 2 committed hives, got %d", n)
	}
}

func TestAssignmentOnlyWhenNeverAssigned(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	inserted, err := svc.UpsertSensorAssignmentIfUnassigned(ctx, 900, 30522, start)
	if err != nil || !inserted {
		t.Fatalf("first assignment: inserted=%v err=%v", inserted, err)
	}
	inserted, err = svc.UpsertSensorAssignmentIfUnassigned(ctx, 900, 30523, start.Add(time.Hour))
	if err != nil || inserted {
		t.Fatalf("second assignment must be a no-op: inserted=%v err=%v", inserted, err)
	}
	list, _ := repos.Assignments.ListBySensor(ctx, 900)
	if len(list) != 1 || list[0].HiveID != 30522 || !list[0].Active() {
		t.Errorf("unexpected assignments %+v", list)
	}
}

func TestAssignmentSkippedWhenClosedHistoryExists(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	if err := repos.Assignments.Insert(ctx, nil, &models.SensorAssignment{SensorID: 7, HiveID: 1, StartTime: start, EndTime: &end}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inserted, err := svc.UpsertSensorAssignmentIfUnassigned(ctx, 7, 2, time.Now())
	if err != nil || inserted {
		t.Errorf("a closed assignment still counts as history: inserted=%v err=%v", inserted, err)
	}
}

func TestUpsertHistoryMergesAttributes(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := svc.UpsertHistory(ctx, 5, ts, map[string]any{"weight": 40.0, "tempOut": 3.0}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := svc.UpsertHistory(ctx, 5, ts, map[string]any{"weight": 41.0}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if n := repos.Store.HistoryCount(5); n != 1 {
		t.Fatalf("expected a single row, got %d", n)
	}
	rows, _ := repos.History.ListSince(ctx, 5, ts.Add(-time.Second))
	if *rows[0].Weight != 41 || rows[0].TempOut == nil || *rows[0].TempOut != 3 {
		t.Errorf("merge lost data: %+v", rows[0])
	}
}

func TestUpsertHistoryRejectsUnknownAttribute(t *testing.T) {
	svc, repos := newTestService()
	err := svc.UpsertHistory(context.Background(), 5, time.Now(), map[string]any{"sugar": 1.0})
	if !errors.Is(err, errors.ErrorTypeSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if repos.Store.HistoryCount(5) != 0 {
		t.Error("nothing may be written on schema mismatch")
	}
}

func TestUpsertHistoryBatchIsAllOrNothing(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	repos.Store.FailOn = func(op string, id int64) error {
		if op != "upsert_history" {
			return nil
		}
		calls++
		if calls == 3 {
			return fmt.Errorf("disk full")
		}
		return nil
	}

	rows := []*models.History{
		{EntityID: 9, Time: ts, Weight: models.Float(1)},
		{EntityID: 9, Time: ts.Add(time.Minute), Weight: models.Float(2)},
		{EntityID: 9, Time: ts.Add(2 * time.Minute), Weight: models.Float(3)},
	}
	if _, err := svc.UpsertHistoryBatch(ctx, rows); err == nil {
		t.Fatal("expected the batch to fail")
	}
	if n := repos.Store.HistoryCount(9); n != 0 {
		t.Fatalf("failed batch must not leave rows, found %d", n)
	}

	repos.Store.FailOn = nil
	n, err := svc.UpsertHistoryBatch(ctx, rows)
	if err != nil || n != 3 {
		t.Fatalf("retry: n=%d err=%v", n, err)
	}
	latest, err := svc.LatestHistoryTime(ctx, 9)
	if err != nil || latest == nil || !latest.Equal(ts.Add(2*time.Minute)) {
		t.Errorf("LatestHistoryTime = %v, %v", latest, err)
	}
}

func TestLatestHistoryTimeEmpty(t *testing.T) {
	svc, _ := newTestService()
	latest, err := svc.LatestHistoryTime(context.Background(), 404)
	if err != nil || latest != nil {
		t.Errorf("expected nil, nil; got %v, %v", latest, err)
	}
}
