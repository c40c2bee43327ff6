package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	"github.com/lib/pq"
)

func setupMock(t *testing.T) (*database.PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return database.Wrap(sqlx.NewDb(mockDB, "postgres"), false), mock
}

func TestApiaryUpsertInTransaction(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewApiaryRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO apiary .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(int64(1), "Rossstall", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := database.RunInTx(ctx, repo, func(tx database.Transaction) error {
		return repo.Upsert(ctx, tx, &models.Apiary{ID: 1, Name: "Rossstall"})
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestHiveUpsertFailureRollsBack(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewHiveRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO hive`).
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})
	mock.ExpectRollback()

	err := database.RunInTx(ctx, repo, func(tx database.Transaction) error {
		return repo.Upsert(ctx, tx, &models.Hive{ID: 30522, Name: "Rossstall 001", ApiaryID: 99})
	})
	if !errors.Is(err, errors.ErrorTypePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestHiveGetNotFound(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewHiveRepository(db)

	mock.ExpectQuery(`SELECT \* FROM hive WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "apiary_id"}))

	_, err := repo.Get(context.Background(), 7)
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSensorUpsertKeepsStoredHive(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSensorRepository(db)

	mock.ExpectExec(`hive_id = COALESCE\(EXCLUDED.hive_id, sensor.hive_id\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sensor := &models.Sensor{ID: 900, Name: "Scale 900", Modules: pq.StringArray{"weight"}}
	if err := repo.Upsert(context.Background(), nil, sensor); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sensor.UpdatedAt.IsZero() {
		t.Error("updated_at must be stamped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSensorUpsertKeepsStoredModules(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSensorRepository(db)

	mock.ExpectExec(`modules = COALESCE\(EXCLUDED.modules, sensor.modules\)`).
		WithArgs(int64(900), "Scale 900", nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), nil, &models.Sensor{ID: 900, Name: "Scale 900"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAssignmentHasAnyAndInsert(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(900)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO sensor_assignment`).
		WithArgs(int64(900), int64(30522), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectCommit()

	a := &models.SensorAssignment{SensorID: 900, HiveID: 30522, StartTime: time.Now()}
	err := database.RunInTx(ctx, repo, func(tx database.Transaction) error {
		exists, err := repo.HasAny(ctx, tx, 900)
		if err != nil || exists {
			t.Fatalf("HasAny = %v, %v", exists, err)
		}
		return repo.Insert(ctx, tx, a)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if a.ID != 4 {
		t.Errorf("expected returned id 4, got %d", a.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEventListBuildsFilters(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewEventRepository(db)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM event WHERE time >= \$1 AND \$2 = ANY\(tags\) ORDER BY time DESC LIMIT \$3`).
		WithArgs(from, "swarm", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "time", "end_time", "title", "tags"}).
			AddRow(int64(1), from.Add(time.Hour), nil, "Swarm caught", "{swarm}"))

	events, err := repo.List(context.Background(), models.EventFilters{From: from, Tag: "swarm"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Swarm caught" || len(events[0].Tags) != 1 {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestEventCreateValidates(t *testing.T) {
	db, _ := setupMock(t)
	repo := NewEventRepository(db)
	now := time.Now()
	before := now.Add(-time.Hour)

	if err := repo.Create(context.Background(), &models.Event{Time: now}); !errors.IsValidation(err) {
		t.Errorf("expected validation error for empty title, got %v", err)
	}
	if err := repo.Create(context.Background(), &models.Event{Time: now, EndTime: &before, Title: "x"}); !errors.IsValidation(err) {
		t.Errorf("expected validation error for inverted range, got %v", err)
	}
}
