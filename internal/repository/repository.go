// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/models"
)

// ApiaryRepository defines the interface for apiary rows. Writes take the
// caller's transaction so every upsert can be isolated.
type ApiaryRepository interface {
	database.Repository
	Upsert(ctx context.Context, tx database.Transaction, apiary *models.Apiary) error
	Get(ctx context.Context, id int64) (*models.Apiary, error)
	List(ctx context.Context) ([]*models.Apiary, error)
}

// HiveRepository defines the interface for hive rows
type HiveRepository interface {
	database.Repository
	Upsert(ctx context.Context, tx database.Transaction, hive *models.Hive) error
	Get(ctx context.Context, id int64) (*models.Hive, error)
	List(ctx context.Context) ([]*models.Hive, error)
}

// SensorRepository defines the interface for sensor rows
type SensorRepository interface {
	database.Repository
	Upsert(ctx context.Context, tx database.Transaction, sensor *models.Sensor) error
	Get(ctx context.Context, id int64) (*models.Sensor, error)
	List(ctx context.Context) ([]*models.Sensor, error)
}

// AssignmentRepository defines the interface for sensor-to-hive assignments
type AssignmentRepository interface {
	database.Repository
	HasAny(ctx context.Context, tx database.Transaction, sensorID int64) (bool, error)
	Insert(ctx context.Context, tx database.Transaction, assignment *models.SensorAssignment) error
	ListBySensor(ctx context.Context, sensorID int64) ([]*models.SensorAssignment, error)
}

// HistoryRepository defines the interface for time-series readings
type HistoryRepository interface {
	database.Repository
	Upsert(ctx context.Context, tx database.Transaction, row *models.History) error
	LatestTime(ctx context.Context, entityID int64) (*time.Time, error)
	ListSince(ctx context.Context, entityID int64, since time.Time) ([]*models.History, error)
	ListRange(ctx context.Context, entityID int64, filters models.HistoryFilters) ([]*models.History, error)
}

// EventRepository defines the interface for timeline annotations
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	List(ctx context.Context, filters models.EventFilters) ([]*models.Event, error)
}
