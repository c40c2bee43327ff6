// FilePath: internal/repository/postgres/postgres.sensor.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

type SensorRepo struct {
	PostgresBaseRepo
}

func NewSensorRepository(db database.DB) *SensorRepo {
	return &SensorRepo{PostgresBaseRepo: newBaseRepo(db)}
}

// Upsert merges the sensor. A missing modules list, hive_id or raw payload on
// the incoming row keeps the stored value.
func (r *SensorRepo) Upsert(ctx context.Context, tx database.Transaction, sensor *models.Sensor) error {
	now := r.now()
	sensor.CreatedAt, sensor.UpdatedAt = now, now
	query := `
		INSERT INTO sensor (id, name, modules, hive_id, raw, created_at, updated_at)
		VALUES (:id, :name, :modules, :hive_id, :raw, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			modules = COALESCE(EXCLUDED.modules, sensor.modules),
			hive_id = COALESCE(EXCLUDED.hive_id, sensor.hive_id),
			raw = COALESCE(EXCLUDED.raw, sensor.raw),
			updated_at = EXCLUDED.updated_at`

	if _, err := r.querier(tx).NamedExecContext(ctx, query, sensor); err != nil {
		return errors.NewPersistenceError("failed to upsert sensor", err).WithEntity(sensor.ID)
	}
	return nil
}

func (r *SensorRepo) Get(ctx context.Context, id int64) (*models.Sensor, error) {
	sensor := &models.Sensor{}
	query := `SELECT * FROM sensor WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, sensor, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("sensor not found", err)
		}
		return nil, errors.NewPersistenceError("failed to get sensor", err)
	}
	return sensor, nil
}

func (r *SensorRepo) List(ctx context.Context) ([]*models.Sensor, error) {
	sensors := []*models.Sensor{}
	if err := r.db.GetDB().SelectContext(ctx, &sensors, `SELECT * FROM sensor ORDER BY id`); err != nil {
		return nil, errors.NewPersistenceError("failed to list sensors", err)
	}
	return sensors, nil
}

type AssignmentRepo struct {
	PostgresBaseRepo
}

func NewAssignmentRepository(db database.DB) *AssignmentRepo {
	return &AssignmentRepo{PostgresBaseRepo: newBaseRepo(db)}
}

// HasAny reports whether the sensor has ever had an assignment, open or closed.
func (r *AssignmentRepo) HasAny(ctx context.Context, tx database.Transaction, sensorID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sensor_assignment WHERE sensor_id = $1)`
	if err := r.querier(tx).GetContext(ctx, &exists, query, sensorID); err != nil {
		return false, errors.NewPersistenceError("failed to check sensor assignments", err).WithEntity(sensorID)
	}
	return exists, nil
}

func (r *AssignmentRepo) Insert(ctx context.Context, tx database.Transaction, a *models.SensorAssignment) error {
	query := `
		INSERT INTO sensor_assignment (sensor_id, hive_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := r.querier(tx).GetContext(ctx, &a.ID, query, a.SensorID, a.HiveID, a.StartTime, a.EndTime); err != nil {
		return errors.NewPersistenceError("failed to insert sensor assignment", err).WithEntity(a.SensorID)
	}
	return nil
}

func (r *AssignmentRepo) ListBySensor(ctx context.Context, sensorID int64) ([]*models.SensorAssignment, error) {
	assignments := []*models.SensorAssignment{}
	query := `SELECT * FROM sensor_assignment WHERE sensor_id = $1 ORDER BY start_time`
	if err := r.db.GetDB().SelectContext(ctx, &assignments, query, sensorID); err != nil {
		return nil, errors.NewPersistenceError("failed to list sensor assignments", err).WithEntity(sensorID)
	}
	return assignments, nil
}
