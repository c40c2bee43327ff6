// FilePath: internal/service/service.dimensions.go
package service

import (
	"context"
	"time"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const (
	OpUpsertApiary     = "upsert_apiary"
	OpUpsertHive       = "upsert_hive"
	OpUpsertSensor     = "upsert_sensor"
	OpAssignSensor     = "assign_sensor"
	OpUpsertHistory    = "upsert_history"
	OpLatestHistory    = "latest_history"
	OpHistorySince     = "history_since"
	OpUpsertHistoryRow = "upsert_history_row"
)

// UpsertApiary inserts or renames an apiary in its own transaction.
func (s *Service) UpsertApiary(ctx context.Context, id int64, name string) error {
	err := database.RunInTx(ctx, s.apiaries, func(tx database.Transaction) error {
		return s.apiaries.Upsert(ctx, tx, &models.Apiary{ID: id, Name: name})
	})
	if err != nil {
		nuts.L.Errorf("[UpsertService] apiary %d (%s) rolled back: %v", id, name, err)
		return errors.Annotate(err, OpUpsertApiary, id)
	}
	return nil
}

// UpsertHive inserts or updates a hive in its own transaction.
func (s *Service) UpsertHive(ctx context.Context, id int64, name string, apiaryID int64) error {
	err := database.RunInTx(ctx, s.hives, func(tx database.Transaction) error {
		return s.hives.Upsert(ctx, tx, &models.Hive{ID: id, Name: name, ApiaryID: apiaryID})
	})
	if err != nil {
		nuts.L.Errorf("[UpsertService] hive %d (%s) rolled back: %v", id, name, err)
		return errors.Annotate(err, OpUpsertHive, id)
	}
	return nil
}

// UpsertSensor merges a sensor in its own transaction.
func (s *Service) UpsertSensor(ctx context.Context, sensor *models.Sensor) error {
	err := database.RunInTx(ctx, s.sensors, func(tx database.Transaction) error {
		return s.sensors.Upsert(ctx, tx, sensor)
	})
	if err != nil {
		nuts.L.Errorf("[UpsertService] sensor %d (%s) rolled back: %v", sensor.ID, sensor.Name, err)
		return errors.Annotate(err, OpUpsertSensor, sensor.ID)
	}
	return nil
}

// UpsertSensorAssignmentIfUnassigned inserts an open assignment only when the
// sensor has never had one, so manual edits to the assignment history
// survive reruns. It reports whether a row was inserted.
func (s *Service) UpsertSensorAssignmentIfUnassigned(ctx context.Context, sensorID, hiveID int64, start time.Time) (bool, error) {
	inserted := false
	err := database.RunInTx(ctx, s.assignments, func(tx database.Transaction) error {
		exists, err := s.assignments.HasAny(ctx, tx, sensorID)
		if err != nil || exists {
			return err
		}
		a := &models.SensorAssignment{SensorID: sensorID, HiveID: hiveID, StartTime: start.UTC()}
		if err := s.assignments.Insert(ctx, tx, a); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		nuts.L.Errorf("[UpsertService] assignment of sensor %d to hive %d rolled back: %v", sensorID, hiveID, err)
		return false, errors.Annotate(err, OpAssignSensor, sensorID)
	}
	if inserted {
		nuts.L.Infof("[UpsertService] sensor %d assigned to hive %d from %s", sensorID, hiveID, start.UTC().Format(time.RFC3339))
	}
	return inserted, nil
}
