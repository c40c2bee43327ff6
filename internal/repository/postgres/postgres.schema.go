// FilePath: internal/repository/postgres/postgres.schema.go
package postgres

import (
	"context"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

var dimensionSchema = []string{
	`CREATE TABLE IF NOT EXISTS apiary (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS hive (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		apiary_id BIGINT NOT NULL REFERENCES apiary(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sensor (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		modules TEXT[],
		hive_id BIGINT REFERENCES hive(id),
		raw JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_assignment (
		id BIGSERIAL PRIMARY KEY,
		sensor_id BIGINT NOT NULL REFERENCES sensor(id),
		hive_id BIGINT NOT NULL REFERENCES hive(id),
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		CHECK (end_time IS NULL OR end_time > start_time)
	)`,
	// At most one open assignment per sensor.
	`CREATE UNIQUE INDEX IF NOT EXISTS sensor_assignment_active_idx
		ON sensor_assignment (sensor_id) WHERE end_time IS NULL`,
	`CREATE TABLE IF NOT EXISTS event (
		id BIGSERIAL PRIMARY KEY,
		time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		title TEXT NOT NULL,
		tags TEXT[]
	)`,
	`CREATE INDEX IF NOT EXISTS event_time_idx ON event (time DESC)`,
}

// InitializeSchema creates the dimension and event tables when missing.
func InitializeSchema(ctx context.Context, db database.DB) error {
	for _, query := range dimensionSchema {
		if _, err := db.GetDB().ExecContext(ctx, query); err != nil {
			return errors.NewPersistenceError("failed to initialize schema", err)
		}
	}
	nuts.L.Infof("[PostgresSchema] dimension tables ready")
	return nil
}
