// FilePath: internal/repository/postgres/postgres.hive.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

type ApiaryRepo struct {
	PostgresBaseRepo
}

func NewApiaryRepository(db database.DB) *ApiaryRepo {
	return &ApiaryRepo{PostgresBaseRepo: newBaseRepo(db)}
}

// Upsert inserts the apiary or renames the existing row with the same id.
func (r *ApiaryRepo) Upsert(ctx context.Context, tx database.Transaction, apiary *models.Apiary) error {
	now := r.now()
	apiary.CreatedAt, apiary.UpdatedAt = now, now
	query := `
		INSERT INTO apiary (id, name, created_at, updated_at)
		VALUES (:id, :name, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.querier(tx).NamedExecContext(ctx, query, apiary); err != nil {
		return errors.NewPersistenceError("failed to upsert apiary", err).WithEntity(apiary.ID)
	}
	return nil
}

func (r *ApiaryRepo) Get(ctx context.Context, id int64) (*models.Apiary, error) {
	apiary := &models.Apiary{}
	query := `SELECT * FROM apiary WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, apiary, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("apiary not found", err)
		}
		return nil, errors.NewPersistenceError("failed to get apiary", err)
	}
	return apiary, nil
}

func (r *ApiaryRepo) List(ctx context.Context) ([]*models.Apiary, error) {
	apiaries := []*models.Apiary{}
	if err := r.db.GetDB().SelectContext(ctx, &apiaries, `SELECT * FROM apiary ORDER BY id`); err != nil {
		return nil, errors.NewPersistenceError("failed to list apiaries", err)
	}
	return apiaries, nil
}

type HiveRepo struct {
	PostgresBaseRepo
}

func NewHiveRepository(db database.DB) *HiveRepo {
	return &HiveRepo{PostgresBaseRepo: newBaseRepo(db)}
}

// Upsert inserts the hive or updates name and apiary of the existing row.
func (r *HiveRepo) Upsert(ctx context.Context, tx database.Transaction, hive *models.Hive) error {
	now := r.now()
	hive.CreatedAt, hive.UpdatedAt = now, now
	query := `
		INSERT INTO hive (id, name, apiary_id, created_at, updated_at)
		VALUES (:id, :name, :apiary_id, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			apiary_id = EXCLUDED.apiary_id,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.querier(tx).NamedExecContext(ctx, query, hive); err != nil {
		return errors.NewPersistenceError("failed to upsert hive", err).WithEntity(hive.ID)
	}
	return nil
}

func (r *HiveRepo) Get(ctx context.Context, id int64) (*models.Hive, error) {
	hive := &models.Hive{}
	query := `SELECT * FROM hive WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, hive, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("hive not found", err)
		}
		return nil, errors.NewPersistenceError("failed to get hive", err)
	}
	return hive, nil
}

func (r *HiveRepo) List(ctx context.Context) ([]*models.Hive, error) {
	hives := []*models.Hive{}
	if err := r.db.GetDB().SelectContext(ctx, &hives, `SELECT * FROM hive ORDER BY id`); err != nil {
		return nil, errors.NewPersistenceError("failed to list hives", err)
	}
	return hives, nil
}
