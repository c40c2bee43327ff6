package postgres

import (
	"context"
	"time"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
)

type PostgresBaseRepo struct {
	db  database.DB
	now func() time.Time
}

func newBaseRepo(db database.DB) PostgresBaseRepo {
	return PostgresBaseRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostgresBaseRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to begin transaction", err)
	}
	return tx, nil
}

func (r *PostgresBaseRepo) Ping(ctx context.Context) error {
	if err := r.db.GetDB().PingContext(ctx); err != nil {
		return errors.NewPersistenceError("failed to ping database", err)
	}
	return nil
}

// querier returns tx when given, the pool otherwise.
func (r *PostgresBaseRepo) querier(tx database.Transaction) database.Querier {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}
