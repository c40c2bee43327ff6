package timescale

import (
	"context"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
)

type TimeScaleBaseRepo struct {
	db database.DB
}

func (r *TimeScaleBaseRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to begin transaction", err)
	}
	return tx, nil
}

func (r *TimeScaleBaseRepo) Ping(ctx context.Context) error {
	if err := r.db.GetDB().PingContext(ctx); err != nil {
		return errors.NewPersistenceError("failed to ping database", err)
	}
	return nil
}

func (r *TimeScaleBaseRepo) querier(tx database.Transaction) database.Querier {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}
