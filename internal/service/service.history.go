// FilePath: internal/service/service.history.go
package service

import (
	"context"
	"time"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// UpsertHistory merges one reading keyed by (entityID, t). Unknown attribute
// names fail with a schema mismatch before anything is written.
func (s *Service) UpsertHistory(ctx context.Context, entityID int64, t time.Time, attributes map[string]any) error {
	row, err := models.NewHistory(entityID, t, attributes)
	if err != nil {
		return errors.Annotate(err, OpUpsertHistoryRow, entityID)
	}
	err = database.RunInTx(ctx, s.history, func(tx database.Transaction) error {
		return s.history.Upsert(ctx, tx, row)
	})
	if err != nil {
		nuts.L.Errorf("[UpsertService] history %d@%s rolled back: %v", entityID, row.Time.Format(time.RFC3339), err)
		return errors.Annotate(err, OpUpsertHistoryRow, entityID)
	}
	return nil
}

// UpsertHistoryBatch merges rows in a single transaction and commits once.
// Any failing row rolls back the whole batch.
func (s *Service) UpsertHistoryBatch(ctx context.Context, rows []*models.History) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := database.RunInTx(ctx, s.history, func(tx database.Transaction) error {
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return errors.NewPersistenceError("batch interrupted", err)
			}
			if err := s.history.Upsert(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		nuts.L.Errorf("[UpsertService] history batch of %d rows for entity %d rolled back: %v", len(rows), rows[0].EntityID, err)
		return 0, errors.Annotate(err, OpUpsertHistory, rows[0].EntityID)
	}
	return len(rows), nil
}

// LatestHistoryTime returns the newest stored reading time, nil when the
// entity has no history.
func (s *Service) LatestHistoryTime(ctx context.Context, entityID int64) (*time.Time, error) {
	latest, err := s.history.LatestTime(ctx, entityID)
	if err != nil {
		return nil, errors.Annotate(err, OpLatestHistory, entityID)
	}
	return latest, nil
}

// HistorySince returns stored rows newer than since, oldest first.
func (s *Service) HistorySince(ctx context.Context, entityID int64, since time.Time) ([]*models.History, error) {
	rows, err := s.history.ListSince(ctx, entityID, since)
	if err != nil {
		return nil, errors.Annotate(err, OpHistorySince, entityID)
	}
	return rows, nil
}
