// FilePath: internal/repository/timescale/timescale.history.go
package timescale

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const defaultRangeLimit = 1000

var (
	historyTableSQL  = buildHistoryTableSQL()
	historyUpsertSQL = buildHistoryUpsertSQL()
)

// HistoryRepo stores readings in the history table, promoted to a
// hypertable when TimescaleDB is available.
type HistoryRepo struct {
	TimeScaleBaseRepo
	now func() time.Time
}

// NewHistoryRepository creates the repository and makes sure the table exists.
func NewHistoryRepository(ctx context.Context, db database.DB) (*HistoryRepo, error) {
	repo := NewHistoryRepositoryWithoutSchema(db)
	if err := repo.initializeSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// NewHistoryRepositoryWithoutSchema skips the DDL, for callers that only read.
func NewHistoryRepositoryWithoutSchema(db database.DB) *HistoryRepo {
	return &HistoryRepo{
		TimeScaleBaseRepo: TimeScaleBaseRepo{db: db},
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func buildHistoryTableSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS history (\n")
	b.WriteString("\t\tentity_id BIGINT NOT NULL,\n")
	b.WriteString("\t\ttime TIMESTAMPTZ NOT NULL,\n")
	for _, col := range models.AttributeColumns() {
		fmt.Fprintf(&b, "\t\t%s DOUBLE PRECISION,\n", col)
	}
	b.WriteString("\t\tcreated_at TIMESTAMPTZ NOT NULL DEFAULT now(),\n")
	b.WriteString("\t\tupdated_at TIMESTAMPTZ NOT NULL DEFAULT now(),\n")
	b.WriteString("\t\tPRIMARY KEY (entity_id, time)\n\t)")
	return b.String()
}

// buildHistoryUpsertSQL merges by (entity_id, time): provided attributes
// overwrite, null attributes keep what is stored.
func buildHistoryUpsertSQL() string {
	cols := models.AttributeColumns()
	names := make([]string, 0, len(cols)+4)
	binds := make([]string, 0, len(cols)+4)
	sets := make([]string, 0, len(cols)+1)

	names = append(names, "entity_id", "time")
	binds = append(binds, ":entity_id", ":time")
	for _, c := range cols {
		names = append(names, c)
		binds = append(binds, ":"+c)
		sets = append(sets, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, history.%s)", c, c, c))
	}
	names = append(names, "created_at", "updated_at")
	binds = append(binds, ":created_at", ":updated_at")
	sets = append(sets, "updated_at = EXCLUDED.updated_at")

	return fmt.Sprintf(
		"INSERT INTO history (%s)\n\tVALUES (%s)\n\tON CONFLICT (entity_id, time) DO UPDATE SET\n\t\t%s",
		strings.Join(names, ", "), strings.Join(binds, ", "), strings.Join(sets, ",\n\t\t"),
	)
}

func (r *HistoryRepo) initializeSchema(ctx context.Context) error {
	queries := []string{
		historyTableSQL,
		`CREATE INDEX IF NOT EXISTS history_entity_time_idx ON history (entity_id, time DESC)`,
	}
	for _, query := range queries {
		if _, err := r.db.GetDB().ExecContext(ctx, query); err != nil {
			return errors.NewPersistenceError("failed to initialize history schema", err)
		}
	}

	if r.db.HasTimescale() {
		query := `SELECT create_hypertable('history', 'time',
			chunk_time_interval => INTERVAL '7 days',
			if_not_exists => TRUE,
			migrate_data => TRUE
		)`
		if _, err := r.db.GetDB().ExecContext(ctx, query); err != nil {
			nuts.L.Errorf("[TimescaleDB] Failed to create history hypertable: %v", err)
		} else {
			nuts.L.Infof("[TimescaleDB] history is a hypertable")
		}
	}
	return nil
}

// Upsert merges one row. Pass a transaction to group rows; nil uses the pool.
func (r *HistoryRepo) Upsert(ctx context.Context, tx database.Transaction, row *models.History) error {
	now := r.now()
	row.CreatedAt, row.UpdatedAt = now, now
	if _, err := r.querier(tx).NamedExecContext(ctx, historyUpsertSQL, row); err != nil {
		return errors.NewPersistenceError(fmt.Sprintf("failed to upsert history at %s", row.Time.Format(time.RFC3339)), err).WithEntity(row.EntityID)
	}
	return nil
}

// LatestTime returns the newest stored timestamp of an entity, nil if none.
func (r *HistoryRepo) LatestTime(ctx context.Context, entityID int64) (*time.Time, error) {
	var latest time.Time
	query := `SELECT time FROM history WHERE entity_id = $1 ORDER BY time DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, &latest, query, entityID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.NewPersistenceError("failed to get latest history time", err).WithEntity(entityID)
	}
	latest = latest.UTC()
	return &latest, nil
}

// ListSince returns rows strictly newer than since, oldest first.
func (r *HistoryRepo) ListSince(ctx context.Context, entityID int64, since time.Time) ([]*models.History, error) {
	rows := []*models.History{}
	query := `SELECT * FROM history WHERE entity_id = $1 AND time > $2 ORDER BY time ASC`

	if err := r.db.GetDB().SelectContext(ctx, &rows, query, entityID, since); err != nil {
		return nil, errors.NewPersistenceError("failed to list history", err).WithEntity(entityID)
	}
	return rows, nil
}

// ListRange returns rows within the optional bounds, newest first.
func (r *HistoryRepo) ListRange(ctx context.Context, entityID int64, filters models.HistoryFilters) ([]*models.History, error) {
	args := []interface{}{entityID}
	where := []string{"entity_id = $1"}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		where = append(where, fmt.Sprintf("time >= $%d", len(args)))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		where = append(where, fmt.Sprintf("time <= $%d", len(args)))
	}
	limit := filters.Limit
	if limit <= 0 || limit > defaultRangeLimit {
		limit = defaultRangeLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf("SELECT * FROM history WHERE %s ORDER BY time DESC LIMIT $%d",
		strings.Join(where, " AND "), len(args))

	rows := []*models.History{}
	if err := r.db.GetDB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.NewPersistenceError("failed to list history", err).WithEntity(entityID)
	}
	return rows, nil
}
