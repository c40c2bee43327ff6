// FilePath: internal/repository/postgres/postgres.event.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

const defaultEventLimit = 100

type EventRepo struct {
	PostgresBaseRepo
}

func NewEventRepository(db database.DB) *EventRepo {
	return &EventRepo{PostgresBaseRepo: newBaseRepo(db)}
}

func (r *EventRepo) Create(ctx context.Context, event *models.Event) error {
	if strings.TrimSpace(event.Title) == "" {
		return errors.NewValidationError("event title is required", nil)
	}
	if event.EndTime != nil && !event.EndTime.After(event.Time) {
		return errors.NewValidationError("event end must be after its start", nil)
	}
	query := `
		INSERT INTO event (time, end_time, title, tags)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.GetDB().GetContext(ctx, &event.ID, query, event.Time, event.EndTime, event.Title, event.Tags)
	if err != nil {
		return errors.NewPersistenceError("failed to create event", err)
	}
	return nil
}

// List returns events newest first, narrowed by the optional filters.
func (r *EventRepo) List(ctx context.Context, filters models.EventFilters) ([]*models.Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		where = append(where, fmt.Sprintf("time >= $%d", len(args)))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		where = append(where, fmt.Sprintf("time <= $%d", len(args)))
	}
	if filters.Tag != "" {
		args = append(args, filters.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	args = append(args, limit)

	query := `SELECT * FROM event`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY time DESC LIMIT $%d", len(args))

	events := []*models.Event{}
	if err := r.db.GetDB().SelectContext(ctx, &events, query, args...); err != nil {
		return nil, errors.NewPersistenceError("failed to list events", err)
	}
	return events, nil
}
