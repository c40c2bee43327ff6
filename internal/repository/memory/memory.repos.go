// FilePath: internal/repository/memory/memory.repos.go
package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

type ApiaryRepo struct{ *Store }

func (r ApiaryRepo) Upsert(ctx context.Context, tx database.Transaction, a *models.Apiary) error {
	if err := r.fail("upsert_apiary", a.ID); err != nil {
		return err
	}
	row := *a
	row.UpdatedAt = now()
	return r.apply(tx, func() {
		if prev, ok := r.apiaries[row.ID]; ok {
			row.CreatedAt = prev.CreatedAt
		} else {
			row.CreatedAt = row.UpdatedAt
		}
		r.apiaries[row.ID] = row
	})
}

func (r ApiaryRepo) Get(ctx context.Context, id int64) (*models.Apiary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apiaries[id]
	if !ok {
		return nil, errors.NewNotFoundError("apiary not found", nil)
	}
	return &a, nil
}

func (r ApiaryRepo) List(ctx context.Context) ([]*models.Apiary, error) {
	snapshot := r.Apiaries()
	out := make([]*models.Apiary, len(snapshot))
	for i := range snapshot {
		out[i] = &snapshot[i]
	}
	return out, nil
}

type HiveRepo struct{ *Store }

func (r HiveRepo) Upsert(ctx context.Context, tx database.Transaction, h *models.Hive) error {
	if err := r.fail("upsert_hive", h.ID); err != nil {
		return err
	}
	row := *h
	row.UpdatedAt = now()
	return r.apply(tx, func() {
		if prev, ok := r.hives[row.ID]; ok {
			row.CreatedAt = prev.CreatedAt
		} else {
			row.CreatedAt = row.UpdatedAt
		}
		r.hives[row.ID] = row
	})
}

func (r HiveRepo) Get(ctx context.Context, id int64) (*models.Hive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hives[id]
	if !ok {
		return nil, errors.NewNotFoundError("hive not found", nil)
	}
	return &h, nil
}

func (r HiveRepo) List(ctx context.Context) ([]*models.Hive, error) {
	snapshot := r.Hives()
	out := make([]*models.Hive, len(snapshot))
	for i := range snapshot {
		out[i] = &snapshot[i]
	}
	return out, nil
}

type SensorRepo struct{ *Store }

func (r SensorRepo) Upsert(ctx context.Context, tx database.Transaction, s *models.Sensor) error {
	if err := r.fail("upsert_sensor", s.ID); err != nil {
		return err
	}
	row := *s
	row.UpdatedAt = now()
	return r.apply(tx, func() {
		if prev, ok := r.sensors[row.ID]; ok {
			row.CreatedAt = prev.CreatedAt
			if row.Modules == nil {
				row.Modules = prev.Modules
			}
			if row.HiveID == nil {
				row.HiveID = prev.HiveID
			}
			if row.Raw == nil {
				row.Raw = prev.Raw
			}
		} else {
			row.CreatedAt = row.UpdatedAt
		}
		r.sensors[row.ID] = row
	})
}

func (r SensorRepo) Get(ctx context.Context, id int64) (*models.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sensors[id]
	if !ok {
		return nil, errors.NewNotFoundError("sensor not found", nil)
	}
	return &s, nil
}

func (r SensorRepo) List(ctx context.Context) ([]*models.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Sensor, 0, len(r.sensors))
	for _, s := range r.sensors {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type AssignmentRepo struct{ *Store }

func (r AssignmentRepo) HasAny(ctx context.Context, tx database.Transaction, sensorID int64) (bool, error) {
	if mtx, ok := tx.(*Tx); ok {
		for _, a := range mtx.staged {
			if a.SensorID == sensorID {
				return true, nil
			}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.SensorID == sensorID {
			return true, nil
		}
	}
	return false, nil
}

func (r AssignmentRepo) Insert(ctx context.Context, tx database.Transaction, a *models.SensorAssignment) error {
	if err := r.fail("insert_assignment", a.SensorID); err != nil {
		return err
	}
	r.mu.Lock()
	if a.EndTime == nil {
		for _, existing := range r.assignments {
			if existing.SensorID == a.SensorID && existing.EndTime == nil {
				r.mu.Unlock()
				return errors.NewPersistenceError("sensor already has an active assignment", nil).WithEntity(a.SensorID)
			}
		}
	}
	r.nextID++
	a.ID = r.nextID
	r.mu.Unlock()

	row := *a
	if mtx, ok := tx.(*Tx); ok {
		mtx.staged = append(mtx.staged, row)
	}
	return r.apply(tx, func() {
		r.assignments = append(r.assignments, row)
	})
}

func (r AssignmentRepo) ListBySensor(ctx context.Context, sensorID int64) ([]*models.SensorAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.SensorAssignment{}
	for _, a := range r.assignments {
		if a.SensorID == sensorID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

type HistoryRepo struct{ *Store }

func (r HistoryRepo) Upsert(ctx context.Context, tx database.Transaction, row *models.History) error {
	if err := r.fail("upsert_history", row.EntityID); err != nil {
		return err
	}
	stamped := *row
	stamped.Time = row.Time.UTC()
	stamped.CreatedAt, stamped.UpdatedAt = now(), now()
	return r.apply(tx, func() { r.mergeHistory(&stamped) })
}

func (r HistoryRepo) LatestTime(ctx context.Context, entityID int64) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for k, h := range r.history {
		if k.entityID != entityID {
			continue
		}
		if latest == nil || h.Time.After(*latest) {
			t := h.Time
			latest = &t
		}
	}
	return latest, nil
}

func (r HistoryRepo) ListSince(ctx context.Context, entityID int64, since time.Time) ([]*models.History, error) {
	rows := r.filter(entityID, func(h *models.History) bool { return h.Time.After(since) })
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	return rows, nil
}

func (r HistoryRepo) ListRange(ctx context.Context, entityID int64, filters models.HistoryFilters) ([]*models.History, error) {
	rows := r.filter(entityID, func(h *models.History) bool {
		if !filters.From.IsZero() && h.Time.Before(filters.From) {
			return false
		}
		if !filters.To.IsZero() && h.Time.After(filters.To) {
			return false
		}
		return true
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time.After(rows[j].Time) })
	if filters.Limit > 0 && len(rows) > filters.Limit {
		rows = rows[:filters.Limit]
	}
	return rows, nil
}

func (r HistoryRepo) filter(entityID int64, keep func(*models.History) bool) []*models.History {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.History{}
	for k, h := range r.history {
		if k.entityID != entityID {
			continue
		}
		h := h
		if keep(&h) {
			out = append(out, &h)
		}
	}
	return out
}

type EventRepo struct{ *Store }

func (r EventRepo) Create(ctx context.Context, e *models.Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.NewValidationError("event title is required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	r.events = append(r.events, *e)
	return nil
}

func (r EventRepo) List(ctx context.Context, filters models.EventFilters) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Event{}
	for _, e := range r.events {
		if !filters.From.IsZero() && e.Time.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && e.Time.After(filters.To) {
			continue
		}
		if filters.Tag != "" && !containsTag(e.Tags, filters.Tag) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Repositories bundles one of each repository over a shared store.
type Repositories struct {
	Store       *Store
	Apiaries    ApiaryRepo
	Hives       HiveRepo
	Sensors     SensorRepo
	Assignments AssignmentRepo
	History     HistoryRepo
	Events      EventRepo
}

func NewRepositories() *Repositories {
	s := NewStore()
	return &Repositories{
		Store:       s,
		Apiaries:    ApiaryRepo{s},
		Hives:       HiveRepo{s},
		Sensors:     SensorRepo{s},
		Assignments: AssignmentRepo{s},
		History:     HistoryRepo{s},
		Events:      EventRepo{s},
	}
}
