// FilePath: internal/hubservice/hubservice.entities.go
package hubservice

import (
	"context"
	"fmt"

	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// Entity is a stored hive or sensor as listed by the API.
type Entity struct {
	ID       int64    `json:"id"`
	Kind     string   `json:"kind"`
	Name     string   `json:"name"`
	ApiaryID int64    `json:"apiary_id,omitempty"`
	HiveID   *int64   `json:"hive_id,omitempty"`
	Modules  []string `json:"modules,omitempty"`
}

// Overview lists apiaries and every stored entity.
type Overview struct {
	Apiaries []*models.Apiary `json:"apiaries"`
	Entities []Entity         `json:"entities"`
}

// ListEntities returns the stored apiaries, hives and sensors.
func (s *HubService) ListEntities(ctx context.Context) (*Overview, error) {
	apiaries, err := s.Apiaries.List(ctx)
	if err != nil {
		return nil, err
	}
	hives, err := s.Hives.List(ctx)
	if err != nil {
		return nil, err
	}
	sensors, err := s.Sensors.List(ctx)
	if err != nil {
		return nil, err
	}

	out := &Overview{Apiaries: apiaries, Entities: make([]Entity, 0, len(hives)+len(sensors))}
	for _, h := range hives {
		out.Entities = append(out.Entities, Entity{ID: h.ID, Kind: "hive", Name: h.Name, ApiaryID: h.ApiaryID})
	}
	for _, sn := range sensors {
		out.Entities = append(out.Entities, Entity{ID: sn.ID, Kind: "sensor", Name: sn.Name, HiveID: sn.HiveID, Modules: sn.Modules})
	}
	return out, nil
}

// GetEntityHistory returns readings of a hive or sensor, newest first.
// Limit defaults to DefaultHistoryLimit and may not exceed MaxHistoryLimit.
func (s *HubService) GetEntityHistory(ctx context.Context, id int64, filters models.HistoryFilters) ([]*models.History, error) {
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return nil, errors.NewValidationError("'to' must not be before 'from'", nil)
	}
	switch {
	case filters.Limit < 0 || filters.Limit > MaxHistoryLimit:
		return nil, errors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxHistoryLimit), nil)
	case filters.Limit == 0:
		filters.Limit = DefaultHistoryLimit
	}

	if err := s.ensureEntity(ctx, id); err != nil {
		return nil, err
	}
	return s.History.ListRange(ctx, id, filters)
}

func (s *HubService) ensureEntity(ctx context.Context, id int64) error {
	if _, err := s.Hives.Get(ctx, id); err == nil {
		return nil
	} else if !errors.IsNotFound(err) {
		return err
	}
	if _, err := s.Sensors.Get(ctx, id); err != nil {
		if errors.IsNotFound(err) {
			return errors.NewNotFoundError(fmt.Sprintf("entity %d not found", id), nil).WithEntity(id)
		}
		return err
	}
	return nil
}
