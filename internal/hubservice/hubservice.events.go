// FilePath: internal/hubservice/hubservice.events.go
package hubservice

import (
	"context"
	"strings"
	"time"

	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// CreateEvent records a timeline annotation. A zero time means now.
func (s *HubService) CreateEvent(ctx context.Context, event *models.Event) error {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return errors.NewValidationError("event title is required", nil)
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.EndTime != nil && !event.EndTime.After(event.Time) {
		return errors.NewValidationError("event end must be after its start", nil)
	}
	for i, tag := range event.Tags {
		event.Tags[i] = strings.ToLower(strings.TrimSpace(tag))
	}

	if err := s.Events.Create(ctx, event); err != nil {
		nuts.L.Errorf("[EventService] Failed to create event %q: %v", event.Title, err)
		return err
	}
	nuts.L.Infof("[EventService] Created event %d %q at %s", event.ID, event.Title, event.Time.Format(time.RFC3339))
	return nil
}

// ListEvents returns events newest first.
func (s *HubService) ListEvents(ctx context.Context, filters models.EventFilters) ([]*models.Event, error) {
	if filters.Limit <= 0 || filters.Limit > 500 {
		filters.Limit = 100
	}
	filters.Tag = strings.ToLower(strings.TrimSpace(filters.Tag))
	return s.Events.List(ctx, filters)
}
