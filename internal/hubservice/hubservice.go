// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/repository"
)

// HubService is the read side behind the status API: stored entities,
// their history, timeline events and the outcome of recent job runs.
type HubService struct {
	Apiaries repository.ApiaryRepository
	Hives    repository.HiveRepository
	Sensors  repository.SensorRepository
	History  repository.HistoryRepository
	Events   repository.EventRepository
	Status   *StatusBoard
}

// New creates a new HubService instance
func New(
	apiaries repository.ApiaryRepository,
	hives repository.HiveRepository,
	sensors repository.SensorRepository,
	history repository.HistoryRepository,
	events repository.EventRepository,
) *HubService {
	return &HubService{
		Apiaries: apiaries,
		Hives:    hives,
		Sensors:  sensors,
		History:  history,
		Events:   events,
		Status:   NewStatusBoard(),
	}
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Apiaries == nil {
		return ErrMissingRepository("apiaries")
	}
	if s.Hives == nil {
		return ErrMissingRepository("hives")
	}
	if s.Sensors == nil {
		return ErrMissingRepository("sensors")
	}
	if s.History == nil {
		return ErrMissingRepository("history")
	}
	if s.Events == nil {
		return ErrMissingRepository("events")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
