// FilePath: internal/service/service.go
package service

import (
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/repository"
)

// Service merges configuration-derived dimension rows and fetched history
// rows into the store. Every write group runs in its own transaction.
type Service struct {
	apiaries    repository.ApiaryRepository
	hives       repository.HiveRepository
	sensors     repository.SensorRepository
	assignments repository.AssignmentRepository
	history     repository.HistoryRepository
}

// New creates a new service instance
func New(
	apiaries repository.ApiaryRepository,
	hives repository.HiveRepository,
	sensors repository.SensorRepository,
	assignments repository.AssignmentRepository,
	history repository.HistoryRepository,
) *Service {
	return &Service{
		apiaries:    apiaries,
		hives:       hives,
		sensors:     sensors,
		assignments: assignments,
		history:     history,
	}
}

// Validate checks if all required repositories are initialized
func (s *Service) Validate() error {
	if s.apiaries == nil {
		return ErrMissingRepository("apiaries")
	}
	if s.hives == nil {
		return ErrMissingRepository("hives")
	}
	if s.sensors == nil {
		return ErrMissingRepository("sensors")
	}
	if s.assignments == nil {
		return ErrMissingRepository("assignments")
	}
	if s.history == nil {
		return ErrMissingRepository("history")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
