package service

import (
	"context"

	"ims_backend/internal/targets/repository"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	minYear = 2000
	maxYear = 2100
)

// Repository is the target persistence used by the service.
type Repository interface {
	Create(ctx context.Context, t repository.Target) (repository.Target, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Target, error)
	List(ctx context.Context, year *int) ([]repository.Target, error)
	Update(ctx context.Context, id uuid.UUID, u repository.TargetUpdate) (repository.Target, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo Repository
	log  *logger.Logger
}

func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Create(ctx context.Context, month, year int, amount decimal.Decimal) (repository.Target, error) {
	if err := validatePeriod(month, year); err != nil {
		return repository.Target{}, err
	}
	if amount.IsNegative() {
		return repository.Target{}, apperr.Validation("amount must not be negative")
	}

	t, err := s.repo.Create(ctx, repository.Target{Month: month, Year: year, Amount: amount.Round(2)})
	if err != nil {
		return repository.Target{}, err
	}
	s.log.Info("target created", "targetId", t.ID, "month", month, "year", year)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Target, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, year *int) ([]repository.Target, error) {
	return s.repo.List(ctx, year)
}

// Update changes amount or period. Moving the period needs both month and
// year so the uniqueness check sees the final period.
func (s *Service) Update(ctx context.Context, id uuid.UUID, u repository.TargetUpdate) (repository.Target, error) {
	if (u.Month == nil) != (u.Year == nil) {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return repository.Target{}, err
		}
		if u.Month == nil {
			u.Month = &current.Month
		}
		if u.Year == nil {
			u.Year = &current.Year
		}
	}
	if u.Month != nil {
		if err := validatePeriod(*u.Month, *u.Year); err != nil {
			return repository.Target{}, err
		}
	}
	if u.Amount != nil {
		if u.Amount.IsNegative() {
			return repository.Target{}, apperr.Validation("amount must not be negative")
		}
		rounded := u.Amount.Round(2)
		u.Amount = &rounded
	}
	return s.repo.Update(ctx, id, u)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return apperr.Validation("month must be between 1 and 12")
	}
	if year < minYear || year > maxYear {
		return apperr.Validation("year is out of range")
	}
	return nil
}
