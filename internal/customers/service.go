package customers

import (
	"context"
	"fmt"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, fmt.Errorf("%w: invalid customer id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	if err := validate(customer); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, id int64, customer Customer) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid customer id", shared.ErrValidation)
	}
	if err := validate(customer); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, customer)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid customer id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func validate(c Customer) error {
	if c.Name == "" {
		return fmt.Errorf("%w: customer name required", shared.ErrValidation)
	}
	if c.CreditBalance.IsNegative() {
		return fmt.Errorf("%w: credit balance cannot be negative", shared.ErrValidation)
	}
	return nil
}
