package quotes

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type QuoteInput struct {
	CustomerID *int64           `json:"customer_id" validate:"omitempty,gt=0"`
	Notes      string           `json:"notes" validate:"max=500"`
	Items      []QuoteItemInput `json:"items" validate:"required,min=1,dive"`
}

type QuoteItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Quote, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (Quote, error) {
	if id <= 0 {
		return Quote{}, fmt.Errorf("%w: invalid quote id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, input QuoteInput) (Quote, error) {
	quote, err := s.build(ctx, input)
	if err != nil {
		return Quote{}, err
	}
	id, err := s.repo.Create(ctx, quote)
	if err != nil {
		return Quote{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, input QuoteInput) (Quote, error) {
	if id <= 0 {
		return Quote{}, fmt.Errorf("%w: invalid quote id", shared.ErrValidation)
	}
	quote, err := s.build(ctx, input)
	if err != nil {
		return Quote{}, err
	}
	if err := s.repo.Replace(ctx, id, quote); err != nil {
		return Quote{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid quote id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) build(ctx context.Context, input QuoteInput) (Quote, error) {
	ids := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		if item.UnitPrice.IsNegative() {
			return Quote{}, fmt.Errorf("%w: unit price cannot be negative", shared.ErrValidation)
		}
		ids = append(ids, item.ProductID)
	}

	missing, err := s.repo.MissingProducts(ctx, ids)
	if err != nil {
		return Quote{}, err
	}
	if len(missing) > 0 {
		return Quote{}, fmt.Errorf("%w: unknown products %v", shared.ErrValidation, missing)
	}

	quote := Quote{CustomerID: input.CustomerID, Notes: input.Notes}
	for _, item := range input.Items {
		subtotal := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		quote.Total = quote.Total.Add(subtotal)
		quote.Items = append(quote.Items, QuoteItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  subtotal,
		})
	}
	return quote, nil
}
