package catalog

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

// ListResult carries one cached listing page.
type ListResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List returns products through the read cache. Concurrent cache misses for
// the same key collapse into a single repository query.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	key, err := s.cache.BuildKey(ctx, "catalog", "list",
		FoldSearchTerm(filters.Search), filters.Category,
		strconv.Itoa(filters.Limit), strconv.Itoa(filters.Offset))
	if err != nil {
		return s.repo.List(ctx, filters)
	}

	var result ListResult
	err = s.cache.FetchJSON(ctx, key, &result, func(ctx context.Context) (interface{}, error) {
		value, err, _ := s.group.Do(key, func() (interface{}, error) {
			products, total, err := s.repo.List(ctx, filters)
			if err != nil {
				return nil, err
			}
			return ListResult{Products: products, Total: total}, nil
		})
		return value, err
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Products, result.Total, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	if barcode == "" {
		return Product{}, fmt.Errorf("%w: barcode required", shared.ErrValidation)
	}
	return s.repo.GetByBarcode(ctx, barcode)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := validate(product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.Bump(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	if err := validate(product); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return err
	}
	_ = s.cache.Bump(ctx)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Bump(ctx)
	return nil
}

func validate(p Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name required", shared.ErrValidation)
	}
	if p.SalePrice.IsNegative() || p.CostPrice.IsNegative() {
		return fmt.Errorf("%w: prices cannot be negative", shared.ErrValidation)
	}
	return nil
}
