package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type fakeRepo struct {
	products map[int64]Product
	nextID   int64
	inUse    map[int64]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[int64]Product{}, inUse: map[int64]bool{}, nextID: 1}
}

func (f *fakeRepo) List(_ context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range f.products {
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetByBarcode(_ context.Context, barcode string) (Product, error) {
	for _, p := range f.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (f *fakeRepo) Create(_ context.Context, p Product) (Product, error) {
	p.ID = f.nextID
	f.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, p Product) error {
	if _, ok := f.products[id]; !ok {
		return shared.ErrNotFound
	}
	p.ID = id
	f.products[id] = p
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return shared.ErrNotFound
	}
	if f.inUse[id] {
		return ErrProductInUse
	}
	delete(f.products, id)
	return nil
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), NewCache(nil, time.Minute))
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Product{Name: "Café", SalePrice: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(ctx, Product{Name: "Café", SalePrice: decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestDeleteProductInUse(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, NewCache(nil, time.Minute))
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{Name: "Café"})
	require.NoError(t, err)
	repo.inUse[created.ID] = true

	err = svc.Delete(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestGetByBarcode(t *testing.T) {
	svc := NewService(newFakeRepo(), NewCache(nil, time.Minute))
	ctx := context.Background()

	_, err := svc.GetByBarcode(ctx, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(ctx, Product{Name: "Café", Barcode: "789"})
	require.NoError(t, err)

	found, err := svc.GetByBarcode(ctx, "789")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
}
