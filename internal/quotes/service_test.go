package quotes

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type fakeRepo struct {
	products map[int64]bool
	quotes   map[int64]Quote
	nextID   int64
}

func newFakeRepo(products ...int64) *fakeRepo {
	f := &fakeRepo{products: map[int64]bool{}, quotes: map[int64]Quote{}, nextID: 1}
	for _, id := range products {
		f.products[id] = true
	}
	return f
}

func (f *fakeRepo) List(_ context.Context, _, _ int) ([]Quote, int, error) {
	var out []Quote
	for _, q := range f.quotes {
		out = append(out, q)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return Quote{}, shared.ErrNotFound
	}
	return q, nil
}

func (f *fakeRepo) Create(_ context.Context, quote Quote) (int64, error) {
	quote.ID = f.nextID
	f.nextID++
	f.quotes[quote.ID] = quote
	return quote.ID, nil
}

func (f *fakeRepo) Replace(_ context.Context, id int64, quote Quote) error {
	if _, ok := f.quotes[id]; !ok {
		return shared.ErrNotFound
	}
	quote.ID = id
	f.quotes[id] = quote
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.quotes[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.quotes, id)
	return nil
}

func (f *fakeRepo) MissingProducts(_ context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if !f.products[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func TestCreateQuoteComputesTotals(t *testing.T) {
	svc := NewService(newFakeRepo(1, 2))

	quote, err := svc.Create(context.Background(), QuoteInput{
		Items: []QuoteItemInput{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)
	require.True(t, quote.Total.Equal(decimal.NewFromInt(25)))
	require.Len(t, quote.Items, 2)
	require.True(t, quote.Items[0].Subtotal.Equal(decimal.NewFromInt(20)))
}

func TestCreateQuoteRejectsUnknownProduct(t *testing.T) {
	svc := NewService(newFakeRepo(1))

	_, err := svc.Create(context.Background(), QuoteInput{
		Items: []QuoteItemInput{
			{ProductID: 99, Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateQuoteNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(1))

	_, err := svc.Update(context.Background(), 42, QuoteInput{
		Items: []QuoteItemInput{
			{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
