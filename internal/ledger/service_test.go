package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/balcao-pdv/balcao-pdv/internal/cashbox"
	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type fakeMovement struct {
	SessionID    int64
	Kind         string
	Amount       decimal.Decimal
	SaleID       *int64
	ReceivableID *int64
}

type fakeStore struct {
	products    map[int64]int64
	balances    map[int64]decimal.Decimal
	openSession int64
	sales       map[int64]*Sale
	receivables map[int64]*Receivable
	movements   []fakeMovement
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:    map[int64]int64{},
		balances:    map[int64]decimal.Decimal{},
		sales:       map[int64]*Sale{},
		receivables: map[int64]*Receivable{},
		nextID:      1,
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) snapshot() *fakeStore {
	copied := newFakeStore()
	copied.openSession = f.openSession
	copied.nextID = f.nextID
	for k, v := range f.products {
		copied.products[k] = v
	}
	for k, v := range f.balances {
		copied.balances[k] = v
	}
	for k, v := range f.sales {
		sale := *v
		sale.Items = append([]SaleItem(nil), v.Items...)
		sale.Payments = append([]Payment(nil), v.Payments...)
		copied.sales[k] = &sale
	}
	for k, v := range f.receivables {
		rec := *v
		copied.receivables[k] = &rec
	}
	copied.movements = append([]fakeMovement(nil), f.movements...)
	return copied
}

func (f *fakeStore) restore(from *fakeStore) {
	f.products = from.products
	f.balances = from.balances
	f.openSession = from.openSession
	f.sales = from.sales
	f.receivables = from.receivables
	f.movements = from.movements
	f.nextID = from.nextID
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	before := f.snapshot()
	if err := fn(ctx, (*fakeTx)(f)); err != nil {
		f.restore(before)
		return err
	}
	return nil
}

func (f *fakeStore) GetSale(_ context.Context, id int64) (Sale, error) {
	sale, ok := f.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return *sale, nil
}

func (f *fakeStore) ListSales(_ context.Context, _, _ int) ([]Sale, int, error) {
	var out []Sale
	for _, sale := range f.sales {
		out = append(out, *sale)
	}
	return out, len(out), nil
}

func (f *fakeStore) ListPendingReceivables(_ context.Context) ([]Receivable, error) {
	var out []Receivable
	for _, rec := range f.receivables {
		if rec.Status == ReceivablePending {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) GetReceivable(_ context.Context, id int64) (Receivable, error) {
	rec, ok := f.receivables[id]
	if !ok {
		return Receivable{}, shared.ErrNotFound
	}
	return *rec, nil
}

func (f *fakeStore) DeletePayments(_ context.Context, saleID int64) error {
	if sale, ok := f.sales[saleID]; ok {
		sale.Payments = nil
	}
	return nil
}

func (f *fakeStore) DeleteItems(_ context.Context, saleID int64) error {
	if sale, ok := f.sales[saleID]; ok {
		sale.Items = nil
	}
	return nil
}

func (f *fakeStore) DeleteSale(_ context.Context, saleID int64) error {
	if _, ok := f.sales[saleID]; !ok {
		return shared.ErrNotFound
	}
	delete(f.sales, saleID)
	return nil
}

type fakeTx fakeStore

func (t *fakeTx) store() *fakeStore { return (*fakeStore)(t) }

func (t *fakeTx) MissingProducts(_ context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if _, ok := t.store().products[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (t *fakeTx) AdjustStock(_ context.Context, productID, delta int64, allowNegative bool) error {
	stock, ok := t.store().products[productID]
	if !ok {
		return ErrUnknownProduct
	}
	next := stock + delta
	if !allowNegative && delta < 0 && next < 0 {
		return ErrInsufficientStock
	}
	t.store().products[productID] = next
	return nil
}

func (t *fakeTx) OpenSession(_ context.Context) (int64, bool, error) {
	if t.store().openSession == 0 {
		return 0, false, nil
	}
	return t.store().openSession, true, nil
}

func (t *fakeTx) AdjustSessionBalance(_ context.Context, sessionID int64, delta decimal.Decimal) error {
	t.store().balances[sessionID] = t.store().balances[sessionID].Add(delta)
	return nil
}

func (t *fakeTx) InsertMovement(_ context.Context, sessionID int64, kind string, amount decimal.Decimal, saleID, receivableID *int64) error {
	t.store().movements = append(t.store().movements, fakeMovement{
		SessionID:    sessionID,
		Kind:         kind,
		Amount:       amount,
		SaleID:       saleID,
		ReceivableID: receivableID,
	})
	return nil
}

func (t *fakeTx) InsertSale(_ context.Context, sale Sale) (int64, error) {
	id := t.store().id()
	sale.ID = id
	sale.CreatedAt = time.Now()
	t.store().sales[id] = &sale
	return id, nil
}

func (t *fakeTx) InsertItem(_ context.Context, item SaleItem) error {
	item.ID = t.store().id()
	sale := t.store().sales[item.SaleID]
	sale.Items = append(sale.Items, item)
	return nil
}

func (t *fakeTx) InsertPayment(_ context.Context, payment Payment) error {
	payment.ID = t.store().id()
	sale := t.store().sales[payment.SaleID]
	sale.Payments = append(sale.Payments, payment)
	return nil
}

func (t *fakeTx) InsertReceivable(_ context.Context, saleID, customerID int64, amount decimal.Decimal) (int64, error) {
	id := t.store().id()
	t.store().receivables[id] = &Receivable{
		ID:         id,
		SaleID:     saleID,
		CustomerID: customerID,
		Amount:     amount,
		Status:     ReceivablePending,
		CreatedAt:  time.Now(),
	}
	return id, nil
}

func (t *fakeTx) GetSaleForUpdate(_ context.Context, id int64) (Sale, error) {
	sale, ok := t.store().sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return *sale, nil
}

func (t *fakeTx) HasPaidReceivable(_ context.Context, saleID int64) (bool, error) {
	for _, rec := range t.store().receivables {
		if rec.SaleID == saleID && rec.Status == ReceivablePaid {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) DeletePendingReceivables(_ context.Context, saleID int64) error {
	for id, rec := range t.store().receivables {
		if rec.SaleID == saleID && rec.Status == ReceivablePending {
			delete(t.store().receivables, id)
		}
	}
	return nil
}

func (t *fakeTx) GetReceivableForUpdate(_ context.Context, id int64) (Receivable, error) {
	rec, ok := t.store().receivables[id]
	if !ok {
		return Receivable{}, shared.ErrNotFound
	}
	return *rec, nil
}

func (t *fakeTx) MarkReceivablePaid(_ context.Context, id int64, paidAt time.Time) error {
	rec, ok := t.store().receivables[id]
	if !ok {
		return shared.ErrNotFound
	}
	rec.Status = ReceivablePaid
	rec.PaidAt = &paidAt
	return nil
}

type fakeEnqueuer struct {
	calls []struct {
		SessionID int64
		SaleID    int64
		Amount    decimal.Decimal
	}
	err error
}

func (f *fakeEnqueuer) EnqueueCashCredit(_ context.Context, sessionID, saleID int64, amount decimal.Decimal) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, struct {
		SessionID int64
		SaleID    int64
		Amount    decimal.Decimal
	}{sessionID, saleID, amount})
	return nil
}

type fakeMetrics struct {
	recorded  int
	cancelled int
}

func (f *fakeMetrics) SaleRecorded()  { f.recorded++ }
func (f *fakeMetrics) SaleCancelled() { f.cancelled++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *fakeStore, allowNegative bool) (*Service, *fakeEnqueuer, *fakeMetrics) {
	enqueuer := &fakeEnqueuer{}
	metrics := &fakeMetrics{}
	return NewService(testLogger(), store, enqueuer, metrics, allowNegative), enqueuer, metrics
}

func saleRequest(productID, quantity int64, price int64) RecordSaleRequest {
	total := decimal.NewFromInt(price * quantity)
	return RecordSaleRequest{
		Items: []SaleItemIn{
			{ProductID: productID, Quantity: quantity, UnitPrice: decimal.NewFromInt(price)},
		},
		Payments: []PaymentIn{
			{Method: MethodCash, Amount: total},
		},
	}
}

func TestRecordSaleDecrementsStockAndEnqueuesCash(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 99
	svc, enqueuer, metrics := newTestService(store, true)

	sale, err := svc.RecordSale(context.Background(), saleRequest(1, 3, 5))
	require.NoError(t, err)
	require.True(t, sale.Total.Equal(decimal.NewFromInt(15)))
	require.NotNil(t, sale.CashSessionID)
	require.Equal(t, int64(99), *sale.CashSessionID)
	require.Len(t, sale.Items, 1)
	require.Len(t, sale.Payments, 1)

	require.Equal(t, int64(7), store.products[1])
	require.Len(t, enqueuer.calls, 1)
	require.Equal(t, int64(99), enqueuer.calls[0].SessionID)
	require.True(t, enqueuer.calls[0].Amount.Equal(decimal.NewFromInt(15)))
	require.Equal(t, 1, metrics.recorded)
}

func TestRecordSaleUnknownProduct(t *testing.T) {
	store := newFakeStore()
	store.openSession = 1
	svc, enqueuer, _ := newTestService(store, true)

	_, err := svc.RecordSale(context.Background(), saleRequest(42, 1, 10))
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, store.sales)
	require.Empty(t, enqueuer.calls)
}

func TestRecordSaleWithoutOpenSession(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	svc, enqueuer, _ := newTestService(store, true)

	sale, err := svc.RecordSale(context.Background(), saleRequest(1, 1, 10))
	require.NoError(t, err, "a closed drawer does not block the sale")
	require.Nil(t, sale.CashSessionID)
	require.Equal(t, int64(9), store.products[1])
	require.Empty(t, enqueuer.calls, "no session, no drawer credit")
}

func TestRecordSaleCarriesDelivery(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	svc, _, _ := newTestService(store, true)

	req := saleRequest(1, 1, 10)
	req.Delivery = true
	req.DeliveryAddress = "Rua das Flores, 123"

	sale, err := svc.RecordSale(context.Background(), req)
	require.NoError(t, err)
	require.True(t, sale.Delivery)
	require.Equal(t, "Rua das Flores, 123", sale.DeliveryAddress)
}

func TestRecordSalePaymentMismatch(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, _, _ := newTestService(store, true)

	req := saleRequest(1, 2, 10)
	req.Payments[0].Amount = decimal.NewFromInt(5)

	_, err := svc.RecordSale(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordSaleCreditRequiresCustomer(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, _, _ := newTestService(store, true)

	req := saleRequest(1, 1, 10)
	req.Payments = []PaymentIn{{Method: MethodCredit, Amount: decimal.NewFromInt(10)}}

	_, err := svc.RecordSale(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordSaleCreditOpensReceivable(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, enqueuer, _ := newTestService(store, true)

	customerID := int64(7)
	req := RecordSaleRequest{
		CustomerID: &customerID,
		Items: []SaleItemIn{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
		},
		Payments: []PaymentIn{
			{Method: MethodCash, Amount: decimal.NewFromInt(5)},
			{Method: MethodCredit, Amount: decimal.NewFromInt(15)},
		},
	}

	sale, err := svc.RecordSale(context.Background(), req)
	require.NoError(t, err)

	pending, err := svc.ListPendingReceivables(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, sale.ID, pending[0].SaleID)
	require.Equal(t, customerID, pending[0].CustomerID)
	require.True(t, pending[0].Amount.Equal(decimal.NewFromInt(15)))

	require.Len(t, enqueuer.calls, 1)
	require.True(t, enqueuer.calls[0].Amount.Equal(decimal.NewFromInt(20)), "the drawer credit covers the whole sale")
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 2
	store.openSession = 1
	svc, _, _ := newTestService(store, false)

	_, err := svc.RecordSale(context.Background(), saleRequest(1, 3, 10))
	require.ErrorIs(t, err, shared.ErrPrecondition)
	require.Equal(t, int64(2), store.products[1])
	require.Empty(t, store.sales)
}

func TestRecordSaleNegativeStockAllowed(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 2
	store.openSession = 1
	svc, _, _ := newTestService(store, true)

	_, err := svc.RecordSale(context.Background(), saleRequest(1, 3, 10))
	require.NoError(t, err)
	require.Equal(t, int64(-1), store.products[1])
}

func TestRecordSaleSurvivesEnqueueFailure(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, enqueuer, _ := newTestService(store, true)
	enqueuer.err = errors.New("redis down")

	sale, err := svc.RecordSale(context.Background(), saleRequest(1, 1, 10))
	require.NoError(t, err, "a dead queue must not void the sale")
	require.NotZero(t, sale.ID)
}

func TestCancelSaleRestoresStockAndReversesCash(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	store.balances[1] = decimal.NewFromInt(100)
	svc, _, metrics := newTestService(store, true)

	sale, err := svc.RecordSale(context.Background(), saleRequest(1, 4, 10))
	require.NoError(t, err)
	require.Equal(t, int64(6), store.products[1])

	err = svc.CancelSale(context.Background(), sale.ID)
	require.NoError(t, err)

	require.Equal(t, int64(10), store.products[1])
	require.Empty(t, store.sales)
	require.Equal(t, 1, metrics.cancelled)

	require.Len(t, store.movements, 1)
	reversal := store.movements[0]
	require.Equal(t, cashbox.MovementSaleReversal, reversal.Kind)
	require.True(t, reversal.Amount.Equal(decimal.NewFromInt(-40)))
	require.Equal(t, sale.ID, *reversal.SaleID)
	require.True(t, store.balances[1].Equal(decimal.NewFromInt(60)))
}

func TestCancelSaleWithClosedDrawerSkipsReversal(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, _, _ := newTestService(store, true)

	sale, err := svc.RecordSale(context.Background(), saleRequest(1, 2, 10))
	require.NoError(t, err)

	store.openSession = 0
	require.NoError(t, svc.CancelSale(context.Background(), sale.ID))

	require.Equal(t, int64(10), store.products[1], "stock still restored")
	require.Empty(t, store.movements, "no open session, no reversal entry")
}

func TestCancelSaleDropsPendingReceivable(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, _, _ := newTestService(store, true)

	customerID := int64(3)
	req := RecordSaleRequest{
		CustomerID: &customerID,
		Items:      []SaleItemIn{{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
		Payments:   []PaymentIn{{Method: MethodCredit, Amount: decimal.NewFromInt(20)}},
	}
	sale, err := svc.RecordSale(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, svc.CancelSale(context.Background(), sale.ID))

	pending, err := svc.ListPendingReceivables(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestCancelSaleBlockedBySettledReceivable(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, _, _ := newTestService(store, true)

	customerID := int64(3)
	req := RecordSaleRequest{
		CustomerID: &customerID,
		Items:      []SaleItemIn{{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
		Payments:   []PaymentIn{{Method: MethodCredit, Amount: decimal.NewFromInt(20)}},
	}
	sale, err := svc.RecordSale(context.Background(), req)
	require.NoError(t, err)

	pending, err := svc.ListPendingReceivables(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.SettleReceivable(context.Background(), pending[0].ID)
	require.NoError(t, err)

	err = svc.CancelSale(context.Background(), sale.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, store.sales, sale.ID, "sale stays when cancellation is blocked")
}

func TestCancelSaleNotFound(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, true)

	err := svc.CancelSale(context.Background(), 123)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSettleReceivable(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	store.balances[1] = decimal.NewFromInt(50)
	svc, _, _ := newTestService(store, true)

	customerID := int64(3)
	req := RecordSaleRequest{
		CustomerID: &customerID,
		Items:      []SaleItemIn{{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(30)}},
		Payments:   []PaymentIn{{Method: MethodCredit, Amount: decimal.NewFromInt(30)}},
	}
	_, err := svc.RecordSale(context.Background(), req)
	require.NoError(t, err)

	pending, err := svc.ListPendingReceivables(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	settled, err := svc.SettleReceivable(context.Background(), pending[0].ID)
	require.NoError(t, err)
	require.Equal(t, ReceivablePaid, settled.Status)
	require.NotNil(t, settled.PaidAt)

	require.True(t, store.balances[1].Equal(decimal.NewFromInt(80)))
	require.Len(t, store.movements, 1)
	require.Equal(t, cashbox.MovementSettlement, store.movements[0].Kind)

	_, err = svc.SettleReceivable(context.Background(), pending[0].ID)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestSettleReceivableRequiresOpenSession(t *testing.T) {
	store := newFakeStore()
	store.products[1] = 10
	store.openSession = 1
	svc, _, _ := newTestService(store, true)

	customerID := int64(3)
	req := RecordSaleRequest{
		CustomerID: &customerID,
		Items:      []SaleItemIn{{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(30)}},
		Payments:   []PaymentIn{{Method: MethodCredit, Amount: decimal.NewFromInt(30)}},
	}
	_, err := svc.RecordSale(context.Background(), req)
	require.NoError(t, err)

	pending, err := svc.ListPendingReceivables(context.Background())
	require.NoError(t, err)

	store.openSession = 0
	_, err = svc.SettleReceivable(context.Background(), pending[0].ID)
	require.ErrorIs(t, err, shared.ErrPrecondition)

	fresh, err := store.GetReceivable(context.Background(), pending[0].ID)
	require.NoError(t, err)
	require.Equal(t, ReceivablePending, fresh.Status, "settlement rolls back without a session")
}
