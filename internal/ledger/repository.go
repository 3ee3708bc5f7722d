package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/cashbox"
	"github.com/balcao-pdv/balcao-pdv/internal/platform/db"
	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

// Store is the ledger persistence port. Reads run on the pool; every write
// that touches stock, cash or receivables goes through WithTx.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, limit, offset int) ([]Sale, int, error)
	ListPendingReceivables(ctx context.Context) ([]Receivable, error)
	GetReceivable(ctx context.Context, id int64) (Receivable, error)
	DeletePayments(ctx context.Context, saleID int64) error
	DeleteItems(ctx context.Context, saleID int64) error
	DeleteSale(ctx context.Context, saleID int64) error
}

// TxStore scopes writes to one transaction.
type TxStore interface {
	MissingProducts(ctx context.Context, ids []int64) ([]int64, error)
	AdjustStock(ctx context.Context, productID, delta int64, allowNegative bool) error
	OpenSession(ctx context.Context) (int64, bool, error)
	AdjustSessionBalance(ctx context.Context, sessionID int64, delta decimal.Decimal) error
	InsertMovement(ctx context.Context, sessionID int64, kind string, amount decimal.Decimal, saleID, receivableID *int64) error
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertItem(ctx context.Context, item SaleItem) error
	InsertPayment(ctx context.Context, payment Payment) error
	InsertReceivable(ctx context.Context, saleID, customerID int64, amount decimal.Decimal) (int64, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	HasPaidReceivable(ctx context.Context, saleID int64) (bool, error)
	DeletePendingReceivables(ctx context.Context, saleID int64) error
	GetReceivableForUpdate(ctx context.Context, id int64) (Receivable, error)
	MarkReceivablePaid(ctx context.Context, id int64, paidAt time.Time) error
}

type store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

func (s *store) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

func (s *store) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := s.pool.QueryRow(ctx, `SELECT s.id, s.customer_id, COALESCE(c.name, ''), s.total, s.delivery, s.delivery_address, s.cash_session_id, s.created_at
FROM sales s LEFT JOIN customers c ON c.id = s.customer_id WHERE s.id = $1`, id)

	var sale Sale
	err := row.Scan(&sale.ID, &sale.CustomerID, &sale.CustomerName, &sale.Total, &sale.Delivery, &sale.DeliveryAddress, &sale.CashSessionID, &sale.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}

	sales := []Sale{sale}
	if err := s.attachDetails(ctx, sales); err != nil {
		return Sale{}, err
	}
	return sales[0], nil
}

func (s *store) ListSales(ctx context.Context, limit, offset int) ([]Sale, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT s.id, s.customer_id, COALESCE(c.name, ''), s.total, s.delivery, s.delivery_address, s.cash_session_id, s.created_at
FROM sales s LEFT JOIN customers c ON c.id = s.customer_id ORDER BY s.created_at DESC, s.id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.CustomerID, &sale.CustomerName, &sale.Total, &sale.Delivery, &sale.DeliveryAddress, &sale.CashSessionID, &sale.CreatedAt); err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.attachDetails(ctx, sales); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (s *store) attachDetails(ctx context.Context, sales []Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]int64, len(sales))
	index := make(map[int64]*Sale, len(sales))
	for i := range sales {
		ids[i] = sales[i].ID
		index[sales[i].ID] = &sales[i]
	}

	rows, err := s.pool.Query(ctx, `SELECT i.id, i.sale_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.unit_price, i.subtotal
FROM sale_items i LEFT JOIN products p ON p.id = i.product_id WHERE i.sale_id = ANY($1) ORDER BY i.id`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			rows.Close()
			return err
		}
		index[item.SaleID].Items = append(index[item.SaleID].Items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx, `SELECT id, sale_id, method, amount FROM payments WHERE sale_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var payment Payment
		if err := rows.Scan(&payment.ID, &payment.SaleID, &payment.Method, &payment.Amount); err != nil {
			return err
		}
		index[payment.SaleID].Payments = append(index[payment.SaleID].Payments, payment)
	}
	return rows.Err()
}

func (s *store) ListPendingReceivables(ctx context.Context) ([]Receivable, error) {
	rows, err := s.pool.Query(ctx, `SELECT r.id, r.sale_id, r.customer_id, COALESCE(c.name, ''), r.amount, r.status, r.created_at, r.paid_at
FROM receivables r LEFT JOIN customers c ON c.id = r.customer_id
WHERE r.status = $1 ORDER BY r.created_at ASC, r.id ASC`, ReceivablePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receivables []Receivable
	for rows.Next() {
		var rec Receivable
		if err := rows.Scan(&rec.ID, &rec.SaleID, &rec.CustomerID, &rec.CustomerName, &rec.Amount, &rec.Status, &rec.CreatedAt, &rec.PaidAt); err != nil {
			return nil, err
		}
		receivables = append(receivables, rec)
	}
	return receivables, rows.Err()
}

func (s *store) GetReceivable(ctx context.Context, id int64) (Receivable, error) {
	row := s.pool.QueryRow(ctx, `SELECT r.id, r.sale_id, r.customer_id, COALESCE(c.name, ''), r.amount, r.status, r.created_at, r.paid_at
FROM receivables r LEFT JOIN customers c ON c.id = r.customer_id WHERE r.id = $1`, id)

	var rec Receivable
	err := row.Scan(&rec.ID, &rec.SaleID, &rec.CustomerID, &rec.CustomerName, &rec.Amount, &rec.Status, &rec.CreatedAt, &rec.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receivable{}, shared.ErrNotFound
	}
	return rec, err
}

func (s *store) DeletePayments(ctx context.Context, saleID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM payments WHERE sale_id = $1`, saleID)
	return err
}

func (s *store) DeleteItems(ctx context.Context, saleID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
	return err
}

func (s *store) DeleteSale(ctx context.Context, saleID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `SELECT wanted.id FROM unnest($1::bigint[]) AS wanted(id)
WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.id = wanted.id)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

func (t *txStore) AdjustStock(ctx context.Context, productID, delta int64, allowNegative bool) error {
	query := `UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = $2 WHERE id = $3`
	if !allowNegative && delta < 0 {
		query += ` AND stock_quantity + $1 >= 0`
	}
	tag, err := t.tx.Exec(ctx, query, delta, time.Now(), productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if !allowNegative && delta < 0 {
			return ErrInsufficientStock
		}
		return ErrUnknownProduct
	}
	return nil
}

func (t *txStore) OpenSession(ctx context.Context) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM cash_sessions WHERE status = $1 FOR UPDATE`, cashbox.StatusOpen).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *txStore) AdjustSessionBalance(ctx context.Context, sessionID int64, delta decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE cash_sessions SET current_balance = current_balance + $1 WHERE id = $2`, delta, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cashbox.ErrNoOpenSession
	}
	return nil
}

func (t *txStore) InsertMovement(ctx context.Context, sessionID int64, kind string, amount decimal.Decimal, saleID, receivableID *int64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO cash_movements (session_id, kind, amount, sale_id, receivable_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, sessionID, kind, amount, saleID, receivableID, time.Now())
	return err
}

func (t *txStore) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (customer_id, total, delivery, delivery_address, cash_session_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sale.CustomerID, sale.Total, sale.Delivery, sale.DeliveryAddress, sale.CashSessionID, time.Now()).Scan(&id)
	return id, err
}

func (t *txStore) InsertItem(ctx context.Context, item SaleItem) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5)`, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal)
	return err
}

func (t *txStore) InsertPayment(ctx context.Context, payment Payment) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO payments (sale_id, method, amount) VALUES ($1, $2, $3)`,
		payment.SaleID, payment.Method, payment.Amount)
	return err
}

func (t *txStore) InsertReceivable(ctx context.Context, saleID, customerID int64, amount decimal.Decimal) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO receivables (sale_id, customer_id, amount, status, created_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, saleID, customerID, amount, ReceivablePending, time.Now()).Scan(&id)
	return id, err
}

func (t *txStore) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, customer_id, total, delivery, delivery_address, cash_session_id, created_at FROM sales WHERE id = $1 FOR UPDATE`, id)

	var sale Sale
	err := row.Scan(&sale.ID, &sale.CustomerID, &sale.Total, &sale.Delivery, &sale.DeliveryAddress, &sale.CashSessionID, &sale.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}

	rows, err := t.tx.Query(ctx, `SELECT id, sale_id, product_id, quantity, unit_price, subtotal FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			rows.Close()
			return Sale{}, err
		}
		sale.Items = append(sale.Items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Sale{}, err
	}

	rows, err = t.tx.Query(ctx, `SELECT id, sale_id, method, amount FROM payments WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var payment Payment
		if err := rows.Scan(&payment.ID, &payment.SaleID, &payment.Method, &payment.Amount); err != nil {
			return Sale{}, err
		}
		sale.Payments = append(sale.Payments, payment)
	}
	return sale, rows.Err()
}

func (t *txStore) HasPaidReceivable(ctx context.Context, saleID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM receivables WHERE sale_id = $1 AND status = $2)`,
		saleID, ReceivablePaid).Scan(&exists)
	return exists, err
}

func (t *txStore) DeletePendingReceivables(ctx context.Context, saleID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM receivables WHERE sale_id = $1 AND status = $2`, saleID, ReceivablePending)
	return err
}

func (t *txStore) GetReceivableForUpdate(ctx context.Context, id int64) (Receivable, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, sale_id, customer_id, amount, status, created_at, paid_at FROM receivables WHERE id = $1 FOR UPDATE`, id)

	var rec Receivable
	err := row.Scan(&rec.ID, &rec.SaleID, &rec.CustomerID, &rec.Amount, &rec.Status, &rec.CreatedAt, &rec.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receivable{}, shared.ErrNotFound
	}
	return rec, err
}

func (t *txStore) MarkReceivablePaid(ctx context.Context, id int64, paidAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE receivables SET status = $1, paid_at = $2 WHERE id = $3`,
		ReceivablePaid, paidAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
