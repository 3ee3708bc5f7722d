package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/balcao-pdv/balcao-pdv/internal/platform/db"
	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Quote, int, error)
	Get(ctx context.Context, id int64) (Quote, error)
	Create(ctx context.Context, quote Quote) (int64, error)
	Replace(ctx context.Context, id int64, quote Quote) error
	Delete(ctx context.Context, id int64) error
	MissingProducts(ctx context.Context, ids []int64) ([]int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Quote, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT q.id, q.customer_id, COALESCE(c.name, ''), q.total, q.notes, q.created_at
FROM quotes q LEFT JOIN customers c ON c.id = q.customer_id ORDER BY q.created_at DESC, q.id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.CustomerID, &q.CustomerName, &q.Total, &q.Notes, &q.CreatedAt); err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, quotes); err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT q.id, q.customer_id, COALESCE(c.name, ''), q.total, q.notes, q.created_at
FROM quotes q LEFT JOIN customers c ON c.id = q.customer_id WHERE q.id = $1`, id)

	var q Quote
	err := row.Scan(&q.ID, &q.CustomerID, &q.CustomerName, &q.Total, &q.Notes, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, shared.ErrNotFound
	}
	if err != nil {
		return Quote{}, err
	}

	quotes := []Quote{q}
	if err := r.attachItems(ctx, quotes); err != nil {
		return Quote{}, err
	}
	return quotes[0], nil
}

func (r *repository) attachItems(ctx context.Context, quotes []Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	ids := make([]int64, len(quotes))
	index := make(map[int64]*Quote, len(quotes))
	for i := range quotes {
		ids[i] = quotes[i].ID
		index[quotes[i].ID] = &quotes[i]
	}

	rows, err := r.db.Query(ctx, `SELECT i.id, i.quote_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.unit_price, i.subtotal
FROM quote_items i LEFT JOIN products p ON p.id = i.product_id WHERE i.quote_id = ANY($1) ORDER BY i.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item QuoteItem
		if err := rows.Scan(&item.ID, &item.QuoteID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return err
		}
		index[item.QuoteID].Items = append(index[item.QuoteID].Items, item)
	}
	return rows.Err()
}

func (r *repository) Create(ctx context.Context, quote Quote) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO quotes (customer_id, total, notes, created_at)
VALUES ($1, $2, $3, $4) RETURNING id`, quote.CustomerID, quote.Total, quote.Notes, time.Now()).Scan(&id)
		if err != nil {
			return err
		}
		return insertItems(ctx, tx, id, quote.Items)
	})
	return id, err
}

func (r *repository) Replace(ctx context.Context, id int64, quote Quote) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE quotes SET customer_id = $1, total = $2, notes = $3 WHERE id = $4`,
			quote.CustomerID, quote.Total, quote.Notes, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, id); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, quote.Items)
	})
}

func insertItems(ctx context.Context, tx pgx.Tx, quoteID int64, items []QuoteItem) error {
	for _, item := range items {
		_, err := tx.Exec(ctx, `INSERT INTO quote_items (quote_id, product_id, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5)`, quoteID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *repository) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT wanted.id FROM unnest($1::bigint[]) AS wanted(id)
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
