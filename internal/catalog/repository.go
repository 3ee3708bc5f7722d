package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

const productColumns = `id, name, barcode, cost_price, sale_price, stock_quantity, unit, category, ncm, cfop, csosn, origin, created_at, updated_at`

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		cond := ` AND (search_name LIKE $` + strconv.Itoa(argCount) + ` OR barcode = $` + strconv.Itoa(argCount+1) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+FoldSearchTerm(filters.Search)+"%", filters.Search)
		argCount++
	}
	if filters.Category != "" {
		argCount++
		cond := ` AND category = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, filters.Category)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO products (name, barcode, cost_price, sale_price, stock_quantity, unit, category, ncm, cfop, csosn, origin, search_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
		p.Name, p.Barcode, p.CostPrice, p.SalePrice, p.StockQuantity, p.Unit, p.Category, p.NCM, p.CFOP, p.CSOSN, p.Origin, FoldSearchTerm(p.Name), now, now).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET name = $1, barcode = $2, cost_price = $3, sale_price = $4, stock_quantity = $5, unit = $6, category = $7, ncm = $8, cfop = $9, csosn = $10, origin = $11, search_name = $12, updated_at = $13 WHERE id = $14`,
		p.Name, p.Barcode, p.CostPrice, p.SalePrice, p.StockQuantity, p.Unit, p.Category, p.NCM, p.CFOP, p.CSOSN, p.Origin, FoldSearchTerm(p.Name), time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrProductInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Barcode, &p.CostPrice, &p.SalePrice, &p.StockQuantity, &p.Unit, &p.Category, &p.NCM, &p.CFOP, &p.CSOSN, &p.Origin, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
