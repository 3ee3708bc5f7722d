package cashbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/platform/db"
)

const sessionColumns = `id, status, opening_balance, current_balance, closing_balance, opened_at, closed_at`

const movementColumns = `id, session_id, kind, amount, sale_id, receivable_id, description, created_at`

type Repository interface {
	Open(ctx context.Context, openingBalance decimal.Decimal) (Session, error)
	Close(ctx context.Context) (Session, error)
	Current(ctx context.Context) (Session, error)
	Movements(ctx context.Context, sessionID int64) ([]Movement, error)
	AddMovement(ctx context.Context, movement Movement) (Movement, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Open(ctx context.Context, openingBalance decimal.Decimal) (Session, error) {
	now := time.Now()
	row := r.db.QueryRow(ctx, `INSERT INTO cash_sessions (status, opening_balance, current_balance, opened_at)
VALUES ($1, $2, $3, $4) RETURNING `+sessionColumns,
		StatusOpen, openingBalance, openingBalance, now)

	session, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Session{}, ErrSessionAlreadyOpen
		}
		return Session{}, err
	}
	return session, nil
}

func (r *repository) Close(ctx context.Context) (Session, error) {
	var session Session
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM cash_sessions WHERE status = $1 FOR UPDATE`, StatusOpen)
		current, err := scanSession(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoOpenSession
		}
		if err != nil {
			return err
		}

		row = tx.QueryRow(ctx, `UPDATE cash_sessions SET status = $1, closing_balance = current_balance, closed_at = $2
WHERE id = $3 RETURNING `+sessionColumns,
			StatusClosed, time.Now(), current.ID)
		session, err = scanSession(row)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (r *repository) Current(ctx context.Context) (Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM cash_sessions WHERE status = $1`, StatusOpen)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNoOpenSession
	}
	return session, err
}

func (r *repository) Movements(ctx context.Context, sessionID int64) ([]Movement, error) {
	rows, err := r.db.Query(ctx, `SELECT `+movementColumns+` FROM cash_movements WHERE session_id = $1 ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Kind, &m.Amount, &m.SaleID, &m.ReceivableID, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// AddMovement inserts the entry and adjusts the session balance atomically.
// The session row is locked first so concurrent entries serialize.
func (r *repository) AddMovement(ctx context.Context, movement Movement) (Movement, error) {
	var inserted Movement
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM cash_sessions WHERE id = $1 FOR UPDATE`, movement.SessionID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoOpenSession
		}
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `INSERT INTO cash_movements (session_id, kind, amount, sale_id, receivable_id, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+movementColumns,
			movement.SessionID, movement.Kind, movement.Amount, movement.SaleID, movement.ReceivableID, movement.Description, time.Now())
		if err := row.Scan(&inserted.ID, &inserted.SessionID, &inserted.Kind, &inserted.Amount, &inserted.SaleID, &inserted.ReceivableID, &inserted.Description, &inserted.CreatedAt); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE cash_sessions SET current_balance = current_balance + $1 WHERE id = $2`,
			movement.Amount, movement.SessionID)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	return inserted, nil
}

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.Status, &s.OpeningBalance, &s.CurrentBalance, &s.ClosingBalance, &s.OpenedAt, &s.ClosedAt)
	return s, err
}
