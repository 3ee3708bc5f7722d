package cashbox

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Open(ctx context.Context, openingBalance decimal.Decimal) (Session, error) {
	if openingBalance.IsNegative() {
		return Session{}, fmt.Errorf("%w: opening balance cannot be negative", shared.ErrValidation)
	}
	return s.repo.Open(ctx, openingBalance)
}

func (s *Service) Close(ctx context.Context) (Session, error) {
	return s.repo.Close(ctx)
}

func (s *Service) Current(ctx context.Context) (Session, error) {
	return s.repo.Current(ctx)
}

// Movements lists the entries of the currently open session, newest first.
func (s *Service) Movements(ctx context.Context) ([]Movement, error) {
	session, err := s.repo.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Movements(ctx, session.ID)
}

// AddManual records an operator adjustment against the open session. The
// amount is supplied positive; MANUAL_OUT entries are stored negated.
func (s *Service) AddManual(ctx context.Context, kind string, amount decimal.Decimal, description string) (Movement, error) {
	if kind != MovementManualIn && kind != MovementManualOut {
		return Movement{}, fmt.Errorf("%w: invalid movement kind %q", shared.ErrValidation, kind)
	}
	if !amount.IsPositive() {
		return Movement{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}

	session, err := s.repo.Current(ctx)
	if err != nil {
		return Movement{}, err
	}

	if kind == MovementManualOut {
		amount = amount.Neg()
	}
	return s.repo.AddMovement(ctx, Movement{
		SessionID:   session.ID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
	})
}

// Credit records a sale inflow against the session captured when the sale was
// recorded. Called from the job worker, so the targeted session may already
// be closed; the entry still lands on it.
func (s *Service) Credit(ctx context.Context, sessionID, saleID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit amount must be positive", shared.ErrValidation)
	}
	_, err := s.repo.AddMovement(ctx, Movement{
		SessionID: sessionID,
		Kind:      MovementSale,
		Amount:    amount,
		SaleID:    &saleID,
	})
	return err
}
