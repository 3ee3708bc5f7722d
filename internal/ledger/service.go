package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/cashbox"
	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

// CreditEnqueuer hands the cash credit of a recorded sale to the job queue.
// The credit is applied asynchronously and retried until it lands.
type CreditEnqueuer interface {
	EnqueueCashCredit(ctx context.Context, sessionID, saleID int64, amount decimal.Decimal) error
}

type MetricsRecorder interface {
	SaleRecorded()
	SaleCancelled()
}

type RecordSaleRequest struct {
	CustomerID      *int64       `json:"customer_id" validate:"omitempty,gt=0"`
	Delivery        bool         `json:"delivery"`
	DeliveryAddress string       `json:"delivery_address" validate:"max=300"`
	Items           []SaleItemIn `json:"items" validate:"required,min=1,dive"`
	Payments        []PaymentIn  `json:"payments" validate:"required,min=1,dive"`
}

type SaleItemIn struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PaymentIn struct {
	Method string          `json:"method" validate:"required,oneof=CASH CARD PIX CREDIT"`
	Amount decimal.Decimal `json:"amount"`
}

type Service struct {
	logger             *slog.Logger
	store              Store
	enqueuer           CreditEnqueuer
	metrics            MetricsRecorder
	allowNegativeStock bool
}

func NewService(logger *slog.Logger, store Store, enqueuer CreditEnqueuer, metrics MetricsRecorder, allowNegativeStock bool) *Service {
	return &Service{
		logger:             logger,
		store:              store,
		enqueuer:           enqueuer,
		metrics:            metrics,
		allowNegativeStock: allowNegativeStock,
	}
}

// RecordSale persists the sale, decrements stock and opens a receivable for
// the CREDIT portion, all in one transaction. The drawer credit is enqueued
// after commit when a session is open; a failed enqueue is logged and left
// to reconciliation rather than failing the recorded sale. No open session
// means no credit, the sale still goes through.
func (s *Service) RecordSale(ctx context.Context, req RecordSaleRequest) (Sale, error) {
	total, credit, err := tally(req)
	if err != nil {
		return Sale{}, err
	}
	if credit.IsPositive() && req.CustomerID == nil {
		return Sale{}, fmt.Errorf("%w: credit payment requires a customer", shared.ErrValidation)
	}

	var saleID, sessionID int64
	var hasSession bool
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		ids := make([]int64, 0, len(req.Items))
		for _, item := range req.Items {
			ids = append(ids, item.ProductID)
		}
		missing, err := tx.MissingProducts(ctx, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: ids %v", ErrUnknownProduct, missing)
		}

		sessionID, hasSession, err = tx.OpenSession(ctx)
		if err != nil {
			return err
		}

		for _, item := range req.Items {
			if err := tx.AdjustStock(ctx, item.ProductID, -item.Quantity, s.allowNegativeStock); err != nil {
				return err
			}
		}

		sale := Sale{
			CustomerID:      req.CustomerID,
			Total:           total,
			Delivery:        req.Delivery,
			DeliveryAddress: req.DeliveryAddress,
		}
		if hasSession {
			sale.CashSessionID = &sessionID
		}
		saleID, err = tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		for _, item := range req.Items {
			subtotal := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
			if err := tx.InsertItem(ctx, SaleItem{
				SaleID:    saleID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Subtotal:  subtotal,
			}); err != nil {
				return err
			}
		}
		for _, payment := range req.Payments {
			if err := tx.InsertPayment(ctx, Payment{
				SaleID: saleID,
				Method: payment.Method,
				Amount: payment.Amount,
			}); err != nil {
				return err
			}
		}

		if credit.IsPositive() {
			if _, err := tx.InsertReceivable(ctx, saleID, *req.CustomerID, credit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	if hasSession && total.IsPositive() {
		if err := s.enqueuer.EnqueueCashCredit(ctx, sessionID, saleID, total); err != nil {
			s.logger.Warn("enqueue cash credit",
				slog.Int64("sale_id", saleID),
				slog.Int64("session_id", sessionID),
				slog.String("amount", total.String()),
				slog.Any("error", err))
		}
	}
	s.metrics.SaleRecorded()

	return s.store.GetSale(ctx, saleID)
}

// CancelSale reverses stock and cash in one transaction, then removes the
// sale rows. The row cleanup after commit is best effort: a failed child
// delete is logged and the sale delete surfaces the remaining constraint.
func (s *Service) CancelSale(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid sale id", shared.ErrValidation)
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		sale, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}

		paid, err := tx.HasPaidReceivable(ctx, id)
		if err != nil {
			return err
		}
		if paid {
			return ErrSaleHasSettledCredit
		}

		for _, item := range sale.Items {
			if err := tx.AdjustStock(ctx, item.ProductID, item.Quantity, true); err != nil {
				return err
			}
		}

		// The reversal lands on whichever session is open now; with the
		// drawer closed the cash effect is skipped silently.
		sessionID, hasSession, err := tx.OpenSession(ctx)
		if err != nil {
			return err
		}
		if hasSession && sale.Total.IsPositive() {
			saleID := sale.ID
			if err := tx.InsertMovement(ctx, sessionID, cashbox.MovementSaleReversal, sale.Total.Neg(), &saleID, nil); err != nil {
				return err
			}
			if err := tx.AdjustSessionBalance(ctx, sessionID, sale.Total.Neg()); err != nil {
				return err
			}
		}

		return tx.DeletePendingReceivables(ctx, id)
	})
	if err != nil {
		return err
	}

	if err := s.store.DeletePayments(ctx, id); err != nil {
		s.logger.Warn("delete sale payments", slog.Int64("sale_id", id), slog.Any("error", err))
	}
	if err := s.store.DeleteItems(ctx, id); err != nil {
		s.logger.Warn("delete sale items", slog.Int64("sale_id", id), slog.Any("error", err))
	}
	if err := s.store.DeleteSale(ctx, id); err != nil {
		return err
	}

	s.metrics.SaleCancelled()
	return nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, fmt.Errorf("%w: invalid sale id", shared.ErrValidation)
	}
	return s.store.GetSale(ctx, id)
}

func (s *Service) ListSales(ctx context.Context, limit, offset int) ([]Sale, int, error) {
	return s.store.ListSales(ctx, limit, offset)
}

func (s *Service) ListPendingReceivables(ctx context.Context) ([]Receivable, error) {
	return s.store.ListPendingReceivables(ctx)
}

// SettleReceivable marks the crediario paid and credits the open cash
// session in the same transaction.
func (s *Service) SettleReceivable(ctx context.Context, id int64) (Receivable, error) {
	if id <= 0 {
		return Receivable{}, fmt.Errorf("%w: invalid receivable id", shared.ErrValidation)
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		rec, err := tx.GetReceivableForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rec.Status == ReceivablePaid {
			return ErrReceivableSettled
		}

		sessionID, hasSession, err := tx.OpenSession(ctx)
		if err != nil {
			return err
		}
		if !hasSession {
			return cashbox.ErrNoOpenSession
		}

		if err := tx.MarkReceivablePaid(ctx, id, time.Now()); err != nil {
			return err
		}
		saleID := rec.SaleID
		recID := rec.ID
		if err := tx.InsertMovement(ctx, sessionID, cashbox.MovementSettlement, rec.Amount, &saleID, &recID); err != nil {
			return err
		}
		return tx.AdjustSessionBalance(ctx, sessionID, rec.Amount)
	})
	if err != nil {
		return Receivable{}, err
	}

	return s.store.GetReceivable(ctx, id)
}

func tally(req RecordSaleRequest) (total, credit decimal.Decimal, err error) {
	for _, item := range req.Items {
		if item.UnitPrice.IsNegative() {
			return total, credit, fmt.Errorf("%w: unit price cannot be negative", shared.ErrValidation)
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}

	paid := decimal.Zero
	for _, payment := range req.Payments {
		if !validMethod(payment.Method) {
			return total, credit, fmt.Errorf("%w: invalid payment method %q", shared.ErrValidation, payment.Method)
		}
		if !payment.Amount.IsPositive() {
			return total, credit, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
		}
		paid = paid.Add(payment.Amount)
		if payment.Method == MethodCredit {
			credit = credit.Add(payment.Amount)
		}
	}

	if !paid.Equal(total) {
		return total, credit, fmt.Errorf("%w: payments (%s) do not match total (%s)", shared.ErrValidation, paid, total)
	}
	return total, credit, nil
}
