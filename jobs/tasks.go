package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/cashbox"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeCashCredit applies a recorded sale's cash inflow to its session.
	TaskTypeCashCredit = "cash:credit"
)

// CashCreditPayload carries the sale's cash portion. The amount travels as a
// string to keep decimal precision across the queue.
type CashCreditPayload struct {
	SessionID int64  `json:"session_id"`
	SaleID    int64  `json:"sale_id"`
	Amount    string `json:"amount"`
}

// NewCashCreditTask constructs an Asynq task.
func NewCashCreditTask(payload CashCreditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCashCredit, data, asynq.Queue(QueueDefault)), nil
}

// NewCashCreditHandler processes TaskTypeCashCredit tasks. Malformed payloads
// are dropped; everything else is retried by the server.
func NewCashCreditHandler(logger *slog.Logger, cash *cashbox.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CashCreditPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			logger.Error("cash credit: bad amount", slog.String("amount", payload.Amount))
			return asynq.SkipRetry
		}

		if err := cash.Credit(ctx, payload.SessionID, payload.SaleID, amount); err != nil {
			logger.Warn("cash credit failed",
				slog.Int64("sale_id", payload.SaleID),
				slog.Int64("session_id", payload.SessionID),
				slog.Any("error", err))
			return err
		}
		logger.Info("cash credited",
			slog.Int64("sale_id", payload.SaleID),
			slog.Int64("session_id", payload.SessionID),
			slog.String("amount", payload.Amount))
		return nil
	}
}
