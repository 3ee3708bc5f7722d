package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is referenced (never owned) by sales, quotes and receivables.
// CreditBalance is the customer's "saldo haver" kept from overpayments.
type Customer struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	TaxID         string          `json:"tax_id"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
