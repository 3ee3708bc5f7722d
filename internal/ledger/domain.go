package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

var (
	// ErrUnknownProduct is returned when a sale or quote references a product id
	// that does not exist.
	ErrUnknownProduct = fmt.Errorf("%w: unknown product", shared.ErrValidation)
	// ErrInsufficientStock is returned when negative stock is disabled and the
	// sale would take a product below zero.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", shared.ErrPrecondition)
	// ErrReceivableSettled is returned when settling a receivable twice.
	ErrReceivableSettled = fmt.Errorf("%w: receivable already settled", shared.ErrConflict)
	// ErrSaleHasSettledCredit blocks cancelling a sale whose crediario was paid.
	ErrSaleHasSettledCredit = fmt.Errorf("%w: sale has a settled receivable", shared.ErrConflict)
)

// Payment methods accepted at the counter. CREDIT is the store tab
// ("crediario"): the amount becomes a receivable instead of cash.
const (
	MethodCash   = "CASH"
	MethodCard   = "CARD"
	MethodPix    = "PIX"
	MethodCredit = "CREDIT"
)

const (
	ReceivablePending = "PENDING"
	ReceivablePaid    = "PAID"
)

// Sale is a completed counter sale. CashSessionID records the session that
// was open when the sale was made, nil when the drawer was closed; the async
// cash credit targets it even if the drawer closes before the credit runs.
type Sale struct {
	ID              int64           `json:"id"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Delivery        bool            `json:"delivery"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	CashSessionID   *int64          `json:"cash_session_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []SaleItem      `json:"items"`
	Payments        []Payment       `json:"payments"`
}

type SaleItem struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Payment struct {
	ID     int64           `json:"id"`
	SaleID int64           `json:"sale_id"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// Receivable is an open crediario balance created by a CREDIT payment.
type Receivable struct {
	ID           int64           `json:"id"`
	SaleID       int64           `json:"sale_id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
}

func validMethod(method string) bool {
	switch method {
	case MethodCash, MethodCard, MethodPix, MethodCredit:
		return true
	}
	return false
}
