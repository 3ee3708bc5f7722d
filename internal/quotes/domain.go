package quotes

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a priced offer kept for later. It never touches stock, cash or
// receivables; turning it into a sale is a fresh recording at the counter.
type Quote struct {
	ID           int64           `json:"id"`
	CustomerID   *int64          `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Items        []QuoteItem     `json:"items"`
}

type QuoteItem struct {
	ID          int64           `json:"id"`
	QuoteID     int64           `json:"quote_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}
