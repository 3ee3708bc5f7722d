package cashbox

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Movement kinds. SALE, SALE_REVERSAL and RECEIVABLE_SETTLEMENT are written
// by the sale ledger; MANUAL_IN and MANUAL_OUT come from the counter UI.
const (
	MovementSale         = "SALE"
	MovementSaleReversal = "SALE_REVERSAL"
	MovementSettlement   = "RECEIVABLE_SETTLEMENT"
	MovementManualIn     = "MANUAL_IN"
	MovementManualOut    = "MANUAL_OUT"
)

// Session is one cash drawer shift. At most one session is OPEN at a time,
// enforced by a partial unique index on status.
type Session struct {
	ID             int64               `json:"id"`
	Status         string              `json:"status"`
	OpeningBalance decimal.Decimal     `json:"opening_balance"`
	CurrentBalance decimal.Decimal     `json:"current_balance"`
	ClosingBalance decimal.NullDecimal `json:"closing_balance"`
	OpenedAt       time.Time           `json:"opened_at"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
}

// Movement is an immutable cash entry. Amounts are signed: inflows positive,
// outflows negative. Corrections are made with inverse entries, never updates.
type Movement struct {
	ID           int64           `json:"id"`
	SessionID    int64           `json:"session_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	SaleID       *int64          `json:"sale_id,omitempty"`
	ReceivableID *int64          `json:"receivable_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

var (
	// ErrNoOpenSession is returned by operations that require an open drawer.
	ErrNoOpenSession = fmt.Errorf("%w: no open cash session", shared.ErrPrecondition)
	// ErrSessionAlreadyOpen is returned when opening while another session is open.
	ErrSessionAlreadyOpen = fmt.Errorf("%w: a cash session is already open", shared.ErrConflict)
)
