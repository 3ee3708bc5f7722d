package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

// Product is a sellable item. Fiscal classification codes (NCM, CFOP, CSOSN,
// origin) are carried through unopinionated for the document issuance service.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	StockQuantity int64           `json:"stock_quantity"`
	Unit          string          `json:"unit"`
	Category      string          `json:"category"`
	NCM           string          `json:"ncm"`
	CFOP          string          `json:"cfop"`
	CSOSN         string          `json:"csosn"`
	Origin        string          `json:"origin"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// ErrProductInUse indicates the product is referenced by sale or quote items.
var ErrProductInUse = fmt.Errorf("%w: product referenced by sales", shared.ErrConflict)
