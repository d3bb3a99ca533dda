// Package products provides wealth product search over the bank CRM store.
package products

// Product lifecycle and default-filter values.
const (
	StatusOnSale     = "在售" // On-sale: visible by default
	StatusContinuing = "存续" // Continuing: only returned when asked for
)

// Product is a wealth_products row.
type Product struct {
	ProductCode   string `json:"product_code"`
	ProductName   string `json:"product_name"`
	SalesType     string `json:"sales_type"`   // 自营 / 代销
	ProductType   string `json:"product_type"` // 结构性存款, 理财, 基金, 保险, 资管, 信托, 商业养老金
	ProductStatus string `json:"product_status"`
	FundRaising   string `json:"fund_raising"` // 公募 / 私募
	RiskLevel     string `json:"risk_level"`   // 低风险 .. 高风险
	Issuer        string `json:"issuer"`

	// Nil means no entry barrier
	MinPurchaseAmount *float64 `json:"min_purchase_amount"`
}

// Filter holds the product search criteria. Zero-valued string fields are
// not applied; construct with NewFilter to get the on-sale status default,
// then clear ProductStatus explicitly to search across all statuses.
type Filter struct {
	ProductName   string // Substring match
	ProductCode   string // Exact match
	SalesType     string // Exact match
	ProductType   string // Exact match
	ProductStatus string // Exact match, defaults to StatusOnSale
	FundRaising   string // Exact match
	RiskLevel     string // Exact match
	Issuer        string // Substring match

	// MaxMinPurchase keeps only products whose minimum purchase amount is
	// at or below the ceiling (what a customer can afford).
	MaxMinPurchase *float64

	Limit int // Result cap, defaults to DefaultLimit
}

// DefaultLimit caps product search results unless the caller asks otherwise.
const DefaultLimit = 10

// NewFilter returns a Filter with the contract defaults applied.
func NewFilter() Filter {
	return Filter{
		ProductStatus: StatusOnSale,
		Limit:         DefaultLimit,
	}
}
