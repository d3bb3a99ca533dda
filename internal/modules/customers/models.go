// Package customers provides customer search over the bank CRM store.
//
// Each customer row is the LEFT JOIN of customer_info and customer_persona
// flattened into a single record; persona fields are nil when no persona
// exists for the customer.
package customers

// Customer is a flattened customer_info / customer_persona join row.
type Customer struct {
	CustomerID     int64   `json:"customer_id"`
	Name           string  `json:"name"`
	IDCard         string  `json:"id_card"`
	IDCardMasked   string  `json:"id_card_masked"`
	AvailableFunds float64 `json:"available_funds"`

	// Persona columns, nil when the customer has no persona row
	RiskLevel            *string `json:"risk_level"`
	WealthTier           *string `json:"wealth_tier"`
	LifeStage            *string `json:"life_stage"`
	PreferredTermMin     *int64  `json:"preferred_term_min"`
	PreferredTermMax     *int64  `json:"preferred_term_max"`
	InvestmentPreference *string `json:"investment_preference"`
	FinancialGoals       *string `json:"financial_goals"`
	LiquidityNeed        *string `json:"liquidity_need"`
	MarketingTags        *string `json:"marketing_tags"`
}

// Query holds the optional customer search criteria. Supplied criteria are
// AND-combined; a zero Query matches everything (capped at 10 rows).
type Query struct {
	CustomerID *int64 // Exact match
	Name       string // Substring match
	IDCard     string // Matches either the full or the masked identifier
}
