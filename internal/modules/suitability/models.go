package suitability

import "fmt"

// Scores and recommendation labels. The score is deliberately binary: two
// fixed values, not a gradient over mismatch severity.
const (
	ScoreSuitable       = 0.95
	ScoreNotRecommended = 0.4

	RecommendationSuitable       = "适配"
	RecommendationNotRecommended = "不建议"
)

// Result is the per-call analysis outcome. It is derived, never persisted.
type Result struct {
	SuitabilityScore  float64  `json:"suitability_score"`
	IsRiskCompatible  bool     `json:"is_risk_compatible"`
	IsFundsSufficient bool     `json:"is_funds_sufficient"`
	CustomerRisk      *string  `json:"customer_risk"` // Raw label, nil when no persona
	ProductRisk       string   `json:"product_risk"`  // Raw label
	AvailableFunds    float64  `json:"available_funds"`
	MinPurchase       *float64 `json:"min_purchase"` // Nil means no entry barrier
	Recommendation    string   `json:"recommendation_status"`
}

// NotFoundError reports that a lookup the analysis depends on found nothing.
// It is an expected outcome, surfaced to callers as structured data.
type NotFoundError struct {
	Entity string // "customer" or "product"
	Key    string // The id or code that missed
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}
