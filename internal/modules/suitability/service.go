package suitability

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/xmcrm/wealth-mcp/internal/modules/customers"
	"github.com/xmcrm/wealth-mcp/internal/modules/products"
)

// Service composes the customer and product lookups into a suitability
// analysis. Pure read-then-compute: no caching, no writes.
type Service struct {
	customerRepo *customers.Repository
	productRepo  *products.Repository
	log          zerolog.Logger
}

// NewService creates a new suitability service
func NewService(customerRepo *customers.Repository, productRepo *products.Repository, log zerolog.Logger) *Service {
	return &Service{
		customerRepo: customerRepo,
		productRepo:  productRepo,
		log:          log.With().Str("service", "suitability").Logger(),
	}
}

// Analyze resolves the customer and product and scores the pairing.
// A missing customer fails before the product is even looked up.
func (s *Service) Analyze(ctx context.Context, customerID int64, productCode string) (*Result, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, &NotFoundError{Entity: "customer", Key: strconv.FormatInt(customerID, 10)}
	}

	product, err := s.productRepo.GetByCode(ctx, productCode)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &NotFoundError{Entity: "product", Key: productCode}
	}

	customerRank := unknownCustomerRank
	if customer.RiskLevel != nil {
		customerRank = CustomerRiskRank(*customer.RiskLevel)
	}
	productRank := ProductRiskRank(product.RiskLevel)

	// A customer may only be matched to products whose risk is at or
	// below their tolerance.
	riskMatch := productRank <= customerRank

	// A null minimum purchase amount means no entry barrier.
	minPurchase := 0.0
	if product.MinPurchaseAmount != nil {
		minPurchase = *product.MinPurchaseAmount
	}
	fundsMatch := customer.AvailableFunds >= minPurchase

	result := &Result{
		IsRiskCompatible:  riskMatch,
		IsFundsSufficient: fundsMatch,
		CustomerRisk:      customer.RiskLevel,
		ProductRisk:       product.RiskLevel,
		AvailableFunds:    customer.AvailableFunds,
		MinPurchase:       product.MinPurchaseAmount,
	}

	if riskMatch && fundsMatch {
		result.SuitabilityScore = ScoreSuitable
		result.Recommendation = RecommendationSuitable
	} else {
		result.SuitabilityScore = ScoreNotRecommended
		result.Recommendation = RecommendationNotRecommended
	}

	s.log.Debug().
		Int64("customer_id", customerID).
		Str("product_code", productCode).
		Bool("risk_match", riskMatch).
		Bool("funds_match", fundsMatch).
		Msg("Suitability analysis completed")

	return result, nil
}
