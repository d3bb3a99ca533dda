package customers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// unfilteredLimit caps the row count when no criteria are supplied.
// A safety default, not a sorted "top 10": no ordering is imposed.
const unfilteredLimit = 10

// customerColumns is the SELECT list for the customer join.
// Used to avoid SELECT * which can break when the schema changes.
const customerColumns = `i.customer_id, i.name, i.id_card, i.id_card_masked, i.available_funds,
p.risk_level, p.wealth_tier, p.life_stage, p.preferred_term_min, p.preferred_term_max,
p.investment_preference, p.financial_goals, p.liquidity_need, p.marketing_tags`

// Repository handles customer database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new customer repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "customer").Logger(),
	}
}

// Search returns customers matching the supplied criteria. Zero matches
// yield an empty slice, never an error.
func (r *Repository) Search(ctx context.Context, q Query) ([]Customer, error) {
	query := "SELECT " + customerColumns + `
FROM customer_info i
LEFT JOIN customer_persona p ON i.customer_id = p.customer_id`

	var clauses []string
	var args []any

	if q.CustomerID != nil {
		clauses = append(clauses, "i.customer_id = ?")
		args = append(args, *q.CustomerID)
	}
	if q.Name != "" {
		clauses = append(clauses, "i.name LIKE ?")
		args = append(args, "%"+q.Name+"%")
	}
	if q.IDCard != "" {
		// Callers may hold either the full or the redacted identifier
		clauses = append(clauses, "(i.id_card = ? OR i.id_card_masked = ?)")
		args = append(args, q.IDCard, q.IDCard)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	} else {
		query += fmt.Sprintf(" LIMIT %d", unfilteredLimit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	r.log.Debug().Int("count", len(customers)).Msg("Customer search completed")
	return customers, nil
}

// GetByID returns a single customer by exact id, or nil when not found.
func (r *Repository) GetByID(ctx context.Context, customerID int64) (*Customer, error) {
	results, err := r.Search(ctx, Query{CustomerID: &customerID})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil // Customer not found
	}
	return &results[0], nil
}

func scanCustomer(rows *sql.Rows) (Customer, error) {
	var customer Customer
	var riskLevel, wealthTier, lifeStage sql.NullString
	var preferredTermMin, preferredTermMax sql.NullInt64
	var investmentPreference, financialGoals, liquidityNeed, marketingTags sql.NullString

	err := rows.Scan(
		&customer.CustomerID,
		&customer.Name,
		&customer.IDCard,
		&customer.IDCardMasked,
		&customer.AvailableFunds,
		&riskLevel,
		&wealthTier,
		&lifeStage,
		&preferredTermMin,
		&preferredTermMax,
		&investmentPreference,
		&financialGoals,
		&liquidityNeed,
		&marketingTags,
	)
	if err != nil {
		return customer, err
	}

	// Persona columns are null when the LEFT JOIN found no persona row
	if riskLevel.Valid {
		customer.RiskLevel = &riskLevel.String
	}
	if wealthTier.Valid {
		customer.WealthTier = &wealthTier.String
	}
	if lifeStage.Valid {
		customer.LifeStage = &lifeStage.String
	}
	if preferredTermMin.Valid {
		customer.PreferredTermMin = &preferredTermMin.Int64
	}
	if preferredTermMax.Valid {
		customer.PreferredTermMax = &preferredTermMax.Int64
	}
	if investmentPreference.Valid {
		customer.InvestmentPreference = &investmentPreference.String
	}
	if financialGoals.Valid {
		customer.FinancialGoals = &financialGoals.String
	}
	if liquidityNeed.Valid {
		customer.LiquidityNeed = &liquidityNeed.String
	}
	if marketingTags.Valid {
		customer.MarketingTags = &marketingTags.String
	}

	return customer, nil
}
