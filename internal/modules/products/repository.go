package products

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// productColumns is the SELECT list for the wealth_products table.
const productColumns = `product_code, product_name, sales_type, product_type,
product_status, fund_raising, risk_level, issuer, min_purchase_amount`

// predicate is one WHERE clause element: field, operator and bound argument.
// Field and operator are always literals from this package, never caller
// input; only args travel as placeholders.
type predicate struct {
	field string
	op    string
	arg   any
}

func (p predicate) clause() string {
	return p.field + " " + p.op + " ?"
}

// predicates assembles the ordered predicate list from the filter.
// Only supplied criteria produce predicates.
func (f Filter) predicates() []predicate {
	var preds []predicate

	exact := []struct {
		field string
		value string
	}{
		{"sales_type", f.SalesType},
		{"product_type", f.ProductType},
		{"product_status", f.ProductStatus},
		{"fund_raising", f.FundRaising},
		{"risk_level", f.RiskLevel},
		{"product_code", f.ProductCode},
	}
	for _, e := range exact {
		if e.value != "" {
			preds = append(preds, predicate{field: e.field, op: "=", arg: e.value})
		}
	}

	if f.ProductName != "" {
		preds = append(preds, predicate{field: "product_name", op: "LIKE", arg: "%" + f.ProductName + "%"})
	}
	if f.Issuer != "" {
		preds = append(preds, predicate{field: "issuer", op: "LIKE", arg: "%" + f.Issuer + "%"})
	}
	if f.MaxMinPurchase != nil {
		preds = append(preds, predicate{field: "min_purchase_amount", op: "<=", arg: *f.MaxMinPurchase})
	}

	return preds
}

// Repository handles wealth product database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new product repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "product").Logger(),
	}
}

// Search returns products matching the filter, capped at f.Limit rows.
// Zero matches yield an empty slice, never an error.
func (r *Repository) Search(ctx context.Context, f Filter) ([]Product, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}

	query := "SELECT " + productColumns + " FROM wealth_products"

	var clauses []string
	var args []any
	for _, p := range f.predicates() {
		clauses = append(clauses, p.clause())
		args = append(args, p.arg)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " LIMIT ?"
	args = append(args, f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	r.log.Debug().Int("count", len(products)).Msg("Product search completed")
	return products, nil
}

// GetByCode returns a single product by exact code, or nil when not found.
// The lookup ignores product status: suitability analysis must resolve
// continuing products too.
func (r *Repository) GetByCode(ctx context.Context, productCode string) (*Product, error) {
	query := "SELECT " + productColumns + " FROM wealth_products WHERE product_code = ?"

	rows, err := r.db.QueryContext(ctx, query, productCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query product by code: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read product row: %w", err)
		}
		return nil, nil // Product not found
	}

	product, err := scanProduct(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	return &product, nil
}

func scanProduct(rows *sql.Rows) (Product, error) {
	var product Product
	var minPurchase sql.NullFloat64

	err := rows.Scan(
		&product.ProductCode,
		&product.ProductName,
		&product.SalesType,
		&product.ProductType,
		&product.ProductStatus,
		&product.FundRaising,
		&product.RiskLevel,
		&product.Issuer,
		&minPurchase,
	)
	if err != nil {
		return product, err
	}

	if minPurchase.Valid {
		product.MinPurchaseAmount = &minPurchase.Float64
	}

	return product, nil
}
