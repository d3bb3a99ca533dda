package products

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE wealth_products (
			product_code        TEXT PRIMARY KEY,
			product_name        TEXT NOT NULL,
			sales_type          TEXT NOT NULL,
			product_type        TEXT NOT NULL,
			product_status      TEXT NOT NULL DEFAULT '在售',
			fund_raising        TEXT NOT NULL,
			risk_level          TEXT NOT NULL,
			issuer              TEXT NOT NULL,
			min_purchase_amount REAL
		)
	`)
	require.NoError(t, err, "Failed to create test table")

	return db
}

type testProduct struct {
	code        string
	name        string
	salesType   string
	productType string
	status      string
	fundRaising string
	riskLevel   string
	issuer      string
	minPurchase *float64
}

func insertProduct(t *testing.T, db *sql.DB, p testProduct) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO wealth_products (product_code, product_name, sales_type, product_type,
			product_status, fund_raising, risk_level, issuer, min_purchase_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.code, p.name, p.salesType, p.productType, p.status, p.fundRaising, p.riskLevel, p.issuer, p.minPurchase,
	)
	require.NoError(t, err)
}

func floatPtr(v float64) *float64 { return &v }

func seedProducts(t *testing.T, db *sql.DB) {
	t.Helper()
	insertProduct(t, db, testProduct{"P1", "金竹固收稳利90天", "自营", "理财", "在售", "公募", "低风险", "厦门国际银行理财", floatPtr(10000)})
	insertProduct(t, db, testProduct{"P2", "鑫锐股票精选", "代销", "基金", "在售", "公募", "偏高风险", "华夏基金", floatPtr(1000)})
	insertProduct(t, db, testProduct{"P3", "金竹添益365天", "自营", "理财", "存续", "公募", "偏低风险", "厦门国际银行理财", floatPtr(10000)})
	insertProduct(t, db, testProduct{"P4", "盛世臻选集合信托", "代销", "信托", "在售", "私募", "高风险", "中信信托", floatPtr(1000000)})
	insertProduct(t, db, testProduct{"P5", "安享岁岁终身寿险", "代销", "保险", "在售", "公募", "低风险", "太平人寿", nil})
}

func TestSearch_DefaultStatusIsOnSale(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	seedProducts(t, db)

	repo := NewRepository(db, log)

	results, err := repo.Search(context.Background(), NewFilter())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, p := range results {
		assert.Equal(t, StatusOnSale, p.ProductStatus)
	}
	assert.Len(t, results, 4, "the continuing product must be filtered out")
}

func TestSearch_ExplicitEmptyStatusDisablesDefault(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	seedProducts(t, db)

	repo := NewRepository(db, log)

	f := NewFilter()
	f.ProductStatus = ""
	results, err := repo.Search(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, results, 5, "clearing the status filter must return all statuses")
}

func TestSearch_ExactFilters(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	seedProducts(t, db)

	repo := NewRepository(db, log)

	testCases := []struct {
		name   string
		mutate func(*Filter)
		verify func(*testing.T, Product)
	}{
		{
			name:   "sales_type",
			mutate: func(f *Filter) { f.SalesType = "代销" },
			verify: func(t *testing.T, p Product) { assert.Equal(t, "代销", p.SalesType) },
		},
		{
			name:   "product_type",
			mutate: func(f *Filter) { f.ProductType = "理财" },
			verify: func(t *testing.T, p Product) { assert.Equal(t, "理财", p.ProductType) },
		},
		{
			name:   "fund_raising",
			mutate: func(f *Filter) { f.FundRaising = "私募" },
			verify: func(t *testing.T, p Product) { assert.Equal(t, "私募", p.FundRaising) },
		},
		{
			name:   "risk_level",
			mutate: func(f *Filter) { f.RiskLevel = "低风险" },
			verify: func(t *testing.T, p Product) { assert.Equal(t, "低风险", p.RiskLevel) },
		},
		{
			name:   "product_code",
			mutate: func(f *Filter) { f.ProductCode = "P2" },
			verify: func(t *testing.T, p Product) { assert.Equal(t, "P2", p.ProductCode) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFilter()
			tc.mutate(&f)

			results, err := repo.Search(context.Background(), f)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			for _, p := range results {
				tc.verify(t, p)
			}
		})
	}
}

func TestSearch_SubstringFilters(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	seedProducts(t, db)

	repo := NewRepository(db, log)

	f := NewFilter()
	f.ProductName = "金竹"
	results, err := repo.Search(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, results, 1) // P3 is 存续 and excluded by the status default
	assert.Contains(t, results[0].ProductName, "金竹")

	f = NewFilter()
	f.Issuer = "国际银行"
	results, err = repo.Search(context.Background(), f)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, p := range results {
		assert.Contains(t, p.Issuer, "国际银行")
	}
}

func TestSearch_MaxMinPurchase(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	seedProducts(t, db)

	repo := NewRepository(db, log)

	f := NewFilter()
	f.MaxMinPurchase = floatPtr(10000)
	results, err := repo.Search(context.Background(), f)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, p := range results {
		require.NotNil(t, p.MinPurchaseAmount)
		assert.LessOrEqual(t, *p.MinPurchaseAmount, 10000.0)
	}
}

func TestSearch_LimitCapsResults(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	for i := 1; i <= 15; i++ {
		insertProduct(t, db, testProduct{
			code: fmt.Sprintf("L%02d", i), name: fmt.Sprintf("产品%d", i),
			salesType: "自营", productType: "理财", status: "在售",
			fundRaising: "公募", riskLevel: "低风险", issuer: "发行方",
		})
	}

	repo := NewRepository(db, log)

	results, err := repo.Search(context.Background(), NewFilter())
	require.NoError(t, err)
	assert.Len(t, results, DefaultLimit)

	f := NewFilter()
	f.Limit = 3
	results, err = repo.Search(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_NoMatchesIsEmptyNotError(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	seedProducts(t, db)

	repo := NewRepository(db, log)

	f := NewFilter()
	f.ProductType = "商业养老金"
	results, err := repo.Search(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results, "empty result must be a slice, not nil")
}

func TestGetByCode(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	seedProducts(t, db)

	repo := NewRepository(db, log)

	product, err := repo.GetByCode(context.Background(), "P5")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "P5", product.ProductCode)
	assert.Nil(t, product.MinPurchaseAmount, "null minimum purchase must stay nil")

	// Status is ignored for direct code lookups
	product, err = repo.GetByCode(context.Background(), "P3")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, StatusContinuing, product.ProductStatus)

	product, err = repo.GetByCode(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, product, "missing product is nil, not an error")
}

func TestFilter_Predicates(t *testing.T) {
	f := NewFilter()
	preds := f.predicates()
	require.Len(t, preds, 1, "a fresh filter only carries the status default")
	assert.Equal(t, "product_status", preds[0].field)
	assert.Equal(t, "=", preds[0].op)

	f.ProductStatus = ""
	assert.Empty(t, f.predicates(), "cleared filter produces no predicates")

	f = NewFilter()
	f.RiskLevel = "低风险"
	f.Issuer = "银行"
	f.MaxMinPurchase = floatPtr(5000)
	preds = f.predicates()
	require.Len(t, preds, 4)
	// Exact predicates come first, then substring, then range
	assert.Equal(t, "product_status", preds[0].field)
	assert.Equal(t, "risk_level", preds[1].field)
	assert.Equal(t, "issuer", preds[2].field)
	assert.Equal(t, "LIKE", preds[2].op)
	assert.Equal(t, "min_purchase_amount", preds[3].field)
	assert.Equal(t, "<=", preds[3].op)
}
