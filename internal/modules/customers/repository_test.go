package customers

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
		CREATE TABLE customer_info (
			customer_id     INTEGER PRIMARY KEY,
			name            TEXT NOT NULL,
			id_card         TEXT NOT NULL,
			id_card_masked  TEXT NOT NULL,
			available_funds REAL NOT NULL DEFAULT 0
		);
		CREATE TABLE customer_persona (
			customer_id           INTEGER PRIMARY KEY REFERENCES customer_info(customer_id),
			risk_level            TEXT,
			wealth_tier           TEXT,
			life_stage            TEXT,
			preferred_term_min    INTEGER,
			preferred_term_max    INTEGER,
			investment_preference TEXT,
			financial_goals       TEXT,
			liquidity_need        TEXT,
			marketing_tags        TEXT
		);
	`)
	require.NoError(t, err, "Failed to create test tables")

	return db
}

func insertCustomer(t *testing.T, db *sql.DB, id int64, name, idCard, masked string, funds float64) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO customer_info (customer_id, name, id_card, id_card_masked, available_funds) VALUES (?, ?, ?, ?, ?)",
		id, name, idCard, masked, funds,
	)
	require.NoError(t, err)
}

func insertPersona(t *testing.T, db *sql.DB, id int64, riskLevel string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO customer_persona (customer_id, risk_level, wealth_tier) VALUES (?, ?, '普卡')",
		id, riskLevel,
	)
	require.NoError(t, err)
}

func TestSearch_ByCustomerID(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	insertCustomer(t, db, 1, "陈伟霖", "350203198507124512", "3502**********4512", 50000)
	insertCustomer(t, db, 2, "林雅婷", "350206199211083629", "3502**********3629", 120000)

	repo := NewRepository(db, log)

	id := int64(1)
	results, err := repo.Search(context.Background(), Query{CustomerID: &id})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].CustomerID)
	assert.Equal(t, "陈伟霖", results[0].Name)

	// A non-existent id is an empty result, not an error
	missing := int64(9999)
	results, err = repo.Search(context.Background(), Query{CustomerID: &missing})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ByNameSubstring(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	insertCustomer(t, db, 1, "陈伟霖", "a", "a*", 0)
	insertCustomer(t, db, 2, "陈淑芬", "b", "b*", 0)
	insertCustomer(t, db, 3, "林雅婷", "c", "c*", 0)

	repo := NewRepository(db, log)

	results, err := repo.Search(context.Background(), Query{Name: "陈"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, c := range results {
		assert.Contains(t, c.Name, "陈")
	}
}

func TestSearch_ByIDCard_FullOrMasked(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	insertCustomer(t, db, 1, "陈伟霖", "350203198507124512", "3502**********4512", 0)

	repo := NewRepository(db, log)

	testCases := []struct {
		name   string
		idCard string
		found  bool
	}{
		{"full identifier", "350203198507124512", true},
		{"masked identifier", "3502**********4512", true},
		{"unknown identifier", "110101199001010011", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := repo.Search(context.Background(), Query{IDCard: tc.idCard})
			require.NoError(t, err)
			if tc.found {
				require.Len(t, results, 1)
				assert.Equal(t, int64(1), results[0].CustomerID)
			} else {
				assert.Empty(t, results)
			}
		})
	}
}

func TestSearch_FiltersAreANDCombined(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	insertCustomer(t, db, 1, "陈伟霖", "350203198507124512", "3502**********4512", 0)
	insertCustomer(t, db, 2, "陈伟强", "350203198507124999", "3502**********4999", 0)

	repo := NewRepository(db, log)

	id := int64(2)
	results, err := repo.Search(context.Background(), Query{CustomerID: &id, Name: "陈伟霖"})
	require.NoError(t, err)
	assert.Empty(t, results, "id and name filters must both apply")

	id = int64(1)
	results, err = repo.Search(context.Background(), Query{CustomerID: &id, Name: "陈伟"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].CustomerID)
}

func TestSearch_NoFilters_CapsAtTen(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	for i := int64(1); i <= 12; i++ {
		insertCustomer(t, db, i, fmt.Sprintf("客户%d", i), fmt.Sprintf("id-%d", i), fmt.Sprintf("m-%d", i), 0)
	}

	repo := NewRepository(db, log)

	results, err := repo.Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestSearch_PersonaLeftJoin(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	insertCustomer(t, db, 1, "陈伟霖", "a", "a*", 50000)
	insertPersona(t, db, 1, "保守型")
	insertCustomer(t, db, 2, "林雅婷", "b", "b*", 8000)
	// Customer 2 has no persona row

	repo := NewRepository(db, log)

	id := int64(1)
	withPersona, err := repo.Search(context.Background(), Query{CustomerID: &id})
	require.NoError(t, err)
	require.Len(t, withPersona, 1)
	require.NotNil(t, withPersona[0].RiskLevel)
	assert.Equal(t, "保守型", *withPersona[0].RiskLevel)
	require.NotNil(t, withPersona[0].WealthTier)
	assert.Equal(t, "普卡", *withPersona[0].WealthTier)

	id = int64(2)
	withoutPersona, err := repo.Search(context.Background(), Query{CustomerID: &id})
	require.NoError(t, err)
	require.Len(t, withoutPersona, 1)
	assert.Nil(t, withoutPersona[0].RiskLevel)
	assert.Nil(t, withoutPersona[0].WealthTier)
	assert.Nil(t, withoutPersona[0].MarketingTags)
}

func TestGetByID(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	insertCustomer(t, db, 7, "黄建国", "c", "c*", 2300000)

	repo := NewRepository(db, log)

	customer, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, int64(7), customer.CustomerID)
	assert.Equal(t, 2300000.0, customer.AvailableFunds)

	customer, err = repo.GetByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, customer, "missing customer is nil, not an error")
}
