package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createPaymentsTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		claim_wallet TEXT,
		invoice_id TEXT,
		payment_id INTEGER UNIQUE,
		order_id TEXT NOT NULL UNIQUE,
		price_amount TEXT NOT NULL,
		token_amount INTEGER NOT NULL,
		pay_amount TEXT,
		pay_currency TEXT,
		actually_paid TEXT,
		payment_status TEXT NOT NULL,
		credit_status TEXT NOT NULL DEFAULT 'PENDING',
		referral_code TEXT,
		credit_tx TEXT,
		credit_error TEXT,
		paid_at DATETIME,
		credited_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createInvestorsTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE investors (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL UNIQUE,
		total_invested_usd TEXT NOT NULL DEFAULT '0',
		total_tokens INTEGER NOT NULL DEFAULT 0,
		launching_tokens INTEGER NOT NULL DEFAULT 0,
		payment_count INTEGER NOT NULL DEFAULT 0,
		referral_code TEXT UNIQUE,
		referral_earnings_usd TEXT NOT NULL DEFAULT '0',
		referral_tokens INTEGER NOT NULL DEFAULT 0,
		referral_count INTEGER NOT NULL DEFAULT 0,
		extra TEXT DEFAULT '{}',
		first_invested_at DATETIME,
		last_invested_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}
