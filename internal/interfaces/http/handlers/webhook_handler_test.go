package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	domainchain "duck-presale.backend/internal/domain/blockchain"
	"duck-presale.backend/internal/infrastructure/repositories"
	"duck-presale.backend/internal/usecases"
	"duck-presale.backend/pkg/logger"
)

const webhookSecret = "ipn-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Init("development")
	os.Exit(m.Run())
}

// stubChain counts credits; the settlement engine is the only caller here.
type stubChain struct {
	mu      sync.Mutex
	credits []string
	fail    bool
}

func (s *stubChain) GetConfig(ctx context.Context) (*domainchain.ConfigSnapshot, error) {
	return &domainchain.ConfigSnapshot{}, nil
}

func (s *stubChain) GetAllocation(ctx context.Context, identityKey [32]byte) (*domainchain.Allocation, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubChain) GetVestingInfo(ctx context.Context, identityKey [32]byte) (*domainchain.VestingInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubChain) CreditAllocation(ctx context.Context, identityKey [32]byte, tokenAmount, usdAmount uint64, paymentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", fmt.Errorf("rpc unavailable")
	}
	s.credits = append(s.credits, paymentID)
	return "tx-" + paymentID, nil
}

func (s *stubChain) UpdateDailyConfig(ctx context.Context, priceUSD uint64, tge uint8, dailyCap uint64) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (s *stubChain) BindClaimWallet(ctx context.Context, identityKey [32]byte, claimWallet string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (s *stubChain) PrepareClaim(ctx context.Context, identityKey [32]byte, destinationWallet, tokenAccount string) (*domainchain.UnsignedClaim, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubChain) IsNonceUsed(ctx context.Context, wallet string, nonce uint64) (bool, error) {
	return false, nil
}

func newWebhookFixture(t *testing.T) (*gin.Engine, *gorm.DB, *stubChain) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE payments (
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
	);`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE investors (
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
	);`).Error)

	chain := &stubChain{}
	settlement := usecases.NewSettlementUsecase(
		repositories.NewPaymentRepository(db),
		repositories.NewInvestorRepository(db),
		repositories.NewUnitOfWork(db),
		chain,
		webhookSecret,
	)

	r := gin.New()
	r.POST("/webhook", NewWebhookHandler(settlement).HandleIPN)
	return r, db, chain
}

func seedPayment(t *testing.T, db *gorm.DB, orderID string) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO payments (id, wallet_address, order_id, price_amount, token_amount, payment_status, credit_status, created_at, updated_at)
		 VALUES (?, ?, ?, '50', 50000000000000, 'WAITING', 'PENDING', ?, ?)`,
		uuid.NewString(), "0x1111111111111111111111111111111111111111", orderID, time.Now(), time.Now(),
	).Error)
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func deliver(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHandleIPN_BadSignatureRejected(t *testing.T) {
	r, _, chain := newWebhookFixture(t)

	body := []byte(`{"order_id":"order-1","payment_status":"finished"}`)
	w := deliver(r, body, "deadbeef")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, chain.credits)

	w = deliver(r, body, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleIPN_UnknownOrderAcknowledged(t *testing.T) {
	r, _, _ := newWebhookFixture(t)

	// canonical form: sorted keys, so the raw body signs as-is
	body := []byte(`{"order_id":"never-issued","payment_status":"finished"}`)
	w := deliver(r, body, signBody(webhookSecret, body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestHandleIPN_FinishedCreditsOnce(t *testing.T) {
	r, db, chain := newWebhookFixture(t)
	seedPayment(t, db, "order-1")

	body := []byte(`{"order_id":"order-1","payment_id":42,"payment_status":"finished"}`)
	sig := signBody(webhookSecret, []byte(`{"order_id":"order-1","payment_id":42,"payment_status":"finished"}`))

	w := deliver(r, body, sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var creditStatus, paymentStatus, creditTx string
	row := db.Raw(`SELECT credit_status, payment_status, credit_tx FROM payments WHERE order_id = 'order-1'`)
	require.NoError(t, row.Row().Scan(&creditStatus, &paymentStatus, &creditTx))
	assert.Equal(t, "CREDITED", creditStatus)
	assert.Equal(t, "FINISHED", paymentStatus)
	assert.Equal(t, "tx-order-1", creditTx)

	// gateway redelivery must not double-credit
	w = deliver(r, body, sig)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"order-1"}, chain.credits)
}

func TestHandleIPN_OverlappingDeliveriesCreditOnce(t *testing.T) {
	r, db, chain := newWebhookFixture(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection makes the two transactions queue like row locks
	// would on postgres
	sqlDB.SetMaxOpenConns(1)
	seedPayment(t, db, "order-1")

	body := []byte(`{"order_id":"order-1","payment_status":"finished"}`)
	sig := signBody(webhookSecret, body)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = deliver(r, body, sig).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, []string{"order-1"}, chain.credits)

	var creditStatus string
	require.NoError(t, db.Raw(`SELECT credit_status FROM payments WHERE order_id = 'order-1'`).Row().Scan(&creditStatus))
	assert.Equal(t, "CREDITED", creditStatus)
}

func TestHandleIPN_ChainFailureReported(t *testing.T) {
	r, db, chain := newWebhookFixture(t)
	chain.fail = true
	seedPayment(t, db, "order-2")

	body := []byte(`{"order_id":"order-2","payment_status":"finished"}`)
	w := deliver(r, body, signBody(webhookSecret, body))
	require.Equal(t, http.StatusOK, w.Code)

	var creditStatus, creditErr string
	require.NoError(t, db.Raw(`SELECT credit_status, credit_error FROM payments WHERE order_id = 'order-2'`).Row().Scan(&creditStatus, &creditErr))
	assert.Equal(t, "FAILED", creditStatus)
	assert.Contains(t, creditErr, "rpc unavailable")
}

func TestHandleIPN_MalformedBody(t *testing.T) {
	r, _, _ := newWebhookFixture(t)
	w := deliver(r, []byte("not json"), "deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
