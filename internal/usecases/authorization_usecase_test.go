package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainchain "duck-presale.backend/internal/domain/blockchain"
	domainerrors "duck-presale.backend/internal/domain/errors"
)

func newAuthFixture(day int) (*AuthorizationUsecase, *MockChainService, *MockSigner, *MockNonceManager) {
	chain := new(MockChainService)
	signer := new(MockSigner)
	nonces := new(MockNonceManager)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	uc := NewAuthorizationUsecase(chain, signer, nonces, start)
	uc.now = func() time.Time { return start.AddDate(0, 0, day-1).Add(12 * time.Hour) }
	return uc, chain, signer, nonces
}

func validAuthInput() *AuthorizePurchaseInput {
	return &AuthorizePurchaseInput{
		Buyer:           testClaimWallet,
		PaymentCurrency: "SOL",
		PaymentAmount:   250_000_000, // 0.25 SOL in lamports
		USDAmount:       50,
	}
}

func TestAuthorizePurchase_Success(t *testing.T) {
	uc, chain, signer, nonces := newAuthFixture(1)

	chain.On("GetConfig", mock.Anything).Return(&domainchain.ConfigSnapshot{
		Status:   domainchain.StatusPresaleActive,
		PriceUSD: 1_000_000, // $0.0010
	}, nil)
	nonces.On("Generate", mock.Anything, testClaimWallet).Return(uint64(777), nil)
	nonces.On("MarkPending", mock.Anything, testClaimWallet, uint64(777)).Return(nil)
	signer.On("SignPurchase", domainchain.PurchaseParams{
		Buyer:         testClaimWallet,
		PaymentType:   domainchain.PaymentTypeSOL,
		PaymentAmount: 250_000_000,
		TokenAmount:   50_000_000_000_000,
		Nonce:         777,
	}).Return(&domainchain.Authorization{Signature: "sig58", Nonce: 777}, nil)

	auth, err := uc.AuthorizePurchase(context.Background(), validAuthInput())
	require.NoError(t, err)
	assert.Equal(t, "sig58", auth.Signature)
	assert.Equal(t, uint64(777), auth.Nonce)
	nonces.AssertExpectations(t)
}

func TestAuthorizePurchase_Validation(t *testing.T) {
	t.Run("buyer must be solana", func(t *testing.T) {
		uc, _, _, _ := newAuthFixture(1)
		input := validAuthInput()
		input.Buyer = testBuyerWallet // EVM address
		_, err := uc.AuthorizePurchase(context.Background(), input)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	})

	t.Run("unknown currency", func(t *testing.T) {
		uc, _, _, _ := newAuthFixture(1)
		input := validAuthInput()
		input.PaymentCurrency = "DOGE"
		_, err := uc.AuthorizePurchase(context.Background(), input)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	})

	t.Run("before start", func(t *testing.T) {
		uc, _, _, _ := newAuthFixture(-2)
		_, err := uc.AuthorizePurchase(context.Background(), validAuthInput())
		assert.ErrorIs(t, err, domainerrors.ErrSaleNotStarted)
	})
}

func TestAuthorizePurchase_PresaleNotActive(t *testing.T) {
	uc, chain, signer, _ := newAuthFixture(1)
	chain.On("GetConfig", mock.Anything).Return(&domainchain.ConfigSnapshot{
		Status: domainchain.StatusPresaleEnded,
	}, nil)

	_, err := uc.AuthorizePurchase(context.Background(), validAuthInput())
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	signer.AssertNotCalled(t, "SignPurchase")
}

func TestAuthorizePurchase_NonceFailureFailsClosed(t *testing.T) {
	uc, chain, signer, nonces := newAuthFixture(1)
	chain.On("GetConfig", mock.Anything).Return(&domainchain.ConfigSnapshot{
		Status:   domainchain.StatusPresaleActive,
		PriceUSD: 1_000_000,
	}, nil)
	nonces.On("Generate", mock.Anything, testClaimWallet).Return(uint64(0), errors.New("redis down"))

	_, err := uc.AuthorizePurchase(context.Background(), validAuthInput())
	assert.Error(t, err)
	signer.AssertNotCalled(t, "SignPurchase")
}

func TestCheckNonce(t *testing.T) {
	uc, _, _, nonces := newAuthFixture(1)
	nonces.On("IsAvailable", mock.Anything, testClaimWallet, uint64(777)).Return(true, nil)

	ok, err := uc.CheckNonce(context.Background(), testClaimWallet, 777)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = uc.CheckNonce(context.Background(), "not-a-wallet", 777)
	assert.Error(t, err)
}

func TestConfirmPurchase(t *testing.T) {
	t.Run("landed on-chain retires nonce", func(t *testing.T) {
		uc, chain, _, nonces := newAuthFixture(1)
		chain.On("IsNonceUsed", mock.Anything, testClaimWallet, uint64(777)).Return(true, nil)
		nonces.On("MarkUsed", mock.Anything, testClaimWallet, uint64(777)).Return(nil)

		used, err := uc.ConfirmPurchase(context.Background(), testClaimWallet, 777)
		require.NoError(t, err)
		assert.True(t, used)
		nonces.AssertExpectations(t)
	})

	t.Run("not landed leaves nonce alone", func(t *testing.T) {
		uc, chain, _, nonces := newAuthFixture(1)
		chain.On("IsNonceUsed", mock.Anything, testClaimWallet, uint64(777)).Return(false, nil)

		used, err := uc.ConfirmPurchase(context.Background(), testClaimWallet, 777)
		require.NoError(t, err)
		assert.False(t, used)
		nonces.AssertNotCalled(t, "MarkUsed")
	})

	t.Run("cache failure does not hide the answer", func(t *testing.T) {
		uc, chain, _, nonces := newAuthFixture(1)
		chain.On("IsNonceUsed", mock.Anything, testClaimWallet, uint64(777)).Return(true, nil)
		nonces.On("MarkUsed", mock.Anything, testClaimWallet, uint64(777)).Return(errors.New("redis down"))

		used, err := uc.ConfirmPurchase(context.Background(), testClaimWallet, 777)
		require.NoError(t, err)
		assert.True(t, used)
	})
}
