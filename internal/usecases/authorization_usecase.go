package usecases

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	domainchain "duck-presale.backend/internal/domain/blockchain"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/pricing"
	"duck-presale.backend/pkg/logger"
	"duck-presale.backend/pkg/wallet"
)

// AuthorizePurchaseInput is a request for a server-signed direct purchase.
type AuthorizePurchaseInput struct {
	Buyer           string  `json:"buyer" binding:"required"`
	PaymentCurrency string  `json:"paymentCurrency" binding:"required"`
	PaymentAmount   uint64  `json:"paymentAmount" binding:"required"` // smallest units of the payment currency
	USDAmount       float64 `json:"usdAmount" binding:"required"`
}

// AuthorizationUsecase signs direct on-chain purchase authorizations and
// tracks their single-use nonces.
type AuthorizationUsecase struct {
	chain     domainchain.Service
	signer    domainchain.Signer
	nonces    domainchain.NonceManager
	startDate time.Time
	now       func() time.Time
}

// NewAuthorizationUsecase creates the purchase authorization flow.
func NewAuthorizationUsecase(
	chain domainchain.Service,
	signer domainchain.Signer,
	nonces domainchain.NonceManager,
	startDate time.Time,
) *AuthorizationUsecase {
	return &AuthorizationUsecase{
		chain:     chain,
		signer:    signer,
		nonces:    nonces,
		startDate: startDate,
		now:       time.Now,
	}
}

// AuthorizePurchase issues a signed message the buyer submits to the program.
// The nonce is reserved before signing, so an authorization that never lands
// on-chain simply expires with its reservation.
func (u *AuthorizationUsecase) AuthorizePurchase(ctx context.Context, input *AuthorizePurchaseInput) (*domainchain.Authorization, error) {
	if !wallet.IsSolana(input.Buyer) {
		return nil, domainerrors.BadRequest("buyer must be a Solana address")
	}

	paymentType, err := parsePaymentCurrency(input.PaymentCurrency)
	if err != nil {
		return nil, err
	}

	day := pricing.CurrentDay(u.startDate, u.now())
	if day < 1 {
		return nil, domainerrors.NewAppError(400, "presale has not started yet", domainerrors.ErrSaleNotStarted)
	}
	if day > pricing.TotalDays {
		return nil, domainerrors.BadRequest("presale has ended")
	}

	cfg, err := u.chain.GetConfig(ctx)
	if err != nil {
		return nil, domainerrors.BadGateway("chain read failed", err)
	}
	if cfg.Status != domainchain.StatusPresaleActive {
		return nil, domainerrors.BadRequest("presale is not accepting purchases")
	}

	usdMicro := pricing.USDToMicro(input.USDAmount)
	tokenAmount := pricing.TokenAmount(usdMicro, cfg.PriceUSD)
	if tokenAmount == 0 {
		return nil, domainerrors.BadRequest("amount too small for current token price")
	}

	nonce, err := u.nonces.Generate(ctx, input.Buyer)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}
	if err := u.nonces.MarkPending(ctx, input.Buyer, nonce); err != nil {
		return nil, domainerrors.InternalError(err)
	}

	auth, err := u.signer.SignPurchase(domainchain.PurchaseParams{
		Buyer:         input.Buyer,
		PaymentType:   paymentType,
		PaymentAmount: input.PaymentAmount,
		TokenAmount:   tokenAmount,
		Nonce:         nonce,
	})
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}

	logger.Info(ctx, "purchase authorization signed",
		zap.String("buyer", input.Buyer),
		zap.Uint64("nonce", nonce),
		zap.Uint64("token_amount", tokenAmount),
	)
	return auth, nil
}

// CheckNonce reports whether a nonce is still usable for the wallet.
func (u *AuthorizationUsecase) CheckNonce(ctx context.Context, walletAddr string, nonce uint64) (bool, error) {
	if !wallet.IsSolana(walletAddr) {
		return false, domainerrors.BadRequest("wallet must be a Solana address")
	}
	available, err := u.nonces.IsAvailable(ctx, walletAddr, nonce)
	if err != nil {
		return false, domainerrors.InternalError(err)
	}
	return available, nil
}

// ConfirmPurchase checks whether the authorized purchase landed on-chain and
// retires the nonce when it did.
func (u *AuthorizationUsecase) ConfirmPurchase(ctx context.Context, walletAddr string, nonce uint64) (bool, error) {
	if !wallet.IsSolana(walletAddr) {
		return false, domainerrors.BadRequest("wallet must be a Solana address")
	}
	used, err := u.chain.IsNonceUsed(ctx, walletAddr, nonce)
	if err != nil {
		return false, domainerrors.BadGateway("chain read failed", err)
	}
	if used {
		if err := u.nonces.MarkUsed(ctx, walletAddr, nonce); err != nil {
			logger.Warn(ctx, "failed to retire consumed nonce",
				zap.String("wallet", walletAddr),
				zap.Uint64("nonce", nonce),
				zap.Error(err),
			)
		}
	}
	return used, nil
}

func parsePaymentCurrency(currency string) (domainchain.PaymentType, error) {
	switch strings.ToUpper(currency) {
	case "SOL":
		return domainchain.PaymentTypeSOL, nil
	case "USDT":
		return domainchain.PaymentTypeUSDT, nil
	case "USDC":
		return domainchain.PaymentTypeUSDC, nil
	default:
		return 0, domainerrors.BadRequest("payment currency must be SOL, USDT or USDC")
	}
}
