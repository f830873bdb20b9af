package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	domainchain "duck-presale.backend/internal/domain/blockchain"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/domain/repositories"
	"duck-presale.backend/internal/pricing"
	"duck-presale.backend/pkg/logger"
	"duck-presale.backend/pkg/wallet"
)

// ChallengeStore is the replayable-challenge surface the binding flow uses.
type ChallengeStore interface {
	Issue(ctx context.Context, wallet, claimWallet string) (string, error)
	Consume(ctx context.Context, wallet string) (string, error)
}

// SignatureVerifier checks a personal-sign signature over a challenge message.
type SignatureVerifier func(wallet, message, signature string) error

// OnchainUsecase exposes on-chain reads and the claim-wallet binding flow.
type OnchainUsecase struct {
	chain        domainchain.Service
	investorRepo repositories.InvestorRepository
	paymentRepo  repositories.PaymentRepository
	challenges   ChallengeStore
	verifyEVM    SignatureVerifier
	startDate    time.Time
	now          func() time.Time
}

// NewOnchainUsecase creates the on-chain read/bind flow.
func NewOnchainUsecase(
	chain domainchain.Service,
	investorRepo repositories.InvestorRepository,
	paymentRepo repositories.PaymentRepository,
	challenges ChallengeStore,
	verifyEVM SignatureVerifier,
	startDate time.Time,
) *OnchainUsecase {
	return &OnchainUsecase{
		chain:        chain,
		investorRepo: investorRepo,
		paymentRepo:  paymentRepo,
		challenges:   challenges,
		verifyEVM:    verifyEVM,
		startDate:    startDate,
		now:          time.Now,
	}
}

// PresaleStats combines the on-chain totals with off-chain buyer counts.
type PresaleStats struct {
	Day             int     `json:"day"`
	PriceUSD        uint64  `json:"priceUsd"`
	TotalRaisedUSD  float64 `json:"totalRaisedUsd"`
	TotalSold       uint64  `json:"totalSold"`
	SoldToday       uint64  `json:"soldToday"`
	DailyCap        uint64  `json:"dailyCap"`
	PresaleSupply   uint64  `json:"presaleSupply"`
	TotalBurned     uint64  `json:"totalBurned"`
	Status          string  `json:"status"`
	Investors       int64   `json:"investors"`
	CreditedWallets int64   `json:"creditedWallets"`
}

// GetStats assembles the public presale dashboard numbers.
func (u *OnchainUsecase) GetStats(ctx context.Context) (*PresaleStats, error) {
	cfg, err := u.chain.GetConfig(ctx)
	if err != nil {
		return nil, domainerrors.BadGateway("chain read failed", err)
	}
	investorCount, err := u.investorRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	creditedWallets, err := u.paymentRepo.CountDistinctCreditedWallets(ctx)
	if err != nil {
		return nil, err
	}

	return &PresaleStats{
		Day:             pricing.CurrentDay(u.startDate, u.now()),
		PriceUSD:        cfg.PriceUSD,
		TotalRaisedUSD:  float64(cfg.TotalRaisedUSD) / pricing.USDPrecision,
		TotalSold:       cfg.TotalSold,
		SoldToday:       cfg.SoldToday,
		DailyCap:        cfg.DailyCap,
		PresaleSupply:   cfg.PresaleSupply,
		TotalBurned:     cfg.TotalBurned,
		Status:          cfg.Status.String(),
		Investors:       investorCount,
		CreditedWallets: creditedWallets,
	}, nil
}

// GetConfig returns the parsed on-chain presale config account.
func (u *OnchainUsecase) GetConfig(ctx context.Context) (*domainchain.ConfigSnapshot, error) {
	cfg, err := u.chain.GetConfig(ctx)
	if err != nil {
		return nil, domainerrors.BadGateway("chain read failed", err)
	}
	return cfg, nil
}

// GetAllocation returns a buyer's on-chain allocation.
func (u *OnchainUsecase) GetAllocation(ctx context.Context, walletAddr string) (*domainchain.Allocation, error) {
	identity, err := wallet.IdentityKey(walletAddr)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid wallet address")
	}
	alloc, err := u.chain.GetAllocation(ctx, identity)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no allocation for wallet")
		}
		return nil, err
	}
	return alloc, nil
}

// GetVesting returns the derived vesting view and, as a side effect, refreshes
// the investor's cached claimable amount.
func (u *OnchainUsecase) GetVesting(ctx context.Context, walletAddr string) (*domainchain.VestingInfo, error) {
	identity, err := wallet.IdentityKey(walletAddr)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid wallet address")
	}
	info, err := u.chain.GetVestingInfo(ctx, identity)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no allocation for wallet")
		}
		return nil, err
	}

	if err := u.investorRepo.SetLaunchingTokens(ctx, walletAddr, info.Claimable); err != nil {
		logger.Warn(ctx, "failed to cache claimable tokens",
			zap.String("wallet", walletAddr),
			zap.Error(err),
		)
	}
	return info, nil
}

// RequestBindChallenge issues a signing challenge that ties a Solana claim
// wallet to the presale identity wallet.
func (u *OnchainUsecase) RequestBindChallenge(ctx context.Context, walletAddr, claimWallet string) (string, error) {
	if !wallet.Validate(walletAddr) {
		return "", domainerrors.BadRequest("invalid wallet address")
	}
	if !wallet.IsSolana(claimWallet) {
		return "", domainerrors.BadRequest("claim wallet must be a Solana address")
	}

	message, err := u.challenges.Issue(ctx, walletAddr, claimWallet)
	if err != nil {
		return "", domainerrors.InternalError(err)
	}
	return message, nil
}

// BindClaimWallet consumes the challenge, verifies the identity wallet's
// signature over it, and records the claim authority on-chain.
func (u *OnchainUsecase) BindClaimWallet(ctx context.Context, walletAddr, claimWallet, signature string) (string, error) {
	if !wallet.Validate(walletAddr) {
		return "", domainerrors.BadRequest("invalid wallet address")
	}
	if !wallet.IsSolana(claimWallet) {
		return "", domainerrors.BadRequest("claim wallet must be a Solana address")
	}

	challenge, err := u.challenges.Consume(ctx, walletAddr)
	if err != nil {
		return "", domainerrors.Unauthorized("no active binding challenge, request one first")
	}
	// the challenge names the claim wallet it was issued for; a signature over
	// a challenge for a different destination proves nothing
	if !strings.Contains(challenge, claimWallet) {
		return "", domainerrors.Unauthorized("challenge was issued for a different claim wallet")
	}

	if err := u.verifyEVM(walletAddr, challenge, signature); err != nil {
		return "", domainerrors.Unauthorized("signature verification failed")
	}

	identity, err := wallet.IdentityKey(walletAddr)
	if err != nil {
		return "", domainerrors.BadRequest("invalid wallet address")
	}
	tx, err := u.chain.BindClaimWallet(ctx, identity, claimWallet)
	if err != nil {
		return "", domainerrors.BadGateway("failed to bind claim wallet on-chain", err)
	}

	logger.Info(ctx, "claim wallet bound",
		zap.String("wallet", walletAddr),
		zap.String("claim_wallet", claimWallet),
		zap.String("tx", tx),
	)
	return tx, nil
}

// PrepareClaim builds an unsigned claim transaction for the bound claim wallet.
// An omitted destination falls back to the identity wallet when that wallet is
// already a Solana address; an omitted token account is derived on-chain.
func (u *OnchainUsecase) PrepareClaim(ctx context.Context, walletAddr, destinationWallet, tokenAccount string) (*domainchain.UnsignedClaim, error) {
	if destinationWallet == "" {
		if !wallet.IsSolana(walletAddr) {
			return nil, domainerrors.BadRequest("destination wallet required for non-Solana identities")
		}
		destinationWallet = walletAddr
	}
	if !wallet.IsSolana(destinationWallet) {
		return nil, domainerrors.BadRequest("destination must be a Solana address")
	}
	if tokenAccount != "" && !wallet.IsSolana(tokenAccount) {
		return nil, domainerrors.BadRequest("token account must be a Solana address")
	}

	identity, err := wallet.IdentityKey(walletAddr)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid wallet address")
	}

	alloc, err := u.chain.GetAllocation(ctx, identity)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no allocation for wallet")
		}
		return nil, err
	}
	if alloc.ClaimAuthority == "" {
		return nil, domainerrors.Forbidden("no claim wallet bound for this allocation")
	}
	if alloc.ClaimAuthority != destinationWallet {
		return nil, domainerrors.Forbidden("destination does not match the bound claim wallet")
	}

	claim, err := u.chain.PrepareClaim(ctx, identity, destinationWallet, tokenAccount)
	if err != nil {
		return nil, domainerrors.BadGateway("failed to prepare claim transaction", err)
	}
	return claim, nil
}
