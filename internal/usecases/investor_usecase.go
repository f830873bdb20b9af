package usecases

import (
	"context"
	"errors"
	"regexp"
	"time"

	"duck-presale.backend/internal/domain/entities"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/domain/repositories"
	"duck-presale.backend/internal/pricing"
	"duck-presale.backend/pkg/utils"
	"duck-presale.backend/pkg/wallet"
)

var referralCodeRe = regexp.MustCompile(`^[a-zA-Z0-9]{4,16}$`)

// PriceInfo is the public pricing snapshot for the landing page.
type PriceInfo struct {
	Day             int     `json:"day"`
	TotalDays       int     `json:"totalDays"`
	PriceUSD        float64 `json:"priceUsd"`
	NextPriceUSD    float64 `json:"nextPriceUsd"`
	TGE             uint8   `json:"tge"`
	ListingPriceUSD float64 `json:"listingPriceUsd"`
	SaleActive      bool    `json:"saleActive"`
}

// ReferralStats summarizes a referrer's accumulated rewards.
type ReferralStats struct {
	ReferralCode string `json:"referralCode"`
	EarningsUSD  string `json:"earningsUsd"`
	Tokens       uint64 `json:"tokens"`
	Count        int    `json:"count"`
}

// LeaderboardPage is one page of investors ranked by total tokens.
type LeaderboardPage struct {
	Investors []*entities.Investor `json:"investors"`
	Meta      utils.PaginationMeta `json:"meta"`
}

// InvestorUsecase serves investor aggregates, referral codes and pricing info.
type InvestorUsecase struct {
	investorRepo repositories.InvestorRepository
	startDate    time.Time
	now          func() time.Time
}

// NewInvestorUsecase creates the investor read side.
func NewInvestorUsecase(investorRepo repositories.InvestorRepository, startDate time.Time) *InvestorUsecase {
	return &InvestorUsecase{
		investorRepo: investorRepo,
		startDate:    startDate,
		now:          time.Now,
	}
}

// GetInvestor returns the aggregate for one wallet.
func (u *InvestorUsecase) GetInvestor(ctx context.Context, walletAddr string) (*entities.Investor, error) {
	if !wallet.Validate(walletAddr) {
		return nil, domainerrors.BadRequest("invalid wallet address")
	}
	investor, err := u.investorRepo.GetByWallet(ctx, walletAddr)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no investments for wallet")
		}
		return nil, err
	}
	return investor, nil
}

// Leaderboard returns investors ranked by total tokens, paginated.
func (u *InvestorUsecase) Leaderboard(ctx context.Context, page, limit int) (*LeaderboardPage, error) {
	params := utils.GetPaginationParams(page, limit)
	investors, total, err := u.investorRepo.Leaderboard(ctx, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	return &LeaderboardPage{
		Investors: investors,
		Meta:      utils.CalculateMeta(int64(total), params.Page, params.Limit),
	}, nil
}

// CreateReferralCode claims a referral code for the wallet. Codes are unique
// across investors and permanent once set.
func (u *InvestorUsecase) CreateReferralCode(ctx context.Context, walletAddr, code string) error {
	if !wallet.Validate(walletAddr) {
		return domainerrors.BadRequest("invalid wallet address")
	}
	if !referralCodeRe.MatchString(code) {
		return domainerrors.BadRequest("referral code must be 4-16 alphanumeric characters")
	}

	if err := u.investorRepo.SetReferralCode(ctx, walletAddr, code); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return domainerrors.NewAppError(409, "referral code already taken", domainerrors.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// GetReferralStats returns the wallet's referral earnings so far.
func (u *InvestorUsecase) GetReferralStats(ctx context.Context, walletAddr string) (*ReferralStats, error) {
	if !wallet.Validate(walletAddr) {
		return nil, domainerrors.BadRequest("invalid wallet address")
	}
	investor, err := u.investorRepo.GetByWallet(ctx, walletAddr)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no investments for wallet")
		}
		return nil, err
	}
	return &ReferralStats{
		ReferralCode: investor.ReferralCode.String,
		EarningsUSD:  investor.ReferralEarningsUSD,
		Tokens:       investor.ReferralTokens,
		Count:        investor.ReferralCount,
	}, nil
}

// GetPriceInfo returns today's tier and tomorrow's price for display.
func (u *InvestorUsecase) GetPriceInfo(ctx context.Context) *PriceInfo {
	day := pricing.CurrentDay(u.startDate, u.now())
	today := pricing.ForDay(day)
	next := pricing.ForDay(day + 1)

	return &PriceInfo{
		Day:             day,
		TotalDays:       pricing.TotalDays,
		PriceUSD:        float64(today.PriceUSD) / pricing.PricePrecision,
		NextPriceUSD:    float64(next.PriceUSD) / pricing.PricePrecision,
		TGE:             today.TGE,
		ListingPriceUSD: pricing.ListingPriceUSD,
		SaleActive:      day >= 1 && day <= pricing.TotalDays,
	}
}
