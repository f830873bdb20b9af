package repositories

import (
	"context"

	"duck-presale.backend/internal/domain/entities"
)

// InvestorRepository defines investor aggregate operations.
type InvestorRepository interface {
	GetByWallet(ctx context.Context, wallet string) (*entities.Investor, error)
	GetByReferralCode(ctx context.Context, code string) (*entities.Investor, error)
	// ApplyContribution upserts the wallet row and folds one credited
	// payment into its monotonic totals.
	ApplyContribution(ctx context.Context, c *entities.InvestorContribution) (*entities.Investor, error)
	ApplyReferralReward(ctx context.Context, r *entities.ReferralReward) error
	SetReferralCode(ctx context.Context, wallet, code string) error
	SetLaunchingTokens(ctx context.Context, wallet string, amount uint64) error
	Leaderboard(ctx context.Context, limit, offset int) ([]*entities.Investor, int, error)
	Count(ctx context.Context) (int64, error)
}
