package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"duck-presale.backend/internal/domain/entities"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/infrastructure/models"
	"duck-presale.backend/pkg/utils"
)

// InvestorRepository implements investor aggregate operations
type InvestorRepository struct {
	db *gorm.DB
}

// NewInvestorRepository creates a new investor repository
func NewInvestorRepository(db *gorm.DB) *InvestorRepository {
	return &InvestorRepository{db: db}
}

// GetByWallet gets the investor aggregate for a wallet
func (r *InvestorRepository) GetByWallet(ctx context.Context, wallet string) (*entities.Investor, error) {
	var m models.Investor
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetByReferralCode resolves a referral code to its owner
func (r *InvestorRepository) GetByReferralCode(ctx context.Context, code string) (*entities.Investor, error) {
	var m models.Investor
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("referral_code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ApplyContribution upserts the wallet row and folds one credited payment
// into its totals.
func (r *InvestorRepository) ApplyContribution(ctx context.Context, c *entities.InvestorContribution) (*entities.Investor, error) {
	db := GetDB(ctx, r.db)

	var m models.Investor
	err := db.WithContext(ctx).Where("wallet_address = ?", c.WalletAddress).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		investedAt := c.InvestedAt
		m = models.Investor{
			ID:                  utils.GenerateUUIDv7(),
			WalletAddress:       c.WalletAddress,
			TotalInvestedUSD:    c.USDAmount,
			TotalTokens:         c.TokenAmount,
			PaymentCount:        1,
			ReferralEarningsUSD: "0",
			Extra:               "{}",
			FirstInvestedAt:     &investedAt,
			LastInvestedAt:      &investedAt,
		}
		if err := db.WithContext(ctx).Create(&m).Error; err != nil {
			return nil, err
		}
		return r.toEntity(&m), nil
	}
	if err != nil {
		return nil, err
	}

	total, err := addDecimal(m.TotalInvestedUSD, c.USDAmount)
	if err != nil {
		return nil, err
	}
	investedAt := c.InvestedAt

	updates := map[string]interface{}{
		"total_invested_usd": total,
		"total_tokens":       m.TotalTokens + c.TokenAmount,
		"payment_count":      m.PaymentCount + 1,
		"last_invested_at":   &investedAt,
		"updated_at":         time.Now(),
	}
	if m.FirstInvestedAt == nil {
		updates["first_invested_at"] = &investedAt
	}
	if err := db.WithContext(ctx).Model(&models.Investor{}).
		Where("id = ?", m.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	return r.GetByWallet(ctx, c.WalletAddress)
}

// ApplyReferralReward folds a referral payout into the referrer's aggregate
func (r *InvestorRepository) ApplyReferralReward(ctx context.Context, reward *entities.ReferralReward) error {
	db := GetDB(ctx, r.db)

	var m models.Investor
	if err := db.WithContext(ctx).Where("wallet_address = ?", reward.ReferrerWallet).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrNotFound
		}
		return err
	}

	earnings, err := addDecimal(m.ReferralEarningsUSD, reward.USDAmount)
	if err != nil {
		return err
	}
	extra, err := appendReferredWallet(m.Extra, reward.ReferredWallet)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Model(&models.Investor{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"referral_earnings_usd": earnings,
			"referral_tokens":       m.ReferralTokens + reward.TokenAmount,
			"referral_count":        m.ReferralCount + 1,
			"extra":                 extra,
			"updated_at":            time.Now(),
		}).Error
}

// appendReferredWallet records the referred wallet in the aggregate's extra
// blob, keeping the list unique.
func appendReferredWallet(raw, referred string) (string, error) {
	if referred == "" {
		return raw, nil
	}
	extra := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return "", fmt.Errorf("invalid extra blob: %w", err)
		}
	}

	var wallets []string
	if existing, ok := extra["referredWallets"].([]any); ok {
		for _, w := range existing {
			s, ok := w.(string)
			if !ok {
				continue
			}
			if s == referred {
				return raw, nil
			}
			wallets = append(wallets, s)
		}
	}
	wallets = append(wallets, referred)
	extra["referredWallets"] = wallets

	out, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SetReferralCode assigns a referral code to the wallet's aggregate
func (r *InvestorRepository) SetReferralCode(ctx context.Context, wallet, code string) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Investor{}).
		Where("wallet_address = ?", wallet).
		Updates(map[string]interface{}{
			"referral_code": code,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// SetLaunchingTokens records the last observed on-chain claimable balance
func (r *InvestorRepository) SetLaunchingTokens(ctx context.Context, wallet string, amount uint64) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Investor{}).
		Where("wallet_address = ?", wallet).
		Updates(map[string]interface{}{
			"launching_tokens": amount,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// Leaderboard returns investors ordered by total tokens, largest first
func (r *InvestorRepository) Leaderboard(ctx context.Context, limit, offset int) ([]*entities.Investor, int, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.WithContext(ctx).Model(&models.Investor{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.Investor
	if err := db.WithContext(ctx).
		Order("total_tokens DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	var investors []*entities.Investor
	for _, m := range ms {
		model := m
		investors = append(investors, r.toEntity(&model))
	}

	return investors, int(total), nil
}

// Count returns the number of investor aggregates
func (r *InvestorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).Model(&models.Investor{}).Count(&count).Error
	return count, err
}

func (r *InvestorRepository) toEntity(m *models.Investor) *entities.Investor {
	var extra map[string]any
	if m.Extra != "" {
		_ = json.Unmarshal([]byte(m.Extra), &extra)
	}
	return &entities.Investor{
		ID:                  m.ID,
		WalletAddress:       m.WalletAddress,
		TotalInvestedUSD:    m.TotalInvestedUSD,
		TotalTokens:         m.TotalTokens,
		LaunchingTokens:     m.LaunchingTokens,
		PaymentCount:        m.PaymentCount,
		ReferralCode:        null.StringFromPtr(m.ReferralCode),
		ReferralEarningsUSD: m.ReferralEarningsUSD,
		ReferralTokens:      m.ReferralTokens,
		ReferralCount:       m.ReferralCount,
		Extra:               extra,
		FirstInvestedAt:     m.FirstInvestedAt,
		LastInvestedAt:      m.LastInvestedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// addDecimal adds two USD decimal strings without float drift.
func addDecimal(a, b string) (string, error) {
	ra, ok := new(big.Rat).SetString(a)
	if !ok {
		return "", fmt.Errorf("invalid decimal amount: %q", a)
	}
	rb, ok := new(big.Rat).SetString(b)
	if !ok {
		return "", fmt.Errorf("invalid decimal amount: %q", b)
	}
	sum := new(big.Rat).Add(ra, rb)

	s := sum.FloatString(6)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s, nil
}
