package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Investor aggregates all credited payments of one buyer wallet. Totals only
// ever grow; the row is upserted by the settlement engine, never edited
// directly.
type Investor struct {
	ID                  uuid.UUID      `json:"id"`
	WalletAddress       string         `json:"walletAddress"`
	TotalInvestedUSD    string         `json:"totalInvestedUsd"` // decimal string
	TotalTokens         uint64         `json:"totalTokens"`      // smallest units
	LaunchingTokens     uint64         `json:"launchingTokens"`  // last observed on-chain claimable
	PaymentCount        int            `json:"paymentCount"`
	ReferralCode        null.String    `json:"referralCode,omitempty"`
	ReferralEarningsUSD string         `json:"referralEarningsUsd"`
	ReferralTokens      uint64         `json:"referralTokens"`
	ReferralCount       int            `json:"referralCount"`
	Extra               map[string]any `json:"extra,omitempty"`
	FirstInvestedAt     *time.Time     `json:"firstInvestedAt,omitempty"`
	LastInvestedAt      *time.Time     `json:"lastInvestedAt,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// InvestorContribution is one credited payment folded into the aggregate.
type InvestorContribution struct {
	WalletAddress string
	USDAmount     string // decimal string
	TokenAmount   uint64
	InvestedAt    time.Time
}

// ReferralReward is the referral fan-out folded into the referrer's aggregate.
type ReferralReward struct {
	ReferrerWallet string
	ReferredWallet string
	USDAmount      string // decimal string
	TokenAmount    uint64
}
