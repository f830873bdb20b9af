package models

import (
	"time"

	"github.com/google/uuid"
)

type Investor struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	WalletAddress       string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	TotalInvestedUSD    string    `gorm:"type:varchar(100);not null;default:'0'"` // USD, decimal string
	TotalTokens         uint64    `gorm:"not null;default:0"`
	LaunchingTokens     uint64    `gorm:"not null;default:0"`
	PaymentCount        int       `gorm:"not null;default:0"`
	ReferralCode        *string   `gorm:"type:varchar(50);uniqueIndex"`
	ReferralEarningsUSD string    `gorm:"type:varchar(100);not null;default:'0'"`
	ReferralTokens      uint64    `gorm:"not null;default:0"`
	ReferralCount       int       `gorm:"not null;default:0"`
	Extra               string    `gorm:"type:jsonb;default:'{}'"`
	FirstInvestedAt     *time.Time
	LastInvestedAt      *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Investor) TableName() string {
	return "investors"
}
