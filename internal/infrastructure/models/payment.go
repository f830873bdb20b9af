package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	WalletAddress string    `gorm:"type:varchar(255);not null;index"`
	ClaimWallet   *string   `gorm:"type:varchar(255)"`
	InvoiceID     *string   `gorm:"type:varchar(100)"`
	PaymentID     *int64    `gorm:"uniqueIndex"` // gateway-side payment id, set by first webhook
	OrderID       string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	PriceAmount   string    `gorm:"type:varchar(100);not null"` // USD, decimal string
	TokenAmount   uint64    `gorm:"not null"`                   // smallest units
	PayAmount     *string   `gorm:"type:varchar(100)"`
	PayCurrency   *string   `gorm:"type:varchar(50)"`
	ActuallyPaid  *string   `gorm:"type:varchar(100)"`
	PaymentStatus string    `gorm:"type:varchar(50);not null;index"`
	CreditStatus  string    `gorm:"type:varchar(50);not null;index;default:'PENDING'"`
	ReferralCode  *string   `gorm:"type:varchar(50)"`
	CreditTx      *string   `gorm:"type:varchar(255)"`
	CreditError   *string   `gorm:"type:text"`
	PaidAt        *time.Time
	CreditedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Payment) TableName() string {
	return "payments"
}
