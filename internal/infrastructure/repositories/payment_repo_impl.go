package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duck-presale.backend/internal/domain/entities"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/infrastructure/models"
)

var activeStatuses = []string{
	string(entities.PaymentStatusWaiting),
	string(entities.PaymentStatusConfirming),
	string(entities.PaymentStatusConfirmed),
	string(entities.PaymentStatusSending),
	string(entities.PaymentStatusPartiallyPaid),
}

// PaymentRepository implements payment ledger operations
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create persists a new payment
func (r *PaymentRepository) Create(ctx context.Context, payment *entities.Payment) error {
	m := r.toModel(payment)

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	// Use the persisted ID (DB may assign it)
	payment.ID = m.ID
	return nil
}

// GetByID gets a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error) {
	var m models.Payment
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetByOrderID gets a payment by its order reference. When the context
// carries the lock marker the row is selected FOR UPDATE.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*entities.Payment, error) {
	var m models.Payment
	db := GetDB(ctx, r.db).WithContext(ctx)
	// sqlite has no FOR UPDATE; its single writer serializes anyway
	if lockRequested(ctx) && db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := db.Where("order_id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListByWallet returns the wallet's payments with pagination, newest first
func (r *PaymentRepository) ListByWallet(ctx context.Context, wallet string, limit, offset int) ([]*entities.Payment, int, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.WithContext(ctx).Model(&models.Payment{}).
		Where("wallet_address = ?", wallet).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.Payment
	if err := db.WithContext(ctx).
		Where("wallet_address = ?", wallet).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	var payments []*entities.Payment
	for _, m := range ms {
		model := m
		payments = append(payments, r.toEntity(&model))
	}

	return payments, int(total), nil
}

// Update persists the mutable fields of a payment
func (r *PaymentRepository) Update(ctx context.Context, payment *entities.Payment) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]interface{}{
			"claim_wallet":   payment.ClaimWallet.Ptr(),
			"payment_id":     payment.PaymentID.Ptr(),
			"pay_amount":     payment.PayAmount.Ptr(),
			"pay_currency":   payment.PayCurrency.Ptr(),
			"actually_paid":  payment.ActuallyPaid.Ptr(),
			"payment_status": string(payment.PaymentStatus),
			"credit_status":  string(payment.CreditStatus),
			"credit_tx":      payment.CreditTx.Ptr(),
			"credit_error":   payment.CreditError.Ptr(),
			"paid_at":        payment.PaidAt,
			"credited_at":    payment.CreditedAt,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// CompareAndSetCreditStatus advances credit_status only when it still holds
// the expected value. Returns false when another writer got there first.
func (r *PaymentRepository) CompareAndSetCreditStatus(ctx context.Context, id uuid.UUID, from, to entities.CreditStatus) (bool, error) {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND credit_status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"credit_status": string(to),
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountByWalletSince counts payments the wallet created at or after the cutoff
func (r *PaymentRepository) CountByWalletSince(ctx context.Context, wallet string, since time.Time) (int64, error) {
	var count int64
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).Model(&models.Payment{}).
		Where("wallet_address = ? AND created_at >= ?", wallet, since).
		Count(&count).Error
	return count, err
}

// CountActiveByWallet counts the wallet's payments still in a non-terminal status
func (r *PaymentRepository) CountActiveByWallet(ctx context.Context, wallet string) (int64, error) {
	var count int64
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).Model(&models.Payment{}).
		Where("wallet_address = ? AND payment_status IN ?", wallet, activeStatuses).
		Count(&count).Error
	return count, err
}

// CountDistinctCreditedWallets counts wallets with at least one credited payment
func (r *PaymentRepository) CountDistinctCreditedWallets(ctx context.Context) (int64, error) {
	var count int64
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).Model(&models.Payment{}).
		Where("credit_status = ?", string(entities.CreditStatusCredited)).
		Distinct("wallet_address").
		Count(&count).Error
	return count, err
}

func (r *PaymentRepository) toModel(p *entities.Payment) *models.Payment {
	return &models.Payment{
		ID:            p.ID,
		WalletAddress: p.WalletAddress,
		ClaimWallet:   p.ClaimWallet.Ptr(),
		InvoiceID:     p.InvoiceID.Ptr(),
		PaymentID:     p.PaymentID.Ptr(),
		OrderID:       p.OrderID,
		PriceAmount:   p.PriceAmount,
		TokenAmount:   p.TokenAmount,
		PayAmount:     p.PayAmount.Ptr(),
		PayCurrency:   p.PayCurrency.Ptr(),
		ActuallyPaid:  p.ActuallyPaid.Ptr(),
		PaymentStatus: string(p.PaymentStatus),
		CreditStatus:  string(p.CreditStatus),
		ReferralCode:  p.ReferralCode.Ptr(),
		CreditTx:      p.CreditTx.Ptr(),
		CreditError:   p.CreditError.Ptr(),
		PaidAt:        p.PaidAt,
		CreditedAt:    p.CreditedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r *PaymentRepository) toEntity(m *models.Payment) *entities.Payment {
	return &entities.Payment{
		ID:            m.ID,
		WalletAddress: m.WalletAddress,
		ClaimWallet:   null.StringFromPtr(m.ClaimWallet),
		InvoiceID:     null.StringFromPtr(m.InvoiceID),
		PaymentID:     null.Int64FromPtr(m.PaymentID),
		OrderID:       m.OrderID,
		PriceAmount:   m.PriceAmount,
		TokenAmount:   m.TokenAmount,
		PayAmount:     null.StringFromPtr(m.PayAmount),
		PayCurrency:   null.StringFromPtr(m.PayCurrency),
		ActuallyPaid:  null.StringFromPtr(m.ActuallyPaid),
		PaymentStatus: entities.PaymentStatus(m.PaymentStatus),
		CreditStatus:  entities.CreditStatus(m.CreditStatus),
		ReferralCode:  null.StringFromPtr(m.ReferralCode),
		CreditTx:      null.StringFromPtr(m.CreditTx),
		CreditError:   null.StringFromPtr(m.CreditError),
		PaidAt:        m.PaidAt,
		CreditedAt:    m.CreditedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
