package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"duck-presale.backend/internal/domain/entities"
)

// PaymentRepository defines payment ledger operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entities.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error)
	// GetByOrderID resolves the webhook idempotency key. When the context
	// carries a lock marker (UnitOfWork.WithLock) the row is selected FOR
	// UPDATE so concurrent webhook deliveries serialize per payment.
	GetByOrderID(ctx context.Context, orderID string) (*entities.Payment, error)
	ListByWallet(ctx context.Context, wallet string, limit, offset int) ([]*entities.Payment, int, error)
	Update(ctx context.Context, payment *entities.Payment) error
	// CompareAndSetCreditStatus atomically advances creditStatus from
	// `from` to `to` and reports whether this caller won the transition.
	CompareAndSetCreditStatus(ctx context.Context, id uuid.UUID, from, to entities.CreditStatus) (bool, error)
	CountByWalletSince(ctx context.Context, wallet string, since time.Time) (int64, error)
	CountActiveByWallet(ctx context.Context, wallet string) (int64, error)
	CountDistinctCreditedWallets(ctx context.Context) (int64, error)
}
