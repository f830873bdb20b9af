package usecases

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	domainchain "duck-presale.backend/internal/domain/blockchain"
	"duck-presale.backend/internal/domain/entities"
	domaingw "duck-presale.backend/internal/domain/gateway"
	"duck-presale.backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("development")
	os.Exit(m.Run())
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *entities.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*entities.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByWallet(ctx context.Context, wallet string, limit, offset int) ([]*entities.Payment, int, error) {
	args := m.Called(ctx, wallet, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entities.Payment), args.Int(1), args.Error(2)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *entities.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) CompareAndSetCreditStatus(ctx context.Context, id uuid.UUID, from, to entities.CreditStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) CountByWalletSince(ctx context.Context, wallet string, since time.Time) (int64, error) {
	args := m.Called(ctx, wallet, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) CountActiveByWallet(ctx context.Context, wallet string) (int64, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) CountDistinctCreditedWallets(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockInvestorRepository struct {
	mock.Mock
}

func (m *MockInvestorRepository) GetByWallet(ctx context.Context, wallet string) (*entities.Investor, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Investor), args.Error(1)
}

func (m *MockInvestorRepository) GetByReferralCode(ctx context.Context, code string) (*entities.Investor, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Investor), args.Error(1)
}

func (m *MockInvestorRepository) ApplyContribution(ctx context.Context, c *entities.InvestorContribution) (*entities.Investor, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Investor), args.Error(1)
}

func (m *MockInvestorRepository) ApplyReferralReward(ctx context.Context, r *entities.ReferralReward) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockInvestorRepository) SetReferralCode(ctx context.Context, wallet, code string) error {
	args := m.Called(ctx, wallet, code)
	return args.Error(0)
}

func (m *MockInvestorRepository) SetLaunchingTokens(ctx context.Context, wallet string, amount uint64) error {
	args := m.Called(ctx, wallet, amount)
	return args.Error(0)
}

func (m *MockInvestorRepository) Leaderboard(ctx context.Context, limit, offset int) ([]*entities.Investor, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entities.Investor), args.Int(1), args.Error(2)
}

func (m *MockInvestorRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockUnitOfWork runs the callback inline so repository expectations fire
// against the same mocks.
type MockUnitOfWork struct {
	mock.Mock
	DoErr error
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.DoErr != nil {
		return m.DoErr
	}
	return fn(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	return ctx
}

type MockChainService struct {
	mock.Mock
}

func (m *MockChainService) GetConfig(ctx context.Context) (*domainchain.ConfigSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainchain.ConfigSnapshot), args.Error(1)
}

func (m *MockChainService) GetAllocation(ctx context.Context, identityKey [32]byte) (*domainchain.Allocation, error) {
	args := m.Called(ctx, identityKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainchain.Allocation), args.Error(1)
}

func (m *MockChainService) GetVestingInfo(ctx context.Context, identityKey [32]byte) (*domainchain.VestingInfo, error) {
	args := m.Called(ctx, identityKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainchain.VestingInfo), args.Error(1)
}

func (m *MockChainService) CreditAllocation(ctx context.Context, identityKey [32]byte, tokenAmount, usdAmount uint64, paymentID string) (string, error) {
	args := m.Called(ctx, identityKey, tokenAmount, usdAmount, paymentID)
	return args.String(0), args.Error(1)
}

func (m *MockChainService) UpdateDailyConfig(ctx context.Context, priceUSD uint64, tge uint8, dailyCap uint64) (string, error) {
	args := m.Called(ctx, priceUSD, tge, dailyCap)
	return args.String(0), args.Error(1)
}

func (m *MockChainService) BindClaimWallet(ctx context.Context, identityKey [32]byte, claimWallet string) (string, error) {
	args := m.Called(ctx, identityKey, claimWallet)
	return args.String(0), args.Error(1)
}

func (m *MockChainService) PrepareClaim(ctx context.Context, identityKey [32]byte, destinationWallet, tokenAccount string) (*domainchain.UnsignedClaim, error) {
	args := m.Called(ctx, identityKey, destinationWallet, tokenAccount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainchain.UnsignedClaim), args.Error(1)
}

func (m *MockChainService) IsNonceUsed(ctx context.Context, wallet string, nonce uint64) (bool, error) {
	args := m.Called(ctx, wallet, nonce)
	return args.Bool(0), args.Error(1)
}

type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) SignPurchase(params domainchain.PurchaseParams) (*domainchain.Authorization, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainchain.Authorization), args.Error(1)
}

type MockNonceManager struct {
	mock.Mock
}

func (m *MockNonceManager) Generate(ctx context.Context, wallet string) (uint64, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockNonceManager) IsAvailable(ctx context.Context, wallet string, nonce uint64) (bool, error) {
	args := m.Called(ctx, wallet, nonce)
	return args.Bool(0), args.Error(1)
}

func (m *MockNonceManager) MarkPending(ctx context.Context, wallet string, nonce uint64) error {
	args := m.Called(ctx, wallet, nonce)
	return args.Error(0)
}

func (m *MockNonceManager) MarkUsed(ctx context.Context, wallet string, nonce uint64) error {
	args := m.Called(ctx, wallet, nonce)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Status(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) Currencies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGateway) Estimate(ctx context.Context, amount float64, from, to string) (*domaingw.Estimate, error) {
	args := m.Called(ctx, amount, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domaingw.Estimate), args.Error(1)
}

func (m *MockGateway) MinAmount(ctx context.Context, from, to string) (float64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockGateway) CreateInvoice(ctx context.Context, req *domaingw.InvoiceRequest) (*domaingw.Invoice, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domaingw.Invoice), args.Error(1)
}

func (m *MockGateway) GetPaymentStatus(ctx context.Context, paymentID int64) (*domaingw.PaymentStatus, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domaingw.PaymentStatus), args.Error(1)
}

type MockChallengeStore struct {
	mock.Mock
}

func (m *MockChallengeStore) Issue(ctx context.Context, wallet, claimWallet string) (string, error) {
	args := m.Called(ctx, wallet, claimWallet)
	return args.String(0), args.Error(1)
}

func (m *MockChallengeStore) Consume(ctx context.Context, wallet string) (string, error) {
	args := m.Called(ctx, wallet)
	return args.String(0), args.Error(1)
}
