package usecases

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"duck-presale.backend/internal/domain/entities"
	domainerrors "duck-presale.backend/internal/domain/errors"
	domaingw "duck-presale.backend/internal/domain/gateway"
	"duck-presale.backend/internal/domain/repositories"
	"duck-presale.backend/internal/metrics"
	"duck-presale.backend/internal/pricing"
	"duck-presale.backend/pkg/logger"
	"duck-presale.backend/pkg/utils"
	"duck-presale.backend/pkg/wallet"
)

// InvoiceLimits are the per-wallet guardrails applied before opening a
// gateway invoice.
type InvoiceLimits struct {
	MinUSDAmount      float64
	MaxInvoicesPerDay int
	MaxActiveInvoices int
}

// InvoiceUsecase opens hosted payment invoices and serves payment lookups.
type InvoiceUsecase struct {
	paymentRepo     repositories.PaymentRepository
	investorRepo    repositories.InvestorRepository
	gateway         domaingw.Gateway
	startDate       time.Time
	limits          InvoiceLimits
	callbackBaseURL string
	now             func() time.Time
}

// NewInvoiceUsecase creates the invoice flow.
func NewInvoiceUsecase(
	paymentRepo repositories.PaymentRepository,
	investorRepo repositories.InvestorRepository,
	gw domaingw.Gateway,
	startDate time.Time,
	limits InvoiceLimits,
	callbackBaseURL string,
) *InvoiceUsecase {
	return &InvoiceUsecase{
		paymentRepo:     paymentRepo,
		investorRepo:    investorRepo,
		gateway:         gw,
		startDate:       startDate,
		limits:          limits,
		callbackBaseURL: callbackBaseURL,
		now:             time.Now,
	}
}

// CreateInvoice validates the purchase, records the pending payment, and
// opens a hosted invoice at the gateway.
func (u *InvoiceUsecase) CreateInvoice(ctx context.Context, input *entities.CreateInvoiceInput) (*entities.CreateInvoiceResponse, error) {
	if !wallet.Validate(input.WalletAddress) {
		return nil, domainerrors.BadRequest("wallet address is not a valid Solana or EVM address")
	}
	if input.USDAmount < u.limits.MinUSDAmount {
		return nil, domainerrors.BadRequest(fmt.Sprintf("minimum purchase is $%g", u.limits.MinUSDAmount))
	}
	if !allowedPayCurrencies[input.PayCurrency] {
		return nil, domainerrors.BadRequest("unsupported pay currency")
	}
	if u.callbackBaseURL == "" {
		// without a callback URL the gateway could collect funds the
		// settlement engine would never hear about
		return nil, domainerrors.InternalError(fmt.Errorf("webhook callback base URL not configured"))
	}

	now := u.now()
	day := pricing.CurrentDay(u.startDate, now)
	if day < 1 {
		return nil, domainerrors.NewAppError(400, "presale has not started yet", domainerrors.ErrSaleNotStarted)
	}
	if day > pricing.TotalDays {
		return nil, domainerrors.BadRequest("presale has ended")
	}

	if err := u.checkGuardrails(ctx, input.WalletAddress, now); err != nil {
		return nil, err
	}

	dayCfg := pricing.ForDay(day)
	usdMicro := pricing.USDToMicro(input.USDAmount)
	tokenAmount := pricing.TokenAmount(usdMicro, dayCfg.PriceUSD)
	if tokenAmount == 0 {
		return nil, domainerrors.BadRequest("amount too small for current token price")
	}

	if input.PayCurrency != "" {
		if err := u.checkGatewayMinimum(ctx, input.USDAmount, input.PayCurrency); err != nil {
			return nil, err
		}
	}

	referral := u.resolveReferralCode(ctx, input.ReferralCode, input.WalletAddress)

	orderID := uuid.NewString()
	payment := &entities.Payment{
		ID:            utils.GenerateUUIDv7(),
		WalletAddress: input.WalletAddress,
		OrderID:       orderID,
		PriceAmount:   strconv.FormatFloat(input.USDAmount, 'f', -1, 64),
		TokenAmount:   tokenAmount,
		PaymentStatus: entities.PaymentStatusWaiting,
		CreditStatus:  entities.CreditStatusPending,
		ReferralCode:  referral,
	}
	if input.PayCurrency != "" {
		payment.PayCurrency = null.StringFrom(input.PayCurrency)
	}

	if err := u.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	invoice, err := u.gateway.CreateInvoice(ctx, &domaingw.InvoiceRequest{
		PriceAmount:      input.USDAmount,
		PriceCurrency:    PriceCurrencyUSD,
		PayCurrency:      input.PayCurrency,
		OrderID:          orderID,
		OrderDescription: fmt.Sprintf("Presale day %d token purchase", day),
		IPNCallbackURL:   u.callbackBaseURL + "/api/v1/presale/webhook",
		SuccessURL:       input.SuccessURL,
		CancelURL:        input.CancelURL,
	})
	if err != nil {
		// the payment row stays for audit; the buyer simply retries
		logger.Error(ctx, "gateway invoice creation failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, domainerrors.BadGateway("payment gateway unavailable", err)
	}

	metrics.InvoicesCreated.Inc()

	payment.InvoiceID = null.StringFrom(invoice.ID)
	if err := u.paymentRepo.Update(ctx, payment); err != nil {
		logger.Error(ctx, "failed to store invoice id",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	return &entities.CreateInvoiceResponse{
		PaymentID:   payment.ID,
		OrderID:     orderID,
		InvoiceID:   invoice.ID,
		InvoiceURL:  invoice.InvoiceURL,
		USDAmount:   input.USDAmount,
		TokenAmount: tokenAmount,
	}, nil
}

// checkGatewayMinimum rejects purchases that convert below the gateway's
// minimum for the chosen pay currency. Advisory: when the gateway cannot
// answer, invoice creation itself stays the authority.
func (u *InvoiceUsecase) checkGatewayMinimum(ctx context.Context, usdAmount float64, payCurrency string) error {
	minPay, err := u.gateway.MinAmount(ctx, payCurrency, PriceCurrencyUSD)
	if err != nil {
		logger.Warn(ctx, "gateway min-amount check skipped",
			zap.String("pay_currency", payCurrency),
			zap.Error(err),
		)
		return nil
	}
	if minPay <= 0 {
		return nil
	}

	est, err := u.gateway.Estimate(ctx, usdAmount, PriceCurrencyUSD, payCurrency)
	if err != nil {
		logger.Warn(ctx, "gateway estimate for min-amount check skipped",
			zap.String("pay_currency", payCurrency),
			zap.Error(err),
		)
		return nil
	}
	if est.EstimatedAmount < minPay {
		return domainerrors.BadRequest(fmt.Sprintf("amount converts below the gateway minimum of %g %s", minPay, payCurrency))
	}
	return nil
}

func (u *InvoiceUsecase) checkGuardrails(ctx context.Context, walletAddr string, now time.Time) error {
	startOfDay := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	daily, err := u.paymentRepo.CountByWalletSince(ctx, walletAddr, startOfDay)
	if err != nil {
		return err
	}
	if u.limits.MaxInvoicesPerDay > 0 && daily >= int64(u.limits.MaxInvoicesPerDay) {
		return domainerrors.TooManyRequests("daily invoice limit reached")
	}

	active, err := u.paymentRepo.CountActiveByWallet(ctx, walletAddr)
	if err != nil {
		return err
	}
	if u.limits.MaxActiveInvoices > 0 && active >= int64(u.limits.MaxActiveInvoices) {
		return domainerrors.TooManyRequests("too many unpaid invoices, complete or wait for expiry")
	}
	return nil
}

// resolveReferralCode keeps only codes that exist and do not point back at
// the buyer.
func (u *InvoiceUsecase) resolveReferralCode(ctx context.Context, code, buyerWallet string) null.String {
	if code == "" {
		return null.String{}
	}
	referrer, err := u.investorRepo.GetByReferralCode(ctx, code)
	if err != nil {
		logger.Warn(ctx, "dropping unknown referral code", zap.String("code", code))
		return null.String{}
	}
	if referrer.WalletAddress == buyerWallet {
		logger.Warn(ctx, "dropping self-referral code", zap.String("code", code))
		return null.String{}
	}
	return null.StringFrom(code)
}

// GetPayment returns one payment by id. For in-flight payments the gateway
// is polled and the stored lifecycle fields refreshed, so the buyer sees
// progress between webhooks. Credit transitions stay with the webhook path.
func (u *InvoiceUsecase) GetPayment(ctx context.Context, id uuid.UUID) (*entities.Payment, error) {
	payment, err := u.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.PaymentStatus.IsTerminal() || !payment.PaymentID.Valid {
		return payment, nil
	}

	remote, err := u.gateway.GetPaymentStatus(ctx, payment.PaymentID.Int64)
	if err != nil {
		logger.Warn(ctx, "gateway status refresh failed",
			zap.String("order_id", payment.OrderID),
			zap.Error(err),
		)
		return payment, nil
	}

	status, known := mapGatewayStatus(remote.PaymentStatus)
	if !known || status == payment.PaymentStatus {
		return payment, nil
	}
	payment.PaymentStatus = status
	if remote.PayAmount > 0 {
		payment.PayAmount = null.StringFrom(formatAmount(remote.PayAmount))
	}
	if remote.PayCurrency != "" {
		payment.PayCurrency = null.StringFrom(remote.PayCurrency)
	}
	if remote.ActuallyPaid > 0 {
		payment.ActuallyPaid = null.StringFrom(formatAmount(remote.ActuallyPaid))
	}
	if err := u.paymentRepo.Update(ctx, payment); err != nil {
		logger.Warn(ctx, "failed to persist refreshed payment status",
			zap.String("order_id", payment.OrderID),
			zap.Error(err),
		)
	}
	return payment, nil
}

// ListPayments returns a wallet's payment history, newest first.
func (u *InvoiceUsecase) ListPayments(ctx context.Context, walletAddr string, limit, offset int) ([]*entities.Payment, int, error) {
	if !wallet.Validate(walletAddr) {
		return nil, 0, domainerrors.BadRequest("invalid wallet address")
	}
	return u.paymentRepo.ListByWallet(ctx, walletAddr, limit, offset)
}

// GatewayStatus probes the payment gateway's API health.
func (u *InvoiceUsecase) GatewayStatus(ctx context.Context) error {
	if err := u.gateway.Status(ctx); err != nil {
		return domainerrors.BadGateway("payment gateway unavailable", err)
	}
	return nil
}

// GatewayCurrencies lists gateway tickers the presale accepts.
func (u *InvoiceUsecase) GatewayCurrencies(ctx context.Context) ([]string, error) {
	all, err := u.gateway.Currencies(ctx)
	if err != nil {
		return nil, domainerrors.BadGateway("payment gateway unavailable", err)
	}
	accepted := make([]string, 0, len(all))
	for _, ticker := range all {
		if ticker != "" && allowedPayCurrencies[ticker] {
			accepted = append(accepted, ticker)
		}
	}
	return accepted, nil
}

// EstimatePayAmount quotes the crypto amount for a USD purchase.
func (u *InvoiceUsecase) EstimatePayAmount(ctx context.Context, usdAmount float64, payCurrency string) (*domaingw.Estimate, error) {
	if usdAmount <= 0 {
		return nil, domainerrors.BadRequest("amount must be positive")
	}
	if payCurrency == "" || !allowedPayCurrencies[payCurrency] {
		return nil, domainerrors.BadRequest("unsupported pay currency")
	}
	est, err := u.gateway.Estimate(ctx, usdAmount, PriceCurrencyUSD, payCurrency)
	if err != nil {
		return nil, domainerrors.BadGateway("payment gateway unavailable", err)
	}
	return est, nil
}
