package usecases

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	domainchain "duck-presale.backend/internal/domain/blockchain"
	"duck-presale.backend/internal/domain/entities"
	domainerrors "duck-presale.backend/internal/domain/errors"
	"duck-presale.backend/internal/domain/repositories"
	"duck-presale.backend/internal/metrics"
	"duck-presale.backend/internal/pricing"
	"duck-presale.backend/pkg/logger"
	"duck-presale.backend/pkg/wallet"
)

// SettlementUsecase turns verified gateway webhooks into on-chain credits.
// Exactly-once crediting rests on three layers: the IPN signature check, the
// row lock on the payment while the webhook is processed, and the guarded
// credit status transition.
type SettlementUsecase struct {
	paymentRepo  repositories.PaymentRepository
	investorRepo repositories.InvestorRepository
	uow          repositories.UnitOfWork
	chain        domainchain.Service
	ipnSecret    string
}

// NewSettlementUsecase creates the settlement engine.
func NewSettlementUsecase(
	paymentRepo repositories.PaymentRepository,
	investorRepo repositories.InvestorRepository,
	uow repositories.UnitOfWork,
	chain domainchain.Service,
	ipnSecret string,
) *SettlementUsecase {
	return &SettlementUsecase{
		paymentRepo:  paymentRepo,
		investorRepo: investorRepo,
		uow:          uow,
		chain:        chain,
		ipnSecret:    ipnSecret,
	}
}

// VerifyIPNSignature checks the gateway's HMAC over the raw webhook body.
// The gateway signs the JSON re-serialized with sorted keys and no extra
// whitespace, HMAC-SHA512, hex encoded.
func (u *SettlementUsecase) VerifyIPNSignature(body []byte, signature string) error {
	if u.ipnSecret == "" {
		return domainerrors.Unauthorized("webhook secret not configured")
	}
	if signature == "" {
		return domainerrors.Unauthorized("missing webhook signature")
	}

	canonical, err := canonicalizeJSON(body)
	if err != nil {
		return domainerrors.BadRequest("malformed webhook payload")
	}

	mac := hmac.New(sha512.New, []byte(u.ipnSecret))
	mac.Write(canonical)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return fmt.Errorf("%w: webhook signature mismatch", domainerrors.ErrInvalidSignature)
	}
	return nil
}

// canonicalizeJSON re-serializes the payload with sorted keys and compact
// separators. json.Number keeps numeric literals byte-identical.
func canonicalizeJSON(body []byte) ([]byte, error) {
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

// mapGatewayStatus converts a gateway status string to the payment axis.
func mapGatewayStatus(s string) (entities.PaymentStatus, bool) {
	switch strings.ToLower(s) {
	case "waiting":
		return entities.PaymentStatusWaiting, true
	case "confirming":
		return entities.PaymentStatusConfirming, true
	case "confirmed":
		return entities.PaymentStatusConfirmed, true
	case "sending":
		return entities.PaymentStatusSending, true
	case "partially_paid":
		return entities.PaymentStatusPartiallyPaid, true
	case "finished":
		return entities.PaymentStatusFinished, true
	case "failed":
		return entities.PaymentStatusFailed, true
	case "refunded":
		return entities.PaymentStatusRefunded, true
	case "expired":
		return entities.PaymentStatusExpired, true
	default:
		return "", false
	}
}

// ProcessIPN applies one verified webhook delivery. Unknown order ids return
// ErrNotFound so the handler can acknowledge without retries. Redeliveries
// and out-of-order notifications are safe.
func (u *SettlementUsecase) ProcessIPN(ctx context.Context, payload *entities.IPNPayload) error {
	newStatus, ok := mapGatewayStatus(payload.PaymentStatus)
	if !ok {
		logger.Warn(ctx, "webhook with unknown payment status",
			zap.String("status", payload.PaymentStatus),
			zap.String("order_id", payload.OrderID),
		)
		return nil
	}

	var creditedPayment *entities.Payment

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		lockCtx := u.uow.WithLock(txCtx)

		payment, err := u.paymentRepo.GetByOrderID(lockCtx, payload.OrderID)
		if err != nil {
			return err
		}

		if !payment.PaymentID.Valid {
			payment.PaymentID = null.Int64From(payload.PaymentID)
		}
		payment.PayAmount = null.StringFrom(formatAmount(payload.PayAmount))
		payment.PayCurrency = null.StringFrom(payload.PayCurrency)
		payment.ActuallyPaid = null.StringFrom(formatAmount(payload.ActuallyPaid))

		if payment.PaymentStatus.IsTerminal() && newStatus != payment.PaymentStatus {
			// late or replayed notification after a terminal state; record
			// nothing beyond the gateway echo fields
			logger.Info(lockCtx, "ignoring status change on terminal payment",
				zap.String("order_id", payment.OrderID),
				zap.String("current", string(payment.PaymentStatus)),
				zap.String("incoming", string(newStatus)),
			)
			return u.paymentRepo.Update(lockCtx, payment)
		}

		payment.PaymentStatus = newStatus

		if newStatus == entities.PaymentStatusFinished && payment.PaidAt == nil {
			now := time.Now().UTC()
			payment.PaidAt = &now
		}

		shouldCredit := newStatus == entities.PaymentStatusFinished &&
			(payment.CreditStatus == entities.CreditStatusPending || payment.CreditStatus == entities.CreditStatusFailed)

		if !shouldCredit {
			return u.paymentRepo.Update(lockCtx, payment)
		}

		priorCreditStatus := payment.CreditStatus
		if err := u.creditPayment(lockCtx, payment); err != nil {
			metrics.CreditsFailed.Inc()
			payment.CreditStatus = entities.CreditStatusFailed
			payment.CreditError = null.StringFrom(err.Error())
			logger.Error(lockCtx, "on-chain credit failed",
				zap.String("order_id", payment.OrderID),
				zap.Error(err),
			)
			return u.paymentRepo.Update(lockCtx, payment)
		}

		won, err := u.paymentRepo.CompareAndSetCreditStatus(lockCtx, payment.ID, priorCreditStatus, entities.CreditStatusCredited)
		if err != nil {
			return err
		}
		if !won {
			logger.Warn(lockCtx, "credit status already advanced by another writer",
				zap.String("order_id", payment.OrderID),
			)
			return nil
		}

		metrics.CreditsIssued.Inc()
		payment.CreditStatus = entities.CreditStatusCredited
		payment.CreditError = null.String{}
		if err := u.paymentRepo.Update(lockCtx, payment); err != nil {
			return err
		}
		creditedPayment = payment
		return nil
	})
	if err != nil {
		return err
	}

	if creditedPayment != nil {
		u.recordInvestor(ctx, creditedPayment)
		u.fanOutReferral(ctx, creditedPayment)
	}
	return nil
}

// creditPayment performs the on-chain credit while the payment row is locked.
func (u *SettlementUsecase) creditPayment(ctx context.Context, payment *entities.Payment) error {
	identity, err := wallet.IdentityKey(payment.WalletAddress)
	if err != nil {
		return err
	}
	usdMicro, err := usdStringToMicro(payment.PriceAmount)
	if err != nil {
		return err
	}

	tx, err := u.chain.CreditAllocation(ctx, identity, payment.TokenAmount, usdMicro, payment.OrderID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	payment.CreditTx = null.StringFrom(tx)
	payment.CreditedAt = &now
	return nil
}

// recordInvestor folds the credited payment into the buyer's aggregate.
// Best effort: the credit already happened, a failed rollup is only logged.
func (u *SettlementUsecase) recordInvestor(ctx context.Context, payment *entities.Payment) {
	investedAt := time.Now().UTC()
	if payment.CreditedAt != nil {
		investedAt = *payment.CreditedAt
	}
	_, err := u.investorRepo.ApplyContribution(ctx, &entities.InvestorContribution{
		WalletAddress: payment.WalletAddress,
		USDAmount:     payment.PriceAmount,
		TokenAmount:   payment.TokenAmount,
		InvestedAt:    investedAt,
	})
	if err != nil {
		logger.Error(ctx, "failed to update investor aggregate",
			zap.String("wallet", payment.WalletAddress),
			zap.Error(err),
		)
		return
	}
	u.refreshLaunchingTokens(ctx, payment.WalletAddress)
}

// refreshLaunchingTokens re-reads the wallet's on-chain claimable amount after
// a credit moved it. Best effort, a stale cache heals on the next read.
func (u *SettlementUsecase) refreshLaunchingTokens(ctx context.Context, walletAddr string) {
	identity, err := wallet.IdentityKey(walletAddr)
	if err != nil {
		return
	}
	alloc, err := u.chain.GetAllocation(ctx, identity)
	if err != nil {
		logger.Warn(ctx, "post-credit allocation read failed",
			zap.String("wallet", walletAddr),
			zap.Error(err),
		)
		return
	}
	if err := u.investorRepo.SetLaunchingTokens(ctx, walletAddr, alloc.Claimable); err != nil {
		logger.Warn(ctx, "failed to cache claimable tokens",
			zap.String("wallet", walletAddr),
			zap.Error(err),
		)
	}
}

// fanOutReferral credits the referrer's cut after the purchase committed.
// Best effort and never blocks settlement.
func (u *SettlementUsecase) fanOutReferral(ctx context.Context, payment *entities.Payment) {
	if !payment.ReferralCode.Valid || payment.ReferralCode.String == "" {
		return
	}

	referrer, err := u.investorRepo.GetByReferralCode(ctx, payment.ReferralCode.String)
	if err != nil {
		logger.Warn(ctx, "referral code did not resolve",
			zap.String("code", payment.ReferralCode.String),
			zap.Error(err),
		)
		return
	}
	if referrer.WalletAddress == payment.WalletAddress {
		// self-referral earns nothing
		return
	}

	usdMicro, err := usdStringToMicro(payment.PriceAmount)
	if err != nil {
		logger.Error(ctx, "referral amount parse failed", zap.Error(err))
		return
	}
	rewardUSDMicro := usdMicro * ReferralRewardPercent / 100
	rewardTokens := payment.TokenAmount * ReferralRewardPercent / 100
	if rewardTokens == 0 && rewardUSDMicro == 0 {
		return
	}

	identity, err := wallet.IdentityKey(referrer.WalletAddress)
	if err != nil {
		logger.Error(ctx, "referrer identity derivation failed", zap.Error(err))
		return
	}

	refOrderID := ReferralOrderPrefix + payment.OrderID
	if _, err := u.chain.CreditAllocation(ctx, identity, rewardTokens, rewardUSDMicro, refOrderID); err != nil {
		logger.Error(ctx, "referral on-chain credit failed",
			zap.String("order_id", refOrderID),
			zap.String("referrer", referrer.WalletAddress),
			zap.Error(err),
		)
		return
	}

	if err := u.investorRepo.ApplyReferralReward(ctx, &entities.ReferralReward{
		ReferrerWallet: referrer.WalletAddress,
		ReferredWallet: payment.WalletAddress,
		USDAmount:      microToUSDString(rewardUSDMicro),
		TokenAmount:    rewardTokens,
	}); err != nil {
		logger.Error(ctx, "failed to record referral reward", zap.Error(err))
		return
	}
	u.refreshLaunchingTokens(ctx, referrer.WalletAddress)
}

// usdStringToMicro parses a decimal USD string into micro-dollars with integer
// arithmetic, so settlement amounts never pass through floating point. Digits
// beyond the sixth fractional place are truncated.
func usdStringToMicro(amount string) (uint64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(amount), ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid usd amount %q", amount)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid usd amount %q", amount)
	}

	var f uint64
	if frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		if f, err = strconv.ParseUint(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("invalid usd amount %q", amount)
		}
		for i := len(frac); i < 6; i++ {
			f *= 10
		}
	}

	if w > (math.MaxUint64-f)/pricing.USDPrecision {
		return 0, fmt.Errorf("usd amount %q overflows", amount)
	}
	return w*pricing.USDPrecision + f, nil
}

func microToUSDString(micro uint64) string {
	s := strconv.FormatFloat(float64(micro)/float64(pricing.USDPrecision), 'f', -1, 64)
	return s
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
