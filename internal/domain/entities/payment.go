package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// PaymentStatus mirrors the gateway-reported payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusWaiting       PaymentStatus = "WAITING"
	PaymentStatusConfirming    PaymentStatus = "CONFIRMING"
	PaymentStatusConfirmed     PaymentStatus = "CONFIRMED"
	PaymentStatusSending       PaymentStatus = "SENDING"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusFinished      PaymentStatus = "FINISHED"
	PaymentStatusFailed        PaymentStatus = "FAILED"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusExpired       PaymentStatus = "EXPIRED"
)

// IsTerminal reports whether the gateway can no longer advance this status.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusFinished, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusExpired:
		return true
	}
	return false
}

// CreditStatus tracks whether tokens were recorded on-chain for a payment,
// independent of the gateway lifecycle. A payment enters CREDITED at most
// once, only from PENDING, and only after the gateway reports FINISHED.
type CreditStatus string

const (
	CreditStatusPending  CreditStatus = "PENDING"
	CreditStatusCredited CreditStatus = "CREDITED"
	CreditStatusFailed   CreditStatus = "FAILED"
)

// Payment is one invoice/purchase attempt. Rows are append-only: retried
// credits supersede, they never erase history.
type Payment struct {
	ID            uuid.UUID     `json:"id"`
	WalletAddress string        `json:"walletAddress"`
	ClaimWallet   null.String   `json:"claimWallet,omitempty"`
	InvoiceID     null.String   `json:"invoiceId,omitempty"`
	PaymentID     null.Int64    `json:"paymentId,omitempty"` // gateway numeric id, unique once assigned
	OrderID       string        `json:"orderId"`             // webhook idempotency join key
	PriceAmount   string        `json:"priceAmount"`         // requested USD, decimal string
	TokenAmount   uint64        `json:"tokenAmount"`         // smallest units
	PayAmount     null.String   `json:"payAmount,omitempty"`
	PayCurrency   null.String   `json:"payCurrency,omitempty"`
	ActuallyPaid  null.String   `json:"actuallyPaid,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreditStatus  CreditStatus  `json:"creditStatus"`
	ReferralCode  null.String   `json:"referralCode,omitempty"`
	CreditTx      null.String   `json:"creditTx,omitempty"`
	CreditError   null.String   `json:"creditError,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
	CreditedAt    *time.Time    `json:"creditedAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// CreateInvoiceInput is the request to open a new presale invoice.
type CreateInvoiceInput struct {
	WalletAddress string  `json:"walletAddress" binding:"required"`
	USDAmount     float64 `json:"usdAmount" binding:"required"`
	PayCurrency   string  `json:"payCurrency,omitempty"`
	SuccessURL    string  `json:"successUrl,omitempty"`
	CancelURL     string  `json:"cancelUrl,omitempty"`
	ReferralCode  string  `json:"referralCode,omitempty"`
}

// CreateInvoiceResponse is returned to the buyer for redirect to the hosted
// payment page.
type CreateInvoiceResponse struct {
	PaymentID   uuid.UUID `json:"paymentId"`
	OrderID     string    `json:"orderId"`
	InvoiceID   string    `json:"invoiceId"`
	InvoiceURL  string    `json:"invoiceUrl"`
	USDAmount   float64   `json:"usdAmount"`
	TokenAmount uint64    `json:"tokenAmount"`
}

// IPNPayload carries the gateway webhook fields the settlement engine consumes.
type IPNPayload struct {
	PaymentID       int64   `json:"payment_id"`
	PaymentStatus   string  `json:"payment_status"`
	OrderID         string  `json:"order_id"`
	PayAmount       float64 `json:"pay_amount"`
	PayCurrency     string  `json:"pay_currency"`
	ActuallyPaid    float64 `json:"actually_paid"`
	PriceAmount     float64 `json:"price_amount"`
	PriceCurrency   string  `json:"price_currency"`
	OutcomeAmount   float64 `json:"outcome_amount"`
	OutcomeCurrency string  `json:"outcome_currency"`
}
